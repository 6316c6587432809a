package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/internal/config"
	"github.com/xkilldash9x/flowlens/internal/observability"
	"github.com/xkilldash9x/flowlens/internal/pipeline"
	"github.com/xkilldash9x/flowlens/internal/reporting"
)

// analyzeOptions holds the flags of the analyze command. Zero values fall
// back to the configuration.
type analyzeOptions struct {
	artifactID  string
	version     string
	concurrency int
	outputPath  string
	format      string
	persist     bool
}

func newAnalyzeCmd(provider storeProvider) *cobra.Command {
	var opts analyzeOptions

	analyzeCmd := &cobra.Command{
		Use:   "analyze [archive...]",
		Short: "Extract and classify integration flow archives",
		Long: `Unpacks each archive, parses its process definition and reports the adapters,
security mechanisms, error handling and persistence it finds. An artifact that
fails is reported and skipped; the command then exits with an error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runAnalyze(ctx, observability.GetLogger(), cfg, args, opts, provider)
		},
	}

	analyzeCmd.Flags().StringVar(&opts.artifactID, "artifact-id", "", "Artifact id (default: archive file name without extension; single archive only)")
	analyzeCmd.Flags().StringVar(&opts.version, "version", "", "Artifact version recorded with the results")
	analyzeCmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Number of archives processed in parallel (default: engine.worker_concurrency)")
	analyzeCmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	analyzeCmd.Flags().StringVarP(&opts.format, "format", "f", "", "Report format: json, yaml or sarif (default: report.format)")
	analyzeCmd.Flags().BoolVar(&opts.persist, "store", false, "Persist the results to the database")

	return analyzeCmd
}

// artifactIDFromPath is the file name without its extension.
func artifactIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// runAnalyze contains the core, testable logic of the analyze command.
func runAnalyze(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	paths []string,
	opts analyzeOptions,
	provider storeProvider,
) error {
	if opts.artifactID != "" && len(paths) > 1 {
		return errors.New("--artifact-id can only be used with a single archive")
	}
	format := opts.format
	if format == "" {
		format = cfg.Report.Format
	}
	concurrency := opts.concurrency
	if concurrency <= 0 {
		concurrency = cfg.Engine.WorkerConcurrency
	}

	// Read every archive first so a bad path is reported before any work.
	inputs := make([]pipeline.Input, 0, len(paths))
	var failed int
	for _, path := range paths {
		id := opts.artifactID
		if id == "" {
			id = artifactIDFromPath(path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("Failed to read archive", zap.String("path", path), zap.Error(err))
			failed++
			continue
		}
		inputs = append(inputs, pipeline.Input{ArtifactID: id, Version: opts.version, Archive: data})
	}

	reporter, err := reporting.New(format, opts.outputPath, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}

	p := pipeline.New(cfg.Extraction, logger)
	batch := p.ProcessBatch(ctx, inputs, concurrency)
	for _, f := range batch.Failures {
		logger.Error("Artifact failed", zap.String("artifact_id", f.ArtifactID), zap.Error(f.Err))
	}
	failed += len(batch.Failures)

	succeeded := batch.Succeeded()
	for _, records := range succeeded {
		if err := reporter.Write(records); err != nil {
			_ = reporter.Close()
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	if opts.outputPath != "" {
		logger.Info("Report successfully written to file", zap.String("path", opts.outputPath), zap.String("format", format))
	}

	if opts.persist && len(succeeded) > 0 {
		s, cleanup, err := provider.Create(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}
		if cleanup != nil {
			defer cleanup()
		}
		for _, records := range succeeded {
			if err := s.SaveArtifact(ctx, records); err != nil {
				logger.Error("Failed to store artifact", zap.String("artifact_id", records.ArtifactID), zap.Error(err))
				failed++
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d artifacts failed", failed, len(paths))
	}
	return nil
}
