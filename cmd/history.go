package cmd

import (
	"context"
	"fmt"
	"io"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/config"
	"github.com/xkilldash9x/flowlens/internal/observability"
)

func newHistoryCmd(provider storeProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "history <artifact-id>",
		Short: "Show the stored change history of an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			return runHistory(ctx, observability.GetLogger(), cfg, args[0], provider, cmd.OutOrStdout())
		},
	}
}

func runHistory(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	artifactID string,
	provider storeProvider,
	out io.Writer,
) error {
	s, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	changes, err := s.History(ctx, artifactID)
	if err != nil {
		return fmt.Errorf("failed to load history of %s: %w", artifactID, err)
	}
	if changes == nil {
		changes = []schemas.ChangeRecord{}
	}
	logger.Debug("Loaded change history", zap.String("artifact_id", artifactID), zap.Int("changes", len(changes)))

	raw, err := json.ConfigCompatibleWithStandardLibrary.MarshalIndent(changes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize history: %w", err)
	}
	_, err = fmt.Fprintln(out, string(raw))
	return err
}
