// Package pipeline runs the full extraction and classification of integration
// flow archives: unpack, parse, fan out to the four extractors, normalize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/archive"
	"github.com/xkilldash9x/flowlens/internal/bpmn"
	"github.com/xkilldash9x/flowlens/internal/config"
	"github.com/xkilldash9x/flowlens/internal/extract"
	"github.com/xkilldash9x/flowlens/internal/normalize"
)

// ErrMissingArtifactID is returned for an Input without an identifier.
var ErrMissingArtifactID = errors.New("artifact id is required")

// Input is one archive to analyze.
type Input struct {
	ArtifactID string
	Version    string
	Archive    []byte
}

// Pipeline holds stateless components only, so one instance can process any
// number of artifacts concurrently.
type Pipeline struct {
	logger   *zap.Logger
	unpacker *archive.Unpacker

	adapters      *extract.AdapterExtractor
	security      *extract.SecurityExtractor
	errorHandling *extract.ErrorHandlingExtractor
	persistence   *extract.PersistenceExtractor

	adapterProc     *normalize.AdapterProcessor
	securityProc    *normalize.SecurityProcessor
	errorProc       *normalize.ErrorHandlingProcessor
	persistenceProc *normalize.PersistenceProcessor
}

// New wires a Pipeline from the extraction configuration.
func New(cfg config.ExtractionConfig, logger *zap.Logger) *Pipeline {
	logger = logger.Named("pipeline")
	archiveCfg := archive.Config{DefinitionExtension: cfg.DefinitionExtension}
	if cfg.Debug.Enabled {
		archiveCfg.DebugDir = cfg.Debug.Dir
	}
	return &Pipeline{
		logger:          logger,
		unpacker:        archive.New(archiveCfg, logger),
		adapters:        extract.NewAdapterExtractor(logger),
		security:        extract.NewSecurityExtractor(logger),
		errorHandling:   extract.NewErrorHandlingExtractor(logger),
		persistence:     extract.NewPersistenceExtractor(logger),
		adapterProc:     normalize.NewAdapterProcessor(cfg.MaxFieldLength, logger),
		securityProc:    normalize.NewSecurityProcessor(cfg.MaxFieldLength, logger),
		errorProc:       normalize.NewErrorHandlingProcessor(cfg.MaxFieldLength, logger),
		persistenceProc: normalize.NewPersistenceProcessor(cfg.MaxFieldLength, logger),
	}
}

// Process analyzes one archive. Only archive and parse failures are
// returned as errors; everything else is reported through Diagnostics.
func (p *Pipeline) Process(in Input) (*schemas.ArtifactRecords, error) {
	if in.ArtifactID == "" {
		return nil, ErrMissingArtifactID
	}
	logger := p.logger.With(zap.String("artifact_id", in.ArtifactID), zap.String("version", in.Version))

	def, err := p.unpacker.Unpack(in.ArtifactID, in.Archive)
	if err != nil {
		return nil, err
	}
	doc, err := bpmn.Parse(def.Content)
	if err != nil {
		return nil, fmt.Errorf("artifact %s (%s): %w", in.ArtifactID, def.EntryName, err)
	}

	records := &schemas.ArtifactRecords{
		ArtifactID:         in.ArtifactID,
		Version:            in.Version,
		Digest:             def.Digest,
		DefinitionFile:     def.EntryName,
		Adapters:           []schemas.Adapter{},
		SecurityMechanisms: []schemas.SecurityMechanism{},
		ErrorHandling:      emptyErrorHandling(in.ArtifactID),
		Persistence:        emptyPersistence(in.ArtifactID),
		Recommendations:    []schemas.Recommendation{},
		Diagnostics:        []schemas.Diagnostic{},
	}

	// Each stage is guarded separately; a panic empties that stage only.
	p.guard(logger, records, "adapter", func() {
		raw, skips := p.adapters.Extract(doc)
		records.Diagnostics = append(records.Diagnostics, skipDiagnostics(skips)...)
		adapters, diags := p.adapterProc.Process(in.ArtifactID, raw)
		records.Adapters = adapters
		records.Diagnostics = append(records.Diagnostics, diags...)
	})
	p.guard(logger, records, "security", func() {
		mechanisms, diags := p.securityProc.Process(in.ArtifactID, p.security.Extract(doc))
		records.SecurityMechanisms = mechanisms
		records.Diagnostics = append(records.Diagnostics, diags...)
		records.Recommendations = append(records.Recommendations, p.securityProc.Recommendations(mechanisms)...)
	})
	p.guard(logger, records, "error_handling", func() {
		cfg, diags := p.errorProc.Process(in.ArtifactID, p.errorHandling.Extract(doc))
		records.ErrorHandling = cfg
		records.Diagnostics = append(records.Diagnostics, diags...)
		records.Recommendations = append(records.Recommendations, p.errorProc.Recommendations(cfg)...)
	})
	p.guard(logger, records, "persistence", func() {
		cfg, diags := p.persistenceProc.Process(in.ArtifactID, p.persistence.Extract(doc))
		records.Persistence = cfg
		records.Diagnostics = append(records.Diagnostics, diags...)
		records.Recommendations = append(records.Recommendations, p.persistenceProc.Recommendations(cfg)...)
	})

	logger.Info("Artifact processed",
		zap.String("definition", def.EntryName),
		zap.Int("adapters", len(records.Adapters)),
		zap.Int("security_mechanisms", len(records.SecurityMechanisms)),
		zap.Int("recommendations", len(records.Recommendations)),
		zap.Int("diagnostics", len(records.Diagnostics)))
	return records, nil
}

// guard runs one stage and converts a panic into a failure diagnostic.
// Diagnostics the stage appended before panicking are kept.
func (p *Pipeline) guard(logger *zap.Logger, records *schemas.ArtifactRecords, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Extraction stage panicked", zap.String("stage", stage), zap.Any("panic", r), zap.Stack("stack"))
			records.Diagnostics = append(records.Diagnostics, schemas.Diagnostic{
				Stage:  stage,
				Kind:   schemas.DiagnosticFailure,
				Reason: fmt.Sprint(r),
			})
		}
	}()
	fn()
}

func skipDiagnostics(skips []extract.Skip) []schemas.Diagnostic {
	out := make([]schemas.Diagnostic, 0, len(skips))
	for _, s := range skips {
		out = append(out, schemas.Diagnostic{
			Stage:   s.Extractor,
			Kind:    schemas.DiagnosticSkip,
			Subject: s.Subject,
			Reason:  s.Reason,
			Keys:    s.Keys,
		})
	}
	return out
}

func emptyErrorHandling(artifactID string) schemas.ErrorHandlingConfig {
	return schemas.ErrorHandlingConfig{
		ArtifactID: artifactID,
		Details:    schemas.ErrorHandlingDetails{Processes: map[string]schemas.ProcessErrorHandling{}},
	}
}

func emptyPersistence(artifactID string) schemas.PersistenceConfig {
	return schemas.PersistenceConfig{ArtifactID: artifactID, Details: schemas.PersistenceDetails{
		JMSAdapters:         []schemas.JMSAdapter{},
		MessagePersistence:  []schemas.MessagePersistenceAdapter{},
		DataStoreOperations: []schemas.DataStoreAccess{},
		DataStoreActivities: []schemas.DataStoreActivity{},
		VariableOperations:  []schemas.VariableOperation{},
		ExternalCalls:       []schemas.ExternalCall{},
	}}
}

// -- Batch --

// Failure is an artifact that could not be processed.
type Failure struct {
	Index      int
	ArtifactID string
	Err        error
}

// BatchResult holds the outcome of ProcessBatch. Results is aligned with the
// inputs; a failed or cancelled input leaves a nil entry.
type BatchResult struct {
	RunID    uuid.UUID
	Results  []*schemas.ArtifactRecords
	Failures []Failure
}

// Succeeded returns the non-nil results in input order.
func (b *BatchResult) Succeeded() []*schemas.ArtifactRecords {
	out := make([]*schemas.ArtifactRecords, 0, len(b.Results))
	for _, r := range b.Results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// ProcessBatch processes inputs on up to concurrency goroutines. A failed
// artifact is recorded and the batch continues. Cancelling ctx stops
// scheduling further inputs; their failures carry the context error.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []Input, concurrency int) *BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	result := &BatchResult{RunID: uuid.New(), Results: make([]*schemas.ArtifactRecords, len(inputs))}
	logger := p.logger.With(zap.String("run_id", result.RunID.String()))
	logger.Info("Starting batch", zap.Int("artifacts", len(inputs)), zap.Int("concurrency", concurrency))

	var mu sync.Mutex
	fail := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Failures = append(result.Failures, Failure{Index: i, ArtifactID: inputs[i].ArtifactID, Err: err})
	}

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i := range inputs {
		if err := ctx.Err(); err != nil {
			fail(i, err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fail(i, err)
				return nil
			}
			records, err := p.Process(inputs[i])
			if err != nil {
				logger.Warn("Skipping failed artifact", zap.String("artifact_id", inputs[i].ArtifactID), zap.Error(err))
				fail(i, err)
				return nil
			}
			result.Results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Failures, func(a, b int) bool { return result.Failures[a].Index < result.Failures[b].Index })
	logger.Info("Batch complete",
		zap.Int("succeeded", len(inputs)-len(result.Failures)),
		zap.Int("failed", len(result.Failures)))
	return result
}
