package normalize

import (
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/extract"
	"github.com/xkilldash9x/flowlens/internal/taxonomy"
)

const stageAdapter = "adapter"

// AdapterProcessor normalizes adapter candidates.
type AdapterProcessor struct {
	maxLen int
	logger *zap.Logger
}

// NewAdapterProcessor creates an AdapterProcessor. A non-positive maxLen
// selects DefaultMaxFieldLength.
func NewAdapterProcessor(maxLen int, logger *zap.Logger) *AdapterProcessor {
	return &AdapterProcessor{maxLen: maxOrDefault(maxLen), logger: logger.Named("adapter_processor")}
}

// Process returns canonical adapters in input order, plus diagnostics for
// dropped or truncated records.
func (p *AdapterProcessor) Process(artifactID string, raw []extract.ExtractedAdapter) ([]schemas.Adapter, []schemas.Diagnostic) {
	c := newCollector(stageAdapter, p.maxLen, p.logger)
	out := make([]schemas.Adapter, 0, len(raw))

	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		componentType := strings.TrimSpace(r.ComponentType)
		if name == "" {
			c.reject(componentType, "missing name")
			continue
		}
		if componentType == "" {
			c.reject(name, "missing component type")
			continue
		}

		category, ok := taxonomy.Category(r.Category)
		if !ok {
			category = schemas.CategoryUnknown
		}
		direction := resolveDirection("", category, func() (schemas.Direction, bool) {
			return taxonomy.AdapterDirectionFromType(componentType)
		}, schemas.DirectionUnknown)

		props := r.RawProperties
		if len(props) == 0 {
			props = []byte("{}")
		}

		out = append(out, schemas.Adapter{
			ArtifactID:    artifactID,
			Name:          c.clip(name, "name", name),
			Type:          c.clip(name, "type", componentType),
			Category:      category,
			Direction:     direction,
			Address:       c.clip(name, "address", r.Address),
			CmdVariantURI: c.clip(name, "cmd_variant_uri", r.CmdVariantURI),
			Properties:    props,
		})
	}
	return out, c.diags
}
