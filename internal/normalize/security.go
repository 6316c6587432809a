package normalize

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/extract"
	"github.com/xkilldash9x/flowlens/internal/taxonomy"
)

const (
	stageSecurity = "security"

	// configKeyCategory optionally carries the adapter category of a raw mechanism.
	configKeyCategory = "category"
	// configKeyRawType keeps a vendor type that mapped to Unknown.
	configKeyRawType = "raw_type"
)

// SecurityProcessor normalizes, deduplicates and classifies security candidates.
type SecurityProcessor struct {
	maxLen int
	logger *zap.Logger
}

// NewSecurityProcessor creates a SecurityProcessor.
func NewSecurityProcessor(maxLen int, logger *zap.Logger) *SecurityProcessor {
	return &SecurityProcessor{maxLen: maxOrDefault(maxLen), logger: logger.Named("security_processor")}
}

// Process maps every candidate onto the canonical taxonomy and removes
// duplicates by (name, direction).
func (p *SecurityProcessor) Process(artifactID string, raw []extract.ExtractedSecurityMechanism) ([]schemas.SecurityMechanism, []schemas.Diagnostic) {
	c := newCollector(stageSecurity, p.maxLen, p.logger)
	out := make([]schemas.SecurityMechanism, 0, len(raw))

	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		rawType := strings.TrimSpace(r.Type)
		if name == "" {
			c.reject(rawType, "missing name")
			continue
		}
		if rawType == "" {
			c.reject(name, "missing type")
			continue
		}

		// Sorted so truncation diagnostics come out in a stable order.
		keys := make([]string, 0, len(r.Configuration))
		for k := range r.Configuration {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		config := make(map[string]string, len(keys)+1)
		for _, k := range keys {
			config[k] = c.clip(name, "configuration."+k, fmt.Sprint(r.Configuration[k]))
		}

		mechType, ok := taxonomy.SecurityType(rawType)
		if !ok {
			p.logger.Debug("Unmapped security type", zap.String("mechanism", name), zap.String("type", rawType))
			config[configKeyRawType] = c.clip(name, "configuration."+configKeyRawType, rawType)
		}

		category, _ := taxonomy.Category(stringValue(r.Configuration[configKeyCategory]))
		direction := resolveDirection(r.Direction, category, func() (schemas.Direction, bool) {
			return taxonomy.SecurityDirectionFromType(mechType)
		}, schemas.DirectionInbound)

		enabled := true
		if v, present := r.Configuration[schemas.ConfigKeyEnabled]; present {
			enabled = CoerceBool(v)
		}

		out = append(out, schemas.SecurityMechanism{
			ArtifactID:    artifactID,
			Name:          c.clip(name, "name", name),
			Type:          mechType,
			Direction:     direction,
			Enabled:       enabled,
			Configuration: config,
		})
	}
	return p.Deduplicate(out), c.diags
}

// Deduplicate keeps the first mechanism of every (name, direction) pair.
func (p *SecurityProcessor) Deduplicate(mechanisms []schemas.SecurityMechanism) []schemas.SecurityMechanism {
	type key struct {
		name      string
		direction schemas.Direction
	}
	seen := make(map[key]bool, len(mechanisms))
	out := make([]schemas.SecurityMechanism, 0, len(mechanisms))
	for _, m := range mechanisms {
		k := key{m.Name, m.Direction}
		if seen[k] {
			p.logger.Debug("Dropping duplicate security mechanism", zap.String("mechanism", m.Name), zap.String("direction", string(m.Direction)))
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	return out
}

// Classify groups mechanisms into reporting buckets, preserving order within
// each bucket.
func (p *SecurityProcessor) Classify(mechanisms []schemas.SecurityMechanism) map[schemas.SecurityBucket][]schemas.SecurityMechanism {
	buckets := make(map[schemas.SecurityBucket][]schemas.SecurityMechanism)
	for _, m := range mechanisms {
		b := taxonomy.Bucket(m.Type)
		buckets[b] = append(buckets[b], m)
	}
	return buckets
}

// Recommendations flags disabled protections and debug tracing.
func (p *SecurityProcessor) Recommendations(mechanisms []schemas.SecurityMechanism) []schemas.Recommendation {
	var recs []schemas.Recommendation
	for _, m := range mechanisms {
		switch {
		case m.Type == schemas.SecurityTypeDebug:
			recs = append(recs, schemas.Recommendation{
				Code:     "SEC-DEBUG-TRACE",
				Area:     schemas.AreaSecurity,
				Severity: schemas.SeverityMedium,
				Subject:  m.Name,
				Message:  "Server trace is enabled and records full message payloads; disable it outside troubleshooting windows.",
			})
		case !m.Enabled:
			recs = append(recs, schemas.Recommendation{
				Code:     "SEC-DISABLED",
				Area:     schemas.AreaSecurity,
				Severity: schemas.SeverityMedium,
				Subject:  m.Name,
				Message:  fmt.Sprintf("%s is explicitly disabled on an %s endpoint.", m.Type, strings.ToLower(string(m.Direction))),
			})
		}
	}
	return recs
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
