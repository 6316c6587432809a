// Package normalize turns raw extractor candidates into canonical,
// persistence-ready records: it bounds field lengths, maps free-form strings
// onto closed enums, resolves directions and drops records that lack an
// identity.
package normalize

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/taxonomy"
)

// DefaultMaxFieldLength bounds every string field of a canonical record.
const DefaultMaxFieldLength = 255

// ValidationWarning reports a record dropped for missing a required field.
type ValidationWarning struct {
	Stage   string
	Subject string
	Reason  string
}

func (w ValidationWarning) Error() string {
	return fmt.Sprintf("%s: dropped %q: %s", w.Stage, w.Subject, w.Reason)
}

// Diagnostic converts the warning for inclusion in a result.
func (w ValidationWarning) Diagnostic() schemas.Diagnostic {
	return schemas.Diagnostic{Stage: w.Stage, Kind: schemas.DiagnosticValidation, Subject: w.Subject, Reason: w.Reason}
}

// Truncate cuts s to at most max runes. The boolean reports whether it did.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	return string([]rune(s)[:max]), true
}

// CoerceBool converts boolean-like input to a strict boolean.
func CoerceBool(v any) bool { return taxonomy.CoerceBool(v) }

// collector gathers the diagnostics of one Process call.
type collector struct {
	stage  string
	max    int
	logger *zap.Logger
	diags  []schemas.Diagnostic
}

func newCollector(stage string, max int, logger *zap.Logger) *collector {
	return &collector{stage: stage, max: max, logger: logger}
}

// clip bounds one field and records the truncation.
func (c *collector) clip(subject, field, v string) string {
	out, truncated := Truncate(v, c.max)
	if truncated {
		c.logger.Debug("Truncated field",
			zap.String("subject", subject),
			zap.String("field", field),
			zap.Int("max_length", c.max),
			zap.Int("original_length", utf8.RuneCountInString(v)))
		c.diags = append(c.diags, schemas.Diagnostic{
			Stage:   c.stage,
			Kind:    schemas.DiagnosticTruncation,
			Subject: subject,
			Reason:  fmt.Sprintf("%s exceeded %d characters", field, c.max),
		})
	}
	return out
}

func (c *collector) reject(subject, reason string) {
	w := ValidationWarning{Stage: c.stage, Subject: subject, Reason: reason}
	c.logger.Warn("Dropping invalid record", zap.String("subject", subject), zap.String("reason", reason))
	c.diags = append(c.diags, w.Diagnostic())
}

func maxOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxFieldLength
	}
	return n
}

// resolveDirection applies the fallback chain: explicit value, then the
// adapter category, then a guess from the type, then def.
func resolveDirection(explicit string, category schemas.AdapterCategory, fromType func() (schemas.Direction, bool), def schemas.Direction) schemas.Direction {
	if d, ok := taxonomy.Direction(explicit); ok {
		return d
	}
	if d, ok := taxonomy.AdapterDirection(category); ok {
		return d
	}
	if d, ok := fromType(); ok {
		return d
	}
	return def
}
