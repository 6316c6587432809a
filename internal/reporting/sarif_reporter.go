package reporting

import (
	"fmt"
	"io"
	"sync"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/observability"
)

// ToolInformationURI is written into the SARIF driver.
const ToolInformationURI = "https://github.com/xkilldash9x/flowlens"

// RuleSecurityRisk is the rule id of results raised for security mechanisms
// that carry a risk annotation.
const RuleSecurityRisk = "SEC-RISK"

// SARIFReporter accumulates recommendations and risky security mechanisms
// as SARIF results and writes the log on Close.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	report *sarif.Report
	run    *sarif.Run

	mu     sync.Mutex
	closed bool
}

// NewSARIFReporter initializes a SARIF 2.1.0 log with a single run.
func NewSARIFReporter(w io.WriteCloser, toolVersion string) *SARIFReporter {
	logger := observability.GetLogger().Named("sarif_reporter")
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		// sarif.New only fails for unknown versions.
		logger.Error("Failed to initialize SARIF report", zap.Error(err))
	}

	run := sarif.NewRunWithInformationURI(ToolName, ToolInformationURI)
	if toolVersion != "" {
		run.Tool.Driver.Version = &toolVersion
	}
	run.Results = []*sarif.Result{}

	return &SARIFReporter{
		writer: w,
		logger: logger,
		report: report,
		run:    run,
	}
}

// Write converts the records of one artifact into results.
func (r *SARIFReporter) Write(records *schemas.ArtifactRecords) error {
	if records == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("reporter is closed")
	}

	location := artifactLocation(records)
	for _, rec := range records.Recommendations {
		level := severityToLevel(rec.Severity)
		rule := r.run.AddRule(rec.Code).
			WithDescription(rec.Message).
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: level})
		rule.WithProperties(sarif.Properties{"area": rec.Area})

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(rec.Message)).
			WithLevel(level).
			WithLocations([]*sarif.Location{location})
		result.Properties = sarif.Properties{
			"artifact_id": records.ArtifactID,
			"subject":     rec.Subject,
			"severity":    string(rec.Severity),
		}
		r.run.AddResult(result)
	}

	for _, m := range records.SecurityMechanisms {
		risk := m.Risk()
		if risk == "" {
			continue
		}
		rule := r.run.AddRule(RuleSecurityRisk).
			WithDescription("Security mechanism carries a risk annotation.").
			WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: "warning"})
		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(fmt.Sprintf("%s (%s): %s", m.Name, m.Type, risk))).
			WithLevel("warning").
			WithLocations([]*sarif.Location{location})
		result.Properties = sarif.Properties{
			"artifact_id": records.ArtifactID,
			"subject":     m.Name,
			"direction":   string(m.Direction),
		}
		r.run.AddResult(result)
	}
	return nil
}

// Close writes the SARIF log and closes the underlying writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	r.report.AddRun(r.run)
	encodeErr := r.report.PrettyWrite(r.writer)
	closeErr := r.writer.Close()
	if encodeErr != nil {
		return fmt.Errorf("failed to encode SARIF report: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close report writer: %w", closeErr)
	}
	r.logger.Debug("SARIF report written", zap.Int("results", len(r.run.Results)))
	return nil
}

// artifactLocation points at the definition file inside the archive, or at
// the artifact itself when none was recorded.
func artifactLocation(records *schemas.ArtifactRecords) *sarif.Location {
	uri := records.DefinitionFile
	if uri == "" {
		uri = records.ArtifactID
	}
	return sarif.NewLocation().WithPhysicalLocation(
		sarif.NewPhysicalLocation().WithArtifactLocation(
			sarif.NewArtifactLocation().WithUri(uri),
		),
	)
}

// severityToLevel maps recommendation severity onto SARIF levels.
func severityToLevel(s schemas.Severity) string {
	switch s {
	case schemas.SeverityHigh:
		return "error"
	case schemas.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
