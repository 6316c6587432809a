package normalize

import (
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
)

const stageErrorHandling = "error_handling"

// ErrorHandlingProcessor normalizes the error-handling aggregate.
type ErrorHandlingProcessor struct {
	maxLen int
	logger *zap.Logger
}

// NewErrorHandlingProcessor creates an ErrorHandlingProcessor.
func NewErrorHandlingProcessor(maxLen int, logger *zap.Logger) *ErrorHandlingProcessor {
	return &ErrorHandlingProcessor{maxLen: maxOrDefault(maxLen), logger: logger.Named("error_handling_processor")}
}

// Process bounds every string, drops entries without an identity and
// stamps the artifact id. The aggregate booleans are kept as extracted.
func (p *ErrorHandlingProcessor) Process(artifactID string, raw schemas.ErrorHandlingConfig) (schemas.ErrorHandlingConfig, []schemas.Diagnostic) {
	c := newCollector(stageErrorHandling, p.maxLen, p.logger)

	out := raw
	out.ArtifactID = artifactID
	out.Details.Collaboration.LogLevel = c.clip("collaboration", "log_level", raw.Details.Collaboration.LogLevel)
	out.Details.Processes = make(map[string]schemas.ProcessErrorHandling, len(raw.Details.Processes))

	for _, pid := range sortedKeys(raw.Details.Processes) {
		ph := raw.Details.Processes[pid]
		clean := schemas.ProcessErrorHandling{
			ProcessName:       c.clip(pid, "process_name", ph.ProcessName),
			ErrorSubprocesses: []schemas.ErrorSubprocess{},
			TryCatchPatterns:  []schemas.TryCatchPattern{},
		}

		for _, es := range ph.ErrorSubprocesses {
			if es.ID == "" && es.Name == "" {
				c.reject(pid, "error subprocess without id or name")
				continue
			}
			subject := firstNonEmpty(es.Name, es.ID)
			es.ID = c.clip(subject, "id", es.ID)
			es.Name = c.clip(subject, "name", es.Name)
			es.ActivityType = c.clip(subject, "activity_type", es.ActivityType)
			starts := make([]schemas.ErrorStartEvent, 0, len(es.ErrorStartEvents))
			for _, se := range es.ErrorStartEvents {
				se.Name = c.clip(subject, "error_start_event.name", se.Name)
				se.ErrorName = c.clip(subject, "error_start_event.error_name", se.ErrorName)
				starts = append(starts, se)
			}
			es.ErrorStartEvents = starts
			if es.EndEventTypes == nil {
				es.EndEventTypes = []string{}
			}
			clean.ErrorSubprocesses = append(clean.ErrorSubprocesses, es)
		}

		for _, tc := range ph.TryCatchPatterns {
			if tc.ID == "" && tc.Name == "" {
				c.reject(pid, "try/catch pattern without id or name")
				continue
			}
			subject := firstNonEmpty(tc.Name, tc.ID)
			tc.Name = c.clip(subject, "name", tc.Name)
			tc.ActivityType = c.clip(subject, "activity_type", tc.ActivityType)
			if tc.Keywords == nil {
				tc.Keywords = []string{}
			}
			clean.TryCatchPatterns = append(clean.TryCatchPatterns, tc)
		}

		if ph.Transaction != nil {
			tx := *ph.Transaction
			tx.Timeout = c.clip(pid, "transaction.timeout", tx.Timeout)
			tx.Handling = c.clip(pid, "transaction.handling", tx.Handling)
			tx.IsolationMode = c.clip(pid, "transaction.isolation_mode", tx.IsolationMode)
			clean.Transaction = &tx
		}
		out.Details.Processes[pid] = clean
	}
	return out, c.diags
}

// Recommendations derives advisory findings from a normalized aggregate.
func (p *ErrorHandlingProcessor) Recommendations(cfg schemas.ErrorHandlingConfig) []schemas.Recommendation {
	var recs []schemas.Recommendation

	if cfg.Details.Collaboration.ReturnExceptionToSender {
		recs = append(recs, schemas.Recommendation{
			Code:     "ERR-DISCLOSURE",
			Area:     schemas.AreaErrorHandling,
			Severity: schemas.SeverityHigh,
			Subject:  "Collaboration",
			Message:  "Exceptions are returned to the sender and can disclose internal details; return a generic fault instead.",
		})
	}

	for _, pid := range sortedKeys(cfg.Details.Processes) {
		ph := cfg.Details.Processes[pid]
		if len(ph.ErrorSubprocesses) == 0 {
			recs = append(recs, schemas.Recommendation{
				Code:     "ERR-NO-SUBPROCESS",
				Area:     schemas.AreaErrorHandling,
				Severity: schemas.SeverityMedium,
				Subject:  pid,
				Message:  "Process has no exception subprocess; failures surface only through default platform handling.",
			})
		}
		for _, es := range ph.ErrorSubprocesses {
			if es.Classification == schemas.ClassificationBasic {
				recs = append(recs, schemas.Recommendation{
					Code:     "ERR-BASIC-HANDLER",
					Area:     schemas.AreaErrorHandling,
					Severity: schemas.SeverityLow,
					Subject:  firstNonEmpty(es.Name, es.ID),
					Message:  "Exception subprocess shows no error, reply or escalation shape; failures may be swallowed.",
				})
			}
		}
	}

	if !cfg.LoggingEnabled {
		recs = append(recs, schemas.Recommendation{
			Code:     "ERR-NO-LOGGING",
			Area:     schemas.AreaErrorHandling,
			Severity: schemas.SeverityLow,
			Subject:  "Collaboration",
			Message:  "No log level or error-aware step was found; failed messages may leave no trace.",
		})
	}
	return recs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
