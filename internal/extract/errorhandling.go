package extract

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/bpmn"
	"github.com/xkilldash9x/flowlens/internal/taxonomy"
)

// End event shapes recorded in ErrorSubprocess.EndEventTypes.
const (
	endEventMessage    = "message"
	endEventEscalation = "escalation"
	endEventError      = "error"
	endEventTerminate  = "terminate"
	endEventNone       = "none"
)

var tryCatchKeywords = []string{"error", "exception", "retry"}

// ErrorHandlingExtractor builds the error-handling aggregate of a document.
type ErrorHandlingExtractor struct {
	logger *zap.Logger
}

// NewErrorHandlingExtractor creates an ErrorHandlingExtractor.
func NewErrorHandlingExtractor(logger *zap.Logger) *ErrorHandlingExtractor {
	return &ErrorHandlingExtractor{logger: logger.Named("error_handling_extractor")}
}

// Extract merges collaboration switches with the evidence of every process.
// ArtifactID is left for the caller to fill.
func (e *ErrorHandlingExtractor) Extract(doc *bpmn.Document) schemas.ErrorHandlingConfig {
	cfg := schemas.ErrorHandlingConfig{
		Details: schemas.ErrorHandlingDetails{Processes: map[string]schemas.ProcessErrorHandling{}},
	}

	collab := doc.CollaborationProperties()
	settings := schemas.CollaborationErrorSettings{
		ReturnExceptionToSender: taxonomy.CoerceBool(bpmn.GetProperty(collab, "returnExceptionToSender")),
		ServerTrace:             taxonomy.CoerceBool(bpmn.GetProperty(collab, "ServerTrace")),
	}
	if level := strings.TrimSpace(bpmn.GetProperty(collab, "log")); !taxonomy.IsNone(level) {
		settings.LogLevel = level
		cfg.LoggingEnabled = true
	}
	cfg.ReportingEnabled = settings.ReturnExceptionToSender
	cfg.DetectionEnabled = settings.ServerTrace
	cfg.Details.Collaboration = settings

	if doc == nil {
		return cfg
	}
	for i, process := range doc.Processes {
		id := processID(process, i)
		ph := e.extractProcess(doc, process)
		if len(ph.ErrorSubprocesses) > 0 {
			cfg.DetectionEnabled = true
			cfg.ClassificationEnabled = true
		}
		if len(ph.TryCatchPatterns) > 0 {
			cfg.LoggingEnabled = true
		}
		cfg.Details.Processes[id] = ph
	}

	e.logger.Debug("Error handling extraction complete",
		zap.Int("processes", len(cfg.Details.Processes)),
		zap.Bool("detection", cfg.DetectionEnabled))
	return cfg
}

func (e *ErrorHandlingExtractor) extractProcess(doc *bpmn.Document, process *bpmn.Node) schemas.ProcessErrorHandling {
	ph := schemas.ProcessErrorHandling{
		ProcessName:       process.Attr("name"),
		ErrorSubprocesses: []schemas.ErrorSubprocess{},
		TryCatchPatterns:  []schemas.TryCatchPattern{},
	}

	for _, sub := range process.Descendants("subProcess") {
		activityType := bpmn.GetProperty(bpmn.Properties(sub), "activityType")
		if !containsFold(activityType, "error") {
			continue
		}
		ph.ErrorSubprocesses = append(ph.ErrorSubprocesses, e.errorSubprocess(doc, sub, activityType))
	}

	for _, a := range activities(process) {
		keywords := matchedKeywords(a.props)
		if len(keywords) == 0 {
			continue
		}
		ph.TryCatchPatterns = append(ph.TryCatchPatterns, schemas.TryCatchPattern{
			ID:           a.id(),
			Name:         a.name(),
			ElementType:  a.node.Name,
			ActivityType: a.activityType,
			Keywords:     keywords,
		})
	}

	props := bpmn.Properties(process)
	timeout := bpmn.GetProperty(props, "transactionTimeout")
	handling := bpmn.GetProperty(props, "transactionalHandling")
	isolation := bpmn.GetProperty(props, "isolationLevel")
	if timeout != "" || handling != "" || isolation != "" {
		ph.Transaction = &schemas.TransactionHandling{
			Timeout:          timeout,
			Handling:         handling,
			IsolationMode:    isolation,
			SupportsRollback: strings.EqualFold(strings.TrimSpace(handling), "Required"),
		}
	}
	return ph
}

func (e *ErrorHandlingExtractor) errorSubprocess(doc *bpmn.Document, sub *bpmn.Node, activityType string) schemas.ErrorSubprocess {
	es := schemas.ErrorSubprocess{
		ID:               sub.ID(),
		Name:             sub.Attr("name"),
		ActivityType:     activityType,
		ErrorStartEvents: []schemas.ErrorStartEvent{},
		EndEventTypes:    []string{},
	}

	for _, start := range sub.All("startEvent") {
		def := start.First("errorEventDefinition")
		if def == nil {
			continue
		}
		ref := def.Attr("errorRef")
		es.ErrorStartEvents = append(es.ErrorStartEvents, schemas.ErrorStartEvent{
			ID:        start.ID(),
			Name:      start.Attr("name"),
			ErrorRef:  ref,
			ErrorName: doc.ErrorName(ref),
		})
	}

	for _, end := range sub.All("endEvent") {
		es.EndEventTypes = append(es.EndEventTypes, endEventType(end))
	}
	es.Classification = classify(es)
	return es
}

func endEventType(end *bpmn.Node) string {
	switch {
	case end.Has("messageEventDefinition"):
		return endEventMessage
	case end.Has("escalationEventDefinition"):
		return endEventEscalation
	case end.Has("errorEventDefinition"):
		return endEventError
	case end.Has("terminateEventDefinition"):
		return endEventTerminate
	}
	return endEventNone
}

// classify ranks end-event shapes: message, then escalation, then any error
// evidence or an error-typed subprocess, else Basic.
func classify(es schemas.ErrorSubprocess) schemas.ErrorClassification {
	has := func(kind string) bool {
		for _, t := range es.EndEventTypes {
			if t == kind {
				return true
			}
		}
		return false
	}
	switch {
	case has(endEventMessage):
		return schemas.ClassificationResponse
	case has(endEventEscalation):
		return schemas.ClassificationEscalation
	case has(endEventError) || len(es.ErrorStartEvents) > 0 || containsFold(es.ActivityType, "error"):
		return schemas.ClassificationStandard
	}
	return schemas.ClassificationBasic
}

// matchedKeywords returns the try/catch keywords found in the property keys
// or values, sorted.
func matchedKeywords(props []bpmn.PropertyPair) []string {
	var found []string
	for _, kw := range tryCatchKeywords {
		for _, p := range props {
			if containsFold(p.Key, kw) || containsFold(p.Value, kw) {
				found = append(found, kw)
				break
			}
		}
	}
	sort.Strings(found)
	return found
}
