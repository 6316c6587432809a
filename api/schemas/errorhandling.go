package schemas

// -- Error Handling Schemas --

// ErrorClassification describes how an exception subprocess terminates.
type ErrorClassification string

const (
	ClassificationResponse   ErrorClassification = "Response-based"   // Ends in a message end event.
	ClassificationEscalation ErrorClassification = "Escalation-based" // Ends in an escalation end event.
	ClassificationStandard   ErrorClassification = "Standard"         // Error-typed, but neither of the above.
	ClassificationBasic      ErrorClassification = "Basic"            // No recognizable error shape.
)

// ErrorHandlingConfig is the per-artifact aggregate of error-handling posture.
// Exactly one exists per artifact.
type ErrorHandlingConfig struct {
	ArtifactID            string               `json:"artifact_id"`
	DetectionEnabled      bool                 `json:"detection_enabled"`
	LoggingEnabled        bool                 `json:"logging_enabled"`
	ClassificationEnabled bool                 `json:"classification_enabled"`
	ReportingEnabled      bool                 `json:"reporting_enabled"`
	Details               ErrorHandlingDetails `json:"details"`
}

// ErrorHandlingDetails holds the evidence behind the aggregate booleans.
type ErrorHandlingDetails struct {
	Collaboration CollaborationErrorSettings `json:"collaboration"`
	// Processes is keyed by process identifier.
	Processes map[string]ProcessErrorHandling `json:"processes"`
}

// CollaborationErrorSettings are the top-level switches that influence error reporting.
type CollaborationErrorSettings struct {
	ReturnExceptionToSender bool   `json:"return_exception_to_sender"`
	LogLevel                string `json:"log_level,omitempty"`
	ServerTrace             bool   `json:"server_trace"`
}

// ProcessErrorHandling is the error-handling evidence of a single process.
type ProcessErrorHandling struct {
	ProcessName       string               `json:"process_name,omitempty"`
	ErrorSubprocesses []ErrorSubprocess    `json:"error_subprocesses"`
	TryCatchPatterns  []TryCatchPattern    `json:"try_catch_patterns"`
	Transaction       *TransactionHandling `json:"transaction,omitempty"`
}

// ErrorSubprocess is an exception subprocess and its shape.
type ErrorSubprocess struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	ActivityType     string              `json:"activity_type"`
	Classification   ErrorClassification `json:"classification"`
	ErrorStartEvents []ErrorStartEvent   `json:"error_start_events"`
	EndEventTypes    []string            `json:"end_event_types"`
}

// ErrorStartEvent is a start event that carries an error event definition.
type ErrorStartEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	ErrorRef  string `json:"error_ref,omitempty"`
	ErrorName string `json:"error_name,omitempty"`
}

// TryCatchPattern is an activity whose configuration mentions error,
// exception or retry handling.
type TryCatchPattern struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ElementType  string   `json:"element_type"`
	ActivityType string   `json:"activity_type,omitempty"`
	Keywords     []string `json:"keywords"`
}

// TransactionHandling captures the process-level transaction settings.
type TransactionHandling struct {
	Timeout          string `json:"timeout,omitempty"`
	Handling         string `json:"handling,omitempty"`
	IsolationMode    string `json:"isolation_mode,omitempty"`
	SupportsRollback bool   `json:"supports_rollback"`
}
