package schemas

// Severity is the advisory weight of a recommendation. The values are
// lowercase to align with database ENUMs.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
	SeverityInfo   Severity = "info"
)

// Recommendation areas.
const (
	AreaSecurity      = "security"
	AreaErrorHandling = "error_handling"
	AreaPersistence   = "persistence"
)

// Recommendation is an advisory output derived from canonical records. It
// never affects the records themselves.
type Recommendation struct {
	Code     string   `json:"code"`
	Area     string   `json:"area"`
	Severity Severity `json:"severity"`
	Subject  string   `json:"subject"`
	Message  string   `json:"message"`
}

// DiagnosticKind classifies a non-fatal pipeline diagnostic.
type DiagnosticKind string

const (
	DiagnosticSkip       DiagnosticKind = "extraction_warning" // A fragment lacked evidence and was skipped.
	DiagnosticValidation DiagnosticKind = "validation_warning" // A normalized record failed validation and was dropped.
	DiagnosticTruncation DiagnosticKind = "truncation"         // A field exceeded the maximum length.
	DiagnosticFailure    DiagnosticKind = "extractor_failure"  // An extractor aborted; its result is empty.
)

// Diagnostic records why something was skipped, dropped or altered.
type Diagnostic struct {
	Stage   string         `json:"stage"`
	Kind    DiagnosticKind `json:"kind"`
	Subject string         `json:"subject,omitempty"`
	Reason  string         `json:"reason"`
	Keys    []string       `json:"keys,omitempty"`
}

// ArtifactRecords is everything the pipeline recovered from one artifact.
// It carries no timestamps, so two runs over the same bytes produce
// identical values.
type ArtifactRecords struct {
	ArtifactID string `json:"artifact_id"`
	Version    string `json:"version"`
	// Digest is the hex BLAKE3 digest of the archive bytes.
	Digest             string              `json:"digest"`
	DefinitionFile     string              `json:"definition_file"`
	Adapters           []Adapter           `json:"adapters"`
	SecurityMechanisms []SecurityMechanism `json:"security_mechanisms"`
	ErrorHandling      ErrorHandlingConfig `json:"error_handling"`
	Persistence        PersistenceConfig   `json:"persistence"`
	Recommendations    []Recommendation    `json:"recommendations"`
	Diagnostics        []Diagnostic        `json:"diagnostics"`
}
