package schemas

import (
	"context"
	"time"
)

// -- Store Interface --

// Store persists the canonical records of an artifact. Implementations apply
// find-or-create/update-with-history semantics keyed by natural identifiers:
// adapter name, security mechanism name, and one error-handling and one
// persistence record per artifact.
type Store interface {
	SaveArtifact(ctx context.Context, records *ArtifactRecords) error
}

// Record kinds used in the change history.
const (
	RecordAdapter       = "adapter"
	RecordSecurity      = "security_mechanism"
	RecordErrorHandling = "error_handling"
	RecordPersistence   = "persistence"
)

// ChangeRecord is one entry of the change history: a stored record whose
// content hash differed from the incoming one.
type ChangeRecord struct {
	ID           string    `json:"id"`
	ArtifactID   string    `json:"artifact_id"`
	RecordType   string    `json:"record_type"`
	RecordName   string    `json:"record_name"`
	PreviousHash string    `json:"previous_hash"`
	CurrentHash  string    `json:"current_hash"`
	ChangedAt    time.Time `json:"changed_at"`
}
