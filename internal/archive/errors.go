package archive

import (
	"errors"
	"fmt"
)

// Kind classifies an archive failure.
type Kind string

const (
	KindNoDefinitionFile Kind = "NoDefinitionFileFound"
	KindCorrupt          Kind = "ArchiveCorrupt"
	KindRead             Kind = "ReadFailure"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrNoDefinitionFile = errors.New("no process definition file found")
	ErrCorrupt          = errors.New("archive is corrupt")
	ErrRead             = errors.New("failed to read archive entry")
)

// Error is returned by Unpack for every archive-level failure.
type Error struct {
	Kind       Kind
	ArtifactID string
	Entry      string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("archive %s: %s", e.ArtifactID, e.Kind)
	if e.Entry != "" {
		msg += fmt.Sprintf(" (entry %s)", e.Entry)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNoDefinitionFile:
		return e.Kind == KindNoDefinitionFile
	case ErrCorrupt:
		return e.Kind == KindCorrupt
	case ErrRead:
		return e.Kind == KindRead
	}
	return false
}
