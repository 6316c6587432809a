package reporting

import (
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/flowlens/api/schemas"
)

// Document is the JSON and YAML report layout.
type Document struct {
	Tool      string                     `json:"tool"`
	Version   string                     `json:"version"`
	Summary   Summary                    `json:"summary"`
	Artifacts []*schemas.ArtifactRecords `json:"artifacts"`
}

type encodeFunc func(w io.Writer, doc Document) error

// documentReporter buffers artifacts and encodes one document on Close.
type documentReporter struct {
	writer      io.WriteCloser
	toolVersion string
	encode      encodeFunc

	mu        sync.Mutex
	artifacts []*schemas.ArtifactRecords
	closed    bool
}

func newDocumentReporter(w io.WriteCloser, toolVersion string, encode encodeFunc) *documentReporter {
	return &documentReporter{
		writer:      w,
		toolVersion: toolVersion,
		encode:      encode,
		artifacts:   []*schemas.ArtifactRecords{},
	}
}

func (r *documentReporter) Write(records *schemas.ArtifactRecords) error {
	if records == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("reporter is closed")
	}
	r.artifacts = append(r.artifacts, records)
	return nil
}

func (r *documentReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	doc := Document{
		Tool:      ToolName,
		Version:   r.toolVersion,
		Summary:   Summarize(r.artifacts),
		Artifacts: r.artifacts,
	}
	encodeErr := r.encode(r.writer, doc)
	closeErr := r.writer.Close()
	if encodeErr != nil {
		return fmt.Errorf("failed to encode report: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close report writer: %w", closeErr)
	}
	return nil
}

func encodeJSON(w io.Writer, doc Document) error {
	raw, err := jsonCodec.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	_, err = w.Write(raw)
	return err
}

// encodeYAML goes through JSON first so the json tags and raw adapter
// properties decide the layout.
func encodeYAML(w io.Writer, doc Document) error {
	raw, err := jsonCodec.Marshal(doc)
	if err != nil {
		return err
	}
	var generic any
	if err := jsonCodec.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
