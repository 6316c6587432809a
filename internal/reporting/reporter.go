// Package reporting renders artifact records as JSON, YAML or SARIF.
package reporting

import (
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/flowlens/api/schemas"
	"github.com/xkilldash9x/flowlens/internal/taxonomy"
)

// Supported output formats.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatSARIF = "sarif"
)

// ToolName is the driver name written into every report.
const ToolName = "flowlens"

// jsonCodec sorts map keys, so reports are byte-stable.
var jsonCodec = json.ConfigCompatibleWithStandardLibrary

// Reporter defines the interface for writing artifact records to an output.
type Reporter interface {
	// Write adds the records of one artifact to the report.
	Write(records *schemas.ArtifactRecords) error
	// Close finalizes the report and closes the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format. An empty outputPath or "stdout" writes
// to standard output.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{Writer: os.Stdout}
	} else {
		file, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = file
	}

	r, err := NewWithWriter(format, writer, toolVersion)
	if err != nil {
		_ = writer.Close()
		return nil, err
	}
	return r, nil
}

// NewWithWriter creates a reporter that writes to w and closes it on Close.
func NewWithWriter(format string, w io.WriteCloser, toolVersion string) (Reporter, error) {
	switch format {
	case FormatJSON:
		return newDocumentReporter(w, toolVersion, encodeJSON), nil
	case FormatYAML:
		return newDocumentReporter(w, toolVersion, encodeYAML), nil
	case FormatSARIF:
		return NewSARIFReporter(w, toolVersion), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Summary counts what a report contains.
type Summary struct {
	Artifacts          int                            `json:"artifacts"`
	Adapters           int                            `json:"adapters"`
	SecurityMechanisms int                            `json:"security_mechanisms"`
	SecurityBuckets    map[schemas.SecurityBucket]int `json:"security_buckets"`
	Recommendations    map[schemas.Severity]int       `json:"recommendations"`
	Diagnostics        int                            `json:"diagnostics"`
}

// Summarize counts records across artifacts. Every bucket appears in the
// result, zero or not.
func Summarize(artifacts []*schemas.ArtifactRecords) Summary {
	s := Summary{
		SecurityBuckets: map[schemas.SecurityBucket]int{
			schemas.BucketAuthentication: 0,
			schemas.BucketAuthorization:  0,
			schemas.BucketEncryption:     0,
			schemas.BucketLogging:        0,
			schemas.BucketProtection:     0,
			schemas.BucketOther:          0,
		},
		Recommendations: map[schemas.Severity]int{},
	}
	for _, a := range artifacts {
		s.Artifacts++
		s.Adapters += len(a.Adapters)
		s.SecurityMechanisms += len(a.SecurityMechanisms)
		s.Diagnostics += len(a.Diagnostics)
		for _, m := range a.SecurityMechanisms {
			s.SecurityBuckets[taxonomy.Bucket(m.Type)]++
		}
		for _, r := range a.Recommendations {
			s.Recommendations[r.Severity]++
		}
	}
	return s
}
