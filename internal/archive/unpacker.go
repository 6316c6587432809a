// Package archive locates the process-definition document inside an exported
// integration-flow archive.
package archive

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// DefaultDefinitionExtension is the suffix of process-definition entries.
const DefaultDefinitionExtension = ".iflw"

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// debugDigestBytes is how much of the id digest goes into debug file names.
const debugDigestBytes = 4

// Config configures an Unpacker.
type Config struct {
	// DefinitionExtension selects the entry to extract. Matching is case-insensitive.
	DefinitionExtension string
	// DebugDir, when non-empty, receives a copy of every archive and its
	// extracted definition, named by artifact id. It is never read back.
	DebugDir string
}

// Definition is the extracted process-definition document of an artifact.
type Definition struct {
	ArtifactID string
	EntryName  string
	Content    []byte
	// Digest is the hex BLAKE3 digest of the whole archive.
	Digest string
}

// Unpacker extracts process definitions from archive buffers. It holds no
// per-artifact state and is safe for concurrent use.
type Unpacker struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an Unpacker.
func New(cfg Config, logger *zap.Logger) *Unpacker {
	if cfg.DefinitionExtension == "" {
		cfg.DefinitionExtension = DefaultDefinitionExtension
	}
	return &Unpacker{cfg: cfg, logger: logger.Named("unpacker")}
}

// Unpack scans the archive for entries ending in the definition extension
// and returns the first one. Additional matches are logged and ignored.
func (u *Unpacker) Unpack(artifactID string, data []byte) (*Definition, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &Error{Kind: KindCorrupt, ArtifactID: artifactID, Err: err}
	}

	ext := strings.ToLower(u.cfg.DefinitionExtension)
	var matches []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(f.Name), ext) {
			matches = append(matches, f)
		}
	}

	if len(matches) == 0 {
		u.logger.Warn("No process definition entry in archive",
			zap.String("artifact_id", artifactID),
			zap.String("extension", u.cfg.DefinitionExtension),
			zap.Int("entries", len(zr.File)))
		return nil, &Error{Kind: KindNoDefinitionFile, ArtifactID: artifactID}
	}
	if len(matches) > 1 {
		ignored := make([]string, 0, len(matches)-1)
		for _, f := range matches[1:] {
			ignored = append(ignored, f.Name)
		}
		u.logger.Warn("Multiple process definition entries; using the first",
			zap.String("artifact_id", artifactID),
			zap.String("used", matches[0].Name),
			zap.Strings("ignored", ignored))
	}

	entry := matches[0]
	content, err := readEntry(entry)
	if err != nil {
		return nil, &Error{Kind: KindRead, ArtifactID: artifactID, Entry: entry.Name, Err: err}
	}

	digest := blake3.Sum256(data)
	def := &Definition{
		ArtifactID: artifactID,
		EntryName:  entry.Name,
		Content:    content,
		Digest:     hex.EncodeToString(digest[:]),
	}
	u.logger.Debug("Extracted process definition",
		zap.String("artifact_id", artifactID),
		zap.String("entry", entry.Name),
		zap.Int("bytes", len(content)))

	if u.cfg.DebugDir != "" {
		u.writeDebug(artifactID, data, content)
	}
	return def, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// writeDebug stores the archive and definition for post-hoc inspection.
// Failures are logged only.
func (u *Unpacker) writeDebug(artifactID string, archive, definition []byte) {
	if err := os.MkdirAll(u.cfg.DebugDir, 0o755); err != nil {
		u.logger.Warn("Failed to create debug directory", zap.String("dir", u.cfg.DebugDir), zap.Error(err))
		return
	}
	base := DebugBaseName(artifactID)
	files := map[string][]byte{
		base + ".zip":                  archive,
		base + u.cfg.DefinitionExtension: definition,
	}
	for name, content := range files {
		path := filepath.Join(u.cfg.DebugDir, name)
		if err := os.WriteFile(path, content, 0o644); err != nil {
			u.logger.Warn("Failed to write debug file", zap.String("path", path), zap.Error(err))
			continue
		}
		u.logger.Debug("Wrote debug file", zap.String("path", path))
	}
}

// DebugBaseName maps an artifact id onto a file name that is safe on every
// platform and distinct per artifact. The readable part is lossy, so a short
// BLAKE3 digest of the raw id keeps ids like "a/b" and "a b" apart.
func DebugBaseName(artifactID string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(artifactID, "_"), "._")
	if name == "" {
		name = "artifact"
	}
	sum := blake3.Sum256([]byte(artifactID))
	return name + "-" + hex.EncodeToString(sum[:debugDigestBytes])
}
