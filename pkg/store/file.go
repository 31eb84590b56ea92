package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thuhak/pbs-cache/pkg/errors"
)

// Format represents the file output format type
type Format string

const (
	// FormatJSON outputs documents in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs documents in YAML format
	FormatYAML Format = "yaml"
)

func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML:
		return false
	default:
		return true
	}
}

// SupportedFormats returns a list of all supported file output formats.
func SupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatYAML)}
}

// FileStore mirrors published documents into a directory, one file per
// document key. Writes go through a temp file and rename so readers
// never observe a partial document.
type FileStore struct {
	dir    string
	format Format
}

// NewFileStore creates a FileStore writing into dir. If format is
// unknown, defaults to JSON format.
func NewFileStore(dir string, format Format) *FileStore {
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to JSON", "format", format)
		format = FormatJSON
	}
	return &FileStore{dir: dir, format: format}
}

// Name identifies the store in logs.
func (s *FileStore) Name() string {
	return "file:" + s.dir
}

// Path returns the file a document key is written to.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s", key, s.format))
}

// Publish replaces the document file for key.
func (s *FileStore) Publish(_ context.Context, key string, doc any) error {
	payload, err := s.encode(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodePublication, "document not serializable", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+".*")
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodePublication,
			"file store write failed", err, map[string]any{"dir": s.dir})
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodePublication, "file store write failed", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodePublication, "file store write failed", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return errors.Wrap(errors.ErrCodePublication, "file store write failed", err)
	}
	return nil
}

func (s *FileStore) encode(doc any) ([]byte, error) {
	switch s.format {
	case FormatYAML:
		return yaml.Marshal(doc)
	default:
		return json.MarshalIndent(doc, "", "  ")
	}
}

// Close is a no-op; the store holds no open handles between writes.
func (s *FileStore) Close() error {
	return nil
}
