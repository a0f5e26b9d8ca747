// Package store persists pipeline reports for human review.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/clinsift/clinsift/internal/pipeline"
)

// Format selects the report serialization.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat maps a config string to a Format, defaulting to YAML.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// FileStore writes reports to a directory, one file per run.
type FileStore struct {
	dir    string
	format Format
}

// NewFileStore creates the output directory if needed.
func NewFileStore(dir string, format Format) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{dir: dir, format: format}, nil
}

// Save writes the report and returns its path.
func (s *FileStore) Save(rep *pipeline.Report) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)
	switch s.format {
	case FormatJSON:
		data, err = json.MarshalIndent(rep, "", "  ")
		ext = "json"
	default:
		data, err = yaml.Marshal(rep)
		ext = "yaml"
	}
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s.%s", rep.DocumentID, rep.RunID, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Load reads a previously saved report back. Format is inferred from the
// file extension.
func Load(path string) (*pipeline.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rep pipeline.Report
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &rep)
	} else {
		err = yaml.Unmarshal(data, &rep)
	}
	if err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &rep, nil
}
