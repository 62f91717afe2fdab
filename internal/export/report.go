package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"fingerprinter/internal/indexer"
)

// Report is the YAML document written by `run --report`.
type Report struct {
	Version    string    `yaml:"version"`
	Database   string    `yaml:"database"`
	Roots      []string  `yaml:"roots"`
	Algorithms []string  `yaml:"algorithms"`
	FinishedAt time.Time `yaml:"finished_at"`
	Error      string    `yaml:"error,omitempty"`

	Summary indexer.Summary `yaml:"summary"`
}

// EncodeReport writes r to w as YAML.
func EncodeReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// WriteReport writes r to path, or to stdout when path is "-".
func WriteReport(path string, r Report) error {
	if path == "-" {
		return EncodeReport(os.Stdout, r)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := EncodeReport(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
