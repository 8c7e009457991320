// Package results writes finished-run artifacts to a per-day directory
// tree under a base results directory.
package results

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Saver places artifacts under <Base>/<YYYY-MM-DD>/ with names of the
// form iperf_[kind_]YYYYMMDD_HHMMSS.<ext>, so runs from one day sort
// together and never collide across days.
type Saver struct {
	Base string

	// now is swappable for tests.
	now func() time.Time
}

func NewSaver(base string) *Saver {
	return &Saver{Base: base, now: time.Now}
}

// DefaultBase returns the per-user results directory,
// e.g. ~/iperfmon-results.
func DefaultBase() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, "iperfmon-results"), nil
}

// Path returns the artifact path for the given kind and extension,
// creating the day directory. kind may be empty for the plain
// iperf_<stamp> form.
func (s *Saver) Path(kind, ext string) (string, error) {
	now := s.now()
	day := filepath.Join(s.Base, now.Format("2006-01-02"))
	if err := os.MkdirAll(day, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}

	name := "iperf_"
	if kind != "" {
		name += kind + "_"
	}
	name += now.Format("20060102_150405") + "." + strings.TrimPrefix(ext, ".")
	return filepath.Join(day, name), nil
}

// SaveText writes the raw console transcript of a run.
func (s *Saver) SaveText(kind string, lines []string) (string, error) {
	path, err := s.Path(kind, "txt")
	if err != nil {
		return "", err
	}
	body := strings.Join(lines, "\n")
	if body != "" {
		body += "\n"
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// SaveJSON writes an already-encoded JSON document (e.g. the tool's -J
// report) verbatim.
func (s *Saver) SaveJSON(kind string, body []byte) (string, error) {
	path, err := s.Path(kind, "json")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
