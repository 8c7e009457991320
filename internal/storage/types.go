package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	MaxRuns     int           // cap for RecentRuns; 0 means driver default
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord summarizes one completed measurement.
// Keep it compact and schema-stable.
type RunRecord struct {
	At   time.Time `json:"at"`
	Kind string    `json:"kind"` // "bandwidth" or "latency"
	Host string    `json:"host"`

	// DurationSec is the configured test length for bandwidth runs and
	// the observed session length for latency sessions.
	DurationSec float64 `json:"duration_sec"`

	// Series maps series name ("default", "sent", "received",
	// "latency") to its aggregate statistics.
	Series map[string]SeriesSummary `json:"series"`
}

type SeriesSummary struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}
