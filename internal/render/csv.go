package render

import (
	"encoding/csv"
	"fmt"
	"os"

	"iperfmon/internal/series"
)

// CSV writes the final frame of a run as rows of (series, time, value).
// Intermediate frames are ignored; the terminal frame carries the complete
// point set, so writing it once yields the whole run.
type CSV struct {
	path string
}

func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

func (c *CSV) Render(f Frame) {
	if !f.Final {
		return
	}
	if err := c.writeFinal(f); err != nil {
		fmt.Fprintf(os.Stderr, "csv render: %v\n", err)
	}
}

func (c *CSV) writeFinal(f Frame) error {
	file, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"series", "time_sec", "value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, sv := range f.Series {
		for _, p := range sv.Points {
			row := []string{string(sv.ID), formatFloat(p.Time), formatFloat(p.Value)}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string { return fmt.Sprintf("%.3f", v) }

// Snapshot extracts the stats of every series in a frame, keyed by ID.
// Used when persisting a finished run.
func Snapshot(f Frame) map[series.ID]series.Stats {
	out := make(map[series.ID]series.Stats, len(f.Series))
	for _, sv := range f.Series {
		out[sv.ID] = sv.Stats
	}
	return out
}
