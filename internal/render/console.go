package render

import (
	"fmt"
	"io"
	"os"

	"iperfmon/internal/series"
)

// Console prints a one-line summary per frame: latest value and running
// stats for each series. Intermediate frames overwrite nothing; each line
// stands alone, so the output reads as a log of the run.
type Console struct {
	out           io.Writer
	headerPrinted bool
}

func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleTo writes to w instead of stdout.
func NewConsoleTo(w io.Writer) *Console {
	return &Console{out: w}
}

func (c *Console) Render(f Frame) {
	if !c.headerPrinted {
		fmt.Fprintln(c.out, "series    | last       | avg        | min        | max        | points")
		fmt.Fprintln(c.out, "----------|------------|------------|------------|------------|-------")
		c.headerPrinted = true
	}

	unit := "Mbps"
	if f.Kind == LatencyRTT {
		unit = "ms"
	}

	for _, sv := range f.Series {
		last := "-"
		if n := len(sv.Points); n > 0 {
			last = fmt.Sprintf("%.2f %s", sv.Points[n-1].Value, unit)
		}
		fmt.Fprintf(c.out, "%-9s | %10s | %7.2f %s | %7.2f %s | %7.2f %s | %d\n",
			sv.ID, last,
			sv.Stats.Avg(), unit,
			sv.Stats.MinOrZero(), unit,
			sv.Stats.Max, unit,
			len(sv.Points),
		)
	}
	if f.Final {
		fmt.Fprintf(c.out, "run finished (window %.1f-%.1fs)\n", f.Window.Min, f.Window.Max)
	}
}

// lastView finds the view for one series within a frame.
func lastView(f Frame, id series.ID) (SeriesView, bool) {
	for _, sv := range f.Series {
		if sv.ID == id {
			return sv, true
		}
	}
	return SeriesView{}, false
}
