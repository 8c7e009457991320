package render

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"iperfmon/internal/series"
)

func sampleFrame(final bool) Frame {
	return Frame{
		Kind:  Bandwidth,
		Final: final,
		Series: []SeriesView{
			{ID: series.Default, Points: []series.Point{{Time: 0.5, Value: 100}, {Time: 1.0, Value: 110}}},
			{ID: series.Sent, Points: []series.Point{{Time: 10, Value: 98.7}}},
		},
	}
}

func TestCSVWritesFinalFrameOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")
	c := NewCSV(path)

	c.Render(sampleFrame(false))
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("intermediate frame must not create the file")
	}

	c.Render(sampleFrame(true))
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 { // header + 3 points
		t.Fatalf("expected 4 rows, got %d: %v", len(rows), rows)
	}
	if rows[1][0] != "default" || rows[1][1] != "0.500" || rows[1][2] != "100.000" {
		t.Fatalf("unexpected first data row: %v", rows[1])
	}
	if rows[3][0] != "sent" {
		t.Fatalf("unexpected last data row: %v", rows[3])
	}
}

func TestMultiFansOut(t *testing.T) {
	var a, b int
	m := Multi(
		RendererFunc(func(Frame) { a++ }),
		nil,
		RendererFunc(func(Frame) { b++ }),
	)
	m.Render(sampleFrame(false))
	m.Render(sampleFrame(true))
	if a != 2 || b != 2 {
		t.Fatalf("fanout counts = %d/%d, want 2/2", a, b)
	}
}

func TestLastView(t *testing.T) {
	f := sampleFrame(true)
	if _, ok := lastView(f, series.Received); ok {
		t.Fatal("missing series must not be found")
	}
	sv, ok := lastView(f, series.Sent)
	if !ok || sv.Points[0].Value != 98.7 {
		t.Fatalf("unexpected view: %+v ok=%v", sv, ok)
	}
}
