package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "iperfmon/pkg/logx"
)

func testRecord(host string, avg float64) RunRecord {
	return RunRecord{
		At:          time.Now(),
		Kind:        "bandwidth",
		Host:        host,
		DurationSec: 10,
		Series: map[string]SeriesSummary{
			"default": {Count: 20, Avg: avg, Min: avg - 5, Max: avg + 5},
		},
	}
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("driver %q: expected nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "bolt", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileAppendAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	for i, host := range []string{"a", "b", "c"} {
		if err := st.AppendRun(ctx, testRecord(host, float64(100+i))); err != nil {
			t.Fatalf("AppendRun %s: %v", host, err)
		}
	}

	recs, err := st.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	// newest first
	if recs[0].Host != "c" || recs[1].Host != "b" {
		t.Fatalf("unexpected order: %s, %s", recs[0].Host, recs[1].Host)
	}
	sum, ok := recs[0].Series["default"]
	if !ok || sum.Count != 20 || sum.Avg != 102 {
		t.Fatalf("summary did not survive round trip: %+v", recs[0].Series)
	}
}

func TestFileRecentSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	cfg := Config{Driver: "file", Path: path}

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.AppendRun(context.Background(), testRecord("host1", 50)); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st2, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	recs, err := st2.RecentRuns(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Host != "host1" {
		t.Fatalf("history lost across reopen: %+v", recs)
	}
}

func TestFileRecentEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	recs, err := st.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}
