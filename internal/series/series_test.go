package series

import (
	"math"
	"sort"
	"testing"
)

func TestIngestAppendsAndSorts(t *testing.T) {
	s := newSeries()
	for _, p := range []Point{{1.0, 50}, {0.5, 40}, {2.0, 60}, {0.0, 30}} {
		if !s.Ingest(p.Time, p.Value) {
			t.Fatalf("sample (%v,%v) rejected", p.Time, p.Value)
		}
	}
	pts := s.Points()
	if len(pts) != 4 {
		t.Fatalf("expected 4 points, got %d", len(pts))
	}
	if !sort.SliceIsSorted(pts, func(i, j int) bool { return pts[i].Time < pts[j].Time }) {
		t.Fatalf("points not sorted by time: %+v", pts)
	}
}

func TestIngestMergeWithinEpsilon(t *testing.T) {
	s := newSeries()
	s.Ingest(1.000, 100)
	s.Ingest(1.005, 200) // within 0.01s: overwrite in place
	if s.Len() != 1 {
		t.Fatalf("expected merged single point, got %d", s.Len())
	}
	if got := s.Points()[0].Value; got != 200 {
		t.Fatalf("expected last-write-wins value 200, got %v", got)
	}

	s.Ingest(1.02, 300) // >= 0.01s away: distinct point
	if s.Len() != 2 {
		t.Fatalf("expected 2 points after distant ingest, got %d", s.Len())
	}
}

func TestIngestDiscardsNonPositive(t *testing.T) {
	s := newSeries()
	if s.Ingest(0, 0) {
		t.Fatal("zero value must be discarded")
	}
	if s.Ingest(1, -3.5) {
		t.Fatal("negative value must be discarded")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty point list, got %d points", s.Len())
	}
	st := s.Stats()
	if st.Count != 0 || st.Sum != 0 || st.Max != 0 || !math.IsInf(st.Min, 1) {
		t.Fatalf("stats touched by discarded samples: %+v", st)
	}
}

func TestStatsAccumulateAcrossMerges(t *testing.T) {
	s := newSeries()
	vals := []float64{100, 50, 200} // all at ~the same timestamp
	for _, v := range vals {
		s.Ingest(1.0, v)
	}
	if s.Len() != 1 {
		t.Fatalf("expected single merged point, got %d", s.Len())
	}

	st := s.Stats()
	if st.Count != len(vals) {
		t.Fatalf("count = %d, want %d", st.Count, len(vals))
	}
	if st.Sum != 350 {
		t.Fatalf("sum = %v, want 350", st.Sum)
	}
	if st.Min != 50 || st.Max != 200 {
		t.Fatalf("min/max = %v/%v, want 50/200", st.Min, st.Max)
	}
	// The overwritten 100 and 50 still count toward the mean.
	if got := st.Avg(); math.Abs(got-350.0/3.0) > 1e-9 {
		t.Fatalf("avg = %v", got)
	}
}

func TestStatsMinOrZero(t *testing.T) {
	var st Stats
	st.Min = math.Inf(1)
	if st.MinOrZero() != 0 {
		t.Fatal("empty stats should report min 0")
	}
	st.Min = 12.5
	if st.MinOrZero() != 12.5 {
		t.Fatal("populated min must pass through")
	}
}

func TestTruncateHead(t *testing.T) {
	s := newSeries()
	for i := 0; i < 10; i++ {
		s.Ingest(float64(i), float64(i+1))
	}
	before := s.Stats()
	s.TruncateHead(3)
	if s.Len() != 3 {
		t.Fatalf("expected 3 points after truncate, got %d", s.Len())
	}
	if got := s.Points()[0].Time; got != 7 {
		t.Fatalf("expected oldest retained point at t=7, got %v", got)
	}
	if s.Stats() != before {
		t.Fatal("truncation must not rewrite stats")
	}
}

func TestSetRoutesAndTracksLatest(t *testing.T) {
	set := NewSet()
	set.Ingest(Sample{Series: Default, Time: 0.5, Value: 100})
	set.Ingest(Sample{Series: Sent, Time: 1.0, Value: 80})
	set.Ingest(Sample{Series: Received, Time: 0.75, Value: 90})

	if got := set.Latest(); got != 1.0 {
		t.Fatalf("latest = %v, want 1.0", got)
	}
	ids := set.IDs()
	want := []ID{Default, Sent, Received}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids order = %v, want %v", ids, want)
		}
	}

	set.Reset()
	if len(set.IDs()) != 0 || set.Latest() != 0 {
		t.Fatal("reset must drop all series")
	}
}
