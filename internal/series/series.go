// Package series holds the measurement time-series model: typed samples,
// per-series ordered point lists with timestamp-proximity merging, and
// running statistics.
package series

import (
	"math"
	"sort"
)

// ID names a logical measurement stream.
type ID string

const (
	Default  ID = "default"
	Sent     ID = "sent"
	Received ID = "received"
	Latency  ID = "latency"
)

// BandwidthIDs is the fixed set of throughput series, in render order.
var BandwidthIDs = []ID{Default, Sent, Received}

// mergeEpsilon is the timestamp tolerance below which two samples are treated
// as re-reports of the same interval.
const mergeEpsilon = 0.01

// Sample is a single measurement: seconds on the x axis, Mbps or ms on the y
// axis depending on the series. Immutable once created.
type Sample struct {
	Series ID
	Time   float64
	Value  float64
}

// Point is one stored (time, value) pair.
type Point struct {
	Time  float64
	Value float64
}

// Stats are running accumulators over every accepted sample.
//
// They deliberately include values that a later same-timestamp merge
// overwrites in the point list, matching the historical stats-overlay
// behavior. See DESIGN.md.
type Stats struct {
	Count int
	Sum   float64
	Min   float64
	Max   float64
}

// Avg returns the mean of all accepted samples, or 0 when empty.
func (s Stats) Avg() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// MinOrZero returns Min, or 0 when no sample was ever accepted.
func (s Stats) MinOrZero() float64 {
	if math.IsInf(s.Min, 1) {
		return 0
	}
	return s.Min
}

// Series owns an ordered point list plus running stats for one ID.
type Series struct {
	points []Point
	stats  Stats
}

func newSeries() *Series {
	return &Series{stats: Stats{Min: math.Inf(1)}}
}

// Ingest merges one value into the series and reports whether it was accepted.
// Values <= 0 are sentinel/invalid readings and are discarded.
//
// A sample whose timestamp lands within mergeEpsilon of an existing point
// overwrites that point's value (a corrected re-report, not a new point);
// otherwise a new point is appended. The point list is kept sorted by
// timestamp after every mutation, because end-of-run summaries arrive out of
// chronological order relative to interval samples.
func (s *Series) Ingest(t, v float64) bool {
	if v <= 0 {
		return false
	}

	merged := false
	for i := range s.points {
		if math.Abs(s.points[i].Time-t) < mergeEpsilon {
			s.points[i].Value = v
			merged = true
			break
		}
	}
	if !merged {
		s.points = append(s.points, Point{Time: t, Value: v})
	}
	sort.SliceStable(s.points, func(i, j int) bool { return s.points[i].Time < s.points[j].Time })

	// Stats accumulate on every accepted value, merged or not.
	if v > s.stats.Max {
		s.stats.Max = v
	}
	if v < s.stats.Min {
		s.stats.Min = v
	}
	s.stats.Sum += v
	s.stats.Count++
	return true
}

// Len returns the stored point count.
func (s *Series) Len() int { return len(s.points) }

// Points returns a copy of the ordered point list.
func (s *Series) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Last returns the most recent point, if any.
func (s *Series) Last() (Point, bool) {
	if len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// Stats returns the current accumulators.
func (s *Series) Stats() Stats { return s.stats }

// TruncateHead drops the oldest points until at most n remain.
// Stats are untouched; they describe everything ever accepted.
func (s *Series) TruncateHead(n int) {
	if n <= 0 || len(s.points) <= n {
		return
	}
	s.points = append(s.points[:0], s.points[len(s.points)-n:]...)
}

// Set is the collection of series for one run. It is owned by a single
// coordinating goroutine and is not safe for concurrent use.
type Set struct {
	m map[ID]*Series
}

func NewSet() *Set {
	return &Set{m: map[ID]*Series{}}
}

// Ingest routes a sample to its series, creating it on first use.
func (st *Set) Ingest(smp Sample) bool {
	s, ok := st.m[smp.Series]
	if !ok {
		s = newSeries()
		st.m[smp.Series] = s
	}
	return s.Ingest(smp.Time, smp.Value)
}

// Get returns the series for id, or nil when nothing was ingested for it.
func (st *Set) Get(id ID) *Series { return st.m[id] }

// IDs returns all populated series IDs in a stable order.
func (st *Set) IDs() []ID {
	ids := make([]ID, 0, len(st.m))
	for _, id := range []ID{Default, Sent, Received, Latency} {
		if _, ok := st.m[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Latest returns the largest timestamp across all series, or 0 when empty.
func (st *Set) Latest() float64 {
	var latest float64
	for _, s := range st.m {
		if p, ok := s.Last(); ok && p.Time > latest {
			latest = p.Time
		}
	}
	return latest
}

// Reset drops all series. Used when a new run starts or results are cleared.
func (st *Set) Reset() {
	st.m = map[ID]*Series{}
}
