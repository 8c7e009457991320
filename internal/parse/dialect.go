// Package parse converts raw subprocess output lines into typed measurement
// samples.
//
// iperf3 output comes in two shapes depending on flags and tool version: a
// single JSON document with an "intervals" array (-J), and human-readable
// per-interval text lines. ping output is a third shape with locale-specific
// latency fields. Each shape gets its own Dialect so the known set stays
// enumerable and independently testable.
//
// Parsing is best-effort by contract: malformed or unrelated lines yield an
// empty result, never an error, because the stream interleaves arbitrary
// diagnostics with measurements.
package parse

import "iperfmon/internal/series"

// Dialect parses one raw line into zero or more samples.
type Dialect interface {
	// Name identifies the dialect in logs.
	Name() string
	// Parse returns the samples found in line, or nil.
	Parse(line string) []series.Sample
}
