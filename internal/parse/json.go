package parse

import (
	"encoding/json"
	"strings"

	"iperfmon/internal/series"
)

// IntervalJSON parses iperf3's -J output: one JSON document carrying an
// "intervals" array of per-period sums and an "end" object with the final
// aggregates.
type IntervalJSON struct {
	// Duration is the configured total test length in seconds. The end-of-run
	// summary reports no usable per-interval timestamp, so its samples are
	// pinned to the configured duration.
	Duration float64
}

type jsonSum struct {
	Start         float64 `json:"start"`
	BitsPerSecond float64 `json:"bits_per_second"`
}

type jsonInterval struct {
	Sum         *jsonSum `json:"sum"`
	SumSent     *jsonSum `json:"sum_sent"`
	SumReceived *jsonSum `json:"sum_received"`
}

type jsonReport struct {
	Intervals []jsonInterval `json:"intervals"`
	End       *struct {
		SumSent     *jsonSum `json:"sum_sent"`
		SumReceived *jsonSum `json:"sum_received"`
	} `json:"end"`
}

func (d IntervalJSON) Name() string { return "iperf3-json" }

func (d IntervalJSON) Parse(line string) []series.Sample {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil
	}

	var rep jsonReport
	if err := json.Unmarshal([]byte(trimmed), &rep); err != nil {
		return nil
	}

	var out []series.Sample
	for _, iv := range rep.Intervals {
		if iv.Sum != nil {
			out = append(out, series.Sample{
				Series: series.Default,
				Time:   iv.Sum.Start,
				Value:  iv.Sum.BitsPerSecond / 1e6,
			})
		}
		if iv.SumSent != nil {
			out = append(out, series.Sample{
				Series: series.Sent,
				Time:   iv.SumSent.Start,
				Value:  iv.SumSent.BitsPerSecond / 1e6,
			})
		}
		if iv.SumReceived != nil {
			out = append(out, series.Sample{
				Series: series.Received,
				Time:   iv.SumReceived.Start,
				Value:  iv.SumReceived.BitsPerSecond / 1e6,
			})
		}
	}

	if rep.End != nil {
		if rep.End.SumSent != nil {
			out = append(out, series.Sample{
				Series: series.Sent,
				Time:   d.Duration,
				Value:  rep.End.SumSent.BitsPerSecond / 1e6,
			})
		}
		if rep.End.SumReceived != nil {
			out = append(out, series.Sample{
				Series: series.Received,
				Time:   d.Duration,
				Value:  rep.End.SumReceived.BitsPerSecond / 1e6,
			})
		}
	}
	return out
}
