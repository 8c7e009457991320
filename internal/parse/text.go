package parse

import (
	"regexp"
	"strconv"
	"strings"

	"iperfmon/internal/series"
)

// ThroughputText parses iperf3's human-readable interval lines, e.g.
//
//	[  5]   0.00-0.50   sec  6.25 MBytes   100 Mbits/sec
//	[  5]   0.00-10.00  sec   118 MBytes  98.7 Mbits/sec    sender
//
// The end of the reported range becomes the sample timestamp; the rate is
// normalized to Mbps. "sender"/"receiver" suffixes route the sample to the
// sent/received series.
type ThroughputText struct{}

var throughputRe = regexp.MustCompile(`(\d+\.\d+)-(\d+\.\d+)\s+sec\s+\d+\.?\d*\s+\w+\s+(\d+\.?\d*)\s+(Mbits/sec|Kbits/sec|Gbits/sec)`)

func (ThroughputText) Name() string { return "iperf3-text" }

func (ThroughputText) Parse(line string) []series.Sample {
	// Cheap pre-filter before the regexp.
	if !strings.Contains(line, "bits/sec") {
		return nil
	}
	m := throughputRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}

	end, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	value, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return nil
	}
	switch m[4] {
	case "Kbits/sec":
		value /= 1000
	case "Gbits/sec":
		value *= 1000
	}

	id := series.Default
	lower := strings.ToLower(line)
	if strings.Contains(lower, "sender") {
		id = series.Sent
	} else if strings.Contains(lower, "receiver") {
		id = series.Received
	}

	return []series.Sample{{Series: id, Time: end, Value: value}}
}
