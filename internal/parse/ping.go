package parse

import (
	"regexp"
	"strconv"
)

// PingText extracts the round-trip time from one line of system ping output.
//
// Platform dialects seen in the wild:
//   - Traditional-Chinese Windows: 回覆自 8.8.8.8: 位元組=32 時間=5ms TTL=116
//   - English Windows:            Reply from 8.8.8.8: bytes=32 time=5ms TTL=116
//     (sub-millisecond replies print "time<1ms")
//   - Linux/macOS:                64 bytes from 8.8.8.8: icmp_seq=1 ttl=116 time=4.83 ms
//
// Non-matching lines are not an error; they pass through for display only.
type PingText struct{}

var pingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`時間=(\d+)ms`),
	regexp.MustCompile(`time[=<](\d+)ms`),
	regexp.MustCompile(`time=([\d.]+) ms`),
}

// RTT returns the latency in milliseconds and whether the line matched any
// known dialect. The caller owns the timestamp: ping tools report no relative
// time, so elapsed wall-clock since probe start is used instead.
func (PingText) RTT(line string) (float64, bool) {
	for _, re := range pingPatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}
