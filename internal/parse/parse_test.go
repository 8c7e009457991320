package parse

import (
	"math"
	"testing"

	"iperfmon/internal/series"
)

func TestIntervalJSONSumProducesDefaultSample(t *testing.T) {
	d := IntervalJSON{Duration: 10}
	got := d.Parse(`{"intervals":[{"sum":{"start":0.0,"bits_per_second":100000000}}]}`)
	if len(got) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(got))
	}
	s := got[0]
	if s.Series != series.Default || s.Time != 0.0 || s.Value != 100.0 {
		t.Fatalf("unexpected sample %+v", s)
	}
}

func TestIntervalJSONBidirectionalInterval(t *testing.T) {
	d := IntervalJSON{Duration: 10}
	line := `{"intervals":[{"sum":{"start":1.5,"bits_per_second":2000000},` +
		`"sum_sent":{"start":1.5,"bits_per_second":1000000},` +
		`"sum_received":{"start":1.5,"bits_per_second":3000000}}]}`
	got := d.Parse(line)
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d: %+v", len(got), got)
	}
	byID := map[series.ID]series.Sample{}
	for _, s := range got {
		byID[s.Series] = s
	}
	if byID[series.Default].Value != 2 || byID[series.Sent].Value != 1 || byID[series.Received].Value != 3 {
		t.Fatalf("unexpected values: %+v", byID)
	}
	for id, s := range byID {
		if s.Time != 1.5 {
			t.Fatalf("series %s timestamp = %v, want 1.5", id, s.Time)
		}
	}
}

func TestIntervalJSONEndSummaryPinnedToDuration(t *testing.T) {
	d := IntervalJSON{Duration: 10}
	line := `{"end":{"sum_sent":{"start":0,"bits_per_second":95000000},` +
		`"sum_received":{"start":0,"bits_per_second":94000000}}}`
	got := d.Parse(line)
	if len(got) != 2 {
		t.Fatalf("expected 2 summary samples, got %d", len(got))
	}
	for _, s := range got {
		if s.Time != 10 {
			t.Fatalf("summary sample %+v not pinned to configured duration", s)
		}
	}
	if got[0].Series != series.Sent || got[1].Series != series.Received {
		t.Fatalf("unexpected series order: %+v", got)
	}
}

func TestIntervalJSONIgnoresGarbage(t *testing.T) {
	d := IntervalJSON{Duration: 10}
	for _, line := range []string{
		"",
		"connecting to host 10.0.0.1, port 5201",
		`{"intervals": [broken`,
		`{"other":"object"}`,
		"- - - - - - - - - -",
	} {
		if got := d.Parse(line); got != nil {
			t.Fatalf("line %q produced samples: %+v", line, got)
		}
	}
}

func TestThroughputTextUnits(t *testing.T) {
	d := ThroughputText{}
	cases := []struct {
		line      string
		wantID    series.ID
		wantTime  float64
		wantValue float64
	}{
		{"[  5]   0.00-0.50   sec  6.25 MBytes   100 Mbits/sec", series.Default, 0.5, 100},
		{"[  5]   0.50-1.00   sec  128 KBytes   500 Kbits/sec", series.Default, 1.0, 0.5},
		{"[  5]   1.00-1.50   sec  1.25 GBytes   2.5 Gbits/sec", series.Default, 1.5, 2500},
		{"[  5]   0.00-10.00  sec   118 MBytes  98.7 Mbits/sec    sender", series.Sent, 10.0, 98.7},
		{"[  5]   0.00-10.00  sec   117 MBytes  97.9 Mbits/sec    receiver", series.Received, 10.0, 97.9},
	}
	for _, tc := range cases {
		got := d.Parse(tc.line)
		if len(got) != 1 {
			t.Fatalf("%q: expected 1 sample, got %d", tc.line, len(got))
		}
		s := got[0]
		if s.Series != tc.wantID {
			t.Errorf("%q: series = %s, want %s", tc.line, s.Series, tc.wantID)
		}
		if s.Time != tc.wantTime {
			t.Errorf("%q: time = %v, want %v", tc.line, s.Time, tc.wantTime)
		}
		if math.Abs(s.Value-tc.wantValue) > 1e-9 {
			t.Errorf("%q: value = %v, want %v", tc.line, s.Value, tc.wantValue)
		}
	}
}

func TestThroughputTextNonMatching(t *testing.T) {
	d := ThroughputText{}
	for _, line := range []string{
		"",
		"iperf3: error - unable to connect to server",
		"[ ID] Interval           Transfer     Bitrate",
		"some line mentioning bits/sec without numbers",
	} {
		if got := d.Parse(line); got != nil {
			t.Fatalf("line %q produced samples: %+v", line, got)
		}
	}
}

func TestPingTextDialects(t *testing.T) {
	p := PingText{}
	cases := []struct {
		line string
		want float64
	}{
		{"回覆自 8.8.8.8: 位元組=32 時間=5ms TTL=116", 5},
		{"Reply from 8.8.8.8: bytes=32 time=23ms TTL=116", 23},
		{"Reply from 8.8.8.8: bytes=32 time<1ms TTL=116", 1},
		{"64 bytes from 8.8.8.8: icmp_seq=1 ttl=116 time=4.83 ms", 4.83},
	}
	for _, tc := range cases {
		got, ok := p.RTT(tc.line)
		if !ok {
			t.Fatalf("%q: no dialect matched", tc.line)
		}
		if got != tc.want {
			t.Errorf("%q: rtt = %v, want %v", tc.line, got, tc.want)
		}
	}

	if _, ok := p.RTT("PING 8.8.8.8 (8.8.8.8) 56(84) bytes of data."); ok {
		t.Fatal("header line must not match")
	}
}
