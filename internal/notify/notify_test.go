package notify

import (
	"strings"
	"testing"
	"time"

	"iperfmon/internal/storage"
	logx "iperfmon/pkg/logx"
)

func TestNewTelegramRejectsEmptySettings(t *testing.T) {
	if _, err := NewTelegram("", 1, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := NewTelegram("123:abc", 0, logx.Nop()); err == nil {
		t.Fatal("expected error for empty chat id")
	}
}

func TestFormatRunBandwidth(t *testing.T) {
	r := storage.RunRecord{
		At:          time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Kind:        "bandwidth",
		Host:        "example.org",
		DurationSec: 10,
		Series: map[string]storage.SeriesSummary{
			"sent":     {Count: 20, Avg: 941.2, Min: 880.5, Max: 960.1},
			"received": {Count: 20, Avg: 903.7, Min: 850.0, Max: 930.4},
		},
	}
	msg := FormatRun(r)
	if !strings.HasPrefix(msg, "Speed test finished: example.org") {
		t.Fatalf("unexpected header: %q", msg)
	}
	if !strings.Contains(msg, "Duration: 10s") {
		t.Fatalf("missing duration: %q", msg)
	}
	// series render sorted and with the bandwidth unit
	recIdx := strings.Index(msg, "received: avg 903.7 Mbps")
	sentIdx := strings.Index(msg, "sent: avg 941.2 Mbps")
	if recIdx < 0 || sentIdx < 0 || recIdx > sentIdx {
		t.Fatalf("series lines wrong or out of order: %q", msg)
	}
}

func TestFormatRunLatency(t *testing.T) {
	r := storage.RunRecord{
		Kind: "latency",
		Host: "192.0.2.1",
		Series: map[string]storage.SeriesSummary{
			"latency": {Count: 30, Avg: 12.4, Min: 9.0, Max: 31.0},
		},
	}
	msg := FormatRun(r)
	if !strings.HasPrefix(msg, "Ping finished: 192.0.2.1") {
		t.Fatalf("unexpected header: %q", msg)
	}
	if !strings.Contains(msg, "latency: avg 12.4 ms (min 9.0, max 31.0, n=30)") {
		t.Fatalf("missing latency line: %q", msg)
	}
}
