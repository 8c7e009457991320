package procsource

import (
	"runtime"
	"testing"
	"time"

	logx "iperfmon/pkg/logx"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses /bin/sh")
	}
}

func TestStreamsLinesAndCloses(t *testing.T) {
	requireShell(t)

	src, err := Start(logx.Nop(), "/bin/sh", "-c", "echo one; echo two 1>&2; echo three")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var got []string
	for line := range src.Lines() {
		got = append(got, line)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 lines (stdout+stderr merged), got %v", got)
	}
}

func TestStopTerminatesLongRunningChild(t *testing.T) {
	requireShell(t)

	src, err := Start(logx.Nop(), "/bin/sh", "-c", "sleep 60")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		for range src.Lines() {
		}
		close(done)
	}()

	start := time.Now()
	src.Stop()

	select {
	case <-done:
	case <-time.After(gracePeriod + 2*time.Second):
		t.Fatal("line channel did not close after Stop")
	}
	if elapsed := time.Since(start); elapsed >= gracePeriod {
		t.Fatalf("SIGTERM should have ended the child before the grace period, took %v", elapsed)
	}

	// Idempotent after exit.
	src.Stop()
}

func TestStartUnknownBinary(t *testing.T) {
	if _, err := Start(logx.Nop(), "definitely-not-a-real-binary-xyz"); err == nil {
		t.Fatal("expected start error for missing binary")
	}
}
