package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "iperfmon/pkg/logx"
)

func TestValidate(t *testing.T) {
	s := New(func(context.Context) {}, logx.Nop())

	valid := []string{"* * * * *", "*/5 * * * * *", "@hourly", "0 3 * * 1"}
	for _, spec := range valid {
		if err := s.Validate(spec); err != nil {
			t.Fatalf("Validate(%q): %v", spec, err)
		}
	}
	invalid := []string{"", "not a cron", "99 * * * *"}
	for _, spec := range invalid {
		if err := s.Validate(spec); err == nil {
			t.Fatalf("Validate(%q): expected error", spec)
		}
	}
}

func TestTriggerFires(t *testing.T) {
	var fired atomic.Int32
	s := New(func(context.Context) { fired.Add(1) }, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 6-field spec so it can fire within the test window
	if err := s.Start(ctx, "* * * * * *"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background())

	deadline := time.After(3 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job never fired")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestNextAndStop(t *testing.T) {
	s := New(func(context.Context) {}, logx.Nop())
	if !s.Next().IsZero() {
		t.Fatal("Next should be zero before Start")
	}

	ctx := context.Background()
	if err := s.Start(ctx, "@hourly"); err != nil {
		t.Fatal(err)
	}
	if s.Next().IsZero() {
		t.Fatal("Next should be set while running")
	}
	s.Stop(ctx)
	if !s.Next().IsZero() {
		t.Fatal("Next should be zero after Stop")
	}
	// Stop again is a no-op
	s.Stop(ctx)
}

func TestNoTriggersAfterStop(t *testing.T) {
	var fired atomic.Int32
	s := New(func(context.Context) { fired.Add(1) }, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx, "* * * * * *"); err != nil {
		t.Fatal(err)
	}
	cancel()
	s.Stop(context.Background())

	before := fired.Load()
	time.Sleep(1500 * time.Millisecond)
	if after := fired.Load(); after != before {
		t.Fatalf("job fired %d more times after Stop", after-before)
	}
}
