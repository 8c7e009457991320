package pipeline

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"iperfmon/internal/iperf"
	"iperfmon/internal/render"
	"iperfmon/internal/series"
)

// frameSink records every published frame.
type frameSink struct {
	mu     sync.Mutex
	frames []render.Frame
}

func (s *frameSink) Render(f render.Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
}

func (s *frameSink) last() (render.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return render.Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// shellRun abuses sh -c so the "host" argument becomes a script; the iperf
// flags that follow are inert positional parameters.
func shellRun(t *testing.T, script string, sink render.Renderer) *Run {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test uses /bin/sh")
	}
	r, err := StartRun(context.Background(), RunConfig{
		Tool:     iperf.NewTool("/bin/sh"),
		Params:   iperf.Params{Mode: "client", Host: script, Port: 5201, Time: 10, JSON: true},
		Renderer: sink,
	})
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	return r
}

func TestRunIngestsAndPublishesFinalFrame(t *testing.T) {
	sink := &frameSink{}
	script := `echo '{"intervals":[{"sum":{"start":0.0,"bits_per_second":100000000}}]}'; ` +
		`echo 'not a measurement'; ` +
		`echo '[  5]   0.00-10.00  sec   118 MBytes  98.7 Mbits/sec    sender'`
	r := shellRun(t, script, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	f, ok := sink.last()
	if !ok || !f.Final {
		t.Fatalf("expected a terminal frame, got %+v ok=%v", f, ok)
	}
	if f.Kind != render.Bandwidth {
		t.Fatalf("kind = %s", f.Kind)
	}

	byID := map[series.ID]render.SeriesView{}
	for _, sv := range f.Series {
		byID[sv.ID] = sv
	}
	def, ok := byID[series.Default]
	if !ok || len(def.Points) != 1 || def.Points[0] != (series.Point{Time: 0, Value: 100}) {
		t.Fatalf("default series = %+v", def)
	}
	sent, ok := byID[series.Sent]
	if !ok || len(sent.Points) != 1 || sent.Points[0].Time != 10 {
		t.Fatalf("sent series = %+v", sent)
	}

	sum := r.Summary()
	if sum[series.Default].Count != 1 || sum[series.Default].Max != 100 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestRunStopEmitsTerminalFrame(t *testing.T) {
	sink := &frameSink{}
	r := shellRun(t, "sleep 30", sink)

	time.Sleep(100 * time.Millisecond)
	start := time.Now()
	r.Stop()
	if elapsed := time.Since(start); elapsed > 7*time.Second {
		t.Fatalf("Stop took %v, beyond grace period + delta", elapsed)
	}

	select {
	case <-r.Done():
	default:
		t.Fatal("Done must be closed after Stop returns")
	}

	f, ok := sink.last()
	if !ok || !f.Final {
		t.Fatal("terminal frame missing after cancel")
	}

	// No further frames after the terminal one.
	sink.mu.Lock()
	n := len(sink.frames)
	sink.mu.Unlock()
	time.Sleep(500 * time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.frames) != n {
		t.Fatalf("frames kept arriving after terminal marker: %d -> %d", n, len(sink.frames))
	}
}

func TestControllerRefusesConcurrentRuns(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses /bin/sh")
	}
	var c Controller
	cfg := RunConfig{
		Tool:   iperf.NewTool("/bin/sh"),
		Params: iperf.Params{Mode: "client", Host: "sleep 30", Port: 5201, Time: 10},
	}
	r1, err := c.Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer r1.Stop()

	if _, err := c.Start(context.Background(), cfg); err != ErrRunning {
		t.Fatalf("second start err = %v, want ErrRunning", err)
	}

	r1.Stop()
	r2, err := c.Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("start after stop: %v", err)
	}
	r2.Stop()
}
