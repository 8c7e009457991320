package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"iperfmon/internal/eventbus"
	"iperfmon/internal/iperf"
	"iperfmon/internal/parse"
	"iperfmon/internal/procsource"
	"iperfmon/internal/render"
	"iperfmon/internal/runtime/supervisor"
	"iperfmon/internal/series"
	logx "iperfmon/pkg/logx"
)

// ErrRunning is returned when a run of the same kind is still active.
var ErrRunning = errors.New("a run is already active")

// RunConfig describes one bandwidth test execution.
type RunConfig struct {
	Tool     *iperf.Tool
	Params   iperf.Params
	Renderer render.Renderer
	Bus      eventbus.Bus
	Log      logx.Logger
}

// Run is one bandwidth test: a child iperf3 process, a worker draining its
// output, and a coordinating goroutine that exclusively owns the series
// state. All mutation happens on the coordinator, so no locks guard the
// series set.
type Run struct {
	log logx.Logger
	bus eventbus.Bus

	src      *procsource.Source
	sup      *supervisor.Supervisor
	dialects []parse.Dialect

	set      *series.Set
	duration float64
	pub      *Publisher

	done     chan struct{}
	stopOnce sync.Once
}

// StartRun launches the subprocess and the coordinator. The returned Run is
// already streaming; callers observe completion via Done() or Wait().
func StartRun(ctx context.Context, cfg RunConfig) (*Run, error) {
	log := cfg.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Tool == nil {
		return nil, errors.New("nil tool")
	}

	args := cfg.Tool.Args(cfg.Params)
	src, err := procsource.Start(log, cfg.Tool.Path, args...)
	if err != nil {
		return nil, err
	}

	r := &Run{
		log: log.With(logx.String("kind", "bandwidth")),
		bus: cfg.Bus,
		src: src,
		dialects: []parse.Dialect{
			parse.IntervalJSON{Duration: float64(cfg.Params.Time)},
			parse.ThroughputText{},
		},
		set:      series.NewSet(),
		duration: float64(cfg.Params.Time),
		pub:      NewPublisher(cfg.Renderer),
		done:     make(chan struct{}),
	}
	r.sup = supervisor.New(ctx, supervisor.WithLogger(log))

	r.sup.Go0("bandwidth.coordinator", r.loop)
	// Context cancellation is a stop request; the coordinator itself never
	// watches the context so it can drain the terminal marker.
	r.sup.Go0("bandwidth.watchdog", func(ctx context.Context) {
		select {
		case <-ctx.Done():
			r.src.Stop()
		case <-r.done:
		}
	})

	if r.bus != nil {
		r.bus.Publish(eventbus.Event{Type: eventbus.TypeRunStarted, Data: cfg.Params})
	}
	r.log.Info("test started",
		logx.String("path", cfg.Tool.Path),
		logx.Int("duration_sec", cfg.Params.Time),
		logx.Bool("json", cfg.Params.JSON))
	return r, nil
}

// Done closes when the child has exited and the final frame was published.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes or ctx is cancelled.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop requests termination and blocks until the terminal frame is out.
// The line source escalates from graceful signal to kill on its own.
func (r *Run) Stop() {
	r.stopOnce.Do(func() {
		r.src.Stop()
		<-r.done
	})
}

// Summary snapshots the final stats per series. Only valid after Done().
func (r *Run) Summary() map[series.ID]series.Stats {
	out := map[series.ID]series.Stats{}
	for _, id := range r.set.IDs() {
		out[id] = r.set.Get(id).Stats()
	}
	return out
}

func (r *Run) loop(ctx context.Context) {
	tick := time.NewTicker(publishInterval)
	defer tick.Stop()

	for {
		select {
		case line, ok := <-r.src.Lines():
			if !ok {
				// Terminal marker: one last full publish, then finish.
				r.pub.Publish(r.frame(true))
				if r.bus != nil {
					r.bus.Publish(eventbus.Event{Type: eventbus.TypeRunFinished})
				}
				r.log.Info("test finished")
				close(r.done)
				return
			}
			r.handleLine(line)
		case <-tick.C:
			r.pub.Publish(r.frame(false))
		}
	}
}

func (r *Run) handleLine(line string) {
	if r.bus != nil {
		r.bus.Publish(eventbus.Event{
			Type: eventbus.TypeRunLine,
			Data: eventbus.LineEvent{Kind: "bandwidth", Text: line},
		})
	}

	accepted := false
	for _, d := range r.dialects {
		samples := d.Parse(line)
		if len(samples) == 0 {
			continue
		}
		for _, smp := range samples {
			if r.set.Ingest(smp) {
				accepted = true
			}
		}
		// First matching dialect wins; a line is never two shapes at once.
		break
	}

	if accepted {
		r.pub.TryPublish(func() render.Frame { return r.frame(false) })
	}
}

func (r *Run) frame(final bool) render.Frame {
	views := make([]render.SeriesView, 0, 3)
	for _, id := range r.set.IDs() {
		s := r.set.Get(id)
		views = append(views, render.SeriesView{ID: id, Points: s.Points(), Stats: s.Stats()})
	}
	return render.Frame{
		Kind:   render.Bandwidth,
		Series: views,
		Window: series.BandwidthWindow(r.set.Latest(), r.duration),
		Final:  final,
	}
}

// Controller serializes runs so at most one bandwidth test is active.
// The latency probe has its own, independent controller in its package.
type Controller struct {
	mu  sync.Mutex
	cur *Run
}

func (c *Controller) Start(ctx context.Context, cfg RunConfig) (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil {
		select {
		case <-c.cur.Done():
		default:
			return nil, ErrRunning
		}
	}
	r, err := StartRun(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.cur = r
	return r, nil
}

// Current returns the active run, if any.
func (c *Controller) Current() *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	select {
	case <-c.cur.Done():
		return nil
	default:
		return c.cur
	}
}
