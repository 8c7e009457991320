// Package latency implements the round-trip-time probe: a parallel, simpler
// pipeline feeding the same series aggregator and windowed publisher as the
// bandwidth test, driven either by the platform ping tool or by a native
// ICMP backend.
package latency

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"time"

	"iperfmon/internal/eventbus"
	"iperfmon/internal/parse"
	"iperfmon/internal/pipeline"
	"iperfmon/internal/procsource"
	"iperfmon/internal/render"
	"iperfmon/internal/runtime/supervisor"
	"iperfmon/internal/series"
	logx "iperfmon/pkg/logx"
)

// maxPoints bounds the probe's point list; probing is unbounded in time, so
// only the most recent points are kept.
const maxPoints = 300

// Backend selects how RTT samples are produced.
const (
	BackendSystem = "system" // platform ping subprocess, parsed from text
	BackendICMP   = "icmp"   // native ICMP via pro-bing
)

// Config describes one probe session.
type Config struct {
	Host    string
	Count   int    // 0 probes continuously
	Backend string // "" defaults to BackendSystem

	Renderer render.Renderer
	Bus      eventbus.Bus
	Log      logx.Logger
}

// Probe is one RTT measurement session. Like the bandwidth run, all series
// state is owned by a single coordinating goroutine.
type Probe struct {
	log logx.Logger
	bus eventbus.Bus

	set *series.Set
	pub *pipeline.Publisher
	sup *supervisor.Supervisor

	dialect parse.PingText
	started time.Time
	// sawFirst pins the first sample to t=0, establishing the axis origin;
	// subsequent samples use wall-clock elapsed time because ping tools
	// report no relative timestamp of their own.
	sawFirst bool

	src     *procsource.Source // system backend only
	samples chan float64       // icmp backend only

	done     chan struct{}
	stopOnce sync.Once
}

// Start begins probing. The probe's cancellation domain is fully independent
// from any bandwidth run.
func Start(ctx context.Context, cfg Config) (*Probe, error) {
	log := cfg.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Host == "" {
		return nil, errors.New("ping host is empty")
	}

	p := &Probe{
		log:  log.With(logx.String("kind", "latency"), logx.String("host", cfg.Host)),
		bus:  cfg.Bus,
		set:  series.NewSet(),
		pub:  pipeline.NewPublisher(cfg.Renderer),
		done: make(chan struct{}),
	}
	p.sup = supervisor.New(ctx, supervisor.WithLogger(log))

	backend := cfg.Backend
	if backend == "" {
		backend = BackendSystem
	}
	switch backend {
	case BackendSystem:
		name, args := pingArgs(cfg.Host, cfg.Count)
		src, err := procsource.Start(log, name, args...)
		if err != nil {
			return nil, err
		}
		p.src = src
		p.started = time.Now()
		p.sup.Go0("latency.coordinator", p.loopSystem)
		p.sup.Go0("latency.watchdog", func(ctx context.Context) {
			select {
			case <-ctx.Done():
				p.src.Stop()
			case <-p.done:
			}
		})
	case BackendICMP:
		p.samples = make(chan float64, 16)
		p.started = time.Now()
		p.sup.Go0("latency.pinger", func(ctx context.Context) {
			icmpWorker(ctx, cfg.Host, cfg.Count, p.samples, p.bus, p.log)
		})
		p.sup.Go0("latency.coordinator", p.loopICMP)
	default:
		return nil, errors.New("unknown latency backend: " + backend)
	}

	p.log.Info("probe started", logx.String("backend", backend), logx.Int("count", cfg.Count))
	return p, nil
}

// pingArgs builds the platform ping invocation: continuous by default,
// count-limited when count > 0.
func pingArgs(host string, count int) (string, []string) {
	if runtime.GOOS == "windows" {
		if count <= 0 {
			return "ping", []string{host, "-t"}
		}
		return "ping", []string{host, "-n", strconv.Itoa(count)}
	}
	if count <= 0 {
		return "ping", []string{host}
	}
	return "ping", []string{"-c", strconv.Itoa(count), host}
}

// Done closes when the probe has emitted its terminal frame.
func (p *Probe) Done() <-chan struct{} { return p.done }

// Wait blocks until the probe finishes or ctx is cancelled.
func (p *Probe) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop requests termination and blocks until the terminal frame is out.
func (p *Probe) Stop() {
	p.stopOnce.Do(func() {
		if p.src != nil {
			p.src.Stop()
		} else {
			p.sup.Cancel()
		}
		<-p.done
	})
}

// Summary snapshots the probe stats. Only valid after Done().
func (p *Probe) Summary() series.Stats {
	if s := p.set.Get(series.Latency); s != nil {
		return s.Stats()
	}
	return series.Stats{}
}

func (p *Probe) loopSystem(ctx context.Context) {
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case line, ok := <-p.src.Lines():
			if !ok {
				p.finish()
				return
			}
			// Every line passes through for display; only dialect matches
			// become samples.
			if p.bus != nil {
				p.bus.Publish(eventbus.Event{
					Type: eventbus.TypeRunLine,
					Data: eventbus.LineEvent{Kind: "latency", Text: line},
				})
			}
			if rtt, ok := p.dialect.RTT(line); ok {
				p.ingest(rtt)
			}
		case <-tick.C:
			p.pub.Publish(p.frame(false))
		}
	}
}

func (p *Probe) loopICMP(ctx context.Context) {
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case rtt, ok := <-p.samples:
			if !ok {
				p.finish()
				return
			}
			p.ingest(rtt)
		case <-tick.C:
			p.pub.Publish(p.frame(false))
		}
	}
}

func (p *Probe) ingest(rtt float64) {
	elapsed := time.Since(p.started).Seconds()
	if !p.sawFirst {
		elapsed = 0
	}
	if !p.set.Ingest(series.Sample{Series: series.Latency, Time: elapsed, Value: rtt}) {
		return
	}
	p.sawFirst = true
	p.set.Get(series.Latency).TruncateHead(maxPoints)
	p.pub.TryPublish(func() render.Frame { return p.frame(false) })
}

func (p *Probe) finish() {
	p.pub.Publish(p.frame(true))
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{Type: eventbus.TypeRunFinished})
	}
	p.log.Info("probe finished")
	close(p.done)
}

func (p *Probe) frame(final bool) render.Frame {
	var views []render.SeriesView
	latest := 0.0
	if s := p.set.Get(series.Latency); s != nil {
		views = append(views, render.SeriesView{ID: series.Latency, Points: s.Points(), Stats: s.Stats()})
		if last, ok := s.Last(); ok {
			latest = last.Time
		}
	}
	return render.Frame{
		Kind:   render.LatencyRTT,
		Series: views,
		Window: series.TrailingWindow(latest),
		Final:  final,
	}
}

// Controller serializes probes so at most one is active.
type Controller struct {
	mu  sync.Mutex
	cur *Probe
}

func (c *Controller) Start(ctx context.Context, cfg Config) (*Probe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil {
		select {
		case <-c.cur.Done():
		default:
			return nil, pipeline.ErrRunning
		}
	}
	p, err := Start(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.cur = p
	return p, nil
}
