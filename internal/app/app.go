// Package app wires configuration, logging, persistence and the
// measurement pipeline behind the command-line front end.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"iperfmon/internal/bench"
	"iperfmon/internal/config"
	"iperfmon/internal/eventbus"
	"iperfmon/internal/iperf"
	"iperfmon/internal/latency"
	"iperfmon/internal/notify"
	"iperfmon/internal/pipeline"
	"iperfmon/internal/render"
	"iperfmon/internal/results"
	"iperfmon/internal/schedule"
	"iperfmon/internal/series"
	"iperfmon/internal/storage"
	logx "iperfmon/pkg/logx"
)

type App struct {
	cfgm     *config.Manager
	log      logx.Logger
	logClose func() error

	bus   eventbus.Bus
	store storage.Store
	saver *results.Saver
	notif notify.Notifier
	sched *schedule.Service
	tool  *iperf.Tool

	bandwidth pipeline.Controller
	latency   latency.Controller
}

// New loads configuration and constructs every component it enables.
// Optional components that fail to initialize are logged and skipped so
// a bad token or locked database never blocks a measurement.
func New(cfgPath string) (*App, error) {
	if cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgPath = p
	}
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, logClose := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File != "",
			Path:    cfg.Logging.File,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgm:     cfgm,
		log:      log,
		logClose: logClose,
		bus:      eventbus.New(),
		tool:     iperf.Locate(),
	}

	if cfg.Storage != nil {
		st, err := storage.Open(storage.Config{
			Driver:  cfg.Storage.Driver,
			Path:    cfg.Storage.Path,
			MaxRuns: cfg.Storage.MaxRuns,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			log.Warn("run history disabled", logx.Err(err))
		} else {
			a.store = st
		}
	}

	if cfg.AutoSaveResults {
		base, err := results.DefaultBase()
		if err != nil {
			log.Warn("result saving disabled", logx.Err(err))
		} else {
			a.saver = results.NewSaver(base)
		}
	}

	if n := cfg.Notify; n != nil && n.Enabled {
		tg, err := notify.NewTelegram(n.Token, n.ChatID, log.With(logx.String("comp", "notify")))
		if err != nil {
			log.Warn("notifications disabled", logx.Err(err))
		} else {
			a.notif = tg
		}
	}

	return a, nil
}

func (a *App) Config() *config.Config { return a.cfgm.Get() }
func (a *App) Log() logx.Logger       { return a.log }
func (a *App) Bus() eventbus.Bus      { return a.bus }

// WatchConfig hot-reloads the config file until ctx is cancelled.
// It blocks; run it from a goroutine the caller owns.
func (a *App) WatchConfig(ctx context.Context) error {
	return a.cfgm.Watch(ctx)
}

func (a *App) Close() error {
	if a.sched != nil {
		a.sched.Stop(context.Background())
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("run history close failed", logx.Err(err))
		}
	}
	if a.logClose != nil {
		return a.logClose()
	}
	return nil
}

// RunBandwidth executes one bandwidth test and post-processes the
// outcome (history, artifacts, notification, remembered params). When
// no iperf3 binary answers, it falls back to an internet speed test.
func (a *App) RunBandwidth(ctx context.Context, p iperf.Params, csvPath string) error {
	if !a.tool.Available() {
		if p.Mode == "server" {
			return fmt.Errorf("iperf3 not found: %s", a.tool.Path)
		}
		a.log.Warn("iperf3 not found; falling back to internet speed test",
			logx.String("path", a.tool.Path))
		return a.runFallback(ctx, csvPath)
	}

	renderer, final := a.renderers(csvPath)
	stopLines := a.collectLines("bandwidth")

	start := time.Now()
	run, err := a.bandwidth.Start(ctx, pipeline.RunConfig{
		Tool:     a.tool,
		Params:   p,
		Renderer: renderer,
		Bus:      a.bus,
		Log:      a.log.With(logx.String("comp", "pipeline")),
	})
	if err != nil {
		stopLines()
		return err
	}
	if err := run.Wait(ctx); err != nil {
		run.Stop()
		<-run.Done()
	}
	raw := stopLines()

	a.rememberParams(p)
	rec := storage.RunRecord{
		At:          start,
		Kind:        "bandwidth",
		Host:        p.Host,
		DurationSec: float64(p.Time),
		Series:      summarize(run.Summary()),
	}
	a.afterRun(ctx, rec, raw, p.JSON, final())
	return ctx.Err()
}

// RunLatency executes one RTT probe session until ctx is cancelled or
// the configured probe count is reached.
func (a *App) RunLatency(ctx context.Context, host string, csvPath string) error {
	cfg := a.Config()
	renderer, final := a.renderers(csvPath)
	stopLines := a.collectLines("latency")

	start := time.Now()
	probe, err := a.latency.Start(ctx, latency.Config{
		Host:     host,
		Count:    cfg.Ping.Count,
		Backend:  cfg.Ping.Backend,
		Renderer: renderer,
		Bus:      a.bus,
		Log:      a.log.With(logx.String("comp", "latency")),
	})
	if err != nil {
		stopLines()
		return err
	}
	if err := probe.Wait(ctx); err != nil {
		probe.Stop()
		<-probe.Done()
	}
	raw := stopLines()

	rec := storage.RunRecord{
		At:          start,
		Kind:        "latency",
		Host:        host,
		DurationSec: time.Since(start).Seconds(),
		Series: summarize(map[series.ID]series.Stats{
			series.Latency: probe.Summary(),
		}),
	}
	a.afterRun(ctx, rec, raw, false, final())
	return ctx.Err()
}

// StartSchedule begins unattended recurring runs with the remembered
// parameters.
func (a *App) StartSchedule(ctx context.Context, spec string) error {
	if a.sched == nil {
		a.sched = schedule.New(func(jctx context.Context) {
			p := paramsFromConfig(a.Config().LastUsedParams)
			if err := a.RunBandwidth(jctx, p, ""); err != nil {
				a.log.Warn("scheduled run failed", logx.Err(err))
			}
		}, a.log.With(logx.String("comp", "schedule")))
	}
	return a.sched.Start(ctx, spec)
}

// RememberedParams returns the last-used test parameters as tool
// parameters, ready to be overridden by command-line flags.
func (a *App) RememberedParams() iperf.Params {
	return paramsFromConfig(a.Config().LastUsedParams)
}

// History returns recent run records, newest first.
func (a *App) History(ctx context.Context, limit int) ([]storage.RunRecord, error) {
	if a.store == nil {
		return nil, storage.ErrDisabled
	}
	return a.store.RecentRuns(ctx, limit)
}

func (a *App) renderers(csvPath string) (render.Renderer, func() *render.Frame) {
	rs := []render.Renderer{render.NewConsole()}
	if csvPath != "" {
		rs = append(rs, render.NewCSV(csvPath))
	}

	var last *render.Frame
	rs = append(rs, render.RendererFunc(func(f render.Frame) {
		if f.Final {
			last = &f
		}
	}))
	return render.Multi(rs...), func() *render.Frame { return last }
}

// collectLines buffers raw subprocess output published on the bus so it
// can be written out as the run transcript. The returned stop function
// unsubscribes and hands back what was captured.
func (a *App) collectLines(kind string) func() []string {
	ch, unsub := a.bus.Subscribe(256)
	var buf []string
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range ch {
			if ev.Type != eventbus.TypeRunLine {
				continue
			}
			if le, ok := ev.Data.(eventbus.LineEvent); ok && le.Kind == kind {
				buf = append(buf, le.Text)
			}
		}
	}()
	return func() []string {
		unsub()
		<-done
		return buf
	}
}

// afterRun persists, saves and notifies. Failures are logged, never
// fatal: the measurement already succeeded.
func (a *App) afterRun(ctx context.Context, rec storage.RunRecord, raw []string, asJSON bool, final *render.Frame) {
	if final != nil {
		for id, s := range render.Snapshot(*final) {
			a.log.Debug("series finished",
				logx.String("series", string(id)),
				logx.Int("points", s.Count),
				logx.Float64("avg", s.Avg()))
		}
	}

	if a.store != nil {
		if err := a.store.AppendRun(ctx, rec); err != nil {
			a.log.Warn("run history append failed", logx.Err(err))
		}
	}
	if a.saver != nil && len(raw) > 0 {
		var (
			path string
			err  error
		)
		if asJSON {
			path, err = a.saver.SaveJSON(rec.Kind, []byte(joinLines(raw)))
		} else {
			path, err = a.saver.SaveText(rec.Kind, raw)
		}
		if err != nil {
			a.log.Warn("result save failed", logx.Err(err))
		} else {
			a.log.Info("result saved", logx.String("path", path))
		}
	}
	if a.notif != nil {
		if err := a.notif.RunCompleted(rec); err != nil {
			a.log.Warn("notification failed", logx.Err(err))
		}
	}
}

func (a *App) runFallback(ctx context.Context, csvPath string) error {
	renderer, final := a.renderers(csvPath)
	pub := pipeline.NewPublisher(renderer)
	set := series.NewSet()
	start := time.Now()

	engine := bench.New(bench.Config{}, a.log.With(logx.String("comp", "bench")))
	frame := func(fin bool) render.Frame {
		f := render.Frame{Kind: render.Bandwidth, Final: fin}
		latest := 0.0
		for _, id := range series.BandwidthIDs {
			s := set.Get(id)
			if s == nil || s.Len() == 0 {
				continue
			}
			if last, ok := s.Last(); ok && last.Time > latest {
				latest = last.Time
			}
			f.Series = append(f.Series, render.SeriesView{
				ID: id, Points: s.Points(), Stats: s.Stats(),
			})
		}
		f.Window = series.BandwidthWindow(latest, latest)
		return f
	}

	// Samples arrive on speedtest-go's goroutines; the set is not
	// concurrency-safe, so funnel them through a channel.
	samples := make(chan bench.Sample, 64)
	collect := make(chan struct{})
	go func() {
		defer close(collect)
		for s := range samples {
			set.Ingest(series.Sample{Series: s.Series, Time: s.Time, Value: s.Mbps})
			pub.TryPublish(func() render.Frame { return frame(false) })
		}
	}()

	sum, err := engine.Run(ctx, func(s bench.Sample) {
		select {
		case samples <- s:
		default:
		}
	})
	close(samples)
	<-collect
	pub.Publish(frame(true))
	if err != nil {
		return err
	}

	rec := storage.RunRecord{
		At:          start,
		Kind:        "bandwidth",
		Host:        sum.ServerName,
		DurationSec: sum.Duration.Seconds(),
		Series:      summarizeSet(set),
	}
	a.afterRun(ctx, rec, nil, false, final())
	a.log.Info("fallback speed test finished",
		logx.Float64("download_mbps", sum.DownloadMbps),
		logx.Float64("upload_mbps", sum.UploadMbps))
	return nil
}

func (a *App) rememberParams(p iperf.Params) {
	cfg := a.Config()
	if cfg == nil {
		return
	}
	cp := *cfg
	cp.LastUsedParams = config.TestParams{
		Mode:        p.Mode,
		Host:        p.Host,
		Port:        p.Port,
		Time:        p.Time,
		Bandwidth:   p.Bandwidth,
		Parallel:    p.Parallel,
		Interval:    cfg.LastUsedParams.Interval,
		UDP:         p.UDP,
		Reverse:     p.Reverse,
		Format:      cfg.LastUsedParams.Format,
		ExtraParams: joinFields(p.Extra),
	}
	if err := a.cfgm.Save(&cp); err != nil {
		a.log.Warn("config save failed", logx.Err(err))
	}
}

// paramsFromConfig maps remembered settings onto tool parameters.
func paramsFromConfig(tp config.TestParams) iperf.Params {
	return iperf.Params{
		Mode:      tp.Mode,
		Host:      tp.Host,
		Port:      tp.Port,
		Time:      tp.Time,
		JSON:      true,
		Parallel:  tp.Parallel,
		UDP:       tp.UDP,
		Reverse:   tp.Reverse,
		Bandwidth: tp.Bandwidth,
		Extra:     splitFields(tp.ExtraParams),
	}
}

func summarize(stats map[series.ID]series.Stats) map[string]storage.SeriesSummary {
	out := make(map[string]storage.SeriesSummary, len(stats))
	for id, s := range stats {
		if s.Count == 0 {
			continue
		}
		out[string(id)] = storage.SeriesSummary{
			Count: s.Count,
			Avg:   s.Avg(),
			Min:   s.MinOrZero(),
			Max:   s.Max,
		}
	}
	return out
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func joinFields(fields []string) string {
	return strings.Join(fields, " ")
}

func splitFields(s string) []string {
	return strings.Fields(s)
}

func summarizeSet(set *series.Set) map[string]storage.SeriesSummary {
	stats := map[series.ID]series.Stats{}
	for _, id := range set.IDs() {
		if s := set.Get(id); s != nil {
			stats[id] = s.Stats()
		}
	}
	return summarize(stats)
}
