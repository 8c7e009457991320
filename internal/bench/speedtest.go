// Package bench runs an internet speed test when no iperf3 binary can
// be found, so the bandwidth view still has something to show.
package bench

import (
	"context"
	"fmt"
	"sort"
	"time"

	st "github.com/showwin/speedtest-go/speedtest"

	"iperfmon/internal/series"
	logx "iperfmon/pkg/logx"
)

// Config controls fallback speed test execution.
type Config struct {
	// ServerCount is how many nearby servers to latency-probe before
	// picking the best one.
	ServerCount int

	SavingMode     bool
	MaxConnections int
}

// Sample is one live rate observation during the test.
type Sample struct {
	Series series.ID
	Time   float64 // seconds since the test started
	Mbps   float64
}

// Summary is the final outcome of a fallback run.
type Summary struct {
	ServerName   string
	Country      string
	LatencyMS    float64
	DownloadMbps float64
	UploadMbps   float64
	Duration     time.Duration
}

type Engine struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config, log logx.Logger) *Engine {
	if cfg.ServerCount <= 0 {
		cfg.ServerCount = 5
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 4
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{cfg: cfg, log: log}
}

// Run tests download then upload against the best nearby server. Live
// rates stream through onSample (download as the received series,
// upload as the sent series) so the caller can feed them into the same
// aggregation path as tool output.
func (e *Engine) Run(ctx context.Context, onSample func(Sample)) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	elapsed := func() float64 { return time.Since(start).Seconds() }

	// Avoid package-level speedtest helpers; speedtest-go can keep
	// package-level state.
	stc := st.New(st.WithUserConfig(&st.UserConfig{
		SavingMode:     e.cfg.SavingMode,
		MaxConnections: e.cfg.MaxConnections,
	}))
	stc.SetNThread(e.cfg.MaxConnections)
	defer func() {
		stc.Snapshots().Clean()
		stc.Reset()
	}()

	servers, err := stc.FetchServerListContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch server list: %w", err)
	}
	if a := servers.Available(); a != nil {
		servers = *a
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers available")
	}

	sort.Slice(servers, func(i, j int) bool { return servers[i].Distance < servers[j].Distance })
	n := e.cfg.ServerCount
	if n > len(servers) {
		n = len(servers)
	}

	best := e.pickServer(ctx, servers[:n])
	if best == nil {
		return nil, fmt.Errorf("all latency tests failed")
	}
	e.log.Info("fallback speed test server selected",
		logx.String("server", best.Sponsor),
		logx.Duration("latency", best.Latency))

	if onSample != nil {
		stc.SetCallbackDownload(func(rate st.ByteRate) {
			onSample(Sample{Series: series.Received, Time: elapsed(), Mbps: rate.Mbps()})
		})
		stc.SetCallbackUpload(func(rate st.ByteRate) {
			onSample(Sample{Series: series.Sent, Time: elapsed(), Mbps: rate.Mbps()})
		})
	}

	if err := best.DownloadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("download test: %w", err)
	}
	if err := best.UploadTestContext(ctx); err != nil {
		return nil, fmt.Errorf("upload test: %w", err)
	}

	return &Summary{
		ServerName:   best.Sponsor,
		Country:      best.Country,
		LatencyMS:    float64(best.Latency.Milliseconds()),
		DownloadMbps: best.DLSpeed.Mbps(),
		UploadMbps:   best.ULSpeed.Mbps(),
		Duration:     time.Since(start),
	}, nil
}

// pickServer latency-probes the candidates sequentially and returns the
// fastest responder. Probes are cheap; the candidate list is short.
func (e *Engine) pickServer(ctx context.Context, candidates []*st.Server) *st.Server {
	var best *st.Server
	for _, s := range candidates {
		if ctx.Err() != nil {
			return best
		}
		if err := s.PingTestContext(ctx, nil); err != nil {
			e.log.Debug("latency probe failed",
				logx.String("server", s.Sponsor), logx.Err(err))
			continue
		}
		if best == nil || s.Latency < best.Latency {
			best = s
		}
	}
	return best
}
