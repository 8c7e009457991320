package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"iperfmon/internal/app"
	"iperfmon/internal/iperf"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "path to config file (default: per-user config dir)")
		mode     = flag.String("mode", "", "client or server (default: remembered)")
		host     = flag.String("host", "", "client mode target host")
		port     = flag.Int("port", 0, "server port")
		duration = flag.Int("t", 0, "test duration in seconds")
		parallel = flag.Int("P", 0, "parallel streams")
		bandw    = flag.String("b", "", "target bandwidth, e.g. 100M (0 = unlimited)")
		udp      = flag.Bool("u", false, "use UDP")
		reverse  = flag.Bool("R", false, "reverse direction (server sends)")
		bidir    = flag.Bool("bidir", false, "bidirectional test")
		text     = flag.Bool("text", false, "parse plain text output instead of -J")
		extra    = flag.String("extra", "", "extra arguments passed through verbatim")
		csvPath  = flag.String("csv", "", "write final samples to this CSV file")

		pingHost = flag.String("ping", "", "run an RTT probe session against this host instead")
		schedule = flag.String("schedule", "", "cron spec for recurring unattended runs")
		history  = flag.Int("history", 0, "print the N most recent runs and exit")
	)
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	defer a.Close()

	go func() { _ = a.WatchConfig(ctx) }()

	switch {
	case *history > 0:
		err = printHistory(ctx, a, *history)

	case *pingHost != "":
		err = a.RunLatency(ctx, *pingHost, *csvPath)

	case *schedule != "":
		if err = a.StartSchedule(ctx, *schedule); err == nil {
			<-ctx.Done()
		}

	default:
		p := mergeParams(a, *mode, *host, *port, *duration, *parallel, *bandw,
			*udp, *reverse, *bidir, !*text, *extra)
		err = a.RunBandwidth(ctx, p, *csvPath)
	}

	if err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// mergeParams overlays command-line flags on the remembered parameters.
func mergeParams(a *app.App, mode, host string, port, duration, parallel int,
	bandw string, udp, reverse, bidir, asJSON bool, extra string) iperf.Params {

	p := a.RememberedParams()
	p.JSON = asJSON
	if mode != "" {
		p.Mode = mode
	}
	if host != "" {
		p.Host = host
	}
	if port > 0 {
		p.Port = port
	}
	if duration > 0 {
		p.Time = duration
	}
	if parallel > 0 {
		p.Parallel = parallel
	}
	if bandw != "" {
		p.Bandwidth = bandw
	}
	if udp {
		p.UDP = true
	}
	if reverse {
		p.Reverse = true
	}
	if bidir {
		p.Bidir = true
	}
	if extra != "" {
		p.Extra = strings.Fields(extra)
	}
	return p
}

func printHistory(ctx context.Context, a *app.App, n int) error {
	recs, err := a.History(ctx, n)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Printf("%s  %-9s %-20s %.0fs\n",
			r.At.Format("2006-01-02 15:04:05"), r.Kind, r.Host, r.DurationSec)
		for name, s := range r.Series {
			fmt.Printf("    %-9s avg %.1f  min %.1f  max %.1f  n=%d\n",
				name, s.Avg, s.Min, s.Max, s.Count)
		}
	}
	return nil
}
