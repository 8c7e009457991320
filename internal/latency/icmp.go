package latency

import (
	"context"
	"errors"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"iperfmon/internal/eventbus"
	logx "iperfmon/pkg/logx"
)

var errNoReply = errors.New("no response received")

// icmpWorker produces one RTT sample per second until ctx is cancelled or
// count samples were delivered. Failures become diagnostic lines, not errors;
// the probe keeps running.
func icmpWorker(ctx context.Context, host string, count int, out chan<- float64, bus eventbus.Bus, log logx.Logger) {
	defer close(out)

	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	delivered := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		rtt, err := pingOnce(host)
		if err != nil {
			if bus != nil {
				bus.Publish(eventbus.Event{
					Type: eventbus.TypeRunLine,
					Data: eventbus.LineEvent{Kind: "latency", Text: "ping " + host + ": " + err.Error()},
				})
			}
			log.Debug("icmp ping failed", logx.Err(err))
			continue
		}

		select {
		case out <- float64(rtt.Microseconds()) / 1000.0:
		case <-ctx.Done():
			return
		}

		delivered++
		if count > 0 && delivered >= count {
			return
		}
	}
}

// pingOnce performs a single unprivileged ICMP echo.
func pingOnce(host string) (time.Duration, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return 0, err
	}
	pinger.Count = 1
	pinger.Timeout = time.Second
	pinger.SetPrivileged(false)

	if err := pinger.Run(); err != nil {
		return 0, err
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, errNoReply
	}
	return stats.AvgRtt, nil
}
