// Package pipeline wires a line source, the parsers and the series
// aggregator into one run, and schedules publication of aggregated state to
// a renderer.
package pipeline

import (
	"time"

	"golang.org/x/time/rate"

	"iperfmon/internal/render"
)

// publishInterval is the scheduled republish cadence while a run is active.
const publishInterval = 200 * time.Millisecond

// Publisher decouples ingestion rate from render rate. The scheduled tick
// always publishes; parse events may additionally publish out-of-band, but
// bursts are coalesced through a rate budget so a chatty subprocess degrades
// to the tick cadence instead of flooding the renderer.
type Publisher struct {
	r       render.Renderer
	limiter *rate.Limiter
}

func NewPublisher(r render.Renderer) *Publisher {
	return &Publisher{
		r:       r,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 2),
	}
}

// Publish unconditionally renders the frame. Publishing is idempotent by
// contract: every frame carries the full state.
func (p *Publisher) Publish(f render.Frame) {
	if p == nil || p.r == nil {
		return
	}
	p.r.Render(f)
}

// TryPublish renders a freshly built frame if the out-of-band budget allows
// it. The frame is only built when it will actually be rendered.
func (p *Publisher) TryPublish(build func() render.Frame) bool {
	if p == nil || p.r == nil {
		return false
	}
	if !p.limiter.Allow() {
		return false
	}
	p.r.Render(build())
	return true
}
