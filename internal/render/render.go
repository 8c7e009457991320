// Package render defines the boundary to the plotting layer. The pipeline
// publishes full frames; what a renderer does with them (draw, print, write
// to disk) is its own business.
package render

import "iperfmon/internal/series"

// Kind tells a renderer which chart a frame belongs to.
type Kind string

const (
	Bandwidth  Kind = "bandwidth"
	LatencyRTT Kind = "latency"
)

// SeriesView is an immutable snapshot of one series.
type SeriesView struct {
	ID     series.ID
	Points []series.Point
	Stats  series.Stats
}

// Frame is the complete published state of a run at one instant. Frames are
// self-contained: rendering frame N+1 after frame N must produce the same
// picture as rendering N+1 alone.
type Frame struct {
	Kind   Kind
	Series []SeriesView
	Window series.Window
	// Final marks the terminal frame of a run.
	Final bool
}

// Renderer consumes published frames. Render is called from the run's
// coordinating goroutine and must not block for long.
type Renderer interface {
	Render(f Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(f Frame)

func (fn RendererFunc) Render(f Frame) { fn(f) }

// Multi fans one frame out to several renderers.
func Multi(rs ...Renderer) Renderer {
	return RendererFunc(func(f Frame) {
		for _, r := range rs {
			if r != nil {
				r.Render(f)
			}
		}
	})
}
