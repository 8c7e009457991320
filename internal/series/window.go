package series

// maxWindow is the widest visible time span, in seconds.
const maxWindow = 60.0

// Window is the visible x-axis range handed to a renderer.
type Window struct {
	Min float64
	Max float64
}

// BandwidthWindow computes the visible range for a bounded-duration run.
//
// The window trails the latest sample with a small forward margin: most of it
// looks backward (80%), leaving 20% ahead of the newest point. Runs shorter
// than the maximum span show their whole duration.
func BandwidthWindow(latest, total float64) Window {
	w := maxWindow
	if total < w {
		w = total
	}
	start := latest - 0.2*w
	if start < 0 {
		start = 0
	}
	end := start + w
	if end > total {
		end = total
	}
	return Window{Min: start, Max: end}
}

// TrailingWindow computes the visible range for unbounded probing: the most
// recent 60 seconds ending at the latest sample, with no forward margin.
func TrailingWindow(latest float64) Window {
	start := latest - maxWindow
	if start < 0 {
		start = 0
	}
	return Window{Min: start, Max: latest}
}
