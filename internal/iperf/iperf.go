// Package iperf locates the external iperf3 binary and builds its argument
// lists.
package iperf

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Params describes one test invocation. Zero values mean "omit the flag".
type Params struct {
	Mode      string // "server" or "client"
	Host      string // client mode target
	Port      int
	Time      int  // test duration in seconds
	JSON      bool // -J structured output
	Parallel  int  // -P, only emitted when > 1
	UDP       bool
	Reverse   bool
	Bidir     bool
	Bandwidth string // -b, e.g. "100M"; "" or "0" omits
	Extra     []string
}

// Tool wraps a resolved iperf3 executable.
type Tool struct {
	Path string

	// runOutput is swappable for tests; it returns the combined output of
	// running the binary with the given args.
	runOutput func(path string, args ...string) (string, bool)

	helpOnce sync.Once
	hasBidir bool
}

// Locate finds an iperf3 binary using a fixed search order: next to the
// executable, the system PATH, then platform install directories. Each
// candidate is probed with --version. When nothing responds, the bare command
// name is returned so failure surfaces at invocation time with a clear error.
func Locate() *Tool {
	name := "iperf3"
	if runtime.GOOS == "windows" {
		name = "iperf3.exe"
	}

	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), name))
	}
	candidates = append(candidates, name)
	if runtime.GOOS == "windows" {
		for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
			if dir := os.Getenv(env); dir != "" {
				candidates = append(candidates, filepath.Join(dir, "iperf3", name))
			}
		}
	}

	for _, c := range candidates {
		if _, ok := runCombined(c, "--version"); ok {
			return NewTool(c)
		}
	}
	return NewTool(name)
}

// NewTool wraps an explicit binary path.
func NewTool(path string) *Tool {
	return &Tool{Path: path, runOutput: runCombined}
}

// Available reports whether the binary actually answers a --version probe.
// Locate may have fallen back to the bare command name.
func (t *Tool) Available() bool {
	run := t.runOutput
	if run == nil {
		run = runCombined
	}
	_, ok := run(t.Path, "--version")
	return ok
}

func runCombined(path string, args ...string) (string, bool) {
	out, err := exec.Command(path, args...).CombinedOutput()
	if err != nil {
		return "", false
	}
	return string(out), true
}

// Args builds the argument list for one test run.
func (t *Tool) Args(p Params) []string {
	var args []string

	if p.Mode == "server" {
		args = append(args, "-s")
	} else {
		args = append(args, "-c", p.Host)
	}
	args = append(args, "-p", strconv.Itoa(p.Port))
	args = append(args, "-t", strconv.Itoa(p.Time))
	if p.JSON {
		args = append(args, "-J")
	}
	// Fixed half-second reporting interval so the chart gets frequent points.
	args = append(args, "-i", "0.5")
	if p.Parallel > 1 {
		args = append(args, "-P", strconv.Itoa(p.Parallel))
	}
	if p.UDP {
		args = append(args, "-u")
	}
	if p.Reverse {
		args = append(args, "-R")
	}
	if p.Bidir {
		args = append(args, t.bidirFlag())
	}
	if bw := strings.TrimSpace(p.Bandwidth); bw != "" && bw != "0" {
		args = append(args, "-b", bw)
	}
	args = append(args, p.Extra...)
	return args
}

// bidirFlag probes the tool's help text once: newer iperf3 versions take
// --bidir, older ones -d/--dualtest. When the probe fails, --bidir is assumed.
func (t *Tool) bidirFlag() string {
	t.helpOnce.Do(func() {
		run := t.runOutput
		if run == nil {
			run = runCombined
		}
		help, ok := run(t.Path, "--help")
		t.hasBidir = !ok || strings.Contains(help, "--bidir")
	})
	if t.hasBidir {
		return "--bidir"
	}
	return "-d"
}
