// Package procsource supervises a child process and exposes its combined
// stdout/stderr as a cancellable stream of text lines.
package procsource

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	logx "iperfmon/pkg/logx"
)

// gracePeriod is how long Stop waits after the graceful signal before
// force-killing the child.
const gracePeriod = 5 * time.Second

// Source owns exactly one child process. The line channel closes when the
// child exits or is killed, regardless of outcome, so consumers always see a
// terminal marker.
type Source struct {
	log logx.Logger
	cmd *exec.Cmd

	lines  chan string
	waited chan struct{}

	stopOnce sync.Once
}

// Start launches the command with stdout and stderr merged into one pipe and
// begins streaming lines. The returned Source must be drained via Lines()
// until the channel closes, or Stop() will have to escalate to a kill.
func Start(log logx.Logger, name string, args ...string) (*Source, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	cmd := exec.Command(name, args...)
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	// Close the parent's copy of the write end so the reader sees EOF once
	// the child exits.
	_ = pw.Close()

	s := &Source{
		log:    log.With(logx.String("proc", name), logx.Int("pid", cmd.Process.Pid)),
		cmd:    cmd,
		lines:  make(chan string, 64),
		waited: make(chan struct{}),
	}
	go s.read(pr)

	s.log.Debug("process started")
	return s, nil
}

// Lines returns the stream of output lines. It closes exactly once, after the
// child has exited and been reaped.
func (s *Source) Lines() <-chan string { return s.lines }

// Pid returns the child's process id.
func (s *Source) Pid() int { return s.cmd.Process.Pid }

func (s *Source) read(pr *os.File) {
	sc := bufio.NewScanner(pr)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		s.lines <- sc.Text()
	}
	if err := sc.Err(); err != nil {
		// Keep the worker alive: report the failure in-band and proceed to
		// the terminal marker.
		s.lines <- fmt.Sprintf("error: %v", err)
	}

	_ = pr.Close()
	err := s.cmd.Wait()
	close(s.waited)
	close(s.lines)
	s.log.Debug("process exited", logx.Err(err))
}

// Stop requests termination: graceful signal first, then a force kill if the
// child is still alive after the grace period. Safe to call multiple times
// and after the child already exited; it blocks until the child is gone or
// the kill was issued.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		select {
		case <-s.waited:
			return
		default:
		}

		if err := terminate(s.cmd); err != nil {
			s.log.Debug("graceful terminate failed", logx.Err(err))
		}

		select {
		case <-s.waited:
		case <-time.After(gracePeriod):
			s.log.Warn("grace period elapsed, killing process")
			_ = s.cmd.Process.Kill()
		}
	})
}
