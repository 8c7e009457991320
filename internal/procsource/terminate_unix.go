//go:build !windows
// +build !windows

package procsource

import (
	"os/exec"
	"syscall"
)

// terminate sends SIGTERM; the caller escalates to SIGKILL after the grace
// period.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGTERM)
}
