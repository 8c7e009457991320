//go:build windows
// +build windows

package procsource

import (
	"os/exec"
	"strconv"
)

// terminate kills the whole process tree. Windows has no SIGTERM equivalent
// that console tools reliably honor, and iperf3 spawns helper processes that
// would otherwise be orphaned.
func terminate(cmd *exec.Cmd) error {
	kill := exec.Command("taskkill", "/F", "/T", "/PID", strconv.Itoa(cmd.Process.Pid))
	return kill.Run()
}
