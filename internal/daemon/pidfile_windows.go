//go:build windows

package daemon

import (
	"fmt"
	"os"
	"syscall"
)

// processAlive relies on FindProcess, which opens a handle on Windows and
// fails for exited processes.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = proc.Release()
	return true
}

// signalProcess kills the process; Windows has no SIGTERM delivery.
func signalProcess(pid int, _ syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	return proc.Kill()
}
