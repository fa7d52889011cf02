//go:build windows

package cmd

import (
	"os"
	"syscall"
)

// shutdownSignals returns the OS signals to listen for graceful shutdown.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// sigTERM is passed through to the PID file, which kills the process on Windows.
func sigTERM() syscall.Signal { return syscall.SIGTERM }
