//go:build unix

package cli

import (
	"os"
	"os/exec"
	"syscall"
)

// detach starts the daemon in its own session.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, FindProcess always succeeds, so send signal 0 to check
	return process.Signal(syscall.Signal(0)) == nil
}
