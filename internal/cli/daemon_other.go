//go:build !unix

package cli

import (
	"os"
	"os/exec"
)

func detach(cmd *exec.Cmd) {}

func processExists(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
