//go:build unix

package ytdlp

import (
	"os/exec"
	"syscall"
	"time"
)

// configureProcess runs the command in its own process group so that
// cancellation also kills helpers it spawned (yt-dlp starts ffmpeg itself).
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second
}
