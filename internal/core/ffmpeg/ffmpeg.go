// Package ffmpeg wraps the ffmpeg binary used as the mp3 stage of a stream.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultBitrate = 192
	minBitrate     = 64
	maxBitrate     = 320
)

// Available checks if ffmpeg is installed at path or, for a bare name, in PATH.
func Available(path string) bool {
	if path == "" {
		return false
	}
	_, err := exec.LookPath(path)
	return err == nil
}

// Version returns the first line of `ffmpeg -version`, or "" when it cannot run.
func Version(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
}

// ClampBitrate keeps an mp3 bitrate in the range ffmpeg's encoder accepts,
// using DefaultBitrate when none was requested.
func ClampBitrate(kbps int) int {
	switch {
	case kbps <= 0:
		return DefaultBitrate
	case kbps < minBitrate:
		return minBitrate
	case kbps > maxBitrate:
		return maxBitrate
	}
	return kbps
}

// MP3Args transcodes whatever arrives on stdin to mp3 on stdout.
// -vn drops any video track; -threads 1 keeps container CPU usage predictable.
func MP3Args(kbps int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-threads", "1",
		"-i", "pipe:0",
		"-vn",
		"-f", "mp3",
		"-b:a", fmt.Sprintf("%dk", ClampBitrate(kbps)),
		"pipe:1",
	}
}
