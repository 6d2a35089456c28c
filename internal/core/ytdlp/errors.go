package ytdlp

import (
	"fmt"
	"strings"
)

// FailureKind is a coarse reading of extractor stderr, used for logs and metrics.
type FailureKind string

const (
	FailureUnsupportedURL FailureKind = "unsupported-url"
	FailureUnavailable    FailureKind = "unavailable"
	FailureGeoBlocked     FailureKind = "geo-blocked"
	FailureLoginRequired  FailureKind = "login-required"
	FailureUnknown        FailureKind = "unknown"
)

// ExitError is a non-zero exit of an extraction subprocess.
type ExitError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := lastLine(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, msg)
}

// Classify reads the captured stderr.
func (e *ExitError) Classify() FailureKind {
	s := strings.ToLower(e.Stderr)
	switch {
	case strings.Contains(s, "unsupported url"):
		return FailureUnsupportedURL
	case strings.Contains(s, "not available in your country"), strings.Contains(s, "geo restrict"):
		return FailureGeoBlocked
	case strings.Contains(s, "sign in"), strings.Contains(s, "login required"), strings.Contains(s, "private video"):
		return FailureLoginRequired
	case strings.Contains(s, "video unavailable"), strings.Contains(s, "has been removed"), strings.Contains(s, "http error 404"):
		return FailureUnavailable
	}
	return FailureUnknown
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
