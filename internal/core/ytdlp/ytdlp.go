// Package ytdlp adapts the yt-dlp command line tool as the generic extractor:
// Probe describes a URL, Stream pipes its bytes.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/guiyumin/mediahub/internal/core/config"
	"github.com/guiyumin/mediahub/internal/core/ffmpeg"
	"github.com/guiyumin/mediahub/internal/core/httpclient"
	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/platform"
	"github.com/guiyumin/mediahub/internal/core/provider"
	"github.com/rs/zerolog"
)

// Extractor runs yt-dlp (and ffmpeg for mp3) as subprocesses.
type Extractor struct {
	binary       string
	ffmpeg       string
	userAgent    string
	probeTimeout time.Duration
	log          zerolog.Logger
}

// New builds an extractor from config. When the configured yt-dlp cannot be
// found but youtube-dl can, youtube-dl is used instead.
func New(cfg config.ExtractorConfig, log zerolog.Logger) *Extractor {
	binary := cfg.YtDlpPath
	if binary == "" {
		binary = "yt-dlp"
	}
	if _, err := exec.LookPath(binary); err != nil {
		if _, err := exec.LookPath("youtube-dl"); err == nil {
			binary = "youtube-dl"
		}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = httpclient.DefaultUserAgent
	}

	timeout := time.Duration(cfg.ProbeTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Extractor{
		binary:       binary,
		ffmpeg:       cfg.FFmpegPath,
		userAgent:    ua,
		probeTimeout: timeout,
		log:          log.With().Str("component", "ytdlp").Logger(),
	}
}

func (e *Extractor) Name() string {
	return "ytdlp"
}

// Available reports whether the yt-dlp binary can be found.
func (e *Extractor) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// FFmpegAvailable reports whether mp3 transcoding is possible.
func (e *Extractor) FFmpegAvailable() bool {
	return ffmpeg.Available(e.ffmpeg)
}

// Resolve makes the extractor usable as the registry's fallback resolver.
func (e *Extractor) Resolve(ctx context.Context, tag platform.Tag, rawURL string) provider.Outcome {
	info, err := e.Probe(ctx, rawURL)
	if err != nil {
		return provider.SoftFailure(err)
	}
	info.Platform = tag
	info.Source = e.Name()
	return provider.Resolved(info)
}

// Probe asks yt-dlp for the JSON description of rawURL and normalizes it.
func (e *Extractor) Probe(ctx context.Context, rawURL string) (media.MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	args := []string{
		"--dump-json",
		"--no-playlist",
		"--no-warnings",
		"--no-check-certificates",
		"--user-agent", e.userAgent,
		rawURL,
	}

	stderr := newTailBuffer(stderrTail)
	cmd := exec.CommandContext(ctx, e.binary, args...)
	configureProcess(cmd)
	cmd.Stderr = stderr

	start := time.Now()
	out, err := cmd.Output()
	if err != nil {
		err = exitError(ctx, e.binary, err, stderr)
		e.log.Warn().Err(err).Str("url", rawURL).Dur("elapsed", time.Since(start)).Msg("probe failed")
		return media.MediaInfo{}, err
	}

	line := firstLine(out)
	info, ok := normalizeProbe(line)
	if !ok {
		return media.MediaInfo{}, fmt.Errorf("%s: unparseable probe output (%d bytes)", e.binary, len(out))
	}

	e.log.Debug().Str("url", rawURL).Int("formats", len(info.Formats)).Dur("elapsed", time.Since(start)).Msg("probe done")
	return info, nil
}

func firstLine(out []byte) []byte {
	for _, line := range bytes.Split(out, []byte("\n")) {
		if line = bytes.TrimSpace(line); len(line) > 0 {
			return line
		}
	}
	return nil
}

// exitError turns an exec failure into an *ExitError, or the context error
// when the process was killed because ctx ended.
func exitError(ctx context.Context, tool string, err error, stderr *tailBuffer) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", tool, ctxErr)
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitError{Tool: tool, ExitCode: ee.ExitCode(), Stderr: stderr.String()}
	}
	return fmt.Errorf("%s: %w", tool, err)
}
