package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/guiyumin/mediahub/internal/core/ffmpeg"
	"github.com/guiyumin/mediahub/internal/core/media"
	"golang.org/x/sync/errgroup"
)

// Constraints select what Stream produces.
type Constraints struct {
	Format media.Format
	// Quality is a ceiling such as "720p" or "128kbps". Empty means best.
	Quality string
}

// Stream is the running extraction. Read yields bytes as the subprocess
// produces them; Close kills the subprocesses and releases the pipe.
type Stream struct {
	contentType string
	ext         string

	r      *os.File
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	stderr *tailBuffer
	pids   []int
}

// ContentType is the MIME type of the produced bytes.
func (s *Stream) ContentType() string { return s.contentType }

// Extension is the file extension matching ContentType, without a dot.
func (s *Stream) Extension() string { return s.ext }

func (s *Stream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Close terminates the pipeline immediately and waits for it to be reaped.
func (s *Stream) Close() error {
	s.cancel()
	s.r.Close()
	<-s.done
	return nil
}

// Wait blocks until every subprocess has exited and returns the first failure.
// The caller must keep reading or Close, otherwise a full pipe blocks the tool.
func (s *Stream) Wait() error {
	<-s.done
	return s.err
}

// Done is closed once all subprocesses have exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Stderr returns the captured stderr tail of the pipeline.
func (s *Stream) Stderr() string {
	return s.stderr.String()
}

// VideoSelector builds the yt-dlp format selector for a height ceiling. Only
// single-file formats qualify because the output goes to a pipe.
func VideoSelector(maxHeight int) string {
	if maxHeight <= 0 {
		return "best[ext=mp4]/best"
	}
	return fmt.Sprintf("best[height<=%d][ext=mp4]/best[height<=%d]/worst[ext=mp4]/worst", maxHeight, maxHeight)
}

// Stream starts yt-dlp writing rawURL to a pipe. For mp3 the audio is piped
// through ffmpeg; without ffmpeg the best m4a audio is served instead.
func (e *Extractor) Stream(ctx context.Context, rawURL string, c Constraints) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	s := &Stream{
		cancel: cancel,
		done:   make(chan struct{}),
		stderr: newTailBuffer(stderrTail),
	}

	var (
		cmds []*exec.Cmd
		err  error
	)
	switch {
	case c.Format == media.FormatMP3 && e.FFmpegAvailable():
		s.contentType, s.ext = "audio/mpeg", "mp3"
		cmds, err = e.startMP3(ctx, rawURL, c, s)
	case c.Format == media.FormatMP3:
		e.log.Warn().Msg("ffmpeg not available, serving m4a audio")
		s.contentType, s.ext = "audio/mp4", "m4a"
		cmds, err = e.startSingle(ctx, rawURL, "bestaudio[ext=m4a]/bestaudio[ext=mp4]/best[ext=mp4]", s)
	default:
		s.contentType, s.ext = "video/mp4", "mp4"
		cmds, err = e.startSingle(ctx, rawURL, VideoSelector(media.ParseQuality(c.Quality)), s)
	}
	if err != nil {
		cancel()
		return nil, err
	}

	start := time.Now()
	g := new(errgroup.Group)
	for _, cmd := range cmds {
		s.pids = append(s.pids, cmd.Process.Pid)
		g.Go(func() error {
			if err := cmd.Wait(); err != nil {
				return exitError(ctx, cmd.Path, err, s.stderr)
			}
			return nil
		})
	}
	e.log.Debug().Str("url", rawURL).Str("format", string(c.Format)).Str("quality", c.Quality).Ints("pids", s.pids).Msg("stream started")

	go func() {
		s.err = g.Wait()
		cancel()
		ev := e.log.Debug()
		if s.err != nil {
			ev = e.log.Warn().Err(s.err)
		}
		ev.Str("url", rawURL).Dur("elapsed", time.Since(start)).Msg("stream finished")
		close(s.done)
	}()

	return s, nil
}

func (e *Extractor) baseArgs() []string {
	return []string{
		"--no-playlist",
		"--no-warnings",
		"--no-part",
		"--no-progress",
		"--quiet",
		"--user-agent", e.userAgent,
		"-o", "-",
	}
}

// startSingle runs yt-dlp alone with its stdout on the stream's pipe.
func (e *Extractor) startSingle(ctx context.Context, rawURL, selector string, s *Stream) ([]*exec.Cmd, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating pipe: %w", err)
	}

	args := append(e.baseArgs(), "-f", selector, rawURL)
	cmd := exec.CommandContext(ctx, e.binary, args...)
	configureProcess(cmd)
	cmd.Stdout = pw
	cmd.Stderr = s.stderr

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("starting %s: %w", e.binary, err)
	}
	pw.Close()

	s.r = pr
	return []*exec.Cmd{cmd}, nil
}

// startMP3 runs yt-dlp | ffmpeg with ffmpeg's stdout on the stream's pipe.
func (e *Extractor) startMP3(ctx context.Context, rawURL string, c Constraints, s *Stream) ([]*exec.Cmd, error) {
	midR, midW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating pipe: %w", err)
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		midR.Close()
		midW.Close()
		return nil, fmt.Errorf("creating pipe: %w", err)
	}
	closeAll := func() {
		midR.Close()
		midW.Close()
		pr.Close()
		pw.Close()
	}

	args := append(e.baseArgs(), "-f", "bestaudio/best", rawURL)
	extract := exec.CommandContext(ctx, e.binary, args...)
	configureProcess(extract)
	extract.Stdout = midW
	extract.Stderr = s.stderr

	transcode := exec.CommandContext(ctx, e.ffmpeg, ffmpeg.MP3Args(media.ParseQuality(c.Quality))...)
	configureProcess(transcode)
	transcode.Stdin = midR
	transcode.Stdout = pw
	transcode.Stderr = s.stderr

	if err := extract.Start(); err != nil {
		closeAll()
		return nil, fmt.Errorf("starting %s: %w", e.binary, err)
	}
	if err := transcode.Start(); err != nil {
		closeAll()
		_ = extract.Cancel()
		_ = extract.Wait()
		return nil, fmt.Errorf("starting %s: %w", e.ffmpeg, err)
	}

	// The children hold their own copies of these ends.
	midR.Close()
	midW.Close()
	pw.Close()

	s.r = pr
	return []*exec.Cmd{extract, transcode}, nil
}
