//go:build unix

package ytdlp

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_Video(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	bin := writeScript(t, "yt-dlp", `printf '%s\n' "$*" > '`+argsFile+`'
printf 'video-bytes'`)
	e := testExtractor(bin, "")

	s, err := e.Stream(context.Background(), "https://youtube.com/watch?v=abc12345678", Constraints{Format: media.FormatMP4, Quality: "720p"})
	require.NoError(t, err)
	defer s.Close()

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
	assert.NoError(t, s.Wait())
	assert.Equal(t, "video/mp4", s.ContentType())
	assert.Equal(t, "mp4", s.Extension())

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "-o -")
	assert.Contains(t, string(args), "best[height<=720][ext=mp4]")
}

func TestStream_MP3ThroughFFmpeg(t *testing.T) {
	bin := writeScript(t, "yt-dlp", `printf 'audio'`)
	ff := writeScript(t, "ffmpeg", `tr a-z A-Z`)
	e := testExtractor(bin, ff)

	s, err := e.Stream(context.Background(), "https://youtube.com/watch?v=abc12345678", Constraints{Format: media.FormatMP3, Quality: "128kbps"})
	require.NoError(t, err)
	defer s.Close()

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "AUDIO", string(data))
	assert.NoError(t, s.Wait())
	assert.Equal(t, "audio/mpeg", s.ContentType())
	assert.Len(t, s.pids, 2)
}

func TestStream_MP3WithoutFFmpegServesM4A(t *testing.T) {
	bin := writeScript(t, "yt-dlp", `printf 'm4a'`)
	e := testExtractor(bin, filepath.Join(t.TempDir(), "missing-ffmpeg"))

	s, err := e.Stream(context.Background(), "https://youtube.com/watch?v=abc12345678", Constraints{Format: media.FormatMP3})
	require.NoError(t, err)
	defer s.Close()

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, "m4a", string(data))
	assert.Equal(t, "audio/mp4", s.ContentType())
	assert.Equal(t, "m4a", s.Extension())
}

func TestStream_NonZeroExit(t *testing.T) {
	bin := writeScript(t, "yt-dlp", `echo "ERROR: Video unavailable" >&2
exit 1`)
	e := testExtractor(bin, "")

	s, err := e.Stream(context.Background(), "https://youtube.com/watch?v=gone", Constraints{Format: media.FormatMP4})
	require.NoError(t, err)
	defer s.Close()

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Empty(t, data)

	var exitErr *ExitError
	require.ErrorAs(t, s.Wait(), &exitErr)
	assert.Equal(t, FailureUnavailable, exitErr.Classify())
	assert.Contains(t, s.Stderr(), "Video unavailable")
}

func TestStream_StartFailure(t *testing.T) {
	e := testExtractor(filepath.Join(t.TempDir(), "no-such-binary"), "")
	_, err := e.Stream(context.Background(), "https://youtube.com/watch?v=x", Constraints{Format: media.FormatMP4})
	assert.Error(t, err)
}

func TestStream_CancelKillsSubprocess(t *testing.T) {
	bin := writeScript(t, "yt-dlp", `while :; do printf 'chunk'; sleep 0.05; done`)
	e := testExtractor(bin, "")

	ctx, cancel := context.WithCancel(context.Background())
	s, err := e.Stream(ctx, "https://youtube.com/watch?v=abc12345678", Constraints{Format: media.FormatMP4})
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, 5)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)
	assert.Equal(t, "chunk", string(buf))

	pid := s.pids[0]
	cancel()

	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("subprocess still running 3s after cancellation")
	}

	assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH)
	assert.ErrorIs(t, s.Wait(), context.Canceled)
}

func TestStream_CloseKillsSubprocess(t *testing.T) {
	bin := writeScript(t, "yt-dlp", `while :; do printf 'chunk'; sleep 0.05; done`)
	ff := writeScript(t, "ffmpeg", `cat`)
	e := testExtractor(bin, ff)

	s, err := e.Stream(context.Background(), "https://youtube.com/watch?v=abc12345678", Constraints{Format: media.FormatMP3})
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)

	closed := make(chan struct{})
	go func() {
		_ = s.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return within 3s")
	}
	for _, pid := range s.pids {
		assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH)
	}
	assert.True(t, strings.Contains(s.Wait().Error(), "canceled"))
}
