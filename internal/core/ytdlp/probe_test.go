//go:build unix

package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/platform"
	"github.com/guiyumin/mediahub/internal/core/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	fixture, err := filepath.Abs(filepath.Join("testdata", "probe.json"))
	require.NoError(t, err)
	argsFile := filepath.Join(t.TempDir(), "args")

	bin := writeScript(t, "yt-dlp", `printf '%s\n' "$*" > '`+argsFile+`'
cat '`+fixture+`'`)
	e := testExtractor(bin, "")

	info, err := e.Probe(context.Background(), "https://youtube.com/watch?v=abc12345678")
	require.NoError(t, err)

	assert.Equal(t, "Big Buck Bunny", info.Title)
	assert.Equal(t, "https://i.ytimg.com/vi/abc12345678/maxresdefault.jpg", info.Thumbnail)
	assert.Equal(t, []media.FormatDescriptor{
		{Kind: media.KindVideo, Resolutions: []string{"1080p", "720p", "360p"}},
		{Kind: media.KindAudio, Bitrates: []string{"135kbps", "129kbps", "49kbps"}},
	}, info.Formats)
	assert.Empty(t, info.PrimaryDownloadURL)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Contains(t, string(args), "--dump-json")
	assert.Contains(t, string(args), "--no-playlist")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(args)), "https://youtube.com/watch?v=abc12345678"))
}

func TestProbe_ExitErrorCarriesStderr(t *testing.T) {
	bin := writeScript(t, "yt-dlp", `echo "ERROR: Unsupported URL: https://example.com/x" >&2
exit 1`)
	e := testExtractor(bin, "")

	_, err := e.Probe(context.Background(), "https://example.com/x")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode)
	assert.Contains(t, exitErr.Stderr, "Unsupported URL")
	assert.Equal(t, FailureUnsupportedURL, exitErr.Classify())
}

func TestProbe_GarbageOutput(t *testing.T) {
	bin := writeScript(t, "yt-dlp", `echo "this is not json"`)
	_, err := testExtractor(bin, "").Probe(context.Background(), "https://example.com/x")
	assert.Error(t, err)
}

func TestResolve_AsFallback(t *testing.T) {
	fixture, err := filepath.Abs(filepath.Join("testdata", "probe.json"))
	require.NoError(t, err)
	ok := testExtractor(writeScript(t, "yt-dlp", `cat '`+fixture+`'`), "")

	out := ok.Resolve(context.Background(), platform.YouTube, "https://youtube.com/watch?v=abc12345678")
	require.Equal(t, provider.OutcomeResolved, out.Kind)
	assert.Equal(t, platform.YouTube, out.Info.Platform)
	assert.Equal(t, "ytdlp", out.Info.Source)

	failing := testExtractor(writeScript(t, "yt-dlp", `exit 2`), "")
	out = failing.Resolve(context.Background(), platform.YouTube, "https://youtube.com/watch?v=abc12345678")
	assert.Equal(t, provider.OutcomeSoftFailure, out.Kind)
}
