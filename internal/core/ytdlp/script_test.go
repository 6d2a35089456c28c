//go:build unix

package ytdlp

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// writeScript writes an executable shell script standing in for a tool.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func testExtractor(binary, ffmpegPath string) *Extractor {
	return &Extractor{
		binary:       binary,
		ffmpeg:       ffmpegPath,
		userAgent:    "mediahub-test",
		probeTimeout: 5 * time.Second,
		log:          zerolog.Nop(),
	}
}
