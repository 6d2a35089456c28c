package delivery

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/platform"
	"github.com/guiyumin/mediahub/internal/core/resolver"
	"github.com/guiyumin/mediahub/internal/core/ytdlp"
	"github.com/guiyumin/mediahub/internal/stats"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	target     resolver.Target
	prepareErr error
	direct     string
	info       *media.MediaInfo
	directErr  error
}

func (f *fakeResolver) Prepare(_ context.Context, raw string) (resolver.Target, error) {
	if f.prepareErr != nil {
		return resolver.Target{}, f.prepareErr
	}
	t := f.target
	t.URL, t.Original = raw, raw
	return t, nil
}

func (f *fakeResolver) DirectURL(context.Context, resolver.Target, media.Format, string) (string, *media.MediaInfo, error) {
	return f.direct, f.info, f.directErr
}

type fakeStream struct {
	r       io.Reader
	ctype   string
	ext     string
	waitErr error

	mu     sync.Mutex
	closed bool
}

func (s *fakeStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, errors.New("read on closed stream")
	}
	return s.r.Read(p)
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeStream) Wait() error         { return s.waitErr }
func (s *fakeStream) ContentType() string { return s.ctype }
func (s *fakeStream) Extension() string   { return s.ext }
func (s *fakeStream) Stderr() string      { return "stderr tail" }

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// stalledStream never produces a byte. Read blocks until Close.
type stalledStream struct {
	fakeStream
	once    sync.Once
	release chan struct{}
}

func newStalledStream() *stalledStream {
	return &stalledStream{release: make(chan struct{})}
}

func (s *stalledStream) Read([]byte) (int, error) {
	<-s.release
	return 0, errors.New("read on closed stream")
}

func (s *stalledStream) Close() error {
	s.once.Do(func() { close(s.release) })
	return s.fakeStream.Close()
}

type fakeExtractor struct {
	stream  Stream
	openErr error
	calls   int
	last    ytdlp.Constraints
}

func (f *fakeExtractor) Open(_ context.Context, _ string, c ytdlp.Constraints) (Stream, error) {
	f.calls++
	f.last = c
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.stream, nil
}

type recorder struct {
	events []stats.PremiumEvent
}

func (r *recorder) RecordPremiumEvent(_ context.Context, ev stats.PremiumEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func youtubeTarget() resolver.Target {
	return resolver.Target{Platform: platform.YouTube}
}

func newStreamer(r Resolver, x Extractor, rec PremiumRecorder) *Streamer {
	return NewStreamer(r, x, rec, zerolog.Nop())
}

func TestDeliverRedirectsToDirectURL(t *testing.T) {
	res := &fakeResolver{
		target: youtubeTarget(),
		direct: "https://cdn.example.com/video.mp4",
		info:   &media.MediaInfo{Title: "My Clip"},
	}
	x := &fakeExtractor{}
	rec := &recorder{}

	out, err := newStreamer(res, x, rec).Deliver(context.Background(), Request{
		URL: "https://youtube.com/watch?v=abc12345678", Format: media.FormatMP4, Quality: "1080p",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/video.mp4", out.Redirect)
	assert.Nil(t, out.Body)
	assert.Equal(t, "My Clip.mp4", out.Filename)
	assert.Equal(t, StateRedirect, out.State())
	assert.Zero(t, x.calls, "extractor must not be spawned")
	require.Len(t, rec.events, 1)
	assert.Equal(t, "youtube", rec.events[0].Platform)
	assert.Equal(t, "1080p", rec.events[0].Quality)
}

func TestDeliverStreamsWhenNoDirectURL(t *testing.T) {
	res := &fakeResolver{target: youtubeTarget(), info: &media.MediaInfo{Title: "Song"}}
	stream := &fakeStream{r: strings.NewReader("mp4 bytes"), ctype: "video/mp4", ext: "mp4"}
	x := &fakeExtractor{stream: stream}
	rec := &recorder{}

	out, err := newStreamer(res, x, rec).Deliver(context.Background(), Request{
		URL: "https://youtube.com/watch?v=abc12345678", Quality: "720p", Title: "Custom: Name?",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Body)
	assert.Empty(t, out.Redirect)
	assert.Equal(t, "video/mp4", out.ContentType)
	assert.Equal(t, "Custom- Name.mp4", out.Filename)
	assert.Equal(t, StateStreaming, out.State())
	assert.Equal(t, media.FormatMP4, x.last.Format)
	assert.Equal(t, "720p", x.last.Quality)

	data, copyErr := io.ReadAll(out.Body)
	assert.Equal(t, "mp4 bytes", string(data))
	require.NoError(t, out.Finish(context.Background(), copyErr))

	assert.Equal(t, StateCompleted, out.State())
	assert.True(t, stream.isClosed())
	assert.Len(t, rec.events, 1)
}

func TestDeliverNonPremiumNotRecorded(t *testing.T) {
	tests := []struct {
		name    string
		format  media.Format
		quality string
	}{
		{"480p video", media.FormatMP4, "480p"},
		{"no quality", media.FormatMP4, ""},
		{"audio", media.FormatMP3, "320kbps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &fakeResolver{target: youtubeTarget(), direct: "https://cdn.example.com/f"}
			rec := &recorder{}
			out, err := newStreamer(res, &fakeExtractor{}, rec).Deliver(context.Background(), Request{
				URL: "https://youtube.com/watch?v=abc12345678", Format: tt.format, Quality: tt.quality,
			})
			require.NoError(t, err)
			assert.False(t, out.Premium)
			assert.Empty(t, rec.events)
		})
	}
}

func TestDeliverZeroBytesFails(t *testing.T) {
	tests := []struct {
		name    string
		waitErr error
	}{
		{"clean exit", nil},
		{"non-zero exit", &ytdlp.ExitError{Tool: "yt-dlp", ExitCode: 1, Stderr: "ERROR: boom"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := &fakeStream{r: strings.NewReader(""), waitErr: tt.waitErr}
			res := &fakeResolver{target: youtubeTarget()}

			out, err := newStreamer(res, &fakeExtractor{stream: stream}, nil).Deliver(context.Background(), Request{
				URL: "https://youtube.com/watch?v=abc12345678",
			})
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, media.CodeDeliveryFailed, media.CodeOf(err))
			assert.True(t, stream.isClosed())
			if tt.waitErr != nil {
				assert.ErrorIs(t, err, tt.waitErr)
			}
		})
	}
}

func TestDeliverFirstByteDeadline(t *testing.T) {
	stream := newStalledStream()
	res := &fakeResolver{target: youtubeTarget()}
	s := NewStreamer(res, &fakeExtractor{stream: stream}, nil, zerolog.Nop(), WithFirstByteTimeout(50*time.Millisecond))

	done := make(chan struct{})
	var (
		out *Result
		err error
	)
	go func() {
		defer close(done)
		out, err = s.Deliver(context.Background(), Request{URL: "https://youtube.com/watch?v=abc12345678"})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Deliver did not give up on a stream that never produced a byte")
	}

	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, media.CodeDeliveryFailed, media.CodeOf(err))
	assert.ErrorIs(t, err, errFirstByteTimeout)
	assert.True(t, stream.isClosed())
}

func TestDeliverStalledStreamHonoursCancel(t *testing.T) {
	stream := newStalledStream()
	res := &fakeResolver{target: youtubeTarget()}
	s := newStreamer(res, &fakeExtractor{stream: stream}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.Deliver(ctx, Request{URL: "https://youtube.com/watch?v=abc12345678"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, stream.isClosed())
}

func TestDeliverOpenFailure(t *testing.T) {
	res := &fakeResolver{target: youtubeTarget()}
	x := &fakeExtractor{openErr: errors.New("exec: yt-dlp: not found")}

	_, err := newStreamer(res, x, nil).Deliver(context.Background(), Request{URL: "https://youtube.com/watch?v=abc12345678"})
	assert.Equal(t, media.CodeDeliveryFailed, media.CodeOf(err))
	assert.NotContains(t, media.PublicMessage(err), "yt-dlp")
}

func TestDeliverPropagatesResolverErrors(t *testing.T) {
	tests := []struct {
		name string
		res  *fakeResolver
		code media.Code
	}{
		{
			name: "collection",
			res:  &fakeResolver{prepareErr: media.CollectionNotSupported("YouTube")},
			code: media.CodeCollectionNotSupported,
		},
		{
			name: "hard failure",
			res:  &fakeResolver{target: youtubeTarget(), directErr: media.ContentNotSupported(platform.YouTube, errors.New("shorts"))},
			code: media.CodeContentNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := &fakeExtractor{}
			_, err := newStreamer(tt.res, x, nil).Deliver(context.Background(), Request{URL: "https://youtube.com/playlist?list=XYZ"})
			assert.Equal(t, tt.code, media.CodeOf(err))
			assert.Zero(t, x.calls)
		})
	}
}

func TestFinishAbortedByClient(t *testing.T) {
	stream := &fakeStream{r: strings.NewReader("partial"), ctype: "video/mp4", ext: "mp4"}
	rec := &recorder{}
	res := &fakeResolver{target: youtubeTarget()}

	out, err := newStreamer(res, &fakeExtractor{stream: stream}, rec).Deliver(context.Background(), Request{
		URL: "https://youtube.com/watch?v=abc12345678", Quality: "1080p",
	})
	require.NoError(t, err)

	err = out.Finish(context.Background(), errors.New("write: broken pipe"))
	assert.Error(t, err)
	assert.Equal(t, StateAborted, out.State())
	assert.True(t, stream.isClosed())
	assert.Empty(t, rec.events)
}

func TestFinishExtractorFailedMidStream(t *testing.T) {
	stream := &fakeStream{
		r:       strings.NewReader("some bytes"),
		ext:     "mp4",
		waitErr: &ytdlp.ExitError{Tool: "yt-dlp", ExitCode: 1},
	}
	res := &fakeResolver{target: youtubeTarget()}

	out, err := newStreamer(res, &fakeExtractor{stream: stream}, nil).Deliver(context.Background(), Request{
		URL: "https://youtube.com/watch?v=abc12345678",
	})
	require.NoError(t, err)

	_, copyErr := io.Copy(io.Discard, out.Body)
	err = out.Finish(context.Background(), copyErr)
	assert.Equal(t, media.CodeDeliveryFailed, media.CodeOf(err))
	assert.Equal(t, StateFailed, out.State())
}

func TestAbortStopsBody(t *testing.T) {
	stream := &fakeStream{r: strings.NewReader(strings.Repeat("x", 64*1024)), ext: "mp4"}
	res := &fakeResolver{target: youtubeTarget()}

	out, err := newStreamer(res, &fakeExtractor{stream: stream}, nil).Deliver(context.Background(), Request{
		URL: "https://youtube.com/watch?v=abc12345678",
	})
	require.NoError(t, err)

	out.Abort()
	_, copyErr := io.Copy(io.Discard, out.Body)
	assert.Error(t, copyErr)
	assert.Error(t, out.Finish(context.Background(), copyErr))
	assert.Equal(t, StateAborted, out.State())
}
