// Package delivery turns a download request into either a redirect to a
// direct media URL or a byte stream produced by the generic extractor.
package delivery

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/guiyumin/mediahub/internal/core/logging"
	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/platform"
	"github.com/guiyumin/mediahub/internal/core/resolver"
	"github.com/guiyumin/mediahub/internal/core/ytdlp"
	"github.com/guiyumin/mediahub/internal/stats"
	"github.com/rs/zerolog"
)

// exitGrace bounds how long a stream that produced nothing is given to
// report its exit status.
const exitGrace = 2 * time.Second

var (
	errNoOutput         = errors.New("extractor produced no output")
	errFirstByteTimeout = errors.New("extractor produced no output before the first-byte deadline")
)

// Stream is a running extraction.
type Stream interface {
	io.ReadCloser
	Wait() error
	ContentType() string
	Extension() string
	Stderr() string
}

// Extractor starts extractions.
type Extractor interface {
	Open(ctx context.Context, rawURL string, c ytdlp.Constraints) (Stream, error)
}

// Resolver is the part of the orchestrator delivery needs.
type Resolver interface {
	Prepare(ctx context.Context, raw string) (resolver.Target, error)
	DirectURL(ctx context.Context, t resolver.Target, format media.Format, quality string) (string, *media.MediaInfo, error)
}

// PremiumRecorder receives one event per completed premium delivery.
type PremiumRecorder interface {
	RecordPremiumEvent(ctx context.Context, ev stats.PremiumEvent) error
}

// FromYtDlp adapts a yt-dlp extractor.
func FromYtDlp(e *ytdlp.Extractor) Extractor {
	return ytdlpExtractor{e: e}
}

type ytdlpExtractor struct {
	e *ytdlp.Extractor
}

func (x ytdlpExtractor) Open(ctx context.Context, rawURL string, c ytdlp.Constraints) (Stream, error) {
	s, err := x.e.Stream(ctx, rawURL, c)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Request is one download request.
type Request struct {
	URL     string
	Format  media.Format
	Quality string
	// Title overrides the filename stem. Optional.
	Title string
}

// State is where a delivery is in its lifecycle.
type State string

const (
	StateRedirect  State = "redirect"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateFailed    State = "failed"
)

// Streamer is the Delivery Streamer.
type Streamer struct {
	resolver  Resolver
	extractor Extractor
	recorder  PremiumRecorder
	log       zerolog.Logger

	firstByteTimeout time.Duration
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithFirstByteTimeout bounds how long an extraction may run before producing
// its first byte. Zero disables the bound.
func WithFirstByteTimeout(d time.Duration) Option {
	return func(s *Streamer) { s.firstByteTimeout = d }
}

// NewStreamer creates a streamer. recorder may be nil.
func NewStreamer(r Resolver, x Extractor, recorder PremiumRecorder, log zerolog.Logger, opts ...Option) *Streamer {
	s := &Streamer{
		resolver:  r,
		extractor: x,
		recorder:  recorder,
		log:       logging.Component(log, "delivery"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver resolves req into a Result. Exactly one of Result.Redirect and
// Result.Body is set. A Body must be drained and then handed to Finish.
func (s *Streamer) Deliver(ctx context.Context, req Request) (*Result, error) {
	if req.Format == "" {
		req.Format = media.FormatMP4
	}

	t, err := s.resolver.Prepare(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx, s.log).With().
		Str("platform", string(t.Platform)).
		Str("format", string(req.Format)).
		Str("quality", req.Quality).
		Logger()

	res := &Result{
		Platform: t.Platform,
		Premium:  media.IsPremium(req.Format, req.Quality),
		event: stats.PremiumEvent{
			Kind:     stats.KindDownload,
			URL:      t.URL,
			Platform: string(t.Platform),
			Format:   string(req.Format),
			Quality:  req.Quality,
		},
		streamer: s,
		log:      log,
	}

	direct, info, err := s.resolver.DirectURL(ctx, t, req.Format, req.Quality)
	if err != nil {
		return nil, err
	}
	title := req.Title
	if title == "" && info != nil {
		title = info.Title
	}

	if direct != "" {
		res.Redirect = direct
		res.Filename = media.AttachmentName(title, string(req.Format))
		res.state = StateRedirect
		log.Info().Str("url", t.URL).Msg("redirecting to direct url")
		res.recordPremium(ctx)
		return res, nil
	}

	stream, err := s.extractor.Open(ctx, t.URL, ytdlp.Constraints{Format: req.Format, Quality: req.Quality})
	if err != nil {
		log.Error().Err(err).Str("url", t.URL).Msg("starting extractor")
		return nil, media.DeliveryFailed(t.Platform, err)
	}

	// Nothing is committed to the client until the first byte exists, so an
	// extractor that fails up front still gets a structured error.
	br := bufio.NewReaderSize(stream, 32*1024)
	if err := s.awaitFirstByte(ctx, br, stream); err != nil {
		cause := s.drainFailure(ctx, stream, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn().Err(cause).Str("url", t.URL).Str("stderr", stream.Stderr()).Msg("extractor failed before output")
		return nil, media.DeliveryFailed(t.Platform, cause)
	}

	res.Body = &body{Reader: br, stream: stream}
	res.ContentType = stream.ContentType()
	res.Filename = media.AttachmentName(title, stream.Extension())
	res.stream = stream
	res.state = StateStreaming
	log.Info().Str("url", t.URL).Str("content_type", res.ContentType).Msg("streaming from extractor")
	return res, nil
}

// awaitFirstByte peeks the first byte of stream. When the deadline passes or
// ctx ends first, the stream is closed, which unblocks the pending read.
func (s *Streamer) awaitFirstByte(ctx context.Context, br *bufio.Reader, stream Stream) error {
	peeked := make(chan error, 1)
	go func() {
		_, err := br.Peek(1)
		peeked <- err
	}()

	var deadline <-chan time.Time
	if s.firstByteTimeout > 0 {
		timer := time.NewTimer(s.firstByteTimeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case err := <-peeked:
		return err
	case <-deadline:
		stream.Close()
		<-peeked
		return errFirstByteTimeout
	case <-ctx.Done():
		stream.Close()
		<-peeked
		return ctx.Err()
	}
}

// drainFailure collects the exit status of a stream that produced no bytes,
// then releases it.
func (s *Streamer) drainFailure(ctx context.Context, stream Stream, readErr error) error {
	defer stream.Close()

	if !errors.Is(readErr, io.EOF) {
		return readErr
	}

	exited := make(chan error, 1)
	go func() { exited <- stream.Wait() }()

	select {
	case err := <-exited:
		if err != nil {
			return err
		}
		return errNoOutput
	case <-time.After(exitGrace):
		return errNoOutput
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result is the outcome of Deliver.
type Result struct {
	Redirect    string
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Platform    platform.Tag
	Premium     bool

	event    stats.PremiumEvent
	stream   Stream
	streamer *Streamer
	log      zerolog.Logger

	mu    sync.Mutex
	state State
}

// State returns the current lifecycle state.
func (r *Result) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Result) setState(st State) {
	r.mu.Lock()
	r.state = st
	r.mu.Unlock()
}

// Abort kills the extraction. A concurrent copy from Body fails promptly.
func (r *Result) Abort() {
	if r.stream != nil {
		r.stream.Close()
	}
}

// Finish settles a streamed delivery once the copy from Body has returned.
// copyErr is the copy's error. A nil return means the client received the
// whole file. Once headers are out, a failure can only truncate the body.
func (r *Result) Finish(ctx context.Context, copyErr error) error {
	if r.stream == nil {
		return nil
	}

	if copyErr != nil {
		r.stream.Close()
		r.setState(StateAborted)
		r.log.Info().Err(copyErr).Msg("delivery aborted")
		return fmt.Errorf("delivery aborted: %w", copyErr)
	}

	err := r.stream.Wait()
	r.stream.Close()
	if err != nil {
		r.setState(StateFailed)
		r.log.Warn().Err(err).Str("stderr", r.stream.Stderr()).Msg("extractor failed mid-stream")
		return media.DeliveryFailed(r.Platform, err)
	}

	r.setState(StateCompleted)
	r.log.Info().Msg("delivery completed")
	r.recordPremium(ctx)
	return nil
}

func (r *Result) recordPremium(ctx context.Context) {
	if !r.Premium || r.streamer.recorder == nil {
		return
	}
	ev := r.event
	ev.At = time.Now()
	if err := r.streamer.recorder.RecordPremiumEvent(context.WithoutCancel(ctx), ev); err != nil {
		r.log.Warn().Err(err).Msg("recording premium event")
	}
}

type body struct {
	*bufio.Reader
	stream Stream
}

func (b *body) Close() error {
	return b.stream.Close()
}
