package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guiyumin/mediahub/internal/core/enrich"
	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/platform"
	"github.com/guiyumin/mediahub/internal/core/provider"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, tag platform.Tag, rawURL string) provider.Outcome
}

func (f *fakeResolver) Name() string { return f.name }

func (f *fakeResolver) Resolve(ctx context.Context, tag platform.Tag, rawURL string) provider.Outcome {
	f.calls.Add(1)
	return f.fn(ctx, tag, rawURL)
}

func soft(name string) *fakeResolver {
	return &fakeResolver{name: name, fn: func(context.Context, platform.Tag, string) provider.Outcome {
		return provider.SoftFailure(errors.New(name + ": upstream returned 503 secret-host.internal"))
	}}
}

func hard(name string) *fakeResolver {
	return &fakeResolver{name: name, fn: func(context.Context, platform.Tag, string) provider.Outcome {
		return provider.HardFailure(errors.New(name + ": This content type is not supported"))
	}}
}

func resolved(name string, info media.MediaInfo) *fakeResolver {
	return &fakeResolver{name: name, fn: func(_ context.Context, tag platform.Tag, _ string) provider.Outcome {
		info.Platform = tag
		info.Source = name
		info.Finalize()
		return provider.Resolved(info)
	}}
}

func videoInfo(title string, resolutions ...string) media.MediaInfo {
	return media.MediaInfo{
		Title:   title,
		Formats: []media.FormatDescriptor{{Kind: media.KindVideo, Resolutions: resolutions}},
	}
}

type fakeRegistry struct {
	byTag    map[platform.Tag][]provider.Resolver
	fallback provider.Resolver
}

func (r fakeRegistry) ResolversFor(tag platform.Tag) []provider.Resolver { return r.byTag[tag] }
func (r fakeRegistry) Fallback() provider.Resolver                       { return r.fallback }

func registry(tag platform.Tag, fallback provider.Resolver, chain ...provider.Resolver) fakeRegistry {
	return fakeRegistry{byTag: map[platform.Tag][]provider.Resolver{tag: chain}, fallback: fallback}
}

const ytURL = "https://youtube.com/watch?v=abc12345678"

func TestResolve_PrepareErrors(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want media.Code
	}{
		{"empty", "", media.CodeInvalidURL},
		{"not a url", "hello world", media.CodeInvalidURL},
		{"no scheme", "youtube.com/watch?v=abc12345678", media.CodeInvalidURL},
		{"unsupported", "https://example.com/not-a-platform", media.CodeUnsupportedPlatform},
		{"youtube playlist", "https://youtube.com/playlist?list=XYZ", media.CodeCollectionNotSupported},
		{"spotify album", "https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", media.CodeCollectionNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := soft("p")
			fb := soft("fallback")
			r := New(fakeRegistry{
				byTag:    map[platform.Tag][]provider.Resolver{platform.YouTube: {p}, platform.Spotify: {p}},
				fallback: fb,
			}, zerolog.Nop())

			_, err := r.Resolve(context.Background(), tt.url)
			assert.Equal(t, tt.want, media.CodeOf(err))
			assert.Zero(t, p.calls.Load())
			assert.Zero(t, fb.calls.Load())
		})
	}
}

func TestResolve_CollectionNamesPlatform(t *testing.T) {
	r := New(registry(platform.YouTube, soft("fb")), zerolog.Nop())
	_, err := r.Resolve(context.Background(), "https://youtube.com/playlist?list=XYZ")
	assert.Contains(t, media.PublicMessage(err), "YouTube")
}

func TestResolve_FirstResolvedWins(t *testing.T) {
	p1 := soft("p1")
	p2 := resolved("p2", videoInfo("from p2", "720p", "1080p"))
	p3 := resolved("p3", videoInfo("from p3", "360p"))
	fb := soft("fallback")

	r := New(registry(platform.YouTube, fb, p1, p2, p3), zerolog.Nop())
	info, err := r.Resolve(context.Background(), ytURL)
	require.NoError(t, err)

	assert.Equal(t, "from p2", info.Title)
	assert.Equal(t, platform.YouTube, info.Platform)
	assert.Equal(t, []string{"1080p", "720p"}, info.Formats[0].Resolutions)
	assert.EqualValues(t, 1, p1.calls.Load())
	assert.EqualValues(t, 1, p2.calls.Load())
	assert.Zero(t, p3.calls.Load())
	assert.Zero(t, fb.calls.Load())
}

func TestResolve_SoftFailureFallsBackExactlyOnce(t *testing.T) {
	p := soft("rapidapi")
	fb := resolved("ytdlp", videoInfo("Big Buck Bunny", "1080p", "720p", "360p"))

	r := New(registry(platform.YouTube, fb, p), zerolog.Nop())
	info, err := r.Resolve(context.Background(), ytURL)
	require.NoError(t, err)

	assert.EqualValues(t, 1, p.calls.Load())
	assert.EqualValues(t, 1, fb.calls.Load())
	assert.Equal(t, platform.YouTube, info.Platform)
	assert.Contains(t, info.Formats[0].Resolutions, "720p")
}

func TestResolve_HardFailureNeverFallsBack(t *testing.T) {
	p := hard("general")
	next := resolved("next", videoInfo("never", "720p"))
	fb := resolved("ytdlp", videoInfo("never", "720p"))

	r := New(registry(platform.Instagram, fb, p, next), zerolog.Nop())
	_, err := r.Resolve(context.Background(), "https://www.instagram.com/p/C1a2B3c4D5e/")

	assert.Equal(t, media.CodeContentNotSupported, media.CodeOf(err))
	assert.Zero(t, next.calls.Load())
	assert.Zero(t, fb.calls.Load())
}

func TestResolve_EmptyFormatsIsSoftFailure(t *testing.T) {
	empty := resolved("empty", media.MediaInfo{Title: "no formats"})
	fb := resolved("ytdlp", videoInfo("fallback", "480p"))

	r := New(registry(platform.TikTok, fb, empty), zerolog.Nop())
	info, err := r.Resolve(context.Background(), "https://www.tiktok.com/@user/video/7234567890123456789")
	require.NoError(t, err)

	assert.Equal(t, "fallback", info.Title)
	assert.EqualValues(t, 1, fb.calls.Load())
}

func TestResolve_AllFailAggregates(t *testing.T) {
	p1, p2, fb := soft("p1"), soft("p2"), soft("ytdlp")

	r := New(registry(platform.Facebook, fb, p1, p2), zerolog.Nop())
	_, err := r.Resolve(context.Background(), "https://www.facebook.com/watch?v=123456789")

	require.Error(t, err)
	assert.Equal(t, media.CodeResolutionFailed, media.CodeOf(err))
	assert.NotContains(t, media.PublicMessage(err), "secret-host")
	assert.Contains(t, err.Error(), "p1")
	assert.Contains(t, err.Error(), "ytdlp")
}

func TestResolve_NoProvidersNoFallback(t *testing.T) {
	r := New(fakeRegistry{}, zerolog.Nop())
	_, err := r.Resolve(context.Background(), ytURL)
	assert.Equal(t, media.CodeResolutionFailed, media.CodeOf(err))
	assert.ErrorIs(t, err, errNoFallback)
}

func TestResolve_ProviderTimeoutIsSoft(t *testing.T) {
	slow := &fakeResolver{name: "slow", fn: func(ctx context.Context, _ platform.Tag, _ string) provider.Outcome {
		<-ctx.Done()
		return provider.SoftFailure(ctx.Err())
	}}
	fb := resolved("ytdlp", videoInfo("fallback", "720p"))

	r := New(registry(platform.Twitter, fb, slow), zerolog.Nop(), WithProviderTimeout(20*time.Millisecond))

	start := time.Now()
	info, err := r.Resolve(context.Background(), "https://x.com/u/status/1")
	require.NoError(t, err)
	assert.Equal(t, "fallback", info.Title)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolve_CallerCancellationStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeResolver{name: "p", fn: func(context.Context, platform.Tag, string) provider.Outcome {
		cancel()
		return provider.SoftFailure(errors.New("interrupted"))
	}}
	fb := resolved("ytdlp", videoInfo("x", "720p"))

	r := New(registry(platform.YouTube, fb, p), zerolog.Nop())
	_, err := r.Resolve(ctx, ytURL)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fb.calls.Load())
}

type mapExpander map[string]string

func (m mapExpander) Expand(_ context.Context, raw string) string {
	if v, ok := m[raw]; ok {
		return v
	}
	return raw
}

func TestResolve_ExpandsShortURLs(t *testing.T) {
	var seen string
	p := &fakeResolver{name: "pinterest", fn: func(_ context.Context, tag platform.Tag, rawURL string) provider.Outcome {
		seen = rawURL
		info := videoInfo("pin", "720p")
		info.Finalize()
		return provider.Resolved(info)
	}}

	r := New(registry(platform.Pinterest, nil, p), zerolog.Nop(),
		WithShortURLExpander(mapExpander{"https://pin.it/4AbCdEf": "https://www.pinterest.com/pin/123456/"}))

	_, err := r.Resolve(context.Background(), "https://pin.it/4AbCdEf")
	require.NoError(t, err)
	assert.Equal(t, "https://www.pinterest.com/pin/123456/", seen)
}

func TestResolve_ShortURLExpandingToCollection(t *testing.T) {
	r := New(registry(platform.Pinterest, nil), zerolog.Nop(),
		WithShortURLExpander(mapExpander{"https://pin.it/board": "https://www.pinterest.com/someone/recipes/"}))

	_, err := r.Resolve(context.Background(), "https://pin.it/board")
	assert.Equal(t, media.CodeCollectionNotSupported, media.CodeOf(err))
}

type fakeEnricher struct {
	meta  enrich.PageMeta
	err   error
	calls int
}

func (f *fakeEnricher) Fetch(context.Context, string) (enrich.PageMeta, error) {
	f.calls++
	return f.meta, f.err
}

func TestResolve_Enrichment(t *testing.T) {
	en := &fakeEnricher{meta: enrich.PageMeta{Title: "Page title", Image: "https://cdn/og.jpg"}}
	fb := resolved("ytdlp", videoInfo("", "720p"))

	r := New(registry(platform.Dailymotion, fb), zerolog.Nop(), WithEnricher(en))
	info, err := r.Resolve(context.Background(), "https://www.dailymotion.com/video/x8abcd1")
	require.NoError(t, err)

	assert.Equal(t, 1, en.calls)
	assert.Equal(t, "Page title", info.Title)
	assert.Equal(t, "https://cdn/og.jpg", info.Thumbnail)
}

func TestResolve_EnrichmentFailureIsIgnored(t *testing.T) {
	en := &fakeEnricher{err: errors.New("timeout")}
	fb := resolved("ytdlp", videoInfo("", "720p"))

	r := New(registry(platform.Dailymotion, fb), zerolog.Nop(), WithEnricher(en))
	info, err := r.Resolve(context.Background(), "https://www.dailymotion.com/video/x8abcd1")
	require.NoError(t, err)
	assert.Equal(t, media.DefaultTitle, info.Title)
}

func TestDirectURL(t *testing.T) {
	withURL := media.MediaInfo{
		Title:              "clip",
		Formats:            []media.FormatDescriptor{{Kind: media.KindVideo, Resolutions: []string{"720p"}}},
		PrimaryDownloadURL: "https://cdn/clip.mp4",
	}
	noURL := videoInfo("yt", "1080p", "720p")

	tests := []struct {
		name     string
		chain    []provider.Resolver
		wantURL  string
		wantCode media.Code
		wantInfo bool
	}{
		{"direct url", []provider.Resolver{soft("a"), resolved("b", withURL)}, "https://cdn/clip.mp4", "", true},
		{"resolved without url", []provider.Resolver{resolved("yt", noURL)}, "", "", true},
		{"nothing configured", nil, "", "", false},
		{"hard failure", []provider.Resolver{hard("h")}, "", media.CodeContentNotSupported, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := soft("ytdlp")
			r := New(registry(platform.TikTok, fb, tt.chain...), zerolog.Nop())
			target, err := r.Prepare(context.Background(), "https://www.tiktok.com/@user/video/7234567890123456789")
			require.NoError(t, err)

			u, info, err := r.DirectURL(context.Background(), target, media.FormatMP4, "720p")
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, media.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, u)
			assert.Equal(t, tt.wantInfo, info != nil)
			assert.Zero(t, fb.calls.Load())
		})
	}
}
