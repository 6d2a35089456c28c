// Package resolver turns a user-supplied URL into a MediaInfo by walking the
// provider chain for its platform and falling back to the generic extractor.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guiyumin/mediahub/internal/core/enrich"
	"github.com/guiyumin/mediahub/internal/core/logging"
	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/platform"
	"github.com/guiyumin/mediahub/internal/core/provider"
	"github.com/rs/zerolog"
)

// DefaultProviderTimeout bounds each specialized provider call.
const DefaultProviderTimeout = 15 * time.Second

var errNoFallback = errors.New("no fallback resolver configured")

// ShortURLExpander expands share links before classification.
type ShortURLExpander interface {
	Expand(ctx context.Context, raw string) string
}

// Enricher fetches page metadata for results missing a title or thumbnail.
type Enricher interface {
	Fetch(ctx context.Context, pageURL string) (enrich.PageMeta, error)
}

// Registry supplies the resolvers for a platform.
type Registry interface {
	ResolversFor(tag platform.Tag) []provider.Resolver
	Fallback() provider.Resolver
}

// Target is a validated, classified single-item URL.
type Target struct {
	URL      string
	Original string
	Platform platform.Tag
}

type Resolver struct {
	registry        Registry
	expander        ShortURLExpander
	enricher        Enricher
	providerTimeout time.Duration
	log             zerolog.Logger
}

type Option func(*Resolver)

func WithShortURLExpander(e ShortURLExpander) Option {
	return func(r *Resolver) { r.expander = e }
}

func WithEnricher(e Enricher) Option {
	return func(r *Resolver) { r.enricher = e }
}

func WithProviderTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.providerTimeout = d
		}
	}
}

func New(registry Registry, log zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		registry:        registry,
		providerTimeout: DefaultProviderTimeout,
		log:             logging.Component(log, "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepare validates and classifies raw without contacting any provider.
// Collections are rejected before unsupported platforms so that a playlist
// link gets the more helpful error.
func (r *Resolver) Prepare(ctx context.Context, raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if _, err := platform.ValidateURL(raw); err != nil {
		return Target{}, media.InvalidURL(err)
	}

	target := raw
	if r.expander != nil {
		target = r.expander.Expand(ctx, raw)
	}

	tag, check := platform.Classify(target)
	if check.IsCollection {
		return Target{}, media.CollectionNotSupported(check.PlatformHint)
	}
	if tag == platform.Unsupported {
		return Target{}, media.UnsupportedPlatform()
	}

	return Target{URL: target, Original: raw, Platform: tag}, nil
}

// Resolve is Prepare followed by ResolveTarget and best-effort enrichment.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*media.MediaInfo, error) {
	t, err := r.Prepare(ctx, raw)
	if err != nil {
		return nil, err
	}

	info, err := r.ResolveTarget(ctx, t)
	if err != nil {
		return nil, err
	}

	if r.enricher != nil && enrich.NeedsEnrichment(info) {
		if meta, err := r.enricher.Fetch(ctx, t.URL); err == nil {
			enrich.Apply(info, meta)
		} else {
			log := r.logger(ctx)
			log.Debug().Err(err).Str("url", t.URL).Msg("metadata enrichment skipped")
		}
	}
	return info, nil
}

// ResolveTarget walks the specialized providers in order, then the fallback.
// A hard failure stops the walk; soft failures move on to the next resolver.
func (r *Resolver) ResolveTarget(ctx context.Context, t Target) (*media.MediaInfo, error) {
	log := r.logger(ctx).With().Str("platform", string(t.Platform)).Logger()

	var failures []error
	for _, p := range r.registry.ResolversFor(t.Platform) {
		out := r.attempt(ctx, log, p, t, r.providerTimeout)
		switch out.Kind {
		case provider.OutcomeResolved:
			return out.Info, nil
		case provider.OutcomeHardFailure:
			return nil, media.ContentNotSupported(t.Platform, out.Err)
		}
		failures = append(failures, out.Err)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if fb := r.registry.Fallback(); fb != nil {
		// The fallback applies its own, longer probe timeout.
		out := r.attempt(ctx, log, fb, t, 0)
		switch out.Kind {
		case provider.OutcomeResolved:
			return out.Info, nil
		case provider.OutcomeHardFailure:
			return nil, media.ContentNotSupported(t.Platform, out.Err)
		}
		failures = append(failures, out.Err)
	} else {
		failures = append(failures, errNoFallback)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cause := errors.Join(failures...)
	log.Warn().Err(cause).Str("url", t.URL).Int("attempts", len(failures)).Msg("resolution failed")
	return nil, media.ResolutionFailed(t.Platform, cause)
}

// DirectURL asks the specialized providers for a direct link for format at
// the quality ceiling. It returns "" when none of them has one; the last
// resolved info is returned either way so callers can use its title.
func (r *Resolver) DirectURL(ctx context.Context, t Target, format media.Format, quality string) (string, *media.MediaInfo, error) {
	log := r.logger(ctx).With().Str("platform", string(t.Platform)).Logger()

	var last *media.MediaInfo
	for _, p := range r.registry.ResolversFor(t.Platform) {
		out := r.attempt(ctx, log, p, t, r.providerTimeout)
		switch out.Kind {
		case provider.OutcomeHardFailure:
			return "", nil, media.ContentNotSupported(t.Platform, out.Err)
		case provider.OutcomeResolved:
			last = out.Info
			if u := out.Info.DirectURL(format, quality); u != "" {
				return u, out.Info, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
	}
	return "", last, nil
}

// attempt runs one resolver under an optional timeout. A resolved result
// without any format counts as a soft failure.
func (r *Resolver) attempt(ctx context.Context, log zerolog.Logger, p provider.Resolver, t Target, timeout time.Duration) provider.Outcome {
	pctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out := p.Resolve(pctx, t.Platform, t.URL)
	if out.Kind == provider.OutcomeResolved && (out.Info == nil || !out.Info.HasFormats()) {
		out = provider.SoftFailure(fmt.Errorf("%s: resolved without formats", p.Name()))
	}
	if out.Kind != provider.OutcomeResolved && out.Err == nil {
		out.Err = fmt.Errorf("%s: %s", p.Name(), out.Kind)
	}

	ev := log.Debug()
	if out.Kind != provider.OutcomeResolved {
		ev = log.Info().AnErr("reason", out.Err)
	}
	ev.Str("provider", p.Name()).
		Str("outcome", out.Kind.String()).
		Dur("elapsed", time.Since(start)).
		Msg("provider attempt")

	return out
}

func (r *Resolver) logger(ctx context.Context) zerolog.Logger {
	return logging.FromContext(ctx, r.log)
}
