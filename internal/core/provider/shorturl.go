package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guiyumin/mediahub/internal/core/httpclient"
	"github.com/rs/zerolog"
)

// DefaultShortHosts are share-link hosts that only redirect to a full URL.
var DefaultShortHosts = []string{
	"pin.it",
	"vm.tiktok.com",
	"vt.tiktok.com",
	"fb.watch",
	"t.co",
	"spotify.link",
	"dai.ly",
}

// ShortURLExpander follows redirects of known share-link hosts. Expansion is
// best-effort: any failure returns the input unchanged.
type ShortURLExpander struct {
	client  *http.Client
	hosts   map[string]bool
	timeout time.Duration
	log     zerolog.Logger
}

func NewShortURLExpander(client *http.Client, hosts []string, log zerolog.Logger) *ShortURLExpander {
	set := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		set[strings.ToLower(h)] = true
	}
	return &ShortURLExpander{
		client:  client,
		hosts:   set,
		timeout: 5 * time.Second,
		log:     log.With().Str("component", "shorturl").Logger(),
	}
}

// IsShort reports whether raw is on a known short-link host.
func (e *ShortURLExpander) IsShort(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return e.hosts[strings.TrimPrefix(strings.ToLower(u.Host), "www.")]
}

// Expand returns the final URL after redirects, or raw if it is not a short
// link or cannot be expanded in time.
func (e *ShortURLExpander) Expand(ctx context.Context, raw string) string {
	if !e.IsShort(raw) {
		return raw
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return raw
	}
	req.Header.Set("User-Agent", httpclient.DefaultUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Debug().Err(err).Str("url", raw).Msg("short url expansion failed")
		return raw
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 || resp.Request == nil || resp.Request.URL == nil {
		e.log.Debug().Int("status", resp.StatusCode).Str("url", raw).Msg("short url expansion rejected")
		return raw
	}

	final := resp.Request.URL.String()
	if final != raw {
		e.log.Debug().Str("url", raw).Str("expanded", final).Msg("short url expanded")
	}
	return final
}
