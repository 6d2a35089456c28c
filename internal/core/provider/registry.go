package provider

import (
	"net/http"
	"net/url"

	"github.com/guiyumin/mediahub/internal/core/config"
	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/platform"
)

// CredentialRapidAPI is the credential reference shared by the RapidAPI catalogue.
const CredentialRapidAPI = "RAPIDAPI_KEY"

// NormalizeFunc maps a raw provider payload to a MediaInfo. It must be total.
type NormalizeFunc func(raw []byte) media.MediaInfo

// Config describes one upstream provider endpoint. Configs are immutable once
// the registry is built.
type Config struct {
	Name      string
	Platforms []platform.Tag

	Scheme string // default https
	Host   string

	// Path builds the request path and query for the media URL.
	Path func(rawURL string) string

	Method string

	// CredentialRef names the credential looked up at resolve time.
	CredentialRef string

	// FormBody sends the media URL as an urlencoded "url" form field.
	FormBody bool

	Normalize NormalizeFunc
}

// CredentialFunc returns the secret for a credential reference, "" if absent.
type CredentialFunc func(ref string) string

// Status describes a provider for health reporting.
type Status struct {
	Name       string         `json:"name"`
	Platforms  []platform.Tag `json:"platforms"`
	Configured bool           `json:"configured"`
}

// Registry maps platforms to their ordered specialized providers plus one
// generic fallback. It is read-only after construction.
type Registry struct {
	order    []Config
	byTag    map[platform.Tag][]Config
	creds    CredentialFunc
	client   *http.Client
	fallback Resolver
}

// NewRegistry builds a registry. Entries keep their relative order per platform.
func NewRegistry(entries []Config, creds CredentialFunc, client *http.Client, fallback Resolver) *Registry {
	r := &Registry{
		order:    entries,
		byTag:    make(map[platform.Tag][]Config),
		creds:    creds,
		client:   client,
		fallback: fallback,
	}
	if r.creds == nil {
		r.creds = func(string) string { return "" }
	}
	for _, e := range entries {
		for _, tag := range e.Platforms {
			r.byTag[tag] = append(r.byTag[tag], e)
		}
	}
	return r
}

// ResolversFor returns the configured specialized resolvers for tag in
// priority order. Providers without a host or credential are left out.
func (r *Registry) ResolversFor(tag platform.Tag) []Resolver {
	var out []Resolver
	for _, cfg := range r.byTag[tag] {
		key, ok := r.available(cfg)
		if !ok {
			continue
		}
		out = append(out, &httpResolver{cfg: cfg, key: key, client: r.client})
	}
	return out
}

// Fallback returns the generic resolver used after all specialized ones.
func (r *Registry) Fallback() Resolver {
	return r.fallback
}

// Statuses reports every known provider and whether it is usable.
func (r *Registry) Statuses() []Status {
	out := make([]Status, 0, len(r.order)+1)
	for _, cfg := range r.order {
		_, ok := r.available(cfg)
		out = append(out, Status{Name: cfg.Name, Platforms: cfg.Platforms, Configured: ok})
	}
	if r.fallback != nil {
		out = append(out, Status{Name: r.fallback.Name(), Platforms: platform.All(), Configured: true})
	}
	return out
}

func (r *Registry) available(cfg Config) (string, bool) {
	if cfg.Host == "" || cfg.Path == nil || cfg.Normalize == nil {
		return "", false
	}
	if cfg.CredentialRef == "" {
		return "", true
	}
	key := r.creds(cfg.CredentialRef)
	return key, key != ""
}

// Catalogue returns the RapidAPI provider set, with hosts taken from p.
func Catalogue(p config.ProvidersConfig) []Config {
	scheme := p.Scheme
	if scheme == "" {
		scheme = "https"
	}

	query := func(prefix, suffix string) func(string) string {
		return func(rawURL string) string {
			return prefix + url.QueryEscape(rawURL) + suffix
		}
	}

	return []Config{
		{
			Name:          "youtube",
			Platforms:     []platform.Tag{platform.YouTube},
			Scheme:        scheme,
			Host:          p.YouTubeHost,
			Path:          query("/ajax/download.php?format=mp4&add_info=1&url=", ""),
			Method:        http.MethodGet,
			CredentialRef: CredentialRapidAPI,
			Normalize:     NormalizeYouTube,
		},
		{
			Name:          "tiktok",
			Platforms:     []platform.Tag{platform.TikTok},
			Scheme:        scheme,
			Host:          p.TikTokHost,
			Path:          query("/analysis?url=", "&hd=1"),
			Method:        http.MethodGet,
			CredentialRef: CredentialRapidAPI,
			Normalize:     NormalizeTikTok,
		},
		{
			Name:          "pinterest",
			Platforms:     []platform.Tag{platform.Pinterest},
			Scheme:        scheme,
			Host:          p.PinterestHost,
			Path:          query("/pinterest?url=", ""),
			Method:        http.MethodGet,
			CredentialRef: CredentialRapidAPI,
			Normalize:     NormalizePinterest,
		},
		{
			Name:          "spotify",
			Platforms:     []platform.Tag{platform.Spotify},
			Scheme:        scheme,
			Host:          p.SpotifyHost,
			Path:          query("/download?link=", ""),
			Method:        http.MethodGet,
			CredentialRef: CredentialRapidAPI,
			Normalize:     NormalizeSpotify,
		},
		{
			Name:          "terabox",
			Platforms:     []platform.Tag{platform.Terabox},
			Scheme:        scheme,
			Host:          p.TeraboxHost,
			Path:          query("/api?url=", ""),
			Method:        http.MethodGet,
			CredentialRef: CredentialRapidAPI,
			Normalize:     NormalizeTerabox,
		},
		{
			Name:          "general",
			Platforms:     []platform.Tag{platform.Instagram, platform.Facebook, platform.Twitter, platform.Dailymotion},
			Scheme:        scheme,
			Host:          p.GeneralHost,
			Path:          func(string) string { return "/all" },
			Method:        http.MethodPost,
			CredentialRef: CredentialRapidAPI,
			FormBody:      true,
			Normalize:     NormalizeGeneral,
		},
	}
}
