package platform

import (
	"regexp"
	"strings"
)

type pattern struct {
	tag Tag
	re  *regexp.Regexp
}

// Single-item URL shapes, checked in order. The first match wins.
var patterns = []pattern{
	{YouTube, regexp.MustCompile(`(?i)^(https?://)?(www\.|m\.|music\.)?(youtube\.com/(watch\?v=|shorts/|live/)|youtu\.be/)[\w-]+.*$`)},
	{Twitter, regexp.MustCompile(`(?i)^(https?://)?(www\.|mobile\.)?(twitter\.com|x\.com)/[^/]+/status/(\d+)([/?].*)?$`)},
	{Instagram, regexp.MustCompile(`(?i)^(https?://)?(www\.)?instagram\.com/(p|reel|reels|tv)/[a-zA-Z0-9_-]+([/?].*)?$`)},
	{Facebook, regexp.MustCompile(`(?i)^(https?://)?(www\.|m\.|web\.)?facebook\.com/(watch/?\?v=|video\.php\?v=|[^/]+/videos/|reel/)([0-9]+)([/?&].*)?$`)},
	{TikTok, regexp.MustCompile(`(?i)^(https?://)?(www\.|m\.)?tiktok\.com/(@[a-zA-Z0-9_.]+/video/|v/)([0-9]+)([/?.].*)?$`)},
	{Dailymotion, regexp.MustCompile(`(?i)^(https?://)?(www\.)?dailymotion\.com/video/[a-zA-Z0-9]+([/?].*)?$`)},
	{Pinterest, regexp.MustCompile(`(?i)^((https?://)?(www\.|[a-z]{2}\.)?pinterest\.com/pin/[\w-]+([/?].*)?|(https?://)?pin\.it/[a-zA-Z0-9]+/?)$`)},
	{Spotify, regexp.MustCompile(`(?i)^(https?://)?(open\.)?spotify\.com/(intl-[a-z]+/)?(track|episode)/[a-zA-Z0-9]+(\?.*)?$`)},
	{Terabox, regexp.MustCompile(`(?i)^(https?://)?(www\.)?(terabox|1024terabox|teraboxapp)\.com/s/[a-zA-Z0-9_-]+(\?.*)?$`)},
}

var (
	spotifyCollectionRe     = regexp.MustCompile(`(?i)^/(intl-[a-z]+/)?(playlist|album|artist|show)/`)
	dailymotionCollectionRe = regexp.MustCompile(`(?i)^/playlist/`)
)

// Classify maps a URL to its platform and reports whether it is a collection.
// It never touches the network. Anything unrecognised is Unsupported.
func Classify(raw string) (Tag, CollectionCheck) {
	return Match(raw), DetectCollection(raw)
}

// Match returns the platform of a single-item URL, or Unsupported.
func Match(raw string) Tag {
	raw = strings.TrimSpace(raw)
	if _, ok := hostname(raw); !ok {
		return Unsupported
	}
	for _, p := range patterns {
		if p.re.MatchString(raw) {
			return p.tag
		}
	}
	return Unsupported
}

// DetectCollection runs independently of Match so that a playlist URL is
// reported as a collection even though it is not a single-item shape.
func DetectCollection(raw string) CollectionCheck {
	raw = strings.TrimSpace(raw)
	host, path, ok := hostAndPath(raw)
	if !ok {
		return CollectionCheck{}
	}

	switch {
	case isYouTubeHost(host) && strings.Contains(raw, "list=") && !matches(YouTube, raw):
		return CollectionCheck{IsCollection: true, PlatformHint: YouTube.DisplayName()}
	case isSpotifyHost(host) && spotifyCollectionRe.MatchString(path):
		return CollectionCheck{IsCollection: true, PlatformHint: Spotify.DisplayName()}
	case isPinterestHost(host) && !matches(Pinterest, raw):
		return CollectionCheck{IsCollection: true, PlatformHint: Pinterest.DisplayName()}
	case host == "dailymotion.com" && dailymotionCollectionRe.MatchString(path):
		return CollectionCheck{IsCollection: true, PlatformHint: Dailymotion.DisplayName()}
	}
	return CollectionCheck{}
}

func isYouTubeHost(host string) bool {
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

func isSpotifyHost(host string) bool {
	return host == "spotify.com" || host == "open.spotify.com"
}

// isPinterestHost accepts pinterest.com and its country subdomains.
func isPinterestHost(host string) bool {
	return host == "pinterest.com" || strings.HasSuffix(host, ".pinterest.com")
}

func matches(tag Tag, raw string) bool {
	for _, p := range patterns {
		if p.tag == tag {
			return p.re.MatchString(raw)
		}
	}
	return false
}
