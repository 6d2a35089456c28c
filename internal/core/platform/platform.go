// Package platform classifies media URLs by their structure alone.
package platform

import (
	"errors"
	"net/url"
	"strings"
)

// Tag identifies a supported source platform.
type Tag string

const (
	YouTube     Tag = "youtube"
	Instagram   Tag = "instagram"
	Twitter     Tag = "twitter"
	TikTok      Tag = "tiktok"
	Facebook    Tag = "facebook"
	Pinterest   Tag = "pinterest"
	Spotify     Tag = "spotify"
	Dailymotion Tag = "dailymotion"
	Terabox     Tag = "terabox"
	Unsupported Tag = "unsupported"
)

// All returns every supported tag in classification order.
func All() []Tag {
	return []Tag{YouTube, Twitter, Instagram, Facebook, TikTok, Dailymotion, Pinterest, Spotify, Terabox}
}

// Supported reports whether t is a known platform.
func (t Tag) Supported() bool {
	for _, s := range All() {
		if t == s {
			return true
		}
	}
	return false
}

// DisplayName is the human readable platform name used in messages.
func (t Tag) DisplayName() string {
	switch t {
	case YouTube:
		return "YouTube"
	case Instagram:
		return "Instagram"
	case Twitter:
		return "Twitter/X"
	case TikTok:
		return "TikTok"
	case Facebook:
		return "Facebook"
	case Pinterest:
		return "Pinterest"
	case Spotify:
		return "Spotify"
	case Dailymotion:
		return "Dailymotion"
	case Terabox:
		return "Terabox"
	}
	return "Unsupported"
}

// CollectionCheck reports whether a URL points at a playlist, album, board or
// similar multi-item resource.
type CollectionCheck struct {
	IsCollection bool   `json:"isCollection"`
	PlatformHint string `json:"platformHint,omitempty"`
}

var ErrInvalidURL = errors.New("invalid url")

// ValidateURL performs basic syntax validation: an absolute http(s) URL with a host.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidURL
	}
	if u.Hostname() == "" || strings.ContainsAny(u.Host, " \t") {
		return nil, ErrInvalidURL
	}
	return u, nil
}

// hostname parses raw leniently, assuming https when no scheme is given.
func hostname(raw string) (string, bool) {
	host, _, ok := hostAndPath(raw)
	return host, ok
}

// hostAndPath is hostname plus the URL path.
func hostAndPath(raw string) (string, string, bool) {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return "", "", false
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), u.Path, true
}
