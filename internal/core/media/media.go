// Package media holds the canonical description of resolvable media and the
// error taxonomy shared by the resolution and delivery pipeline.
package media

import (
	"strings"

	"github.com/guiyumin/mediahub/internal/core/platform"
)

// DefaultTitle is used whenever a provider supplies no usable title.
const DefaultTitle = "Untitled"

// Kind is the kind of a format entry.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Format is a delivery container requested by the client.
type Format string

const (
	FormatMP4 Format = "mp4"
	FormatMP3 Format = "mp3"
)

// ParseFormat accepts "mp4" or "mp3" in any case.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMP4:
		return FormatMP4, true
	case FormatMP3:
		return FormatMP3, true
	}
	return "", false
}

// Kind returns the format entry kind a container is served from.
func (f Format) Kind() Kind {
	if f == FormatMP3 {
		return KindAudio
	}
	return KindVideo
}

// FormatDescriptor lists the qualities available for one kind, best first.
type FormatDescriptor struct {
	Kind        Kind     `json:"kind"`
	Resolutions []string `json:"resolutions,omitempty"`
	Bitrates    []string `json:"bitrates,omitempty"`
}

// Labels returns the quality labels relevant to the descriptor's kind.
func (d FormatDescriptor) Labels() []string {
	if d.Kind == KindAudio {
		return d.Bitrates
	}
	return d.Resolutions
}

// Variant is one directly downloadable rendition seen while normalizing.
// Variants never leave the server; they let delivery honour the quality ceiling.
type Variant struct {
	Kind  Kind
	Label string
	URL   string
}

// MediaInfo is the normalized description of one resolvable media item.
type MediaInfo struct {
	Title              string             `json:"title"`
	Thumbnail          string             `json:"thumbnail"`
	Platform           platform.Tag       `json:"platform"`
	Formats            []FormatDescriptor `json:"formats"`
	PrimaryDownloadURL string             `json:"primaryDownloadUrl,omitempty"`
	AudioDownloadURL   string             `json:"audioDownloadUrl,omitempty"`

	// ImageOnly marks a result whose single format entry is a synthetic
	// stand-in for a still image (e.g. a Pinterest image pin).
	ImageOnly bool `json:"imageOnly,omitempty"`

	Variants []Variant `json:"-"`

	// Source names the resolver that produced this info.
	Source string `json:"-"`
}

// HasFormats reports whether at least one format entry carries a quality.
func (m *MediaInfo) HasFormats() bool {
	for _, f := range m.Formats {
		if len(f.Labels()) > 0 {
			return true
		}
	}
	return false
}

// Format returns the descriptor for kind, if present.
func (m *MediaInfo) Format(kind Kind) (FormatDescriptor, bool) {
	for _, f := range m.Formats {
		if f.Kind == kind {
			return f, true
		}
	}
	return FormatDescriptor{}, false
}

// DirectURL returns the direct URL to serve for format f at the given quality
// ceiling, or "" when the resolver produced none.
func (m *MediaInfo) DirectURL(f Format, quality string) string {
	kind := f.Kind()
	if v, ok := PickVariant(m.Variants, kind, ParseQuality(quality)); ok {
		return v.URL
	}
	if kind == KindAudio {
		return m.AudioDownloadURL
	}
	return m.PrimaryDownloadURL
}

// Finalize applies defaults and the ordering contract: title falls back to
// DefaultTitle, each descriptor's labels are de-duplicated and sorted best
// first, descriptors of the same kind are merged and empty ones dropped.
func (m *MediaInfo) Finalize() {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		m.Title = DefaultTitle
	}
	m.Thumbnail = strings.TrimSpace(m.Thumbnail)

	var video, audio []string
	for _, f := range m.Formats {
		switch f.Kind {
		case KindVideo:
			video = append(video, f.Resolutions...)
		case KindAudio:
			audio = append(audio, f.Bitrates...)
		}
	}

	formats := make([]FormatDescriptor, 0, 2)
	if labels := SortLabels(video); len(labels) > 0 {
		formats = append(formats, FormatDescriptor{Kind: KindVideo, Resolutions: labels})
	}
	if labels := SortLabels(audio); len(labels) > 0 {
		formats = append(formats, FormatDescriptor{Kind: KindAudio, Bitrates: labels})
	}
	m.Formats = formats
}
