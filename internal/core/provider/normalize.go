package provider

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/platform"
	"github.com/tidwall/gjson"
)

// Normalize maps a raw payload from the provider serving tag onto a MediaInfo.
// It never fails: malformed input yields a MediaInfo with defaults and no formats.
func Normalize(tag platform.Tag, raw []byte) media.MediaInfo {
	var info media.MediaInfo
	switch tag {
	case platform.YouTube:
		info = NormalizeYouTube(raw)
	case platform.TikTok:
		info = NormalizeTikTok(raw)
	case platform.Pinterest:
		info = NormalizePinterest(raw)
	case platform.Spotify:
		info = NormalizeSpotify(raw)
	case platform.Terabox:
		info = NormalizeTerabox(raw)
	case platform.Instagram, platform.Facebook, platform.Twitter, platform.Dailymotion:
		info = NormalizeGeneral(raw)
	default:
		info.Finalize()
	}
	info.Platform = tag
	return info
}

// NormalizeYouTube maps the YouTube download API. The API exposes no direct
// links, so a recognised video gets the fixed quality ladder and delivery goes
// through the extractor.
func NormalizeYouTube(raw []byte) media.MediaInfo {
	doc := parse(raw)
	info := media.MediaInfo{
		Title:     firstString(doc.Get("info.title"), doc.Get("title")),
		Thumbnail: firstURL(doc.Get("info.image"), doc.Get("thumbnail")),
	}

	if doc.Get("info").IsObject() || info.Title != "" || doc.Get("success").Type == gjson.True {
		info.Formats = []media.FormatDescriptor{
			{Kind: media.KindVideo, Resolutions: []string{"1080p", "720p", "480p", "360p"}},
			{Kind: media.KindAudio, Bitrates: []string{"320kbps", "128kbps"}},
		}
	}

	info.Finalize()
	return info
}

// NormalizeTikTok maps the TikTok analysis API: data.play (SD), data.hdplay
// (HD) and data.music.
func NormalizeTikTok(raw []byte) media.MediaInfo {
	data := parse(raw).Get("data")
	info := media.MediaInfo{
		Title:     firstString(data.Get("title")),
		Thumbnail: firstURL(data.Get("cover"), data.Get("origin_cover")),
	}

	play := firstURL(data.Get("play"), data.Get("wmplay"))
	hd := firstURL(data.Get("hdplay"))

	var resolutions []string
	if hd != "" {
		resolutions = append(resolutions, "1080p")
		info.Variants = append(info.Variants, media.Variant{Kind: media.KindVideo, Label: "1080p", URL: hd})
	}
	if play != "" {
		resolutions = append(resolutions, "720p")
		info.Variants = append(info.Variants, media.Variant{Kind: media.KindVideo, Label: "720p", URL: play})
	}
	if len(resolutions) > 0 {
		info.PrimaryDownloadURL = play
		if play == "" {
			info.PrimaryDownloadURL = hd
		}
		info.Formats = append(info.Formats, media.FormatDescriptor{Kind: media.KindVideo, Resolutions: resolutions})
	}

	if music := firstURL(data.Get("music"), data.Get("music_info.play")); music != "" {
		info.AudioDownloadURL = music
		info.Variants = append(info.Variants, media.Variant{Kind: media.KindAudio, Label: "128kbps", URL: music})
		info.Formats = append(info.Formats, media.FormatDescriptor{Kind: media.KindAudio, Bitrates: []string{"128kbps"}})
	}

	info.Finalize()
	return info
}

// NormalizePinterest maps a pin. Video pins carry their height; image pins
// produce a single synthetic entry pointing at the image.
func NormalizePinterest(raw []byte) media.MediaInfo {
	doc := parse(raw)
	if data := doc.Get("data"); data.IsObject() {
		doc = data
	}

	info := media.MediaInfo{
		Title:     firstString(doc.Get("title"), doc.Get("description")),
		Thumbnail: firstURL(doc.Get("thumbnail"), doc.Get("image")),
	}

	target := firstURL(doc.Get("url"), doc.Get("video_url"), doc.Get("image"))
	if target == "" {
		info.Finalize()
		return info
	}

	label := "720p"
	if h := doc.Get("height").Int(); h > 0 {
		label = fmt.Sprintf("%dp", h)
	}

	if !strings.EqualFold(firstString(doc.Get("type")), "video") {
		info.ImageOnly = true
		if h := doc.Get("height").Int(); h <= 0 {
			label = "original"
		}
		if info.Thumbnail == "" {
			info.Thumbnail = target
		}
	}

	info.PrimaryDownloadURL = target
	info.Variants = []media.Variant{{Kind: media.KindVideo, Label: label, URL: target}}
	info.Formats = []media.FormatDescriptor{{Kind: media.KindVideo, Resolutions: []string{label}}}

	info.Finalize()
	return info
}

// NormalizeSpotify maps the track downloader: data.medias[] carry bitrates.
func NormalizeSpotify(raw []byte) media.MediaInfo {
	data := parse(raw).Get("data")
	info := media.MediaInfo{
		Title:     firstString(data.Get("title")),
		Thumbnail: firstURL(data.Get("thumbnail"), data.Get("cover")),
	}

	var bitrates []string
	for _, m := range data.Get("medias").Array() {
		u := firstURL(m.Get("url"))
		q := firstString(m.Get("quality"))
		if u == "" || q == "" {
			continue
		}
		bitrates = append(bitrates, q)
		info.Variants = append(info.Variants, media.Variant{Kind: media.KindAudio, Label: q, URL: u})
		if info.AudioDownloadURL == "" {
			info.AudioDownloadURL = u
		}
	}
	if len(bitrates) > 0 {
		info.Formats = []media.FormatDescriptor{{Kind: media.KindAudio, Bitrates: bitrates}}
	}

	info.Finalize()
	return info
}

// NormalizeTerabox maps a shared file: a single direct download link.
func NormalizeTerabox(raw []byte) media.MediaInfo {
	doc := parse(raw)
	info := media.MediaInfo{
		Title:     firstString(doc.Get("title"), doc.Get("file_name")),
		Thumbnail: firstURL(doc.Get("thumbnail"), doc.Get("thumb")),
	}

	if u := firstURL(doc.Get("download_url"), doc.Get("direct_link")); u != "" {
		info.PrimaryDownloadURL = u
		info.Variants = []media.Variant{{Kind: media.KindVideo, Label: "720p", URL: u}}
		info.Formats = []media.FormatDescriptor{{Kind: media.KindVideo, Resolutions: []string{"720p"}}}
	}

	info.Finalize()
	return info
}

// NormalizeGeneral maps the multi-platform downloader used for Instagram,
// Facebook, Twitter and Dailymotion: medias[] of {extension, quality, url}.
func NormalizeGeneral(raw []byte) media.MediaInfo {
	doc := parse(raw)
	info := media.MediaInfo{
		Title:     firstString(doc.Get("title")),
		Thumbnail: firstURL(doc.Get("thumbnail"), doc.Get("thumb")),
	}

	var resolutions, bitrates []string
	for _, m := range doc.Get("medias").Array() {
		ext := strings.ToLower(firstString(m.Get("extension")))
		q := firstString(m.Get("quality"))
		u := firstURL(m.Get("url"))
		if ext == "" || q == "" || u == "" {
			continue
		}

		switch ext {
		case "mp4":
			resolutions = append(resolutions, q)
			info.Variants = append(info.Variants, media.Variant{Kind: media.KindVideo, Label: q, URL: u})
		case "mp3", "m4a":
			bitrates = append(bitrates, q)
			info.Variants = append(info.Variants, media.Variant{Kind: media.KindAudio, Label: q, URL: u})
		}
	}

	if v, ok := media.PickVariant(info.Variants, media.KindVideo, 0); ok {
		info.PrimaryDownloadURL = v.URL
		info.Formats = append(info.Formats, media.FormatDescriptor{Kind: media.KindVideo, Resolutions: resolutions})
	}
	if v, ok := media.PickVariant(info.Variants, media.KindAudio, 0); ok {
		info.AudioDownloadURL = v.URL
		info.Formats = append(info.Formats, media.FormatDescriptor{Kind: media.KindAudio, Bitrates: bitrates})
	}

	info.Finalize()
	return info
}

func parse(raw []byte) gjson.Result {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(raw)
}

// firstString returns the first non-empty string value.
func firstString(results ...gjson.Result) string {
	for _, r := range results {
		if r.Type == gjson.String {
			if s := strings.TrimSpace(r.Str); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstURL returns the first string value that is an absolute http(s) URL.
func firstURL(results ...gjson.Result) string {
	for _, r := range results {
		s := firstString(r)
		if s == "" {
			continue
		}
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		return s
	}
	return ""
}
