package ytdlp

import (
	"fmt"
	"math"
	"strings"

	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/tidwall/gjson"
)

var audioExts = map[string]bool{
	"m4a":  true,
	"mp3":  true,
	"opus": true,
	"aac":  true,
	"webm": true,
}

// normalizeProbe maps one `yt-dlp --dump-json` document. Format URLs are not
// kept: they are frequently bound to the server's IP, so delivery streams them.
func normalizeProbe(raw []byte) (media.MediaInfo, bool) {
	if !gjson.ValidBytes(raw) {
		return media.MediaInfo{}, false
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return media.MediaInfo{}, false
	}

	info := media.MediaInfo{
		Title:     str(doc.Get("title")),
		Thumbnail: str(doc.Get("thumbnail")),
	}

	formats := doc.Get("formats").Array()
	if len(formats) == 0 {
		// Single-format extractors describe the file at the top level.
		formats = []gjson.Result{doc}
	}

	var resolutions, bitrates []string
	for _, f := range formats {
		ext := strings.ToLower(str(f.Get("ext")))
		vcodec := str(f.Get("vcodec"))
		acodec := str(f.Get("acodec"))

		if h := f.Get("height").Int(); ext == "mp4" && h > 0 && vcodec != "none" {
			resolutions = append(resolutions, fmt.Sprintf("%dp", h))
		}

		if abr := f.Get("abr").Float(); audioExts[ext] && acodec != "none" && abr > 0 && (vcodec == "" || vcodec == "none") {
			bitrates = append(bitrates, fmt.Sprintf("%dkbps", int(math.Round(abr))))
		}
	}

	if len(resolutions) > 0 {
		info.Formats = append(info.Formats, media.FormatDescriptor{Kind: media.KindVideo, Resolutions: resolutions})
	}
	if len(bitrates) > 0 {
		info.Formats = append(info.Formats, media.FormatDescriptor{Kind: media.KindAudio, Bitrates: bitrates})
	}

	info.Finalize()
	return info, true
}

func str(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(r.Str)
}
