package media

import (
	"regexp"
	"strings"
)

var (
	filenameURLRe   = regexp.MustCompile(`https?://[^\s]+`)
	filenameSpaceRe = regexp.MustCompile(`\s+`)

	filenameReplacer = strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", "-",
		"／", "-",
		"＼", "-",
		"：", "-",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
		"＊", "",
		"？", "",
		"＜", "",
		"＞", "",
		"｜", "",
		"【", "",
		"】", "",
		"「", "",
		"」", "",
		"\n", " ",
		"\r", "",
		"\t", " ",
	)

	windowsReserved = map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
)

// maxFilenameRunes keeps CJK titles (3-4 bytes per rune) well under the
// usual 255 byte filename limit, leaving room for the extension.
const maxFilenameRunes = 60

// SanitizeFilename removes or replaces characters that are invalid in filenames.
// The result may be empty.
func SanitizeFilename(name string) string {
	result := filenameURLRe.ReplaceAllString(name, "")
	result = filenameReplacer.Replace(result)
	result = filenameSpaceRe.ReplaceAllString(result, " ")
	result = strings.Trim(strings.TrimSpace(result), ".")

	runes := []rune(result)
	if len(runes) > maxFilenameRunes {
		result = string(runes[:maxFilenameRunes])
	}
	result = strings.TrimSpace(result)

	if windowsReserved[strings.ToUpper(result)] {
		result = "_" + result
	}
	return result
}

// AttachmentName builds the download filename for a title and extension,
// falling back to "download" when the title sanitizes to nothing.
func AttachmentName(title, ext string) string {
	base := SanitizeFilename(title)
	if base == "" {
		base = "download"
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}
