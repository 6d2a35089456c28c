package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// detectFileType reads the first bytes of the file to determine its type.
// Returns the suggested extension (without dot), or "" if unknown.
func detectFileType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	header = header[:n]
	if n < 3 {
		return "", nil
	}

	switch {
	// ISO base media: ....ftyp<brand>
	case n >= 12 && string(header[4:8]) == "ftyp":
		if brand := string(header[8:12]); strings.HasPrefix(brand, "M4A") {
			return "m4a", nil
		}
		return "mp4", nil
	case n >= 12 && string(header[0:4]) == "RIFF" && string(header[8:12]) == "WEBP":
		return "webp", nil
	case n >= 4 && bytes.Equal(header[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm", nil
	case n >= 8 && bytes.Equal(header[0:8], []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return "png", nil
	case n >= 6 && (string(header[0:6]) == "GIF87a" || string(header[0:6]) == "GIF89a"):
		return "gif", nil
	case bytes.Equal(header[0:3], []byte{0xFF, 0xD8, 0xFF}):
		return "jpg", nil
	case string(header[0:3]) == "ID3", header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return "mp3", nil
	}
	return "", nil
}

// renameByMagicBytes renames path when its content does not match its
// extension, as with an image pin requested as mp4. Returns the final path.
func renameByMagicBytes(path string) string {
	detected, err := detectFileType(path)
	if err != nil || detected == "" {
		return path
	}

	ext := filepath.Ext(path)
	current := strings.TrimPrefix(ext, ".")
	if current == "" || strings.EqualFold(current, detected) {
		return path
	}
	// Audio in an mp4 container is still fine to keep as .m4a or .mp4.
	if detected == "mp4" && strings.EqualFold(current, "m4a") {
		return path
	}

	newPath := path[:len(path)-len(ext)] + "." + detected
	if err := os.Rename(path, newPath); err != nil {
		return path
	}
	return newPath
}
