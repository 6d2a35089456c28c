package media

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	qualityUnitRe  = regexp.MustCompile(`(?i)(\d+)\s*(?:p|kbps|kb/s|k)\b`)
	qualityDigitRe = regexp.MustCompile(`\d+`)
)

// ParseQuality extracts the numeric value of a quality label: 720 for "720p",
// 320 for "320kbps". Labels without a number parse as 0.
func ParseQuality(label string) int {
	label = strings.TrimSpace(label)
	if m := qualityUnitRe.FindStringSubmatch(label); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := qualityDigitRe.FindString(label); m != "" {
		n, _ := strconv.Atoi(m)
		return n
	}
	return 0
}

// SortLabels returns labels de-duplicated and ordered by numeric value,
// highest first. Empty labels are dropped; labels without a number keep their
// relative order after all numbered ones.
func SortLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return ParseQuality(out[i]) > ParseQuality(out[j])
	})
	return out
}

// PickVariant chooses the variant of kind to serve under a quality ceiling:
// the best one at or below the ceiling, else the lowest one above it.
// A ceiling of 0 means "best available".
func PickVariant(variants []Variant, kind Kind, ceiling int) (Variant, bool) {
	var candidates []Variant
	for _, v := range variants {
		if v.Kind == kind && v.URL != "" {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return Variant{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return ParseQuality(candidates[i].Label) > ParseQuality(candidates[j].Label)
	})
	if ceiling <= 0 {
		return candidates[0], true
	}

	for _, v := range candidates {
		if q := ParseQuality(v.Label); q > 0 && q <= ceiling {
			return v, true
		}
	}

	// Nothing at or below the ceiling: take the smallest numbered one.
	for i := len(candidates) - 1; i >= 0; i-- {
		if ParseQuality(candidates[i].Label) > 0 {
			return candidates[i], true
		}
	}
	return candidates[0], true
}

// IsPremium reports whether a request falls in the paid tier: video above 480p.
func IsPremium(f Format, quality string) bool {
	return f == FormatMP4 && ParseQuality(quality) > 480
}
