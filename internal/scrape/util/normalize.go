package util

import (
	"strings"
	"unicode/utf8"
)

const (
	WorkModeRemote  = "Remote"
	WorkModeHybrid  = "Hybrid"
	WorkModeOnsite  = "Onsite"
	WorkModeUnknown = "Unknown"
)

// CleanText collapses all whitespace, including NBSP, to single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var locationPrefixes = []string{"location:", "locations:", "ort:", "plats:"}

// NormalizeLocation strips a leading label and drops repeated
// comma-separated parts, comparing case-insensitively.
func NormalizeLocation(loc string) string {
	loc = CleanText(loc)
	for _, p := range locationPrefixes {
		if len(loc) >= len(p) && strings.EqualFold(loc[:len(p)], p) {
			loc = loc[len(p):]
			break
		}
	}

	var parts []string
	seen := map[string]bool{}
	for _, part := range strings.Split(loc, ",") {
		part = strings.TrimSpace(part)
		key := strings.ToLower(part)
		if part == "" || seen[key] {
			continue
		}
		seen[key] = true
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// Checked in order; the first mode with a hit wins.
var workModeTerms = []struct {
	mode  string
	terms []string
}{
	{WorkModeRemote, []string{"remote", "distans", "work from home"}},
	{WorkModeHybrid, []string{"hybrid"}},
	{WorkModeOnsite, []string{"on-site", "onsite", "on site", "på plats"}},
}

// InferWorkModeFromText guesses the work mode from free text.
func InferWorkModeFromText(location, title, desc string) string {
	blob := strings.ToLower(location + " " + title + " " + desc)
	for _, wm := range workModeTerms {
		for _, t := range wm.terms {
			if strings.Contains(blob, t) {
				return wm.mode
			}
		}
	}
	return WorkModeUnknown
}

// Clip trims s to at most max bytes without splitting a UTF-8 sequence.
func Clip(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
