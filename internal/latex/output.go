package latex

import (
	"crypto/sha1"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify lowercases s and keeps ASCII letters and digits, joined by dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(strings.ToLower(s)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > 40 {
		out = strings.TrimRight(out[:40], "-")
	}
	if out == "" {
		out = "job"
	}
	return out
}

// OutputDir is <root>/<date>_<company-slug>_<hash of url>.
func OutputDir(root string, date time.Time, company, url string) string {
	sum := sha1.Sum([]byte(url))
	return filepath.Join(root, date.Format("2006-01-02")+"_"+Slugify(company)+"_"+hex.EncodeToString(sum[:])[:8])
}
