package util

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// trackingParams are stripped from every canonical URL.
var trackingParams = map[string]bool{
	"gclid": true, "fbclid": true, "msclkid": true,
	"mc_cid": true, "mc_eid": true, "mkt_tok": true,
	"trk": true, "trackingid": true, "refid": true,
}

// CanonicalizeURL lowercases scheme and host, drops fragments and tracking
// parameters, and sorts the remaining query so equal links compare equal.
func CanonicalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			q.Del(k)
		}
	}

	switch {
	case strings.Contains(u.Host, "linkedin.com"):
		keep := url.Values{}
		if v := q.Get("currentJobId"); v != "" {
			keep.Set("currentJobId", v)
		}
		q = keep
	case strings.Contains(u.Host, "indeed."):
		keep := url.Values{}
		if v := q.Get("jk"); v != "" {
			keep.Set("jk", v)
		}
		if v := q.Get("vjk"); v != "" && keep.Get("jk") == "" {
			keep.Set("jk", v)
		}
		q = keep
	}

	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ScoreURL ranks how likely a link points at a single job posting.
func ScoreURL(u string) int {
	lu := strings.ToLower(u)
	score := 0

	if strings.Contains(lu, "/jobs/view/") || strings.Contains(lu, "/viewjob") ||
		strings.Contains(lu, "/rc/clk") || strings.Contains(lu, "platsbanken/annonser/") {
		score += 100
	}
	if strings.Contains(lu, "greenhouse.io") || strings.Contains(lu, "lever.co") ||
		strings.Contains(lu, "teamtailor.com") || strings.Contains(lu, "myworkdayjobs") {
		score += 80
	}
	if strings.Contains(lu, "apply") {
		score += 40
	}
	if strings.Contains(lu, "/job") || strings.Contains(lu, "/careers") || strings.Contains(lu, "/jobb") {
		score += 20
	}

	if strings.Contains(lu, "/alerts") || strings.Contains(lu, "/settings") {
		score -= 100
	}
	if strings.Contains(lu, "linkedin.com/comm/") {
		score -= 10
	}
	return score
}

var junkURLParts = []string{
	"unsubscribe",
	"preferences",
	"email-preferences",
	"privacy",
	"terms",
	"view-in-browser",
	"viewaswebpage",
	"tracking",
	"pixel",
	"beacon",
	"/alerts",
	"/settings",
	"/help",
	"/legal",
	"/feed",
	"/mynetwork",
	"/notifications",
	"mailto:",
	"tel:",
}

// IsObviousJunkURL rejects footer, settings and tracking links.
func IsObviousJunkURL(u string) bool {
	lu := strings.ToLower(strings.TrimSpace(u))
	if lu == "" || !(strings.HasPrefix(lu, "http://") || strings.HasPrefix(lu, "https://")) {
		return true
	}
	for _, j := range junkURLParts {
		if strings.Contains(lu, j) {
			return true
		}
	}
	return false
}

// HashString is the hex sha1 of s.
func HashString(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// URLSourceID is the dedupe key for leads that carry no board id.
func URLSourceID(raw string) string {
	return HashString("url:" + CanonicalizeURL(raw))
}
