package email

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

var reURL = regexp.MustCompile(`https?://[^\s<>"']+`)

// Link is a candidate job link with the anchor text that pointed at it.
type Link struct {
	URL  string
	Text string
}

// ExtractJobLinks returns canonical, non-junk links from an email, most
// job-like first, capped at max. Anchor text is kept as a title hint.
func ExtractJobLinks(htmlBody, textBody string, max int) []Link {
	byURL := map[string]*Link{}
	var order []string

	add := func(raw, text string) {
		cu := util.CanonicalizeURL(normalizeMaybeRedirectedURL(strings.TrimSpace(raw)))
		if cu == "" || util.IsObviousJunkURL(cu) {
			return
		}
		l, ok := byURL[cu]
		if !ok {
			l = &Link{URL: cu}
			byURL[cu] = l
			order = append(order, cu)
		}
		// longest anchor text wins
		if len(text) > len(l.Text) {
			l.Text = text
		}
	}

	if strings.TrimSpace(htmlBody) != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody)); err == nil {
			doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				add(href, util.CleanText(a.Text()))
			})
		}
	}
	for _, u := range reURL.FindAllString(textBody, -1) {
		add(strings.TrimRight(u, ".,);:]\"'"), "")
	}

	out := make([]Link, 0, len(order))
	for _, k := range order {
		out = append(out, *byURL[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return util.ScoreURL(out[i].URL) > util.ScoreURL(out[j].URL)
	})
	// only keep links that look like postings
	n := 0
	for _, l := range out {
		if util.ScoreURL(l.URL) > 0 {
			out[n] = l
			n++
		}
	}
	out = out[:n]
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

func looksLikeTitle(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return false
	}
	switch strings.ToLower(s) {
	case "apply", "apply now", "view", "view job", "unsubscribe", "ansök", "läs mer":
		return false
	}
	letters := 0
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			letters++
		}
	}
	return letters >= 5
}

func normalizeSubjectTitle(subj string) string {
	s := strings.TrimSpace(subj)
	for {
		l := strings.ToLower(s)
		trimmed := false
		for _, p := range []string{"fwd:", "fw:", "re:", "vb:", "sv:"} {
			if strings.HasPrefix(l, p) {
				s = strings.TrimSpace(s[len(p):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}
	if s == "" {
		return "Job Posting"
	}
	return util.Clip(s, 140)
}

func guessCompanyFromFrom(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return "Unknown"
	}
	if i := strings.Index(from, "<"); i > 0 {
		if name := strings.Trim(strings.TrimSpace(from[:i]), `"`); name != "" {
			return name
		}
	}
	if at := strings.LastIndex(from, "@"); at >= 0 {
		d := strings.Trim(from[at+1:], "> ")
		if first, _, _ := strings.Cut(d, "."); first != "" {
			return strings.ToUpper(first[:1]) + first[1:]
		}
	}
	return "Unknown"
}
