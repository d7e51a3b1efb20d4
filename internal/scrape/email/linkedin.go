package email

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

// AlertJob is one job card found in an alert email.
type AlertJob struct {
	Title    string
	Company  string
	Location string
	Salary   string
	URL      string
	SourceID string // linkedin:<id>, indeed:<jk>
}

var (
	reSalary = regexp.MustCompile(`(?i)(?:\$\s?\d[\d,]*(?:K|M)?(?:\s*-\s*\$\s?\d[\d,]*(?:K|M)?)?\s*/\s*(?:year|yr|hour|hr)|\d[\d\s]*(?:\s*-\s*\d[\d\s]*)?\s?(?:kr|SEK)(?:\s*/\s*(?:mån|month|år|year))?)`)
	reJobID  = regexp.MustCompile(`/jobs/view/(?:[^/?#]*-)?(\d{6,})`)
)

// ParseLinkedInJobAlertHTML merges every anchor that points at the same
// /jobs/view/<id>, so a logo link seen before the title link cannot hide
// the title. Cards are returned in document order.
func ParseLinkedInJobAlertHTML(htmlBody string) ([]AlertJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	byID := map[string]*AlertJob{}
	var order []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		jobURL := normalizeMaybeRedirectedURL(strings.TrimSpace(href))
		lh := strings.ToLower(jobURL)
		if !strings.Contains(lh, "linkedin.com") || !strings.Contains(lh, "/jobs/view/") {
			return
		}

		sourceID := linkedInSourceID(jobURL)
		key := sourceID
		if key == "" {
			key = util.CanonicalizeURL(jobURL)
		}

		j, ok := byID[key]
		if !ok {
			j = &AlertJob{URL: canonicalLinkedInURL(jobURL, sourceID), SourceID: sourceID}
			byID[key] = j
			order = append(order, key)
		}

		titleCand := stripBadTitleSuffixes(util.CleanText(a.Text()))
		if betterTitle(titleCand, j.Title) {
			j.Title = titleCand
		}

		card := a.Closest("table")
		if card.Length() == 0 {
			card = a.Closest("tr")
		}
		if card.Length() == 0 {
			card = a.Parent()
		}

		card.Find("p").Each(func(_ int, p *goquery.Selection) {
			t := util.CleanText(p.Text())
			if t == "" {
				return
			}
			// "Company · Location"
			if j.Company == "" && j.Location == "" && strings.Contains(t, " · ") {
				parts := strings.SplitN(t, " · ", 2)
				j.Company = strings.TrimSpace(parts[0])
				j.Location = strings.TrimSpace(parts[1])
				return
			}
			t2 := stripBadTitleSuffixes(t)
			if !strings.Contains(t2, " · ") && betterTitle(t2, j.Title) {
				j.Title = t2
			}
		})

		if j.Salary == "" {
			if m := reSalary.FindString(util.CleanText(card.Text())); m != "" {
				j.Salary = strings.TrimSpace(m)
			}
		}
	})

	out := make([]AlertJob, 0, len(order))
	for _, k := range order {
		j := byID[k]
		if strings.TrimSpace(j.URL) == "" || strings.TrimSpace(j.Title) == "" {
			continue
		}
		out = append(out, *j)
	}
	return out, nil
}

func linkedInSourceID(jobURL string) string {
	if m := reJobID.FindStringSubmatch(jobURL); len(m) == 2 {
		return "linkedin:" + m[1]
	}
	return ""
}

// canonicalLinkedInURL drops the /comm/ tracking prefix and query.
func canonicalLinkedInURL(jobURL, sourceID string) string {
	if id, ok := strings.CutPrefix(sourceID, "linkedin:"); ok {
		return "https://www.linkedin.com/jobs/view/" + id + "/"
	}
	return util.CanonicalizeURL(jobURL)
}

// normalizeMaybeRedirectedURL unwraps ?url= and Google /url?q= redirects.
func normalizeMaybeRedirectedURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if raw := u.Query().Get("url"); raw != "" {
		if uu, err := url.Parse(raw); err == nil && uu.Host != "" {
			return uu.String()
		}
	}
	if strings.Contains(strings.ToLower(u.Host), "google.") && strings.HasPrefix(u.Path, "/url") {
		if q := u.Query().Get("q"); q != "" {
			if uu, err := url.Parse(q); err == nil && uu.Host != "" {
				return uu.String()
			}
		}
	}
	return u.String()
}

func stripBadTitleSuffixes(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, b := range []string{"Actively recruiting", "Easy Apply", "Promoted", "Aktivt rekryterande", "Enkel ansökan"} {
		s = strings.TrimSpace(strings.ReplaceAll(s, b, ""))
	}
	low := strings.ToLower(s)
	for _, bad := range []string{"alumni", "connections", "applicants", "school", "kontakter", "sökande"} {
		if strings.Contains(low, bad) {
			return ""
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

func looksLikeLinkedInJobAlert(from, subj, body string) bool {
	f := strings.ToLower(from)
	if strings.Contains(f, "jobalerts-noreply") || strings.Contains(f, "jobs-noreply@linkedin.com") {
		return true
	}
	s := strings.ToLower(subj)
	if strings.Contains(s, "job alert") || strings.Contains(s, "linkedin") || strings.Contains(s, "jobbevakning") {
		b := strings.ToLower(body)
		return strings.Contains(b, "linkedin.com/comm/jobs/view") || strings.Contains(b, "linkedin.com/jobs/view")
	}
	return false
}

// betterTitle only replaces the current title with a clearly better one.
func betterTitle(candidate, current string) bool {
	c := strings.TrimSpace(candidate)
	if c == "" {
		return false
	}
	cur := strings.TrimSpace(current)
	if cur == "" {
		return titleScore(c) >= 5
	}
	cs, ks := titleScore(c), titleScore(cur)
	if ks >= 8 && cs < ks {
		return false
	}
	return cs >= ks+3
}

var titleWords = []string{
	"engineer", "developer", "utvecklare", "ingenjör", "software", "backend", "frontend",
	"full stack", "full-stack", "fullstack", "platform", "cloud", "devops", "sre", "security",
	"embedded", "data", "ml", "ai", "scientist", "analyst", "architect", "arkitekt",
	"manager", "lead", "principal", "staff", "intern", "technician", "tekniker", "support",
	"specialist", "konsult", "consultant",
}

func titleScore(s string) int {
	orig := strings.TrimSpace(s)
	if orig == "" {
		return -100
	}
	l := strings.ToLower(orig)
	score := 0

	if strings.Contains(l, "unsubscribe") || (strings.Contains(l, "manage") && strings.Contains(l, "alert")) {
		return -50
	}
	if strings.Contains(l, "http://") || strings.Contains(l, "https://") || strings.Contains(l, "www.") {
		return -30
	}

	if strings.ContainsAny(orig, "$€£") || strings.Contains(l, " kr") || strings.Contains(l, "sek") {
		score -= 8
	}
	for _, per := range []string{"per hour", "/hour", "/hr", "per year", "/year", "/yr", "/mån"} {
		if strings.Contains(l, per) {
			score -= 6
			break
		}
	}

	for _, bad := range []string{"apply", "view job", "see job", "see details", "learn more", "sign in", "visa jobb", "ansök"} {
		if strings.Contains(l, bad) {
			score -= 6
		}
	}
	for _, loc := range []string{"remote", "hybrid", "on-site", "onsite", "sweden", "sverige"} {
		if strings.Contains(l, loc) {
			score -= 3
		}
	}
	if strings.Contains(orig, "|") || strings.Contains(orig, "•") {
		score -= 2
	}

	for _, w := range titleWords {
		if strings.Contains(l, w) {
			score += 4
			break
		}
	}
	for _, w := range []string{"sr", "senior", "jr", "junior", "ii", "iii", "principal", "staff", "lead"} {
		if containsWord(l, w) {
			score += 2
		}
	}

	n := len([]rune(orig))
	if n >= 6 && n <= 80 {
		score += 2
	} else if n < 4 || n > 140 {
		score -= 6
	}
	if strings.HasSuffix(orig, ".") || strings.Contains(l, "you will") || strings.Contains(l, "we are") {
		score -= 4
	}

	digits := 0
	for _, r := range orig {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits >= 6 {
		score -= 4
	}
	return score
}

// containsWord matches needle only between title punctuation, so "sr"
// does not match "sre".
func containsWord(haystackLower, needleLower string) bool {
	bounds := func(b byte) bool {
		switch b {
		case ' ', '\t', '\n', '\r', '-', '/', '\\', '(', ')', '[', ']', '{', '}', ',', '.', ':', ';', '|':
			return true
		}
		return false
	}

	from := 0
	for {
		i := strings.Index(haystackLower[from:], needleLower)
		if i < 0 {
			return false
		}
		idx := from + i
		right := idx + len(needleLower)
		if (idx == 0 || bounds(haystackLower[idx-1])) && (right == len(haystackLower) || bounds(haystackLower[right])) {
			return true
		}
		from = idx + 1
	}
}
