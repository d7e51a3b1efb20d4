package email

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

// ParseIndeedJobAlertHTML groups alert anchors by their jk job key. Title
// comes from the anchor; company and location from the leaf text of the card.
func ParseIndeedJobAlertHTML(htmlBody, baseURL string) ([]AlertJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = "https://se.indeed.com"
	}

	byJK := map[string]*AlertJob{}
	var order []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		jk := indeedJobKey(normalizeMaybeRedirectedURL(strings.TrimSpace(href)))
		if jk == "" {
			return
		}

		j, ok := byJK[jk]
		if !ok {
			j = &AlertJob{
				URL:      strings.TrimRight(baseURL, "/") + "/viewjob?jk=" + url.QueryEscape(jk),
				SourceID: "indeed:" + jk,
			}
			byJK[jk] = j
			order = append(order, jk)
		}

		titleCand := util.CleanText(a.Find("b, strong, h2, h3").First().Text())
		if titleCand == "" {
			titleCand = util.CleanText(a.Text())
		}
		if betterTitle(titleCand, j.Title) {
			j.Title = titleCand
		}

		card := a.Closest("td")
		if card.Length() == 0 {
			card = a.Parent()
		}

		var lines []string
		card.Find("*").Each(func(_ int, s *goquery.Selection) {
			if s.Children().Length() > 0 {
				return
			}
			t := util.CleanText(s.Text())
			if t == "" || t == j.Title || titleCand == t {
				return
			}
			if isIndeedNoise(t) {
				return
			}
			if m := reSalary.FindString(t); m != "" {
				if j.Salary == "" {
					j.Salary = strings.TrimSpace(m)
				}
				return
			}
			lines = append(lines, t)
		})

		if j.Company == "" && len(lines) > 0 {
			if company, loc, ok := strings.Cut(lines[0], " - "); ok && len(lines) == 1 {
				j.Company, j.Location = strings.TrimSpace(company), strings.TrimSpace(loc)
			} else {
				j.Company = lines[0]
				if len(lines) > 1 {
					j.Location = lines[1]
				}
			}
		}
	})

	out := make([]AlertJob, 0, len(order))
	for _, k := range order {
		if j := byJK[k]; strings.TrimSpace(j.Title) != "" {
			out = append(out, *j)
		}
	}
	return out, nil
}

func isIndeedNoise(t string) bool {
	lt := strings.ToLower(t)
	switch lt {
	case "new", "ny", "nytt", "urgently hiring", "brådskande":
		return true
	}
	for _, n := range []string{"easily apply", "ansök enkelt", " ago", "sedan", "view all", "visa alla"} {
		if strings.Contains(lt, n) {
			return true
		}
	}
	return false
}

func indeedJobKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(strings.ToLower(u.Host), "indeed.") {
		return ""
	}
	q := u.Query()
	if jk := q.Get("jk"); jk != "" {
		return jk
	}
	return q.Get("vjk")
}

func looksLikeIndeedJobAlert(from, subj, body string) bool {
	f := strings.ToLower(from)
	if strings.Contains(f, "indeed.com") || strings.Contains(f, "indeed.se") {
		return true
	}
	s := strings.ToLower(subj)
	b := strings.ToLower(body)
	return strings.Contains(s, "indeed") && strings.Contains(b, "jk=")
}
