// Package indeed scrapes Indeed search result pages and job views.
package indeed

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

const pageSize = 10

// Fetcher reads search pages through Pages, which is either the plain
// HTTP client or a headless browser when the board needs JS.
type Fetcher struct {
	Pages  util.PageFetcher
	Board  config.Board
	Logger *slog.Logger
}

var _ types.Fetcher = (*Fetcher)(nil)

func (f *Fetcher) Name() string { return "indeed" }

func (f *Fetcher) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: "indeed"}
	logger := logging.WithSource(f.Logger, "indeed")
	base := strings.TrimRight(f.Board.BaseURL, "/")
	seen := map[string]bool{}

	var firstErr error
	for _, q := range f.Board.Queries {
		for page := 0; page < max(f.Board.MaxPages, 1); page++ {
			v := url.Values{}
			v.Set("q", q)
			if f.Board.Location != "" {
				v.Set("l", f.Board.Location)
			}
			if page > 0 {
				v.Set("start", strconv.Itoa(page*pageSize))
			}

			html, err := f.Pages.FetchPage(ctx, base+"/jobs?"+v.Encode())
			if err != nil {
				logger.Warn("search page failed", "query", q, "page", page, logging.Err(err))
				if firstErr == nil {
					firstErr = err
				}
				break
			}
			leads, err := ParseSearchHTML(html, base)
			if err != nil {
				return res, fmt.Errorf("indeed parse: %w", err)
			}
			res.Scanned += len(leads)
			for _, l := range leads {
				if !seen[l.ATSJobID] {
					seen[l.ATSJobID] = true
					res.Leads = append(res.Leads, l)
				}
			}
			if len(leads) < pageSize {
				break
			}
		}
	}

	if len(res.Leads) == 0 && firstErr != nil {
		return res, fmt.Errorf("indeed search: %w", firstErr)
	}
	return res, nil
}

// ParseSearchHTML reads result cards keyed by their data-jk attribute.
func ParseSearchHTML(htmlBody, baseURL string) ([]domain.JobLead, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	var out []domain.JobLead
	seen := map[string]bool{}
	doc.Find("a[data-jk]").Each(func(_ int, a *goquery.Selection) {
		jk, _ := a.Attr("data-jk")
		jk = strings.TrimSpace(jk)
		if jk == "" || seen[jk] {
			return
		}

		card := a.Closest(".job_seen_beacon, .result, li")
		if card.Length() == 0 {
			card = a.Parent()
		}

		title := util.CleanText(a.Find("span[title]").AttrOr("title", ""))
		if title == "" {
			title = util.CleanText(a.Text())
		}
		if title == "" {
			return
		}
		seen[jk] = true

		loc := util.NormalizeLocation(card.Find("[data-testid='text-location'], .companyLocation").First().Text())
		salary := util.CleanText(card.Find(".salary-snippet-container, [data-testid='attribute_snippet_testid']").First().Text())
		if !strings.ContainsAny(salary, "0123456789") {
			salary = ""
		}

		out = append(out, domain.JobLead{
			CompanyName:     util.CleanText(card.Find("[data-testid='company-name'], .companyName").First().Text()),
			Title:           title,
			URL:             baseURL + "/viewjob?jk=" + url.QueryEscape(jk),
			LocationRaw:     loc,
			WorkMode:        util.InferWorkModeFromText(loc, title, ""),
			ATSJobID:        "indeed:" + jk,
			Salary:          salary,
			FirstSeenSource: "indeed",
		})
	})
	return out, nil
}

// Describer fetches the viewjob page for a jk and returns the description.
type Describer struct {
	Pages   util.PageFetcher
	BaseURL string
}

var _ types.Describer = (*Describer)(nil)

func (d *Describer) Handles(rawURL string) bool {
	return jobKey(rawURL) != ""
}

func (d *Describer) Describe(ctx context.Context, rawURL string) (string, error) {
	jk := jobKey(rawURL)
	if jk == "" {
		return "", fmt.Errorf("indeed describe: no jk in %q", rawURL)
	}
	html, err := d.Pages.FetchPage(ctx, strings.TrimRight(d.BaseURL, "/")+"/viewjob?jk="+url.QueryEscape(jk))
	if err != nil {
		return "", fmt.Errorf("indeed describe %s: %w", jk, err)
	}
	return ParseViewJobHTML(html)
}

func ParseViewJobHTML(htmlBody string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(util.MinifyHTML(htmlBody)))
	if err != nil {
		return "", err
	}
	sel := doc.Find("#jobDescriptionText")
	if sel.Length() == 0 {
		return "", fmt.Errorf("indeed viewjob: #jobDescriptionText not found")
	}
	return util.SelectionText(sel), nil
}

func jobKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.Contains(strings.ToLower(u.Host), "indeed.") {
		return ""
	}
	if jk := u.Query().Get("jk"); jk != "" {
		return jk
	}
	return u.Query().Get("vjk")
}
