// Package linkedin scrapes LinkedIn's public guest job search.
package linkedin

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

const pageSize = 25

var reJobID = regexp.MustCompile(`(?:jobPosting:|/jobs/view/(?:[^/?#]*-)?)(\d{6,})`)

type Fetcher struct {
	Client *util.Client
	Board  config.Board
	Logger *slog.Logger
}

var _ types.Fetcher = (*Fetcher)(nil)

func (f *Fetcher) Name() string { return "linkedin" }

func (f *Fetcher) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: "linkedin"}
	logger := logging.WithSource(f.Logger, "linkedin")
	seen := map[string]bool{}

	var firstErr error
	for _, q := range f.Board.Queries {
		for page := 0; page < max(f.Board.MaxPages, 1); page++ {
			u := f.searchURL(q, page)
			body, err := f.Client.Get(ctx, u, "text/html")
			if err != nil {
				logger.Warn("search page failed", "query", q, "page", page, logging.Err(err))
				if firstErr == nil {
					firstErr = err
				}
				break
			}
			leads, err := ParseSearchHTML(string(body))
			if err != nil {
				return res, fmt.Errorf("linkedin parse: %w", err)
			}
			res.Scanned += len(leads)
			for _, l := range leads {
				if seen[l.ATSJobID] {
					continue
				}
				seen[l.ATSJobID] = true
				res.Leads = append(res.Leads, l)
			}
			if len(leads) < pageSize {
				break
			}
		}
	}

	// only a total failure is an error
	if len(res.Leads) == 0 && firstErr != nil {
		return res, fmt.Errorf("linkedin search: %w", firstErr)
	}
	return res, nil
}

func (f *Fetcher) searchURL(query string, page int) string {
	v := url.Values{}
	v.Set("keywords", query)
	if f.Board.Location != "" {
		v.Set("location", f.Board.Location)
	}
	v.Set("start", strconv.Itoa(page*pageSize))
	return strings.TrimRight(f.Board.BaseURL, "/") + "/jobs-guest/jobs/api/seeMoreJobPostings/search?" + v.Encode()
}

// ParseSearchHTML reads the job cards returned by the guest search API.
func ParseSearchHTML(htmlBody string) ([]domain.JobLead, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	var out []domain.JobLead
	doc.Find("div.base-card, div.job-search-card").Each(func(_ int, card *goquery.Selection) {
		href, _ := card.Find("a.base-card__full-link").Attr("href")
		urn, _ := card.Attr("data-entity-urn")

		id := jobID(urn)
		if id == "" {
			id = jobID(href)
		}
		if id == "" {
			return
		}

		title := util.CleanText(card.Find(".base-search-card__title").Text())
		if title == "" {
			return
		}
		loc := util.NormalizeLocation(card.Find(".job-search-card__location").Text())

		lead := domain.JobLead{
			CompanyName:     util.CleanText(card.Find(".base-search-card__subtitle").Text()),
			Title:           title,
			URL:             "https://www.linkedin.com/jobs/view/" + id + "/",
			LocationRaw:     loc,
			WorkMode:        util.InferWorkModeFromText(loc, title, ""),
			ATSJobID:        "linkedin:" + id,
			Salary:          util.CleanText(card.Find(".job-search-card__salary-info").Text()),
			FirstSeenSource: "linkedin",
		}
		if dt, ok := card.Find("time").Attr("datetime"); ok {
			if t, err := time.Parse("2006-01-02", dt); err == nil {
				lead.PostedAt = &t
			}
		}
		out = append(out, lead)
	})
	return out, nil
}

func jobID(s string) string {
	if m := reJobID.FindStringSubmatch(s); len(m) == 2 {
		return m[1]
	}
	return ""
}

// Describer reads the posting body through the guest jobPosting endpoint.
type Describer struct {
	Client  *util.Client
	BaseURL string
}

var _ types.Describer = (*Describer)(nil)

func (d *Describer) Handles(rawURL string) bool {
	l := strings.ToLower(rawURL)
	return strings.Contains(l, "linkedin.com") && jobID(rawURL) != ""
}

func (d *Describer) Describe(ctx context.Context, rawURL string) (string, error) {
	id := jobID(rawURL)
	if id == "" {
		return "", fmt.Errorf("linkedin describe: no job id in %q", rawURL)
	}
	u := strings.TrimRight(d.BaseURL, "/") + "/jobs-guest/jobs/api/jobPosting/" + id
	body, err := d.Client.Get(ctx, u, "text/html")
	if err != nil {
		return "", fmt.Errorf("linkedin describe %s: %w", id, err)
	}
	return ParsePostingHTML(string(body))
}

// ParsePostingHTML extracts the description text of a posting page.
func ParsePostingHTML(htmlBody string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(util.MinifyHTML(htmlBody)))
	if err != nil {
		return "", err
	}
	sel := doc.Find(".show-more-less-html__markup, .description__text").First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("linkedin posting: description not found")
	}
	text := util.SelectionText(sel)

	var criteria []string
	doc.Find(".description__job-criteria-item").Each(func(_ int, s *goquery.Selection) {
		k := util.CleanText(s.Find(".description__job-criteria-subheader").Text())
		v := util.CleanText(s.Find(".description__job-criteria-text").Text())
		if k != "" && v != "" {
			criteria = append(criteria, k+": "+v)
		}
	})
	if len(criteria) > 0 {
		text += "\n" + strings.Join(criteria, "\n")
	}
	return text, nil
}
