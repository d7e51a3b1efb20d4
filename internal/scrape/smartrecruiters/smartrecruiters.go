// Package smartrecruiters reads public SmartRecruiters company postings.
package smartrecruiters

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

const (
	defaultBaseURL = "https://api.smartrecruiters.com"
	jobsHost       = "https://jobs.smartrecruiters.com"
	pageSize       = 100
	maxOffset      = 5000
)

type Scraper struct {
	Companies []config.Company
	Client    *util.Client
	BaseURL   string
	Workers   int
	Logger    *slog.Logger
}

func New(companies []config.Company, client *util.Client, logger *slog.Logger) *Scraper {
	return &Scraper{Companies: companies, Client: client, BaseURL: defaultBaseURL, Workers: 4, Logger: logger}
}

var _ types.Fetcher = (*Scraper)(nil)

func (s *Scraper) Name() string { return "smartrecruiters" }

// Fetch pages through every company. A failing company is logged and skipped.
func (s *Scraper) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	logger := logging.WithSource(s.Logger, "smartrecruiters")

	var (
		mu  sync.Mutex
		res = types.ScrapeResult{Source: "smartrecruiters"}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Workers, 1))
	for _, co := range s.Companies {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, 30*time.Second)
			defer cancel()
			leads, err := s.fetchCompany(cctx, co)
			if err != nil {
				logger.Warn("company failed", "company", co.Name, "slug", co.Slug, logging.Err(err))
			}
			mu.Lock()
			res.Leads = append(res.Leads, leads...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	res.Scanned = len(res.Leads)
	logger.Info("smartrecruiters processed", "leads", len(res.Leads))
	return res, ctx.Err()
}

func (s *Scraper) fetchCompany(ctx context.Context, co config.Company) ([]domain.JobLead, error) {
	slug := strings.TrimSpace(co.Slug)
	if slug == "" {
		return nil, fmt.Errorf("empty slug")
	}
	base := s.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	endpoint := fmt.Sprintf("%s/v1/companies/%s/postings", strings.TrimRight(base, "/"), url.PathEscape(slug))

	var out []domain.JobLead
	for offset := 0; offset <= maxOffset; offset += pageSize {
		body, err := s.Client.Get(ctx, fmt.Sprintf("%s?limit=%d&offset=%d", endpoint, pageSize, offset), "application/json")
		if err != nil {
			return out, fmt.Errorf("smartrecruiters get: %w", err)
		}
		page, total, err := ParsePostingsJSON(body, co)
		if err != nil {
			return out, err
		}
		out = append(out, page...)
		if !gjson.GetBytes(body, "content.0").Exists() || offset+pageSize >= total {
			break
		}
	}
	return out, nil
}

// ParsePostingsJSON maps one page of the postings API to leads and returns
// the totalFound reported by the API.
func ParsePostingsJSON(body []byte, co config.Company) ([]domain.JobLead, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, fmt.Errorf("smartrecruiters %s: invalid json", co.Slug)
	}
	doc := gjson.ParseBytes(body)
	name := co.Name
	if name == "" {
		name = doc.Get("content.0.company.name").String()
	}
	if name == "" {
		name = co.Slug
	}

	var out []domain.JobLead
	doc.Get("content").ForEach(func(_, p gjson.Result) bool {
		id := strings.TrimSpace(p.Get("id").String())
		title := util.CleanText(p.Get("name").String())
		if id == "" || title == "" {
			return true
		}

		loc := util.NormalizeLocation(joinNonEmpty(
			p.Get("location.city").String(),
			p.Get("location.region").String(),
			p.Get("location.country").String(),
		))
		mode := util.InferWorkModeFromText(loc, title, "")
		if p.Get("location.remote").Bool() {
			mode = util.WorkModeRemote
		}

		lead := domain.JobLead{
			CompanyName:     name,
			Title:           title,
			URL:             fmt.Sprintf("%s/%s/%s", jobsHost, co.Slug, id),
			LocationRaw:     loc,
			WorkMode:        mode,
			ATSJobID:        fmt.Sprintf("smartrecruiters:%s:%s", co.Slug, id),
			FirstSeenSource: "smartrecruiters",
		}
		if t, err := time.Parse(time.RFC3339, p.Get("releasedDate").String()); err == nil {
			lead.PostedAt = &t
		}
		out = append(out, lead)
		return true
	})
	return out, int(doc.Get("totalFound").Int()), nil
}

var rePostingURL = regexp.MustCompile(`jobs\.smartrecruiters\.com/([^/?#]+)/([^/?#-]+)`)

// Describer loads the job ad sections for a public posting URL.
type Describer struct {
	Client  *util.Client
	BaseURL string
}

var _ types.Describer = (*Describer)(nil)

func (d *Describer) Handles(rawURL string) bool {
	return rePostingURL.MatchString(rawURL)
}

func (d *Describer) Describe(ctx context.Context, rawURL string) (string, error) {
	m := rePostingURL.FindStringSubmatch(rawURL)
	if len(m) != 3 {
		return "", fmt.Errorf("smartrecruiters describe: no posting id in %q", rawURL)
	}
	base := d.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	apiURL := fmt.Sprintf("%s/v1/companies/%s/postings/%s", strings.TrimRight(base, "/"), m[1], m[2])
	body, err := d.Client.Get(ctx, apiURL, "application/json")
	if err != nil {
		return "", fmt.Errorf("smartrecruiters describe %s: %w", m[2], err)
	}
	return ParseDetailJSON(body)
}

// ParseDetailJSON joins the ad sections of a posting detail as plain text.
func ParseDetailJSON(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("smartrecruiters detail: invalid json")
	}
	var parts []string
	for _, key := range []string{"companyDescription", "jobDescription", "qualifications", "additionalInformation"} {
		sec := gjson.GetBytes(body, "jobAd.sections."+key)
		text := util.HTMLToText(sec.Get("text").String())
		if text == "" {
			continue
		}
		if title := strings.TrimSpace(sec.Get("title").String()); title != "" {
			text = title + "\n" + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n"), nil
}

func joinNonEmpty(vals ...string) string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, ", ")
}
