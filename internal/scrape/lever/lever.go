// Package lever reads public Lever posting lists.
package lever

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

const defaultBaseURL = "https://api.lever.co"

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

func (s *Scraper) Name() string { return "lever" }

func (s *Scraper) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	logger := logging.WithSource(s.Logger, "lever")
	workers := max(s.Workers, 1)

	jobsCh := make(chan []domain.JobLead, len(s.Companies))
	workCh := make(chan config.Company)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for co := range workCh {
				cctx, cancel := context.WithTimeout(ctx, 20*time.Second)
				jobs, err := s.fetchCompany(cctx, co)
				cancel()
				if err != nil {
					logger.Warn("company failed", "company", co.Name, "slug", co.Slug, logging.Err(err))
					continue
				}
				jobsCh <- jobs
			}
		}()
	}

	go func() {
		defer close(workCh)
		for _, co := range s.Companies {
			select {
			case <-ctx.Done():
				return
			case workCh <- co:
			}
		}
	}()

	wg.Wait()
	close(jobsCh)

	res := types.ScrapeResult{Source: "lever"}
	for batch := range jobsCh {
		res.Leads = append(res.Leads, batch...)
	}
	res.Scanned = len(res.Leads)
	logger.Info("lever processed", "leads", len(res.Leads))
	return res, ctx.Err()
}

func (s *Scraper) fetchCompany(ctx context.Context, co config.Company) ([]domain.JobLead, error) {
	base := s.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	apiURL := fmt.Sprintf("%s/v0/postings/%s?mode=json", strings.TrimRight(base, "/"), co.Slug)

	body, err := s.Client.Get(ctx, apiURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("lever get: %w", err)
	}
	return ParsePostingsJSON(body, co)
}

// ParsePostingsJSON maps a Lever postings array to leads.
func ParsePostingsJSON(body []byte, co config.Company) ([]domain.JobLead, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("lever %s: invalid json", co.Slug)
	}
	name := co.Name
	if name == "" {
		name = co.Slug
	}

	var out []domain.JobLead
	for _, p := range gjson.ParseBytes(body).Array() {
		id := p.Get("id").String()
		title := util.CleanText(p.Get("text").String())
		link := p.Get("hostedUrl").String()
		if id == "" || title == "" || link == "" {
			continue
		}

		desc := strings.TrimSpace(p.Get("descriptionPlain").String())
		if desc == "" {
			desc = util.HTMLToText(p.Get("description").String())
		}
		var lists []string
		p.Get("lists").ForEach(func(_, l gjson.Result) bool {
			if body := util.HTMLToText(l.Get("content").String()); body != "" {
				lists = append(lists, l.Get("text").String()+"\n"+body)
			}
			return true
		})
		if len(lists) > 0 {
			desc = strings.TrimSpace(desc + "\n\n" + strings.Join(lists, "\n\n"))
		}

		loc := util.NormalizeLocation(p.Get("categories.location").String())
		mode := util.InferWorkModeFromText(loc, title, p.Get("workplaceType").String())

		lead := domain.JobLead{
			CompanyName:     name,
			Title:           title,
			URL:             link,
			LocationRaw:     loc,
			WorkMode:        mode,
			ATSJobID:        fmt.Sprintf("lever:%s:%s", co.Slug, id),
			Description:     desc,
			FirstSeenSource: "lever",
		}
		if ms := p.Get("createdAt").Int(); ms > 0 {
			t := time.UnixMilli(ms).UTC()
			lead.PostedAt = &t
		}
		out = append(out, lead)
	}
	return out, nil
}
