// Package greenhouse reads public Greenhouse job boards.
package greenhouse

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

const defaultBaseURL = "https://boards-api.greenhouse.io"

type Scraper struct {
	Companies []config.Company
	Client    *util.Client
	BaseURL   string
	Logger    *slog.Logger
}

func New(companies []config.Company, client *util.Client, logger *slog.Logger) *Scraper {
	return &Scraper{Companies: companies, Client: client, BaseURL: defaultBaseURL, Logger: logger}
}

var _ types.Fetcher = (*Scraper)(nil)

func (s *Scraper) Name() string { return "greenhouse" }

// Fetch reads every configured board. One board failing does not fail the run.
func (s *Scraper) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: "greenhouse"}
	logger := logging.WithSource(s.Logger, "greenhouse")

	for _, co := range s.Companies {
		leads, err := s.fetchCompany(ctx, co)
		if err != nil {
			logger.Warn("board failed", "company", co.Name, "slug", co.Slug, logging.Err(err))
			continue
		}
		res.Scanned += len(leads)
		res.Leads = append(res.Leads, leads...)
	}
	return res, ctx.Err()
}

func (s *Scraper) fetchCompany(ctx context.Context, co config.Company) ([]domain.JobLead, error) {
	base := s.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	apiURL := fmt.Sprintf("%s/v1/boards/%s/jobs?content=true", strings.TrimRight(base, "/"), co.Slug)

	body, err := s.Client.Get(ctx, apiURL, "application/json")
	if err != nil {
		return nil, fmt.Errorf("greenhouse get board: %w", err)
	}
	return ParseBoardJSON(body, co)
}

// ParseBoardJSON maps the board API response to leads.
func ParseBoardJSON(body []byte, co config.Company) ([]domain.JobLead, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("greenhouse %s: invalid json", co.Slug)
	}
	name := co.Name
	if name == "" {
		name = co.Slug
	}

	var out []domain.JobLead
	gjson.GetBytes(body, "jobs").ForEach(func(_, j gjson.Result) bool {
		id := j.Get("id").Int()
		title := util.CleanText(j.Get("title").String())
		link := j.Get("absolute_url").String()
		if id == 0 || title == "" || link == "" {
			return true
		}

		desc := util.HTMLToText(html.UnescapeString(j.Get("content").String()))
		loc := util.NormalizeLocation(j.Get("location.name").String())

		lead := domain.JobLead{
			CompanyName:     name,
			Title:           title,
			URL:             link,
			LocationRaw:     loc,
			WorkMode:        util.InferWorkModeFromText(loc, title, ""),
			ATSJobID:        "greenhouse:" + co.Slug + ":" + strconv.FormatInt(id, 10),
			Description:     desc,
			FirstSeenSource: "greenhouse",
		}
		if t, err := time.Parse(time.RFC3339, j.Get("updated_at").String()); err == nil {
			lead.PostedAt = &t
		}
		out = append(out, lead)
		return true
	})
	return out, nil
}
