// Package arbetsformedlingen queries the JobTech JobSearch API behind
// Platsbanken.
package arbetsformedlingen

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

const platsbankenURL = "https://arbetsformedlingen.se/platsbanken/annonser/"

var reAdID = regexp.MustCompile(`platsbanken/annonser/(\d+)`)

type Fetcher struct {
	Client *util.Client
	Board  config.Board
	Logger *slog.Logger
}

var _ types.Fetcher = (*Fetcher)(nil)

func (f *Fetcher) Name() string { return "arbetsformedlingen" }

func (f *Fetcher) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	res := types.ScrapeResult{Source: "arbetsformedlingen"}
	logger := logging.WithSource(f.Logger, "arbetsformedlingen")
	seen := map[string]bool{}
	limit := f.Board.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var firstErr error
	for _, q := range f.Board.Queries {
		for page := 0; page < max(f.Board.MaxPages, 1); page++ {
			body, err := f.Client.Get(ctx, f.searchURL(q, limit, page*limit), "application/json")
			if err != nil {
				logger.Warn("search failed", "query", q, logging.Err(err))
				if firstErr == nil {
					firstErr = err
				}
				break
			}
			leads, total, err := ParseSearchJSON(body)
			if err != nil {
				return res, err
			}
			res.Scanned += len(leads)
			for _, l := range leads {
				if !seen[l.ATSJobID] {
					seen[l.ATSJobID] = true
					res.Leads = append(res.Leads, l)
				}
			}
			if (page+1)*limit >= total {
				break
			}
		}
	}

	if len(res.Leads) == 0 && firstErr != nil {
		return res, fmt.Errorf("arbetsformedlingen search: %w", firstErr)
	}
	return res, nil
}

func (f *Fetcher) searchURL(query string, limit, offset int) string {
	q := strings.TrimSpace(query)
	if f.Board.Location != "" {
		q += " " + f.Board.Location
	}
	v := url.Values{}
	v.Set("q", q)
	v.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		v.Set("offset", strconv.Itoa(offset))
	}
	return strings.TrimRight(f.Board.BaseURL, "/") + "/search?" + v.Encode()
}

// ParseSearchJSON maps JobSearch hits to leads and returns total.value.
func ParseSearchJSON(body []byte) ([]domain.JobLead, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, fmt.Errorf("arbetsformedlingen: invalid json")
	}
	doc := gjson.ParseBytes(body)

	var out []domain.JobLead
	doc.Get("hits").ForEach(func(_, hit gjson.Result) bool {
		if l, ok := leadFromAd(hit); ok {
			out = append(out, l)
		}
		return true
	})
	return out, int(doc.Get("total.value").Int()), nil
}

func leadFromAd(ad gjson.Result) (domain.JobLead, bool) {
	id := ad.Get("id").String()
	title := util.CleanText(ad.Get("headline").String())
	if id == "" || title == "" {
		return domain.JobLead{}, false
	}

	var locParts []string
	for _, k := range []string{"workplace_address.city", "workplace_address.municipality", "workplace_address.region"} {
		if v := util.CleanText(ad.Get(k).String()); v != "" {
			locParts = append(locParts, v)
		}
	}
	loc := util.NormalizeLocation(strings.Join(locParts, ", "))
	if ad.Get("workplace_address.country").Exists() {
		loc = util.NormalizeLocation(loc + ", " + ad.Get("workplace_address.country").String())
	}

	desc := ad.Get("description.text").String()

	lead := domain.JobLead{
		CompanyName:     util.CleanText(ad.Get("employer.name").String()),
		Title:           title,
		URL:             platsbankenURL + id,
		LocationRaw:     loc,
		WorkMode:        util.InferWorkModeFromText(loc, title, ad.Get("remote_work").String()),
		ATSJobID:        "af:" + id,
		Salary:          util.CleanText(ad.Get("salary_description").String()),
		Description:     strings.TrimSpace(desc),
		FirstSeenSource: "arbetsformedlingen",
	}
	if ad.Get("remote_work").Bool() {
		lead.WorkMode = util.WorkModeRemote
	}
	if t := ad.Get("publication_date"); t.Exists() {
		if pt, err := parseTime(t.String()); err == nil {
			lead.PostedAt = &pt
		}
	}
	return lead, true
}

// Describer loads a single ad from /ad/<id>.
type Describer struct {
	Client  *util.Client
	BaseURL string
}

var _ types.Describer = (*Describer)(nil)

func (d *Describer) Handles(rawURL string) bool {
	return reAdID.MatchString(rawURL)
}

func (d *Describer) Describe(ctx context.Context, rawURL string) (string, error) {
	m := reAdID.FindStringSubmatch(rawURL)
	if len(m) != 2 {
		return "", fmt.Errorf("arbetsformedlingen describe: no ad id in %q", rawURL)
	}
	body, err := d.Client.Get(ctx, strings.TrimRight(d.BaseURL, "/")+"/ad/"+m[1], "application/json")
	if err != nil {
		return "", fmt.Errorf("arbetsformedlingen describe %s: %w", m[1], err)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("arbetsformedlingen describe %s: invalid json", m[1])
	}
	text := gjson.GetBytes(body, "description.text").String()
	if strings.TrimSpace(text) == "" {
		if html := gjson.GetBytes(body, "description.text_formatted").String(); html != "" {
			text = util.HTMLToText(html)
		}
	}
	return strings.TrimSpace(text), nil
}
