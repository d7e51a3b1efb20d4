package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
)

const defaultLinksPerEmail = 20

// Fetcher turns unread alert emails into leads. Messages are marked seen
// by Finalize, after the caller has stored the leads.
type Fetcher struct {
	Source        MessageSource
	MaxMessages   int
	SubjectAny    []string
	IndeedBaseURL string
	LinksPerEmail int
	Logger        *slog.Logger
}

var _ types.Fetcher = (*Fetcher)(nil)

func (f *Fetcher) Name() string { return "email:" + f.Source.Name() }

func (f *Fetcher) Fetch(ctx context.Context) (types.ScrapeResult, error) {
	logger := logging.WithSource(logging.OrDefault(f.Logger), f.Name())
	res := types.ScrapeResult{Source: "email"}

	msgs, err := f.Source.Fetch(ctx, f.MaxMessages)
	if err != nil {
		return res, fmt.Errorf("%s fetch: %w", f.Name(), err)
	}
	res.Scanned = len(msgs)

	processed := make([]string, 0, len(msgs))
	for _, m := range msgs {
		p, perr := ParseMessage(m.Raw)
		if perr != nil && p.Text == "" && p.HTML == "" {
			logger.Warn("unparseable message skipped", "message", m.ID, logging.Err(perr))
			processed = append(processed, m.ID)
			continue
		}
		if p.Subject == "" {
			p.Subject = m.Subject
		}
		if p.From == "" {
			p.From = m.From
		}
		if p.Date.IsZero() {
			p.Date = m.Date
		}

		if len(f.SubjectAny) > 0 && !containsAnyCI(p.Subject, f.SubjectAny) {
			processed = append(processed, m.ID)
			continue
		}

		leads := LeadsFromMessage(p, f.IndeedBaseURL, f.linksPerEmail())
		logger.Debug("email parsed", "message", m.ID, "leads", len(leads))
		res.Leads = append(res.Leads, leads...)
		processed = append(processed, m.ID)
	}

	res.Finalize = func(ctx context.Context) error {
		if len(processed) == 0 {
			return nil
		}
		return f.Source.MarkSeen(ctx, processed)
	}
	return res, nil
}

func (f *Fetcher) linksPerEmail() int {
	if f.LinksPerEmail > 0 {
		return f.LinksPerEmail
	}
	return defaultLinksPerEmail
}

// LeadsFromMessage picks the LinkedIn or Indeed alert parser when the
// message looks like one, and falls back to generic job links.
func LeadsFromMessage(p Parsed, indeedBaseURL string, maxLinks int) []domain.JobLead {
	body := p.HTML
	if body == "" {
		body = p.Text
	}
	received := p.Date
	if received.IsZero() {
		received = time.Now()
	}

	var alerts []AlertJob
	switch {
	case p.HTML != "" && looksLikeLinkedInJobAlert(p.From, p.Subject, body):
		alerts, _ = ParseLinkedInJobAlertHTML(p.HTML)
	case p.HTML != "" && looksLikeIndeedJobAlert(p.From, p.Subject, body):
		alerts, _ = ParseIndeedJobAlertHTML(p.HTML, indeedBaseURL)
	}

	var leads []domain.JobLead
	for _, a := range alerts {
		leads = append(leads, domain.JobLead{
			CompanyName:     a.Company,
			Title:           a.Title,
			URL:             a.URL,
			LocationRaw:     util.NormalizeLocation(a.Location),
			WorkMode:        util.InferWorkModeFromText(a.Location, a.Title, ""),
			ATSJobID:        a.SourceID,
			Salary:          a.Salary,
			PostedAt:        &received,
			FirstSeenSource: "email",
		})
	}
	if len(leads) > 0 {
		return leads
	}

	company := guessCompanyFromFrom(p.From)
	subjTitle := normalizeSubjectTitle(p.Subject)
	for _, l := range ExtractJobLinks(p.HTML, p.Text, maxLinks) {
		title := subjTitle
		if looksLikeTitle(l.Text) {
			title = l.Text
		}
		leads = append(leads, domain.JobLead{
			CompanyName:     company,
			Title:           title,
			URL:             l.URL,
			WorkMode:        util.InferWorkModeFromText("", title, p.Subject),
			PostedAt:        &received,
			FirstSeenSource: "email",
		})
	}
	return leads
}

func containsAnyCI(s string, any []string) bool {
	ls := strings.ToLower(s)
	for _, a := range any {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" && strings.Contains(ls, a) {
			return true
		}
	}
	return false
}
