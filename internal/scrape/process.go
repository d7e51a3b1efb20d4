package scrape

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/rank"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/util"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

// ProcessStats counts what happened to one batch of leads.
type ProcessStats struct {
	Leads   int
	Added   int
	Skipped map[string]int
	Errors  int
}

// ProcessLeads filters, scores and stores leads. onNewJob, when set, is
// called for every row that was actually inserted.
func ProcessLeads(ctx context.Context, db *sql.DB, cfg config.Config, leads []domain.JobLead, logger *slog.Logger, onNewJob func(store.JobInsert)) ProcessStats {
	logger = logging.WithOperation(logger, "process_leads")
	scorer := rank.NewYAMLScorer(cfg.Scoring)
	stats := ProcessStats{Leads: len(leads), Skipped: map[string]int{}}

	for _, lead := range leads {
		keep, why := ShouldKeepJob(cfg, lead)
		if !keep {
			stats.Skipped[why]++
			logger.Debug("lead skipped", logging.Source(lead.FirstSeenSource), "reason", why,
				"title", lead.Title, "location", lead.LocationRaw, "url", lead.URL)
			continue
		}

		j := jobRowFromLead(lead, scorer)
		if !scorer.Passes(j.Score) {
			stats.Skipped["min_score"]++
			continue
		}

		ok, err := store.InsertJobIgnore(ctx, db, j)
		if err != nil {
			stats.Errors++
			logger.Warn("insert failed", logging.Source(lead.FirstSeenSource), "url", lead.URL,
				"source_id", j.SourceID, logging.Err(err))
			continue
		}
		if !ok {
			continue
		}

		stats.Added++
		if onNewJob != nil {
			onNewJob(j)
		}
	}
	return stats
}

func jobRowFromLead(lead domain.JobLead, scorer rank.Scorer) store.JobInsert {
	score, tags := scorer.Score(lead)

	date := time.Now().UTC()
	if lead.PostedAt != nil && !lead.PostedAt.IsZero() {
		date = lead.PostedAt.UTC()
	}

	u := util.CanonicalizeURL(lead.URL)
	sourceID := lead.ATSJobID
	if sourceID == "" {
		sourceID = util.URLSourceID(u)
	}

	return store.JobInsert{
		Company:     lead.CompanyName,
		Title:       lead.Title,
		Location:    lead.LocationRaw,
		WorkMode:    store.NormalizeWorkMode(lead.WorkMode),
		URL:         u,
		Salary:      lead.Salary,
		Description: lead.Description,
		Score:       score,
		Tags:        tags,
		Date:        date,
		SourceID:    sourceID,
		Source:      lead.FirstSeenSource,
	}
}
