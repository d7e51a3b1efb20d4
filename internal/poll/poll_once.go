package poll

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

// SourceReport is the outcome of one fetcher in a poll.
type SourceReport struct {
	Name        string
	Source      string
	Scanned     int
	Stats       scrape.ProcessStats
	Err         error
	FinalizeErr error
}

type Result struct {
	Added   int
	Reports []SourceReport
}

func fetchTimeout(name string) time.Duration {
	switch {
	case strings.HasPrefix(name, "email:"):
		return 2 * time.Minute
	default:
		return 5 * time.Minute
	}
}

// PollOnce runs every fetcher concurrently, stores what they found and only
// then runs their Finalize hooks. A failing fetcher never cancels its
// siblings.
func PollOnce(ctx context.Context, db *sql.DB, cfg config.Config, fetchers []types.Fetcher, logger *slog.Logger, onNewJob func(store.JobInsert)) Result {
	logger = logging.WithOperation(logger, "poll")

	var g errgroup.Group
	results := make([]types.ScrapeResult, len(fetchers))
	errs := make([]error, len(fetchers))

	for i, f := range fetchers {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, fetchTimeout(f.Name()))
			defer cancel()

			start := time.Now()
			logger.Info("fetch started", logging.Source(f.Name()))
			res, err := f.Fetch(fctx)
			if err != nil {
				logger.Warn("fetch failed", logging.Source(f.Name()), logging.Err(err))
				errs[i] = err
			}
			logger.Info("fetch finished", logging.Source(f.Name()), "leads", len(res.Leads),
				"scanned", res.Scanned, slog.Duration(logging.KeyDuration, time.Since(start)))
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var out Result
	for i, f := range fetchers {
		res := results[i]
		rep := SourceReport{Name: f.Name(), Source: res.Source, Scanned: res.Scanned, Err: errs[i]}

		if len(res.Leads) > 0 {
			rep.Stats = scrape.ProcessLeads(ctx, db, cfg, res.Leads, logger, onNewJob)
			out.Added += rep.Stats.Added
		}

		// leave messages unread when something could not be stored
		if res.Finalize != nil && rep.Err == nil && rep.Stats.Errors == 0 {
			if err := res.Finalize(ctx); err != nil {
				logger.Warn("finalize failed", logging.Source(f.Name()), logging.Err(err))
				rep.FinalizeErr = err
			}
		}

		logger.Info("source processed", logging.Source(f.Name()), "leads", rep.Stats.Leads,
			"added", rep.Stats.Added, "skipped", rep.Stats.Skipped)
		out.Reports = append(out.Reports, rep)
	}
	return out
}
