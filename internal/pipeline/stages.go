package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/events"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/llm"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/poll"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

// Scan polls every fetcher and stores new jobs. Source failures are
// reported in the summary, never returned.
func (p *Pipeline) Scan(ctx context.Context) ScanSummary {
	res := poll.PollOnce(ctx, p.DB, p.Cfg, p.Fetchers, p.Logger, func(j store.JobInsert) {
		p.emit(events.JobAdded, map[string]any{
			"source_id": j.SourceID,
			"company":   j.Company,
			"title":     j.Title,
			"url":       j.URL,
			"score":     j.Score,
		})
	})

	out := ScanSummary{Added: res.Added}
	for _, rep := range res.Reports {
		s := SourceSummary{
			Name:    rep.Name,
			Scanned: rep.Scanned,
			Leads:   rep.Stats.Leads,
			Added:   rep.Stats.Added,
			Skipped: rep.Stats.Skipped,
		}
		if rep.Err != nil {
			s.Error = rep.Err.Error()
		}
		if strings.HasPrefix(rep.Name, "email:") {
			p.Metrics.EmailsScanned.Add(float64(rep.Scanned))
		}
		p.Metrics.Leads.WithLabelValues(rep.Name).Add(float64(rep.Stats.Leads))
		p.Metrics.JobsAdded.WithLabelValues(rep.Name).Add(float64(rep.Stats.Added))
		p.emit(events.SourceScanned, s)
		out.Sources = append(out.Sources, s)
	}
	p.emit(events.StageCompleted, map[string]any{"stage": "scan", "added": out.Added})
	return out
}

// Enrich fetches descriptions for new jobs, a few at a time.
func (p *Pipeline) Enrich(ctx context.Context) (StageStats, error) {
	logger := logging.WithOperation(p.Logger, "enrich")
	jobs, err := store.JobsByStatus(ctx, p.DB, domain.StatusNew, p.limit())
	if err != nil {
		return StageStats{}, err
	}

	var (
		mu    sync.Mutex
		stats StageStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Cfg.Pipeline.Concurrency, 1))
	for _, j := range jobs {
		g.Go(func() error {
			d, err := p.Describer.Describe(gctx, j.URL)
			if err == nil && strings.TrimSpace(d.Text) == "" {
				err = errors.New("empty description")
			}
			if err != nil {
				// A cancelled run leaves the job new for the next one.
				if gctx.Err() != nil {
					return nil
				}
				mu.Lock()
				stats.Failed++
				mu.Unlock()
				return p.fail(ctx, logger, j, "enrich", err)
			}
			if err := store.SetDescription(gctx, p.DB, j.ID, d.Text); err != nil {
				return err
			}
			mu.Lock()
			stats.Processed++
			mu.Unlock()
			logger.Debug("job described", logging.JobID(j.ID), "chars", len(d.Text))
			p.emit(events.JobDescribed, map[string]any{"id": j.ID, "chars": len(d.Text)})
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	p.emit(events.StageCompleted, map[string]any{"stage": "enrich", "stats": stats})
	return stats, err
}

// Classify picks a CV role for every described job.
func (p *Pipeline) Classify(ctx context.Context) (StageStats, error) {
	logger := logging.WithOperation(p.Logger, "classify")
	jobs, err := store.JobsByStatus(ctx, p.DB, domain.StatusDescribed, p.limit())
	if err != nil {
		return StageStats{}, err
	}

	var stats StageStats
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		c := p.Classifier.Classify(ctx, postingOf(j))
		if err := store.SetRole(ctx, p.DB, j.ID, c.Role, c.Method, c.Score); err != nil {
			return stats, err
		}
		stats.Processed++
		p.Metrics.JobsClassified.WithLabelValues(c.Role, c.Method).Inc()
		logger.Info("job classified", logging.JobID(j.ID), logging.Role(c.Role),
			"method", c.Method, "confidence", c.Confidence)
		p.emit(events.JobClassified, map[string]any{
			"id":         j.ID,
			"role":       c.Role,
			"method":     c.Method,
			"confidence": c.Confidence,
			"scores":     c.Scores,
		})
	}
	p.emit(events.StageCompleted, map[string]any{"stage": "classify", "stats": stats})
	return stats, nil
}

func postingOf(j store.Job) llm.Posting {
	return llm.Posting{
		Title:       j.Title,
		Company:     j.Company,
		Location:    j.Location,
		Description: j.Description,
	}
}
