package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/events"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/latex"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/mailer"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/metrics"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

// ErrNoSender is returned when a single job is sent without SMTP set up.
var ErrNoSender = errors.New("smtp is not configured")

// Send mails every rendered job, one message per job. In a dry run the
// jobs stay rendered and are counted as skipped.
func (p *Pipeline) Send(ctx context.Context) (StageStats, error) {
	logger := logging.WithOperation(p.Logger, "send")
	jobs, err := store.JobsByStatus(ctx, p.DB, domain.StatusRendered, p.limit())
	if err != nil {
		return StageStats{}, err
	}

	var stats StageStats
	switch {
	case len(jobs) == 0:
	case p.DryRun:
		stats.Skipped = len(jobs)
		logger.Info("dry run, not sending", "jobs", len(jobs))
	case p.Sender == nil:
		stats.Skipped = len(jobs)
		logger.Warn("smtp not configured, rendered jobs kept for a later run", "jobs", len(jobs))
	default:
		for _, j := range jobs {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			ok, err := p.sendJob(ctx, j)
			if err != nil {
				return stats, err
			}
			if ok {
				stats.Processed++
			} else {
				stats.Failed++
			}
		}
	}
	p.emit(events.StageCompleted, map[string]any{"stage": "send", "stats": stats})
	return stats, nil
}

// SendJob mails one rendered job.
func (p *Pipeline) SendJob(ctx context.Context, id int64) error {
	if p.Sender == nil {
		return ErrNoSender
	}
	j, err := store.GetJob(ctx, p.DB, id)
	if err != nil {
		return err
	}
	if j.CVPath == "" || j.LetterPath == "" {
		return fmt.Errorf("job %d has no documents yet, run render first", id)
	}
	ok, err := p.sendJob(ctx, j)
	if err != nil {
		return err
	}
	if !ok {
		j, _ = store.GetJob(ctx, p.DB, id)
		return fmt.Errorf("send job %d: %s", id, j.LastError)
	}
	return nil
}

func (p *Pipeline) sendJob(ctx context.Context, j store.Job) (bool, error) {
	logger := logging.WithOperation(p.Logger, "send").With(logging.JobID(j.ID))

	summary := mailer.JobSummary{
		ID:         j.ID,
		Title:      j.Title,
		Company:    j.Company,
		Location:   j.Location,
		URL:        j.URL,
		Role:       j.Role,
		RoleMethod: j.RoleMethod,
		Score:      j.Score,
	}
	if r, ok := p.Cfg.RoleByKey(j.Role); ok {
		summary.RoleName = r.Name
	}

	prefix := latex.Slugify(p.Cfg.Applicant.Name)
	msg := mailer.Message{
		Subject: mailer.Subject(p.Cfg.SMTP.Subject, summary),
		Body:    mailer.Body(summary),
		Date:    p.now(),
		Attachments: []mailer.Attachment{
			{Path: j.CVPath, Name: prefix + "_cv.pdf"},
			{Path: j.LetterPath, Name: prefix + "_cover_letter.pdf"},
		},
	}

	messageID, err := p.Sender.Send(ctx, msg)
	p.Metrics.MailsSent.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return false, p.fail(ctx, logger, j, "send", err)
	}

	if _, err := store.RecordApplication(ctx, p.DB, store.Application{
		RunID:      p.RunID,
		JobID:      j.ID,
		Role:       j.Role,
		CVPath:     j.CVPath,
		LetterPath: j.LetterPath,
		MessageID:  messageID,
	}); err != nil {
		return false, fmt.Errorf("record application for job %d: %w", j.ID, err)
	}

	logger.Info("application sent", logging.Role(j.Role), "message_id", messageID)
	p.emit(events.JobSent, map[string]any{"id": j.ID, "message_id": messageID})
	return true, nil
}
