// Package pipeline runs the stages of a job hunt over the stored jobs:
// scan, enrich, classify, render and send. Each stage consumes the jobs
// left in its input status by the previous one, so a stage can also be
// run on its own.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/events"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/latex"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/llm"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/logging"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/mailer"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/metrics"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/poll"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/secrets"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

// Describer fetches the full text of a posting.
type Describer interface {
	Describe(ctx context.Context, url string) (scrape.Description, error)
}

// DocumentBuilder fills and compiles the CV and cover letter.
type DocumentBuilder interface {
	Build(ctx context.Context, role config.Role, data latex.Data, outDir string) (latex.Documents, error)
}

// Sender delivers one application mail and returns its Message-ID.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

type Pipeline struct {
	Cfg     config.Config
	DB      *sql.DB
	Logger  *slog.Logger
	Hub     *events.Hub
	Metrics *metrics.Metrics
	RunID   string
	// DryRun renders documents but sends nothing.
	DryRun bool

	Fetchers   []types.Fetcher
	Describer  Describer
	Classifier *llm.Classifier
	Writer     *llm.Writer
	Builder    DocumentBuilder
	// Sender is nil when SMTP is not configured.
	Sender Sender

	Now func() time.Time

	closers []func() error
}

// StageStats counts what one stage did.
type StageStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped,omitempty"`
}

type SourceSummary struct {
	Name    string         `json:"name"`
	Scanned int            `json:"scanned"`
	Leads   int            `json:"leads"`
	Added   int            `json:"added"`
	Skipped map[string]int `json:"skipped,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type ScanSummary struct {
	Added   int             `json:"added"`
	Sources []SourceSummary `json:"sources"`
}

// Summary is the outcome of Run.
type Summary struct {
	RunID      string      `json:"run_id"`
	DryRun     bool        `json:"dry_run"`
	Scan       ScanSummary `json:"scan"`
	Requeued   int64       `json:"requeued"`
	Enriched   StageStats  `json:"enriched"`
	Classified StageStats  `json:"classified"`
	Rendered   StageStats  `json:"rendered"`
	Sent       StageStats  `json:"sent"`
	Duration   string      `json:"duration"`
}

// New wires every stage from cfg. Sources and providers that cannot be set
// up are logged and left out; only an unusable config is an error.
func New(ctx context.Context, cfg config.Config, db *sql.DB, logger *slog.Logger) (*Pipeline, error) {
	logger = logging.OrDefault(logger)
	p := &Pipeline{
		Cfg:     cfg,
		DB:      db,
		Logger:  logger,
		Hub:     events.NewHub(),
		Metrics: metrics.New(),
		RunID:   uuid.NewString(),
		Now:     time.Now,
	}

	src := poll.Build(ctx, cfg, logger)
	p.closers = append(p.closers, src.Close)
	p.Fetchers = src.Fetchers
	p.Describer = src.Describer

	completer, err := llm.New(ctx, cfg, logger)
	switch {
	case errors.Is(err, llm.ErrDisabled):
		completer = nil
	case err != nil:
		logger.Warn("llm unavailable, using keyword matching", logging.Err(err))
		completer = nil
	default:
		p.closers = append(p.closers, func() error { return llm.Close(completer) })
	}
	p.Classifier = llm.NewClassifier(cfg, completer, logger)
	p.Writer = &llm.Writer{MaxInputChars: cfg.LLM.MaxInputChars, Logger: logger}
	if cfg.LLM.CoverLetter {
		p.Writer.LLM = completer
	}

	p.Builder = latex.NewBuilder(cfg)

	if cfg.SMTP.Host != "" {
		pw, err := secrets.Get(cfg, secrets.SMTP)
		if err != nil {
			logger.Warn("smtp password missing, sending disabled", logging.Err(err))
		} else {
			p.Sender = mailer.New(cfg, pw, logger)
		}
	}
	return p, nil
}

// Close releases mailbox connections, the browser and the LLM client.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	p.closers = nil
	return errors.Join(errs...)
}

// Run executes every stage in order. Per-job failures are recorded on the
// job and do not stop the run; a database failure does.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := p.now()
	logger := logging.WithOperation(p.Logger, "run").With(logging.RunID(p.RunID))
	sum := Summary{RunID: p.RunID, DryRun: p.DryRun}

	p.emit(events.RunStarted, map[string]any{"dry_run": p.DryRun})
	logger.Info("run started", "dry_run", p.DryRun)

	err := p.runStages(ctx, &sum)

	sum.Duration = time.Since(start).Round(time.Millisecond).String()
	p.Metrics.ObserveRun(start, err == nil)
	if werr := p.Metrics.WriteTextfile(p.Cfg.Metrics.Textfile); werr != nil {
		logger.Warn("metrics textfile not written", logging.Err(werr))
	}

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
		logger.Error("run aborted", logging.Err(err))
	}
	p.emit(events.RunFinished, sum)
	logger.Info("run finished", logging.Status(status),
		"added", sum.Scan.Added,
		"classified", sum.Classified.Processed,
		"rendered", sum.Rendered.Processed,
		"sent", sum.Sent.Processed,
		slog.Duration(logging.KeyDuration, time.Since(start)))
	return sum, err
}

func (p *Pipeline) runStages(ctx context.Context, sum *Summary) error {
	var err error
	sum.Scan = p.Scan(ctx)

	if sum.Requeued, err = store.RequeueFailed(ctx, p.DB, p.Cfg.Pipeline.MaxAttempts); err != nil {
		return err
	}
	if sum.Enriched, err = p.Enrich(ctx); err != nil {
		return fmt.Errorf("enrich: %w", err)
	}
	if sum.Classified, err = p.Classify(ctx); err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	if sum.Rendered, err = p.Render(ctx); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if sum.Sent, err = p.Send(ctx); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) emit(typ string, data any) {
	p.Hub.Emit(p.RunID, typ, data)
}

func (p *Pipeline) limit() int {
	if p.Cfg.Pipeline.MaxJobsPerRun > 0 {
		return p.Cfg.Pipeline.MaxJobsPerRun
	}
	return 20
}

// fail records a job failure. It only returns an error when the database
// write itself fails.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, j store.Job, stage string, cause error) error {
	logger.Warn("job failed", logging.JobID(j.ID), "stage", stage, logging.Err(cause))
	p.emit(events.JobFailed, map[string]any{"id": j.ID, "stage": stage, "error": cause.Error()})
	if err := store.SetFailed(ctx, p.DB, j.ID, j.Status, cause); err != nil {
		return fmt.Errorf("mark job %d failed: %w", j.ID, err)
	}
	return nil
}
