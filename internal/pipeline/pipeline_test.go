package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/events"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/latex"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/llm"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/mailer"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/metrics"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

type fakeFetcher struct {
	name  string
	leads []domain.JobLead
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(context.Context) (types.ScrapeResult, error) {
	return types.ScrapeResult{Source: f.name, Leads: f.leads, Scanned: len(f.leads)}, nil
}

type fakeDescriber struct {
	text string
	err  error
}

func (d *fakeDescriber) Describe(context.Context, string) (scrape.Description, error) {
	return scrape.Description{Text: d.text}, d.err
}

// cancellingDescriber cancels the run while describing, like a
// sibling failure tearing down the group.
type cancellingDescriber struct {
	cancel context.CancelFunc
}

func (d *cancellingDescriber) Describe(ctx context.Context, _ string) (scrape.Description, error) {
	d.cancel()
	<-ctx.Done()
	return scrape.Description{}, ctx.Err()
}

type fakeBuilder struct {
	err  error
	dirs []string
	data []latex.Data
}

func (b *fakeBuilder) Build(_ context.Context, _ config.Role, data latex.Data, outDir string) (latex.Documents, error) {
	b.dirs = append(b.dirs, outDir)
	b.data = append(b.data, data)
	docs := latex.Documents{
		Dir:       outDir,
		CVTex:     filepath.Join(outDir, "cv.tex"),
		LetterTex: filepath.Join(outDir, "cover_letter.tex"),
	}
	if b.err != nil {
		return docs, b.err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return docs, err
	}
	docs.CVPDF = filepath.Join(outDir, "cv.pdf")
	docs.LetterPDF = filepath.Join(outDir, "cover_letter.pdf")
	for _, p := range []string{docs.CVPDF, docs.LetterPDF} {
		if err := os.WriteFile(p, []byte("%PDF-1.4\n"), 0o644); err != nil {
			return docs, err
		}
	}
	return docs, nil
}

type fakeSender struct {
	err  error
	msgs []mailer.Message
}

func (s *fakeSender) Send(_ context.Context, msg mailer.Message) (string, error) {
	s.msgs = append(s.msgs, msg)
	if s.err != nil {
		return "", s.err
	}
	return "abc@jobhunter", nil
}

var devopsLead = domain.JobLead{
	Title:           "DevOps Engineer",
	CompanyName:     "Volvo Cars",
	URL:             "https://www.linkedin.com/jobs/view/4012345678/",
	LocationRaw:     "Göteborg",
	ATSJobID:        "linkedin:4012345678",
	FirstSeenSource: "linkedin",
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeBuilder, *fakeSender) {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.App.DataDir = t.TempDir()
	cfg.Metrics.Textfile = filepath.Join(cfg.App.DataDir, "jobhunter.prom")

	d, err := store.OpenAndMigrate(filepath.Join(cfg.App.DataDir, "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	b := &fakeBuilder{}
	s := &fakeSender{}
	p := &Pipeline{
		Cfg:        cfg,
		DB:         d.Pool,
		Hub:        events.NewHub(),
		Metrics:    metrics.New(),
		RunID:      "run-1",
		Fetchers:   []types.Fetcher{&fakeFetcher{name: "linkedin", leads: []domain.JobLead{devopsLead}}},
		Describer:  &fakeDescriber{text: "Kubernetes, Terraform and AWS. Docker everywhere."},
		Classifier: llm.NewClassifier(cfg, nil, nil),
		Writer:     &llm.Writer{},
		Builder:    b,
		Sender:     s,
		Now:        func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) },
	}
	return p, b, s
}

func drain(sub *events.Subscription) []events.Event {
	var out []events.Event
	for {
		select {
		case line := <-sub.C:
			var e events.Event
			if json.Unmarshal([]byte(line), &e) == nil {
				out = append(out, e)
			}
		default:
			return out
		}
	}
}

func onlyJob(t *testing.T, p *Pipeline) store.Job {
	t.Helper()
	jobs, err := store.ListJobs(context.Background(), p.DB, store.ListJobsOpts{Window: "all"})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	j, err := store.GetJob(context.Background(), p.DB, jobs[0].ID)
	require.NoError(t, err)
	return j
}

func TestRunEndToEnd(t *testing.T) {
	p, b, s := newTestPipeline(t)
	sub := p.Hub.Subscribe()
	defer sub.Close()

	sum, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, 1, sum.Scan.Added)
	assert.Equal(t, 1, sum.Enriched.Processed)
	assert.Equal(t, 1, sum.Classified.Processed)
	assert.Equal(t, 1, sum.Rendered.Processed)
	assert.Equal(t, 1, sum.Sent.Processed)

	j := onlyJob(t, p)
	assert.Equal(t, domain.StatusSent, j.Status)
	assert.Equal(t, "devops_cloud", j.Role)
	assert.Equal(t, llm.MethodKeywords, j.RoleMethod)

	require.Len(t, b.dirs, 1)
	assert.True(t, strings.HasPrefix(b.dirs[0], filepath.Join(p.Cfg.App.DataDir, "output", "2025-03-14_volvo-cars_")))
	assert.Equal(t, "14 March 2025", b.data[0].Date)
	assert.Equal(t, "DevOps / Cloud Engineer", b.data[0].Role.Name)
	require.NotEmpty(t, b.data[0].Letter)
	assert.Contains(t, b.data[0].Letter[0], "DevOps Engineer position at Volvo Cars")

	require.Len(t, s.msgs, 1)
	assert.Equal(t, "Job application ready: DevOps Engineer at Volvo Cars", s.msgs[0].Subject)
	assert.Len(t, s.msgs[0].Attachments, 2)

	apps, err := store.ListApplications(context.Background(), p.DB, j.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "run-1", apps[0].RunID)
	assert.Equal(t, "abc@jobhunter", apps[0].MessageID)

	var seen []string
	for _, e := range drain(sub) {
		assert.Equal(t, "run-1", e.RunID)
		seen = append(seen, e.Type)
	}
	require.NotEmpty(t, seen)
	assert.Equal(t, events.RunStarted, seen[0])
	assert.Equal(t, events.RunFinished, seen[len(seen)-1])
	assert.Contains(t, seen, events.JobAdded)
	assert.Contains(t, seen, events.JobClassified)
	assert.Contains(t, seen, events.JobSent)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.JobsAdded.WithLabelValues("linkedin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.JobsClassified.WithLabelValues("devops_cloud", "keywords")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.DocsCompiled.WithLabelValues("cover_letter", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.MailsSent.WithLabelValues("success")))
	assert.FileExists(t, p.Cfg.Metrics.Textfile)
}

func TestRunDryRunKeepsRendered(t *testing.T) {
	p, _, s := newTestPipeline(t)
	p.DryRun = true

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Sent.Skipped)
	assert.Empty(t, s.msgs)
	assert.Equal(t, domain.StatusRendered, onlyJob(t, p).Status)
}

func TestRunWithoutSenderKeepsRendered(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	p.Sender = nil

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Sent.Skipped)
	assert.Equal(t, domain.StatusRendered, onlyJob(t, p).Status)
	assert.ErrorIs(t, p.SendJob(context.Background(), onlyJob(t, p).ID), ErrNoSender)
}

func TestEnrichFailureIsRetriedNextRun(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	p.Describer = &fakeDescriber{err: errors.New("429 too many requests")}

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Enriched.Failed)

	j := onlyJob(t, p)
	assert.Equal(t, domain.StatusFailed, j.Status)
	assert.Equal(t, domain.StatusNew, j.FailedFrom)
	assert.Equal(t, 1, j.Attempts)
	assert.Contains(t, j.LastError, "429")

	p.Describer = &fakeDescriber{text: "kubernetes"}
	sum, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Scan.Added)
	assert.EqualValues(t, 1, sum.Requeued)
	assert.Equal(t, 1, sum.Sent.Processed)
	assert.Equal(t, domain.StatusSent, onlyJob(t, p).Status)
}

func TestEnrichCancelledIsNotAFailure(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	p.Scan(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Describer = &cancellingDescriber{cancel: cancel}

	stats, err := p.Enrich(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Processed)

	j := onlyJob(t, p)
	assert.Equal(t, domain.StatusNew, j.Status)
	assert.Zero(t, j.Attempts)
	assert.Empty(t, j.LastError)
}

func TestRenderFailureMarksJob(t *testing.T) {
	p, b, _ := newTestPipeline(t)
	b.err = &latex.CompileError{TexPath: "cv.tex", Tail: "! Undefined control sequence.", Err: errors.New("exit status 1")}

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Rendered.Failed)
	assert.Zero(t, sum.Sent.Processed)

	j := onlyJob(t, p)
	assert.Equal(t, domain.StatusFailed, j.Status)
	assert.Equal(t, domain.StatusClassified, j.FailedFrom)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.DocsCompiled.WithLabelValues("cv", "error")))
}

func TestSendFailureMarksJob(t *testing.T) {
	p, _, s := newTestPipeline(t)
	s.err = errors.New("535 authentication failed")

	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Sent.Failed)

	j := onlyJob(t, p)
	assert.Equal(t, domain.StatusFailed, j.Status)
	assert.Equal(t, domain.StatusRendered, j.FailedFrom)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.MailsSent.WithLabelValues("error")))
}

func TestRenderJobNeedsRole(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	p.Scan(context.Background())

	err := p.RenderJob(context.Background(), onlyJob(t, p).ID)
	assert.ErrorContains(t, err, "run classify first")
}

func TestRoleForFallsBackToDefault(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	r, ok := p.roleFor("removed_role")
	require.True(t, ok)
	assert.Equal(t, p.Cfg.Roles.Default, r.Key)
}
