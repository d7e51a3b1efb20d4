package poll

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/config"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/scrape/types"
	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/store"
)

type fakeFetcher struct {
	name     string
	leads    []domain.JobLead
	err      error
	finalize func(context.Context) error
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(context.Context) (types.ScrapeResult, error) {
	return types.ScrapeResult{Source: f.name, Leads: f.leads, Scanned: len(f.leads), Finalize: f.finalize}, f.err
}

func TestPollOnceStoresBeforeFinalize(t *testing.T) {
	d, err := store.OpenAndMigrate(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer d.Close()

	cfg, err := config.Default()
	require.NoError(t, err)

	var storedAtFinalize int
	mail := &fakeFetcher{
		name: "email:imap",
		leads: []domain.JobLead{
			{Title: "DevOps Engineer", CompanyName: "Volvo", URL: "https://www.linkedin.com/jobs/view/4012345678/", ATSJobID: "linkedin:4012345678", FirstSeenSource: "email"},
		},
	}
	mail.finalize = func(ctx context.Context) error {
		jobs, err := store.ListJobs(ctx, d.Pool, store.ListJobsOpts{Window: "all"})
		storedAtFinalize = len(jobs)
		return err
	}
	board := &fakeFetcher{
		name: "linkedin",
		leads: []domain.JobLead{
			{Title: "Backend Developer", CompanyName: "Acme", URL: "https://www.linkedin.com/jobs/view/4099999999/", LocationRaw: "Göteborg", ATSJobID: "linkedin:4099999999", FirstSeenSource: "linkedin"},
		},
	}
	broken := &fakeFetcher{name: "indeed", err: errors.New("403")}

	var notified int
	res := PollOnce(context.Background(), d.Pool, cfg, []types.Fetcher{mail, board, broken}, nil, func(store.JobInsert) { notified++ })

	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, notified)
	assert.GreaterOrEqual(t, storedAtFinalize, 1)
	require.Len(t, res.Reports, 3)
	assert.Equal(t, "email:imap", res.Reports[0].Name)
	assert.EqualError(t, res.Reports[2].Err, "403")
}

func TestPollOnceSkipsFinalizeOnFetchError(t *testing.T) {
	d, err := store.OpenAndMigrate(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	defer d.Close()
	cfg, err := config.Default()
	require.NoError(t, err)

	called := false
	f := &fakeFetcher{name: "email:gmail", err: errors.New("auth"), finalize: func(context.Context) error {
		called = true
		return nil
	}}
	res := PollOnce(context.Background(), d.Pool, cfg, []types.Fetcher{f}, nil, nil)
	assert.False(t, called)
	assert.Zero(t, res.Added)
}

func TestBuildWiresEnabledBoards(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Sources.LinkedIn.Enabled = true
	cfg.Sources.Arbetsformedlingen.Enabled = true
	cfg.Sources.Lever.Enabled = true
	cfg.Sources.Lever.Companies = []config.Company{{Slug: "acme"}}
	cfg.Sources.SmartRecruiters.Enabled = true

	s := Build(context.Background(), cfg, nil)
	defer s.Close()

	var names []string
	for _, f := range s.Fetchers {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"linkedin", "arbetsformedlingen", "lever"}, names)
	require.NotNil(t, s.Describer)
	assert.Len(t, s.Describer.Describers, 4)
}
