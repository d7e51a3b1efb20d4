package types

import (
	"context"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
)

// ScrapeResult is what one fetcher produced in a poll. Finalize, when set,
// runs only after the leads are stored.
type ScrapeResult struct {
	Source   string
	Leads    []domain.JobLead
	Finalize func(context.Context) error
	// Scanned counts inputs looked at, e.g. emails read.
	Scanned int
}

type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) (ScrapeResult, error)
}

// Describer fills in the full posting text for a stored job.
type Describer interface {
	// Handles reports whether this describer understands the job URL.
	Handles(rawURL string) bool
	Describe(ctx context.Context, rawURL string) (string, error)
}
