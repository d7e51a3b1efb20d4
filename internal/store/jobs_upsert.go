package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
)

type JobInsert struct {
	Company     string
	Title       string
	Location    string
	WorkMode    string
	URL         string
	Salary      string
	Description string
	Score       int
	Tags        []string
	Date        time.Time
	SourceID    string
	Source      string
}

// InsertJobIgnore stores j unless a row with the same source_id exists.
// It reports whether a new row was written.
func InsertJobIgnore(ctx context.Context, db *sql.DB, j JobInsert) (added bool, err error) {
	if strings.TrimSpace(j.URL) == "" {
		return false, errors.New("insert job: missing url")
	}
	if strings.TrimSpace(j.SourceID) == "" {
		return false, errors.New("insert job: missing source_id")
	}
	if j.Company == "" {
		j.Company = "Unknown"
	}
	if j.Title == "" {
		j.Title = "Job Posting"
	}
	if j.Location == "" {
		j.Location = "Unknown"
	}
	j.WorkMode = NormalizeWorkMode(j.WorkMode)
	if j.Tags == nil {
		j.Tags = []string{}
	}

	status := domain.StatusNew
	if strings.TrimSpace(j.Description) != "" {
		status = domain.StatusDescribed
	}

	tagsB, _ := json.Marshal(j.Tags)

	// relies on the unique index on source_id WHERE source_id != ''
	res, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO jobs (company, title, location, work_mode, url, salary, description, score, tags, date,
                            source_id, seen_from_source, status, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		j.Company, j.Title, j.Location, j.WorkMode, j.URL, j.Salary, j.Description, j.Score, string(tagsB),
		formatTime(j.Date), j.SourceID, j.Source, string(status), nowString(),
	)
	if err != nil {
		return false, fmt.Errorf("insert job: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func NormalizeWorkMode(mode string) string {
	m := strings.ToLower(strings.TrimSpace(mode))
	switch {
	case strings.Contains(m, "remote"):
		return "Remote"
	case strings.Contains(m, "hybrid"):
		return "Hybrid"
	case strings.Contains(m, "onsite") || strings.Contains(m, "on-site"):
		return "Onsite"
	case m == "" || m == "unknown":
		return "Unknown"
	default:
		return mode
	}
}
