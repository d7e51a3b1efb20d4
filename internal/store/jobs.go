package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
)

type Job struct {
	ID          int64         `json:"id"`
	Company     string        `json:"company"`
	Title       string        `json:"title"`
	Location    string        `json:"location"`
	WorkMode    string        `json:"workMode"`
	URL         string        `json:"url"`
	Salary      string        `json:"salary,omitempty"`
	Description string        `json:"-"`
	Score       int           `json:"score"`
	Tags        []string      `json:"tags"`
	Date        string        `json:"date"`
	SourceID    string        `json:"sourceId"`
	Source      string        `json:"source"`
	Role        string        `json:"role,omitempty"`
	RoleMethod  string        `json:"roleMethod,omitempty"`
	RoleScore   float64       `json:"roleScore,omitempty"`
	Status      domain.Status `json:"status"`
	FailedFrom  domain.Status `json:"failedFrom,omitempty"`
	Attempts    int           `json:"attempts"`
	LastError   string        `json:"lastError,omitempty"`
	CVPath      string        `json:"cvPath,omitempty"`
	LetterPath  string        `json:"letterPath,omitempty"`
	UpdatedAt   string        `json:"updatedAt"`
}

type ListJobsOpts struct {
	Sort   string // score | date | company | title
	Order  string // asc | desc
	Window string // 24h | 7d | 30d | all
	Status string
	Limit  int
}

const jobColumns = `id, company, title, location, work_mode, url, salary, description, score, tags, date,
source_id, seen_from_source, role, role_method, role_score, status, failed_from, attempts, last_error,
cv_path, letter_path, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (Job, error) {
	var j Job
	var tagsJSON, status, failedFrom string
	if err := r.Scan(
		&j.ID, &j.Company, &j.Title, &j.Location, &j.WorkMode, &j.URL, &j.Salary, &j.Description,
		&j.Score, &tagsJSON, &j.Date, &j.SourceID, &j.Source, &j.Role, &j.RoleMethod, &j.RoleScore,
		&status, &failedFrom, &j.Attempts, &j.LastError, &j.CVPath, &j.LetterPath, &j.UpdatedAt,
	); err != nil {
		return Job{}, err
	}
	_ = json.Unmarshal([]byte(tagsJSON), &j.Tags)
	if j.Tags == nil {
		j.Tags = []string{}
	}
	j.Status = domain.Status(status)
	j.FailedFrom = domain.Status(failedFrom)
	return j, nil
}

func scanJobs(rows *sql.Rows) ([]Job, error) {
	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func ListJobs(ctx context.Context, db *sql.DB, opts ListJobsOpts) ([]Job, error) {
	if opts.Sort == "" {
		opts.Sort = "score"
	}
	if opts.Limit <= 0 {
		opts.Limit = -1
	}

	// whitelist sort columns (prevents SQL injection)
	sortCol := map[string]string{
		"score":   "score",
		"date":    "date",
		"company": "company",
		"title":   "title",
	}[opts.Sort]
	if sortCol == "" {
		sortCol = "score"
	}
	order := "DESC"
	switch opts.Order {
	case "asc":
		order = "ASC"
	case "desc":
		order = "DESC"
	default:
		if sortCol == "company" || sortCol == "title" {
			order = "ASC"
		}
	}

	var (
		where []string
		args  []any
	)
	switch opts.Window {
	case "24h":
		where = append(where, "date >= datetime('now','-24 hours')")
	case "7d":
		where = append(where, "date >= datetime('now','-7 days')")
	case "30d":
		where = append(where, "date >= datetime('now','-30 days')")
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}

	clause := ""
	for i, w := range where {
		if i == 0 {
			clause = "WHERE " + w
		} else {
			clause += " AND " + w
		}
	}

	query := fmt.Sprintf(`
SELECT %s
FROM jobs
%s
ORDER BY %s %s, id ASC
LIMIT ?;
`, jobColumns, clause, sortCol, order)

	args = append(args, opts.Limit)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

// CountByStatus reports how many jobs sit in each status.
func CountByStatus(ctx context.Context, db *sql.DB) (map[domain.Status]int, error) {
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[domain.Status]int{}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[domain.Status(s)] = n
	}
	return out, rows.Err()
}
