package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bluehawana/JobHunter-Python-TypeScript-GmailRestAPI-sub003/internal/domain"
)

// GetJob loads one job by id.
func GetJob(ctx context.Context, db *sql.DB, id int64) (Job, error) {
	row := db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?;`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	return j, err
}

// JobsByStatus returns up to limit jobs in the given status, best score first.
func JobsByStatus(ctx context.Context, db *sql.DB, status domain.Status, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE status = ?
ORDER BY score DESC, date DESC, id ASC
LIMIT ?;`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func SetDescription(ctx context.Context, db *sql.DB, id int64, description string) error {
	return update(ctx, db, id, `description = ?, status = ?`, description, string(domain.StatusDescribed))
}

func SetRole(ctx context.Context, db *sql.DB, id int64, role, method string, score float64) error {
	return update(ctx, db, id, `role = ?, role_method = ?, role_score = ?, status = ?`,
		role, method, score, string(domain.StatusClassified))
}

func SetRendered(ctx context.Context, db *sql.DB, id int64, cvPath, letterPath string) error {
	return update(ctx, db, id, `cv_path = ?, letter_path = ?, status = ?`,
		cvPath, letterPath, string(domain.StatusRendered))
}

func SetStatus(ctx context.Context, db *sql.DB, id int64, status domain.Status) error {
	return update(ctx, db, id, `status = ?`, string(status))
}

// SetFailed records err and remembers which stage to retry from.
func SetFailed(ctx context.Context, db *sql.DB, id int64, from domain.Status, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return update(ctx, db, id, `status = ?, failed_from = ?, attempts = attempts + 1, last_error = ?`,
		string(domain.StatusFailed), string(from), msg)
}

// RequeueFailed puts failed jobs with attempts left back into the stage they failed in.
func RequeueFailed(ctx context.Context, db *sql.DB, maxAttempts int) (int64, error) {
	res, err := db.ExecContext(ctx, `
UPDATE jobs
SET status = failed_from, updated_at = ?
WHERE status = ? AND failed_from != '' AND attempts < ?;`,
		nowString(), string(domain.StatusFailed), maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("requeue failed jobs: %w", err)
	}
	return res.RowsAffected()
}

func update(ctx context.Context, db *sql.DB, id int64, set string, args ...any) error {
	args = append(args, nowString(), id)
	res, err := db.ExecContext(ctx, `UPDATE jobs SET `+set+`, updated_at = ? WHERE id = ?;`, args...)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update job %d: %w", id, ErrNotFound)
	}
	return nil
}

func CleanupOldJobs(ctx context.Context, db *sql.DB) (deleted int64, err error) {
	res, err := db.ExecContext(ctx, `
DELETE FROM jobs
WHERE date < datetime('now', '-3 months');
`)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
