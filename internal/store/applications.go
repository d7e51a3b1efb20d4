package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Application is one sent email carrying a generated CV and cover letter.
type Application struct {
	ID         int64  `json:"id"`
	RunID      string `json:"runId"`
	JobID      int64  `json:"jobId"`
	Role       string `json:"role"`
	CVPath     string `json:"cvPath"`
	LetterPath string `json:"letterPath"`
	MessageID  string `json:"messageId"`
	SentAt     string `json:"sentAt"`
}

// RecordApplication stores a sent application and marks its job sent in one transaction.
func RecordApplication(ctx context.Context, db *sql.DB, a Application) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	sentAt := nowString()
	if a.SentAt != "" {
		if t, err := time.Parse(sqliteTime, a.SentAt); err == nil {
			sentAt = formatTime(t)
		}
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO applications (run_id, job_id, role, cv_path, letter_path, message_id, sent_at)
VALUES (?, ?, ?, ?, ?, ?, ?);`,
		a.RunID, a.JobID, a.Role, a.CVPath, a.LetterPath, a.MessageID, sentAt)
	if err != nil {
		return 0, fmt.Errorf("record application for job %d: %w", a.JobID, err)
	}
	id, _ := res.LastInsertId()

	upd, err := tx.ExecContext(ctx, `UPDATE jobs SET status = 'sent', last_error = '', updated_at = ? WHERE id = ?;`,
		sentAt, a.JobID)
	if err != nil {
		return 0, err
	}
	if n, _ := upd.RowsAffected(); n == 0 {
		return 0, fmt.Errorf("record application for job %d: %w", a.JobID, ErrNotFound)
	}

	return id, tx.Commit()
}

// ListApplications returns sent applications newest first. jobID 0 means all jobs.
func ListApplications(ctx context.Context, db *sql.DB, jobID int64) ([]Application, error) {
	query := `
SELECT id, run_id, job_id, role, cv_path, letter_path, message_id, sent_at
FROM applications`
	var args []any
	if jobID > 0 {
		query += ` WHERE job_id = ?`
		args = append(args, jobID)
	}
	query += ` ORDER BY sent_at DESC, id DESC;`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		var a Application
		if err := rows.Scan(&a.ID, &a.RunID, &a.JobID, &a.Role, &a.CVPath, &a.LetterPath, &a.MessageID, &a.SentAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
