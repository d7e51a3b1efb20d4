package store

import (
	"database/sql"
	"fmt"
)

// migrations[i] upgrades the schema from user_version i to i+1.
var migrations = []func(tx *sql.Tx) error{
	migrateV1,
	migrateV2,
}

// SchemaVersion is the user_version after Migrate.
func SchemaVersion() int { return len(migrations) }

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	for i := v; i < len(migrations); i++ {
		if err := migrations[i](tx); err != nil {
			return fmt.Errorf("schema v%d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters.
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, i+1)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func migrateV1(tx *sql.Tx) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  company TEXT NOT NULL,
  title TEXT NOT NULL,
  location TEXT NOT NULL,
  work_mode TEXT NOT NULL,
  url TEXT NOT NULL,
  score INTEGER NOT NULL DEFAULT 0,
  tags TEXT NOT NULL DEFAULT '[]',
  date TEXT NOT NULL,
  source_id TEXT NOT NULL DEFAULT '',
  seen_from_source TEXT NOT NULL DEFAULT ''
);`, `
CREATE INDEX IF NOT EXISTS idx_jobs_date
ON jobs(date);`, `
CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_source_id
ON jobs(source_id)
WHERE source_id != '';`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func migrateV2(tx *sql.Tx) error {
	cols := []struct{ name, ddl string }{
		{"salary", `ALTER TABLE jobs ADD COLUMN salary TEXT NOT NULL DEFAULT '';`},
		{"description", `ALTER TABLE jobs ADD COLUMN description TEXT NOT NULL DEFAULT '';`},
		{"role", `ALTER TABLE jobs ADD COLUMN role TEXT NOT NULL DEFAULT '';`},
		{"role_method", `ALTER TABLE jobs ADD COLUMN role_method TEXT NOT NULL DEFAULT '';`},
		{"role_score", `ALTER TABLE jobs ADD COLUMN role_score REAL NOT NULL DEFAULT 0;`},
		{"status", `ALTER TABLE jobs ADD COLUMN status TEXT NOT NULL DEFAULT 'new';`},
		{"failed_from", `ALTER TABLE jobs ADD COLUMN failed_from TEXT NOT NULL DEFAULT '';`},
		{"attempts", `ALTER TABLE jobs ADD COLUMN attempts INTEGER NOT NULL DEFAULT 0;`},
		{"last_error", `ALTER TABLE jobs ADD COLUMN last_error TEXT NOT NULL DEFAULT '';`},
		{"cv_path", `ALTER TABLE jobs ADD COLUMN cv_path TEXT NOT NULL DEFAULT '';`},
		{"letter_path", `ALTER TABLE jobs ADD COLUMN letter_path TEXT NOT NULL DEFAULT '';`},
		{"updated_at", `ALTER TABLE jobs ADD COLUMN updated_at TEXT NOT NULL DEFAULT '';`},
	}
	for _, c := range cols {
		if columnExists(tx, "jobs", c.name) {
			continue
		}
		if _, err := tx.Exec(c.ddl); err != nil {
			return err
		}
	}

	stmts := []string{`
CREATE INDEX IF NOT EXISTS idx_jobs_status
ON jobs(status);`, `
CREATE TABLE IF NOT EXISTS applications (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
  role TEXT NOT NULL,
  cv_path TEXT NOT NULL,
  letter_path TEXT NOT NULL,
  message_id TEXT NOT NULL DEFAULT '',
  sent_at TEXT NOT NULL
);`, `
CREATE INDEX IF NOT EXISTS idx_applications_job
ON applications(job_id);`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func columnExists(q interface {
	QueryRow(query string, args ...any) *sql.Row
}, table, col string) bool {
	query := fmt.Sprintf(`
SELECT 1
FROM pragma_table_info('%s')
WHERE name = ?
LIMIT 1;
`, table)

	var one int
	err := q.QueryRow(query, col).Scan(&one)
	return err == nil
}
