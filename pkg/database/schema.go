package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// schema is valid for both SQLite and PostgreSQL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
        id TEXT PRIMARY KEY,
        card_id TEXT UNIQUE,
        student_id TEXT NOT NULL UNIQUE,
        pin_hash TEXT,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS applicants (
        id TEXT PRIMARY KEY,
        student_id TEXT NOT NULL,
        period TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL,
        UNIQUE (student_id, period)
    )`,
	`CREATE TABLE IF NOT EXISTS checkins (
        id TEXT PRIMARY KEY,
        student_id TEXT NOT NULL,
        check_date TEXT NOT NULL,
        is_applicant BOOLEAN NOT NULL,
        photo_path TEXT,
        checked_at TIMESTAMP NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_checkins_student_date ON checkins (student_id, check_date)`,
	`CREATE INDEX IF NOT EXISTS idx_checkins_date_time ON checkins (check_date, checked_at)`,
	`CREATE INDEX IF NOT EXISTS idx_applicants_period ON applicants (period)`,
	`CREATE TABLE IF NOT EXISTS admins (
        id TEXT PRIMARY KEY,
        username TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL,
        created_at TIMESTAMP NOT NULL,
        updated_at TIMESTAMP NOT NULL
    )`,
}

// DataTables lists the tables wiped by a reset or replaced by a restore, children first.
var DataTables = []string{"checkins", "applicants", "students"}

// Migrate applies the schema idempotently.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
