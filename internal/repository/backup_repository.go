package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/meal-checkin-api/pkg/database"
)

// ErrSnapshotUnsupported is returned when the active driver cannot produce file snapshots.
var ErrSnapshotUnsupported = errors.New("database snapshots require the sqlite3 driver")

// restoreTables lists data tables parents first with the columns copied on restore.
var restoreTables = []struct {
	name    string
	columns string
}{
	{"students", "id, card_id, student_id, pin_hash, created_at, updated_at"},
	{"applicants", "id, student_id, period, created_at"},
	{"checkins", "id, student_id, check_date, is_applicant, photo_path, checked_at"},
}

const adminColumns = "id, username, password_hash, created_at, updated_at"

// BackupRepository snapshots and restores the SQLite database file.
type BackupRepository struct {
	db *sqlx.DB
}

// NewBackupRepository constructs a BackupRepository.
func NewBackupRepository(db *sqlx.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Supported reports whether the active driver can snapshot.
func (r *BackupRepository) Supported() bool {
	return database.IsSQLite(r.db)
}

// Snapshot writes a transactionally consistent copy of the database to path. path must not exist.
func (r *BackupRepository) Snapshot(ctx context.Context, path string) error {
	if !r.Supported() {
		return ErrSnapshotUnsupported
	}
	if _, err := r.db.ExecContext(ctx, "VACUUM INTO "+quoteLiteral(path)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return nil
}

// Restore replaces every data table with the contents of the snapshot at path in one transaction.
// Admin accounts are replaced only when the snapshot contains at least one.
func (r *BackupRepository) Restore(ctx context.Context, path string) (err error) {
	if !r.Supported() {
		return ErrSnapshotUnsupported
	}

	// ATTACH is per connection, so the whole restore runs on one pinned connection.
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE "+quoteLiteral(path)+" AS snapshot"); err != nil {
		return fmt.Errorf("attach snapshot: %w", err)
	}
	defer func() {
		if _, detachErr := conn.ExecContext(context.Background(), "DETACH DATABASE snapshot"); detachErr != nil && err == nil {
			err = fmt.Errorf("detach snapshot: %w", detachErr)
		}
	}()

	var admins int
	if err = conn.GetContext(ctx, &admins, "SELECT COUNT(*) FROM snapshot.admins"); err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range database.DataTables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM main."+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, table := range restoreTables {
		stmt := fmt.Sprintf("INSERT INTO main.%s (%s) SELECT %s FROM snapshot.%s", table.name, table.columns, table.columns, table.name)
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("copy %s: %w", table.name, err)
		}
	}
	if admins > 0 {
		if _, err = tx.ExecContext(ctx, "DELETE FROM main.admins"); err != nil {
			return fmt.Errorf("clear admins: %w", err)
		}
		stmt := fmt.Sprintf("INSERT INTO main.admins (%s) SELECT %s FROM snapshot.admins", adminColumns, adminColumns)
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("copy admins: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
