package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/meal-checkin-api/internal/models"
)

// ApplicantRepository stores the per-period meal roster.
type ApplicantRepository struct {
	db *sqlx.DB
}

// NewApplicantRepository constructs an ApplicantRepository.
func NewApplicantRepository(db *sqlx.DB) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

// Exists reports whether the student is on the roster for period.
func (r *ApplicantRepository) Exists(ctx context.Context, studentID, period string) (bool, error) {
	var exists int
	query := r.db.Rebind(`SELECT 1 FROM applicants WHERE student_id = ? AND period = ? LIMIT 1`)
	if err := r.db.GetContext(ctx, &exists, query, studentID, period); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check applicant: %w", err)
	}
	return true, nil
}

// ListByPeriod returns the roster of a period ordered by student id.
func (r *ApplicantRepository) ListByPeriod(ctx context.Context, period string) ([]models.Applicant, error) {
	query := r.db.Rebind(`SELECT id, student_id, period, created_at FROM applicants WHERE period = ? ORDER BY student_id ASC`)
	var applicants []models.Applicant
	if err := r.db.SelectContext(ctx, &applicants, query, period); err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	return applicants, nil
}

// Create inserts a single applicant. A duplicate surfaces as a unique violation.
func (r *ApplicantRepository) Create(ctx context.Context, applicant *models.Applicant) error {
	if applicant.ID == "" {
		applicant.ID = uuid.NewString()
	}
	if applicant.CreatedAt.IsZero() {
		applicant.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO applicants (id, student_id, period, created_at) VALUES (:id, :student_id, :period, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, applicant); err != nil {
		return fmt.Errorf("create applicant: %w", err)
	}
	return nil
}

// Delete removes a student from a period's roster and reports whether a row existed.
func (r *ApplicantRepository) Delete(ctx context.Context, studentID, period string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM applicants WHERE student_id = ? AND period = ?`), studentID, period)
	if err != nil {
		return false, fmt.Errorf("delete applicant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete applicant rows: %w", err)
	}
	return affected > 0, nil
}

// MergePeriod adds studentIDs to the period, skipping ones already present, and returns how many were inserted.
func (r *ApplicantRepository) MergePeriod(ctx context.Context, period string, studentIDs []string) (int, error) {
	return r.writePeriod(ctx, period, studentIDs, false)
}

// ReplacePeriod swaps the period's roster for studentIDs atomically and returns how many were inserted.
func (r *ApplicantRepository) ReplacePeriod(ctx context.Context, period string, studentIDs []string) (int, error) {
	return r.writePeriod(ctx, period, studentIDs, true)
}

func (r *ApplicantRepository) writePeriod(ctx context.Context, period string, studentIDs []string, replace bool) (created int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin roster write: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if replace {
		if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM applicants WHERE period = ?`), period); err != nil {
			return 0, fmt.Errorf("clear applicants: %w", err)
		}
	}

	insert := tx.Rebind(`INSERT INTO applicants (id, student_id, period, created_at) VALUES (?, ?, ?, ?)
        ON CONFLICT (student_id, period) DO NOTHING`)
	now := time.Now().UTC()
	for _, studentID := range studentIDs {
		var res sql.Result
		res, err = tx.ExecContext(ctx, insert, uuid.NewString(), studentID, period, now)
		if err != nil {
			return 0, fmt.Errorf("insert applicant %s: %w", studentID, err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			created++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit roster write: %w", err)
	}
	return created, nil
}
