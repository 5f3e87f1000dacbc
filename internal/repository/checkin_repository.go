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

const checkInColumns = `id, student_id, check_date, is_applicant, photo_path, checked_at`

// CheckInRepository persists the append-only kiosk log.
type CheckInRepository struct {
	db *sqlx.DB
}

// NewCheckInRepository constructs a CheckInRepository.
func NewCheckInRepository(db *sqlx.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

// ListByStudentAndDate returns a student's check-ins on date, oldest first.
func (r *CheckInRepository) ListByStudentAndDate(ctx context.Context, studentID, date string) ([]models.CheckIn, error) {
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM checkins WHERE student_id = ? AND check_date = ? ORDER BY checked_at ASC, id ASC`, checkInColumns))
	var rows []models.CheckIn
	if err := r.db.SelectContext(ctx, &rows, query, studentID, date); err != nil {
		return nil, fmt.Errorf("list student check-ins: %w", err)
	}
	return rows, nil
}

// ListByDate returns every check-in of date, oldest first.
func (r *CheckInRepository) ListByDate(ctx context.Context, date string) ([]models.CheckIn, error) {
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM checkins WHERE check_date = ? ORDER BY checked_at ASC, id ASC`, checkInColumns))
	var rows []models.CheckIn
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return rows, nil
}

// Create appends a check-in.
func (r *CheckInRepository) Create(ctx context.Context, checkIn *models.CheckIn) error {
	if checkIn.ID == "" {
		checkIn.ID = uuid.NewString()
	}
	if checkIn.CheckedAt.IsZero() {
		checkIn.CheckedAt = time.Now()
	}
	const query = `INSERT INTO checkins (id, student_id, check_date, is_applicant, photo_path, checked_at)
        VALUES (:id, :student_id, :check_date, :is_applicant, :photo_path, :checked_at)`
	if _, err := r.db.NamedExecContext(ctx, query, checkIn); err != nil {
		return fmt.Errorf("create check-in: %w", err)
	}
	return nil
}

// FindByID fetches one check-in. sql.ErrNoRows is returned unwrapped.
func (r *CheckInRepository) FindByID(ctx context.Context, id string) (*models.CheckIn, error) {
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM checkins WHERE id = ? LIMIT 1`, checkInColumns))
	var row models.CheckIn
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find check-in: %w", err)
	}
	return &row, nil
}

// Delete removes a check-in and reports whether it existed.
func (r *CheckInRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM checkins WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("delete check-in: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete check-in rows: %w", err)
	}
	return affected > 0, nil
}
