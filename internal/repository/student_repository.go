package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/meal-checkin-api/internal/models"
)

const studentColumns = `id, card_id, student_id, pin_hash, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters ordered by student id.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, "(student_id LIKE ? OR card_id LIKE ?)")
		pattern := "%" + strings.TrimSpace(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if filter.HasCard != nil {
		if *filter.HasCard {
			conditions = append(conditions, "card_id IS NOT NULL")
		} else {
			conditions = append(conditions, "card_id IS NULL")
		}
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM students%s ORDER BY student_id ASC LIMIT %d OFFSET %d", studentColumns, where, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM students"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByCardID returns the student linked to a card. sql.ErrNoRows is returned unwrapped.
func (r *StudentRepository) FindByCardID(ctx context.Context, cardID string) (*models.Student, error) {
	return r.findOne(ctx, "card_id", cardID)
}

// FindByStudentID returns the student with the given 5-digit id. sql.ErrNoRows is returned unwrapped.
func (r *StudentRepository) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	return r.findOne(ctx, "student_id", studentID)
}

func (r *StudentRepository) findOne(ctx context.Context, column, value string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students WHERE %s = ? LIMIT 1", studentColumns, column)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, r.db.Rebind(query), value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by %s: %w", column, err)
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, card_id, student_id, pin_hash, created_at, updated_at)
        VALUES (:id, :card_id, :student_id, :pin_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update persists the card link and PIN hash of an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET card_id = :card_id, pin_hash = :pin_hash, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// DeleteWithCheckIns removes a student and every check-in recorded for them in one transaction.
// Applicant rows are left untouched. sql.ErrNoRows is returned when the student does not exist.
func (r *StudentRepository) DeleteWithCheckIns(ctx context.Context, studentID string) (removed int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete student: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM checkins WHERE student_id = ?`), studentID)
	if err != nil {
		return 0, fmt.Errorf("delete student check-ins: %w", err)
	}
	removed, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM students WHERE student_id = ?`), studentID)
	if err != nil {
		return 0, fmt.Errorf("delete student: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = sql.ErrNoRows
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete student: %w", err)
	}
	return removed, nil
}
