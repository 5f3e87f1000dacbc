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

// AdminRepository provides database access for dashboard credentials.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository creates a new instance of AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Count returns the number of admin accounts.
func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM admins`); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return total, nil
}

// First returns the oldest admin account.
func (r *AdminRepository) First(ctx context.Context) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, `SELECT id, username, password_hash, created_at, updated_at FROM admins ORDER BY created_at ASC LIMIT 1`); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find first admin: %w", err)
	}
	return &admin, nil
}

// FindByUsername returns an admin by username.
func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.findOne(ctx, "username", username)
}

// FindByID returns an admin by identifier.
func (r *AdminRepository) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	return r.findOne(ctx, "id", id)
}

func (r *AdminRepository) findOne(ctx context.Context, column, value string) (*models.Admin, error) {
	query := r.db.Rebind(fmt.Sprintf(`SELECT id, username, password_hash, created_at, updated_at FROM admins WHERE %s = ? LIMIT 1`, column))
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, value); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find admin by %s: %w", column, err)
	}
	return &admin, nil
}

// Create inserts an admin account.
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now
	}
	admin.UpdatedAt = now
	const query = `INSERT INTO admins (id, username, password_hash, created_at, updated_at) VALUES (:id, :username, :password_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// UpdateCredentials stores a new username and password hash.
func (r *AdminRepository) UpdateCredentials(ctx context.Context, admin *models.Admin) error {
	admin.UpdatedAt = time.Now().UTC()
	const query = `UPDATE admins SET username = :username, password_hash = :password_hash, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return fmt.Errorf("update admin: %w", err)
	}
	return nil
}

// ReplaceAll deletes every admin account and inserts admin in one transaction.
func (r *AdminRepository) ReplaceAll(ctx context.Context, admin *models.Admin) (err error) {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	admin.CreatedAt, admin.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace admins: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM admins`); err != nil {
		return fmt.Errorf("clear admins: %w", err)
	}
	const query = `INSERT INTO admins (id, username, password_hash, created_at, updated_at) VALUES (:id, :username, :password_hash, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, admin); err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace admins: %w", err)
	}
	return nil
}
