package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/meal-checkin-api/pkg/database"
)

// MaintenanceRepository performs whole-dataset operations.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository constructs a MaintenanceRepository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// Reset deletes all check-ins, applicants and students in one transaction. Admin accounts survive.
func (r *MaintenanceRepository) Reset(ctx context.Context) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range database.DataTables {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}
