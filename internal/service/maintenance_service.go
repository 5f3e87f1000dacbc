package service

import (
	"context"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
)

type maintenanceRepository interface {
	Reset(ctx context.Context) error
}

// MaintenanceService wipes the dataset while keeping admin accounts.
type MaintenanceService struct {
	repo   maintenanceRepository
	cache  *CacheService
	logger *zap.Logger
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(repo maintenanceRepository, cache *CacheService, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{repo: repo, cache: cache, logger: logger}
}

// Reset deletes all check-ins, applicants and students.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return appErrors.Internal(err, "failed to reset data")
	}
	s.cache.InvalidateAll(ctx)
	s.logger.Warn("all check-ins, applicants and students deleted")
	return nil
}
