package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/models"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/database"
	"github.com/noah-isme/meal-checkin-api/pkg/period"
	"github.com/noah-isme/meal-checkin-api/pkg/studentid"
)

type applicantRepository interface {
	ListByPeriod(ctx context.Context, period string) ([]models.Applicant, error)
	Create(ctx context.Context, applicant *models.Applicant) error
	Delete(ctx context.Context, studentID, period string) (bool, error)
}

// ApplicantService manages the current period's roster one student at a time.
type ApplicantService struct {
	repo      applicantRepository
	clock     *period.Clock
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApplicantService constructs an ApplicantService.
func NewApplicantService(repo applicantRepository, clock *period.Clock, validate *validator.Validate, logger *zap.Logger) *ApplicantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = studentid.NewValidator()
	}
	if clock == nil {
		clock = period.NewClock(nil, nil)
	}
	return &ApplicantService{repo: repo, clock: clock, validator: validate, logger: logger}
}

// ListCurrent returns the roster of the current period ordered by student id.
func (s *ApplicantService) ListCurrent(ctx context.Context) (*dto.ApplicantRoster, error) {
	month := s.clock.CurrentMonth()
	applicants, err := s.repo.ListByPeriod(ctx, month)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list applicants")
	}
	views := make([]dto.ApplicantView, 0, len(applicants))
	for _, a := range applicants {
		views = append(views, dto.ApplicantView{ID: a.ID, StudentID: a.StudentID, CreatedAt: a.CreatedAt})
	}
	return &dto.ApplicantRoster{Period: month, Count: len(views), Applicants: views}, nil
}

// Add approves a student for the current period.
func (s *ApplicantService) Add(ctx context.Context, req dto.AddApplicantRequest) (*dto.ApplicantView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student id")
	}
	applicant := &models.Applicant{StudentID: req.StudentID, Period: s.clock.CurrentMonth()}
	if err := s.repo.Create(ctx, applicant); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already an applicant this month")
		}
		return nil, appErrors.Internal(err, "failed to add applicant")
	}
	s.logger.Info("applicant added", zap.String("student_id", applicant.StudentID), zap.String("period", applicant.Period))
	return &dto.ApplicantView{ID: applicant.ID, StudentID: applicant.StudentID, CreatedAt: applicant.CreatedAt}, nil
}

// Remove withdraws a student from the current period.
func (s *ApplicantService) Remove(ctx context.Context, studentID string) error {
	if _, err := studentid.Parse(studentID); err != nil {
		return appErrors.Validation(err, "invalid student id")
	}
	month := s.clock.CurrentMonth()
	removed, err := s.repo.Delete(ctx, studentID, month)
	if err != nil {
		return appErrors.Internal(err, "failed to remove applicant")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "student is not an applicant this month")
	}
	s.logger.Info("applicant removed", zap.String("student_id", studentID), zap.String("period", month))
	return nil
}
