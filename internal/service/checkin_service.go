package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/models"
	"github.com/noah-isme/meal-checkin-api/internal/repository"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/period"
	"github.com/noah-isme/meal-checkin-api/pkg/studentid"
)

type checkInStudentRepository interface {
	FindByCardID(ctx context.Context, cardID string) (*models.Student, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
}

type checkInApplicantRepository interface {
	Exists(ctx context.Context, studentID, period string) (bool, error)
}

type checkInRepository interface {
	ListByStudentAndDate(ctx context.Context, studentID, date string) ([]models.CheckIn, error)
	ListByDate(ctx context.Context, date string) ([]models.CheckIn, error)
	Create(ctx context.Context, checkIn *models.CheckIn) error
	FindByID(ctx context.Context, id string) (*models.CheckIn, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// UnregisteredCardError is wrapped by the needs-registration error so callers can recover the card id.
type UnregisteredCardError struct {
	CardID string
}

func (e *UnregisteredCardError) Error() string {
	return "card " + e.CardID + " is not registered"
}

// photoLinker turns a stored photo path into a time-limited URL.
type photoLinker interface {
	URL(studentID, photoPath string) string
	ValidPath(studentID, photoPath string) bool
}

// CheckInService classifies kiosk taps and serves the daily log.
type CheckInService struct {
	students   checkInStudentRepository
	applicants checkInApplicantRepository
	checkIns   checkInRepository
	photos     photoLinker
	cache      *CacheService
	metrics    *MetricsService
	clock      *period.Clock
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCheckInService wires the classifier. photos, cache and metrics may be nil.
func NewCheckInService(students checkInStudentRepository, applicants checkInApplicantRepository, checkIns checkInRepository, photos photoLinker, cache *CacheService, metrics *MetricsService, clock *period.Clock, validate *validator.Validate, logger *zap.Logger) *CheckInService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = studentid.NewValidator()
	}
	if clock == nil {
		clock = period.NewClock(nil, nil)
	}
	return &CheckInService{
		students:   students,
		applicants: applicants,
		checkIns:   checkIns,
		photos:     photos,
		cache:      cache,
		metrics:    metrics,
		clock:      clock,
		validator:  validate,
		logger:     logger,
	}
}

// CheckIn records one kiosk attempt and reports whether the student may eat.
// Every attempt is appended, including duplicates and non-applicants.
func (s *CheckInService) CheckIn(ctx context.Context, req dto.CheckInRequest) (*dto.CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid check-in payload")
	}
	cardID, studentID, err := resolveInput(req)
	if err != nil {
		return nil, err
	}

	student, err := s.resolveStudent(ctx, cardID, studentID)
	if err != nil {
		return nil, err
	}
	if req.PIN != "" && student.HasPIN() {
		if bcrypt.CompareHashAndPassword([]byte(*student.PINHash), []byte(req.PIN)) != nil {
			return nil, appErrors.ErrInvalidPIN
		}
	}

	var photoPath *string
	if req.PhotoPath != "" {
		if s.photos == nil || !s.photos.ValidPath(student.StudentID, req.PhotoPath) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "photo path does not belong to this student")
		}
		photoPath = &req.PhotoPath
	}

	now := s.clock.Now()
	date := period.Date(now)
	month := period.Month(now)

	isApplicant, err := s.applicants.Exists(ctx, student.StudentID, month)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to resolve applicant status")
	}
	prior, err := s.checkIns.ListByStudentAndDate(ctx, student.StudentID, date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load today's check-ins")
	}

	isDuplicate := false
	if isApplicant {
		for _, row := range prior {
			if row.IsApplicant {
				isDuplicate = true
				break
			}
		}
	}

	row := &models.CheckIn{
		StudentID:   student.StudentID,
		Date:        date,
		IsApplicant: isApplicant,
		PhotoPath:   photoPath,
		CheckedAt:   now,
	}
	if err := s.checkIns.Create(ctx, row); err != nil {
		return nil, appErrors.Internal(err, "failed to record check-in")
	}
	s.cache.Invalidate(ctx, repository.CheckInLogKey(date))

	info, _ := studentid.Parse(student.StudentID)
	result := &dto.CheckInResult{
		CheckInID:        row.ID,
		StudentID:        student.StudentID,
		StudentInfo:      info,
		Period:           month,
		Date:             date,
		IsApplicant:      isApplicant,
		IsDuplicate:      isDuplicate,
		CheckCount:       len(prior) + 1,
		FirstCheckInTime: firstCheckInTime(prior, now),
		CheckedAt:        now,
	}

	outcome := OutcomeAdmitted
	switch {
	case isDuplicate:
		outcome = OutcomeDuplicate
		result.Message = fmt.Sprintf("%s - already checked in today", info.Formatted)
	case isApplicant:
		result.Message = fmt.Sprintf("%s - meal applicant", info.Formatted)
	default:
		outcome = OutcomeNonApplicant
		result.Message = fmt.Sprintf("%s - not a meal applicant", info.Formatted)
	}
	s.metrics.RecordCheckIn(outcome)

	s.logger.Info("check-in recorded",
		zap.String("student_id", student.StudentID),
		zap.String("outcome", outcome),
		zap.Int("check_count", result.CheckCount),
	)
	return result, nil
}

// ListByDate returns the log of a date with duplicate flags and per-student ordinals.
func (s *CheckInService) ListByDate(ctx context.Context, date string) (*dto.CheckInLog, error) {
	if date == "" {
		date = s.clock.Today()
	}
	if !period.IsValidDate(date) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	key := repository.CheckInLogKey(date)
	var cached dto.CheckInLog
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	rows, err := s.checkIns.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load check-ins")
	}
	log := s.buildLog(date, rows)
	s.cache.Set(ctx, key, log)
	return log, nil
}

// Today returns the log for the current local date.
func (s *CheckInService) Today(ctx context.Context) (*dto.CheckInLog, error) {
	return s.ListByDate(ctx, s.clock.Today())
}

// Summary aggregates the log of a date.
func (s *CheckInService) Summary(ctx context.Context, date string) (*dto.CheckInSummary, error) {
	log, err := s.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	summary := &dto.CheckInSummary{Date: log.Date, Total: len(log.CheckIns)}
	distinct := make(map[string]struct{})
	for _, entry := range log.CheckIns {
		distinct[entry.StudentID] = struct{}{}
		if entry.IsApplicant {
			summary.Applicants++
		} else {
			summary.NonApplicants++
		}
		if entry.IsDuplicate {
			summary.Duplicates++
		}
	}
	summary.DistinctStudents = len(distinct)
	return summary, nil
}

// Cancel deletes a single check-in.
func (s *CheckInService) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "check-in id is required")
	}
	row, err := s.checkIns.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "check-in not found")
		}
		return appErrors.Internal(err, "failed to load check-in")
	}
	removed, err := s.checkIns.Delete(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to cancel check-in")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "check-in not found")
	}
	s.cache.Invalidate(ctx, repository.CheckInLogKey(row.Date))
	s.logger.Info("check-in cancelled", zap.String("check_in_id", id))
	return nil
}

func (s *CheckInService) buildLog(date string, rows []models.CheckIn) *dto.CheckInLog {
	duplicate, ordinal := models.CheckInDuplicates(rows)
	entries := make([]dto.CheckInLogEntry, 0, len(rows))
	for i, row := range rows {
		entry := dto.CheckInLogEntry{
			ID:          row.ID,
			StudentID:   row.StudentID,
			IsApplicant: row.IsApplicant,
			IsDuplicate: duplicate[i],
			CheckCount:  ordinal[i],
			CheckedAt:   row.CheckedAt.In(s.clock.Location()),
		}
		if info, err := studentid.Parse(row.StudentID); err == nil {
			entry.StudentInfo = info
		}
		if row.PhotoPath != nil && s.photos != nil {
			entry.PhotoURL = s.photos.URL(row.StudentID, *row.PhotoPath)
		}
		entries = append(entries, entry)
	}
	return &dto.CheckInLog{Date: date, Count: len(entries), CheckIns: entries}
}

func (s *CheckInService) resolveStudent(ctx context.Context, cardID, studentID string) (*models.Student, error) {
	if cardID != "" {
		student, err := s.students.FindByCardID(ctx, cardID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.metrics.RecordCheckIn(OutcomeNeedsRegistration)
				return nil, appErrors.Wrap(&UnregisteredCardError{CardID: cardID}, appErrors.ErrNeedsRegistration.Code,
					appErrors.ErrNeedsRegistration.Status, appErrors.ErrNeedsRegistration.Message)
			}
			return nil, appErrors.Internal(err, "failed to look up card")
		}
		return student, nil
	}

	student, err := s.students.FindByStudentID(ctx, studentID)
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to look up student")
	}

	// Unknown ids typed at the kiosk become cardless students without a PIN.
	student = &models.Student{StudentID: studentID}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Internal(err, "failed to register student")
	}
	s.logger.Info("cardless student auto-registered", zap.String("student_id", studentID))
	return student, nil
}

func resolveInput(req dto.CheckInRequest) (cardID, studentID string, err error) {
	cardID, studentID = req.CardID, req.StudentID
	if cardID == "" && studentID == "" && req.Input != "" {
		switch studentid.Classify(req.Input) {
		case studentid.InputCard:
			cardID = req.Input
		case studentid.InputStudentID:
			studentID = req.Input
		default:
			return "", "", appErrors.Clone(appErrors.ErrValidation, "input must be a 10-digit card id or a 5-digit student id")
		}
	}
	if cardID == "" && studentID == "" {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "card_id or student_id is required")
	}
	if cardID == "" {
		if _, perr := studentid.Parse(studentID); perr != nil {
			return "", "", appErrors.Validation(perr, "invalid student id")
		}
	}
	return cardID, studentID, nil
}

// firstCheckInTime prefers the earliest applicant admission, then the earliest attempt, then now.
func firstCheckInTime(prior []models.CheckIn, now time.Time) time.Time {
	for _, row := range prior {
		if row.IsApplicant {
			return row.CheckedAt
		}
	}
	if len(prior) > 0 {
		return prior[0].CheckedAt
	}
	return now
}
