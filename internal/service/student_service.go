package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/models"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/database"
	"github.com/noah-isme/meal-checkin-api/pkg/studentid"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByCardID(ctx context.Context, cardID string) (*models.Student, error)
	FindByStudentID(ctx context.Context, studentID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	DeleteWithCheckIns(ctx context.Context, studentID string) (int64, error)
}

// StudentService implements kiosk registration and the admin student registry.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	hashCost  int
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = studentid.NewValidator()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger, hashCost: bcrypt.DefaultCost}
}

// List returns students ordered by student id with decoded grade/class/number.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]dto.StudentView, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	views := make([]dto.StudentView, 0, len(students))
	for i := range students {
		views = append(views, toStudentView(&students[i]))
	}
	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 500 {
		size = 100
	}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create adds a student from the dashboard. The card is optional.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*dto.StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	if req.CardID != "" {
		if err := s.ensureCardFree(ctx, req.CardID, ""); err != nil {
			return nil, err
		}
	}
	if _, err := s.repo.FindByStudentID(ctx, req.StudentID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student id is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to look up student")
	}

	student, err := s.newStudent(req.CardID, req.StudentID, req.PIN)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, student); err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.String("student_id", student.StudentID), zap.Bool("has_card", student.HasCard()))
	view := toStudentView(student)
	return &view, nil
}

// Update changes the PIN and/or card of a student.
func (s *StudentService) Update(ctx context.Context, studentID string, req dto.UpdateStudentRequest) (*dto.StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	if req.NewPIN == "" && req.NewCardID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	student, err := s.find(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if req.NewCardID != "" {
		if err := s.ensureCardFree(ctx, req.NewCardID, student.StudentID); err != nil {
			return nil, err
		}
		card := req.NewCardID
		student.CardID = &card
	}
	if req.NewPIN != "" {
		hash, err := s.hashPIN(req.NewPIN)
		if err != nil {
			return nil, err
		}
		student.PINHash = &hash
	}
	if err := s.update(ctx, student); err != nil {
		return nil, err
	}
	s.logger.Info("student updated", zap.String("student_id", student.StudentID), zap.Bool("card_changed", req.NewCardID != ""), zap.Bool("pin_changed", req.NewPIN != ""))
	view := toStudentView(student)
	return &view, nil
}

// Delete removes a student and their check-ins. Applicant rows are kept.
func (s *StudentService) Delete(ctx context.Context, studentID string) error {
	if _, err := studentid.Parse(studentID); err != nil {
		return appErrors.Validation(err, "invalid student id")
	}
	removed, err := s.repo.DeleteWithCheckIns(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Internal(err, "failed to delete student")
	}
	if removed > 0 {
		s.cache.InvalidateAll(ctx)
	}
	s.logger.Info("student deleted", zap.String("student_id", studentID), zap.Int64("check_ins_removed", removed))
	return nil
}

// Lookup reports whether a student id is registered, used by the kiosk before registration.
func (s *StudentService) Lookup(ctx context.Context, req dto.LookupStudentRequest) (*dto.LookupStudentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student id")
	}
	result := &dto.LookupStudentResult{StudentID: req.StudentID}
	student, err := s.repo.FindByStudentID(ctx, req.StudentID)
	switch {
	case err == nil:
		result.Exists = true
		result.HasPIN = student.HasPIN()
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to look up student")
	}
	return result, nil
}

// Register is kiosk self-registration. With a card, an existing student id is merged when the PIN matches
// (or no PIN was ever set). Without a card, only new student ids are accepted.
func (s *StudentService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid registration payload")
	}

	existing, err := s.repo.FindByStudentID(ctx, req.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to look up student")
	}

	if req.CardID != "" {
		if err := s.ensureCardFree(ctx, req.CardID, ""); err != nil {
			return nil, err
		}
		if existing != nil {
			return s.mergeCard(ctx, existing, req.CardID, req.PIN)
		}
	} else if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student id is already registered")
	}

	student, err := s.newStudent(req.CardID, req.StudentID, req.PIN)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, student); err != nil {
		return nil, err
	}
	s.logger.Info("student registered", zap.String("student_id", student.StudentID), zap.Bool("has_card", student.HasCard()))
	return &dto.RegisterResult{Student: toStudentView(student)}, nil
}

// ChangePIN replaces the PIN of the student holding the card.
func (s *StudentService) ChangePIN(ctx context.Context, req dto.ChangePINRequest) (*dto.StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid pin change payload")
	}
	student, err := s.repo.FindByCardID(ctx, req.CardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "card is not registered")
		}
		return nil, appErrors.Internal(err, "failed to look up card")
	}
	hash, err := s.hashPIN(req.NewPIN)
	if err != nil {
		return nil, err
	}
	student.PINHash = &hash
	if err := s.update(ctx, student); err != nil {
		return nil, err
	}
	s.logger.Info("student pin changed", zap.String("student_id", student.StudentID))
	view := toStudentView(student)
	return &view, nil
}

func (s *StudentService) mergeCard(ctx context.Context, student *models.Student, cardID, pin string) (*dto.RegisterResult, error) {
	if student.HasPIN() {
		if bcrypt.CompareHashAndPassword([]byte(*student.PINHash), []byte(pin)) != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidPIN, "student is already registered; check the pin")
		}
	} else {
		hash, err := s.hashPIN(pin)
		if err != nil {
			return nil, err
		}
		student.PINHash = &hash
	}
	student.CardID = &cardID
	if err := s.update(ctx, student); err != nil {
		return nil, err
	}
	s.logger.Info("card linked to existing student", zap.String("student_id", student.StudentID))
	return &dto.RegisterResult{Student: toStudentView(student), Merged: true}, nil
}

func (s *StudentService) ensureCardFree(ctx context.Context, cardID, owner string) error {
	holder, err := s.repo.FindByCardID(ctx, cardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Internal(err, "failed to look up card")
	}
	if owner != "" && holder.StudentID == owner {
		return nil
	}
	return appErrors.Clone(appErrors.ErrConflict, "card is already registered")
}

func (s *StudentService) find(ctx context.Context, studentID string) (*models.Student, error) {
	if _, err := studentid.Parse(studentID); err != nil {
		return nil, appErrors.Validation(err, "invalid student id")
	}
	student, err := s.repo.FindByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Internal(err, "failed to look up student")
	}
	return student, nil
}

func (s *StudentService) newStudent(cardID, studentID, pin string) (*models.Student, error) {
	hash, err := s.hashPIN(pin)
	if err != nil {
		return nil, err
	}
	student := &models.Student{StudentID: studentID, PINHash: &hash}
	if cardID != "" {
		student.CardID = &cardID
	}
	return student, nil
}

// create and update map races on the unique columns to 409.
func (s *StudentService) create(ctx context.Context, student *models.Student) error {
	if err := s.repo.Create(ctx, student); err != nil {
		if database.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "student or card is already registered")
		}
		return appErrors.Internal(err, "failed to create student")
	}
	return nil
}

func (s *StudentService) update(ctx context.Context, student *models.Student) error {
	if err := s.repo.Update(ctx, student); err != nil {
		if database.IsUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "card is already registered")
		}
		return appErrors.Internal(err, "failed to update student")
	}
	return nil
}

func (s *StudentService) hashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.hashCost)
	if err != nil {
		return "", appErrors.Internal(err, "failed to hash pin")
	}
	return string(hash), nil
}

func toStudentView(student *models.Student) dto.StudentView {
	info, _ := studentid.Parse(student.StudentID)
	return dto.StudentView{
		ID:          student.ID,
		StudentID:   student.StudentID,
		CardID:      student.CardID,
		HasCard:     student.HasCard(),
		HasPIN:      student.HasPIN(),
		StudentInfo: info,
		CreatedAt:   student.CreatedAt,
		UpdatedAt:   student.UpdatedAt,
	}
}
