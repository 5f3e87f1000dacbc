package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/models"
	"github.com/noah-isme/meal-checkin-api/pkg/database"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
)

type adminRepository interface {
	Count(ctx context.Context) (int, error)
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
	FindByID(ctx context.Context, id string) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) error
	UpdateCredentials(ctx context.Context, admin *models.Admin) error
	ReplaceAll(ctx context.Context, admin *models.Admin) error
}

// AuthConfig defines configuration for admin sessions.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService provides admin authentication use cases.
type AuthService struct {
	repo      adminRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo adminRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config, now: time.Now}
}

// Login authenticates an admin and returns an access token.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid login payload")
	}

	admin, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
		}
		return nil, appErrors.Internal(err, "failed to fetch admin")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
	}

	resp, err := s.issue(admin)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin logged in", zap.String("admin_id", admin.ID))
	return resp, nil
}

// Init creates the first admin account. It fails once any admin exists.
func (s *AuthService) Init(ctx context.Context, req dto.InitAdminRequest) (*dto.AdminInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid admin payload")
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count admins")
	}
	if total > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an admin account already exists")
	}
	admin, err := s.createAdmin(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	s.logger.Info("first admin created", zap.String("admin_id", admin.ID), zap.String("username", admin.Username))
	return &dto.AdminInfo{ID: admin.ID, Username: admin.Username}, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, adminID string, req dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid change password payload")
	}
	admin, err := s.authorize(ctx, adminID, req.CurrentPassword)
	if err != nil {
		return err
	}
	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	admin.PasswordHash = hash
	if err := s.repo.UpdateCredentials(ctx, admin); err != nil {
		return appErrors.Internal(err, "failed to update password")
	}
	s.logger.Info("admin password changed", zap.String("admin_id", admin.ID))
	return nil
}

// ChangeUsername renames the admin after checking the current password.
func (s *AuthService) ChangeUsername(ctx context.Context, adminID string, req dto.ChangeUsernameRequest) (*dto.AdminInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid change username payload")
	}
	admin, err := s.authorize(ctx, adminID, req.CurrentPassword)
	if err != nil {
		return nil, err
	}
	if other, err := s.repo.FindByUsername(ctx, req.NewUsername); err == nil {
		if other.ID != admin.ID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to look up username")
	}

	admin.Username = req.NewUsername
	if err := s.repo.UpdateCredentials(ctx, admin); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
		}
		return nil, appErrors.Internal(err, "failed to update username")
	}
	s.logger.Info("admin username changed", zap.String("admin_id", admin.ID), zap.String("username", admin.Username))
	return &dto.AdminInfo{ID: admin.ID, Username: admin.Username}, nil
}

// EnsureDefaultAdmin seeds an admin from configuration when the table is empty.
// It reports whether an account was created.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username, password string) (bool, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if total > 0 {
		return false, nil
	}
	if username == "" || password == "" {
		s.logger.Warn("no admin account exists; set ADMIN_PASSWORD or call POST /auth/init")
		return false, nil
	}
	admin, err := s.createAdmin(ctx, username, password)
	if err != nil {
		return false, err
	}
	s.logger.Info("default admin created", zap.String("username", admin.Username))
	return true, nil
}

// ResetCredentials replaces every admin account with a single new one.
func (s *AuthService) ResetCredentials(ctx context.Context, req dto.InitAdminRequest) (*dto.AdminInfo, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid admin payload")
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{Username: req.Username, PasswordHash: hash}
	if err := s.repo.ReplaceAll(ctx, admin); err != nil {
		return nil, appErrors.Internal(err, "failed to replace admin accounts")
	}
	s.logger.Info("admin credentials reset", zap.String("admin_id", admin.ID), zap.String("username", admin.Username))
	return &dto.AdminInfo{ID: admin.ID, Username: admin.Username}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.AdminID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) authorize(ctx context.Context, adminID, password string) (*models.Admin, error) {
	admin, err := s.repo.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admin not found")
		}
		return nil, appErrors.Internal(err, "failed to load admin")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "current password does not match")
	}
	return admin, nil
}

func (s *AuthService) createAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{Username: username, PasswordHash: hash}
	if err := s.repo.Create(ctx, admin); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
		}
		return nil, appErrors.Internal(err, "failed to create admin")
	}
	return admin, nil
}

func (s *AuthService) issue(admin *models.Admin) (*dto.LoginResponse, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   admin.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	return &dto.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Admin:       dto.AdminInfo{ID: admin.ID, Username: admin.Username},
	}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Internal(err, "failed to hash password")
	}
	return string(hash), nil
}
