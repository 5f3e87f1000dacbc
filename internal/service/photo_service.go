package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/period"
	"github.com/noah-isme/meal-checkin-api/pkg/storage"
	"github.com/noah-isme/meal-checkin-api/pkg/studentid"
)

var photoPathPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})/(\d{5})_\d+\.jpg$`)

var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

type photoFiles interface {
	SaveStream(name string, r io.Reader, limit int64) (string, error)
	Open(name string) (*os.File, error)
}

type photoSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string) (subject, relPath string, expiresAt time.Time, err error)
}

// PhotoConfig configures capture limits and the public URL base.
type PhotoConfig struct {
	MaxFileSizeBytes int64
	// URLPath is the route that serves signed photos, e.g. "/api/v1/photos".
	URLPath string
}

// PhotoService stores kiosk camera captures and serves them through signed links.
type PhotoService struct {
	files  photoFiles
	signer photoSigner
	clock  *period.Clock
	logger *zap.Logger
	cfg    PhotoConfig
}

// NewPhotoService constructs a PhotoService.
func NewPhotoService(files photoFiles, signer photoSigner, clock *period.Clock, logger *zap.Logger, cfg PhotoConfig) *PhotoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = period.NewClock(nil, nil)
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	return &PhotoService{files: files, signer: signer, clock: clock, logger: logger, cfg: cfg}
}

// Save stores a JPEG capture as <date>/<studentId>_<unixMillis>.jpg and returns the relative path.
func (s *PhotoService) Save(ctx context.Context, studentID string, image io.Reader) (*dto.PhotoUploadResult, error) {
	if _, err := studentid.Parse(studentID); err != nil {
		return nil, appErrors.Validation(err, "invalid student id")
	}

	head := make([]byte, len(jpegMagic))
	n, err := io.ReadFull(image, head)
	if err != nil || n != len(jpegMagic) || !bytes.Equal(head, jpegMagic) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "photo must be a JPEG image")
	}

	now := s.clock.Now()
	name := fmt.Sprintf("%s/%s_%d.jpg", period.Date(now), studentID, now.UnixMilli())
	stored, err := s.files.SaveStream(name, io.MultiReader(bytes.NewReader(head), image), s.cfg.MaxFileSizeBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "photo exceeds the size limit")
		}
		return nil, appErrors.Internal(err, "failed to store photo")
	}
	s.logger.Debug("photo stored", zap.String("student_id", studentID), zap.String("path", stored))
	return &dto.PhotoUploadResult{PhotoPath: stored}, nil
}

// ValidPath reports whether photoPath is a capture of studentID.
func (s *PhotoService) ValidPath(studentID, photoPath string) bool {
	m := photoPathPattern.FindStringSubmatch(photoPath)
	return m != nil && m[2] == studentID && period.IsValidDate(m[1])
}

// URL returns a signed link for a stored capture, or "" when signing fails.
func (s *PhotoService) URL(studentID, photoPath string) string {
	token, _, err := s.signer.Generate(studentID, photoPath)
	if err != nil {
		s.logger.Warn("photo link signing failed", zap.String("path", photoPath), zap.Error(err))
		return ""
	}
	return s.cfg.URLPath + "?token=" + url.QueryEscape(token)
}

// Open validates a signed token and returns the referenced file.
func (s *PhotoService) Open(ctx context.Context, token string) (*os.File, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	subject, photoPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired photo link")
	}
	if !s.ValidPath(subject, photoPath) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid photo link")
	}
	file, err := s.files.Open(photoPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "photo not found")
		}
		return nil, appErrors.Internal(err, "failed to open photo")
	}
	return file, nil
}
