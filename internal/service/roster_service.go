package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/period"
	"github.com/noah-isme/meal-checkin-api/pkg/studentid"
)

type rosterApplicantRepository interface {
	MergePeriod(ctx context.Context, period string, studentIDs []string) (int, error)
	ReplacePeriod(ctx context.Context, period string, studentIDs []string) (int, error)
}

// RosterUpload is one uploaded spreadsheet.
type RosterUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
	Replace  bool
}

// RosterScan is the result of scanning a sheet: unique valid ids in first-seen order plus per-cell problems.
type RosterScan struct {
	StudentIDs []string
	Errors     []string
}

// RosterService ingests applicant rosters from spreadsheets.
type RosterService struct {
	applicants rosterApplicantRepository
	metrics    *MetricsService
	clock      *period.Clock
	logger     *zap.Logger
	maxSize    int64
}

// NewRosterService constructs a RosterService.
func NewRosterService(applicants rosterApplicantRepository, metrics *MetricsService, clock *period.Clock, logger *zap.Logger, maxSize int64) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = period.NewClock(nil, nil)
	}
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	return &RosterService{applicants: applicants, metrics: metrics, clock: clock, logger: logger, maxSize: maxSize}
}

// Upload scans the file and writes the current period's applicants, merging or replacing.
func (s *RosterService) Upload(ctx context.Context, upload RosterUpload) (*dto.RosterUploadResult, error) {
	if upload.Content == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "roster file exceeds the size limit")
	}

	var (
		scan *RosterScan
		err  error
	)
	switch strings.ToLower(filepath.Ext(upload.Filename)) {
	case ".xlsx", ".xlsm":
		scan, err = ScanWorkbook(io.LimitReader(upload.Content, s.maxSize))
	case ".csv":
		scan, err = ScanCSV(io.LimitReader(upload.Content, s.maxSize))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster must be an .xlsx or .csv file")
	}
	if err != nil {
		return nil, appErrors.Validation(err, "could not read roster file")
	}
	if len(scan.StudentIDs) == 0 {
		return nil, &appErrors.Error{
			Code:    appErrors.ErrValidation.Code,
			Status:  appErrors.ErrValidation.Status,
			Message: "no valid student ids found; student ids are 5 digits",
			Err:     &RosterErrors{Errors: scan.Errors},
		}
	}

	month := s.clock.CurrentMonth()
	var created int
	if upload.Replace {
		created, err = s.applicants.ReplacePeriod(ctx, month, scan.StudentIDs)
	} else {
		created, err = s.applicants.MergePeriod(ctx, month, scan.StudentIDs)
	}
	s.metrics.RecordRosterUpload(upload.Replace, created, err)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to save applicants")
	}

	s.logger.Info("roster uploaded",
		zap.String("period", month),
		zap.Bool("replace", upload.Replace),
		zap.Int("found", len(scan.StudentIDs)),
		zap.Int("created", created),
		zap.Int("errors", len(scan.Errors)),
	)
	return &dto.RosterUploadResult{
		Period:   month,
		Found:    len(scan.StudentIDs),
		Created:  created,
		Replaced: upload.Replace,
		Errors:   scan.Errors,
	}, nil
}

// RosterErrors carries per-cell problems of a rejected upload.
type RosterErrors struct {
	Errors []string
}

func (e *RosterErrors) Error() string {
	return fmt.Sprintf("%d invalid cells", len(e.Errors))
}

// ScanWorkbook reads every cell of the first sheet of an xlsx workbook.
func ScanWorkbook(r io.Reader) (*RosterScan, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return scanRows(rows)
}

// ScanCSV applies the workbook rules to a CSV file.
func ScanCSV(r io.Reader) (*RosterScan, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return scanRows(rows)
}

// scanRows keeps exact 5-digit cells that satisfy the student id rule. Other 5-digit cells are reported
// by address; cells of any other shape are ignored silently.
func scanRows(rows [][]string) (*RosterScan, error) {
	scan := &RosterScan{}
	seen := make(map[string]struct{})
	for r, row := range rows {
		for c, raw := range row {
			value := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
			if !studentid.LooksLikeStudentID(value) {
				continue
			}
			if _, err := studentid.Parse(value); err != nil {
				cell, cerr := excelize.CoordinatesToCellName(c+1, r+1)
				if cerr != nil {
					return nil, cerr
				}
				scan.Errors = append(scan.Errors, fmt.Sprintf("%s: invalid student id (%s)", cell, value))
				continue
			}
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			scan.StudentIDs = append(scan.StudentIDs, value)
		}
	}
	return scan, nil
}
