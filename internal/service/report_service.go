package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
	"github.com/noah-isme/meal-checkin-api/pkg/export"
)

// Report formats accepted by Export.
const (
	ReportFormatCSV  = "csv"
	ReportFormatPDF  = "pdf"
	ReportFormatXLSX = "xlsx"
)

var reportHeaders = []string{"No", "Time", "Student ID", "Grade", "Class", "Number", "Status", "Check"}

type checkInLogSource interface {
	ListByDate(ctx context.Context, date string) (*dto.CheckInLog, error)
	Summary(ctx context.Context, date string) (*dto.CheckInSummary, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// Report is a rendered download.
type Report struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService renders the daily check-in log as a downloadable file.
type ReportService struct {
	checkIns  checkInLogSource
	renderers map[string]datasetRenderer
	logger    *zap.Logger
}

// NewReportService constructs a ReportService with the CSV, PDF and XLSX renderers.
func NewReportService(checkIns checkInLogSource, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		checkIns: checkIns,
		renderers: map[string]datasetRenderer{
			ReportFormatCSV:  export.NewCSVExporter(true),
			ReportFormatPDF:  export.NewPDFExporter(map[string]float64{"No": 12, "Time": 24, "Student ID": 26, "Status": 40}),
			ReportFormatXLSX: export.NewXLSXExporter("Check-ins"),
		},
		logger: logger,
	}
}

// Export renders the log of date in the requested format. An empty format means CSV.
func (s *ReportService) Export(ctx context.Context, date, format string) (*Report, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ReportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}

	log, err := s.checkIns.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	summary, err := s.checkIns.Summary(ctx, log.Date)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(buildReportDataset(log, summary))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report")
	}
	s.logger.Info("check-in report exported", zap.String("date", log.Date), zap.String("format", format), zap.Int("rows", log.Count))
	return &Report{
		Filename:    fmt.Sprintf("checkins_%s.%s", log.Date, format),
		ContentType: reportContentType(format),
		Data:        data,
	}, nil
}

func buildReportDataset(log *dto.CheckInLog, summary *dto.CheckInSummary) export.Dataset {
	rows := make([]map[string]string, 0, len(log.CheckIns))
	for i, entry := range log.CheckIns {
		status := "applicant"
		switch {
		case entry.IsDuplicate:
			status = "duplicate"
		case !entry.IsApplicant:
			status = "non-applicant"
		}
		rows = append(rows, map[string]string{
			"No":         strconv.Itoa(i + 1),
			"Time":       entry.CheckedAt.Format("15:04:05"),
			"Student ID": entry.StudentID,
			"Grade":      strconv.Itoa(entry.StudentInfo.Grade),
			"Class":      strconv.Itoa(entry.StudentInfo.Class),
			"Number":     strconv.Itoa(entry.StudentInfo.Number),
			"Status":     status,
			"Check":      strconv.Itoa(entry.CheckCount),
		})
	}
	return export.Dataset{
		Title:   "Meal check-ins " + log.Date,
		Headers: reportHeaders,
		Rows:    rows,
		Footer: []string{
			fmt.Sprintf("Total: %d", summary.Total),
			fmt.Sprintf("Applicants: %d", summary.Applicants),
			fmt.Sprintf("Non-applicants: %d", summary.NonApplicants),
			fmt.Sprintf("Duplicates: %d", summary.Duplicates),
			fmt.Sprintf("Distinct students: %d", summary.DistinctStudents),
		},
	}
}

func reportContentType(format string) string {
	switch format {
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}
