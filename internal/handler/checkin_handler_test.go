package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/middleware"
	"github.com/noah-isme/meal-checkin-api/internal/service"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
)

type checkInLogMock struct {
	date     string
	canceled string
	err      error
}

func (m *checkInLogMock) ListByDate(ctx context.Context, date string) (*dto.CheckInLog, error) {
	m.date = date
	if m.err != nil {
		return nil, m.err
	}
	if date == "" {
		date = "2026-10-17"
	}
	return &dto.CheckInLog{Date: date, Count: 1, CheckIns: []dto.CheckInLogEntry{{ID: "c1", StudentID: "20701"}}}, nil
}

func (m *checkInLogMock) Summary(ctx context.Context, date string) (*dto.CheckInSummary, error) {
	return &dto.CheckInSummary{Date: date, Total: 3, Applicants: 2, NonApplicants: 1}, m.err
}

func (m *checkInLogMock) Cancel(ctx context.Context, id string) error {
	m.canceled = id
	return m.err
}

type reportExporterMock struct {
	format string
	err    error
}

func (m *reportExporterMock) Export(ctx context.Context, date, format string) (*service.Report, error) {
	m.format = format
	if m.err != nil {
		return nil, m.err
	}
	return &service.Report{Filename: "checkins_" + date + ".csv", ContentType: "text/csv", Data: []byte("No,Time\n")}, nil
}

func TestCheckInHandlerListAddsDateMeta(t *testing.T) {
	handler := NewCheckInHandler(&checkInLogMock{}, &reportExporterMock{})
	c, w := newGinContext(http.MethodGet, "/admin/checkins", nil)
	middleware.WithResponseMeta()(c)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "2026-10-17", env.Meta["date"])
	assert.Contains(t, env.Meta, "processing_time_ms")
}

func TestCheckInHandlerListInvalidDate(t *testing.T) {
	handler := NewCheckInHandler(&checkInLogMock{err: appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")}, &reportExporterMock{})
	c, w := newGinContext(http.MethodGet, "/admin/checkins?date=17-10-2026", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckInHandlerExport(t *testing.T) {
	reports := &reportExporterMock{}
	handler := NewCheckInHandler(&checkInLogMock{}, reports)
	c, w := newGinContext(http.MethodGet, "/admin/checkins/export?date=2026-10-17&format=csv", nil)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", reports.format)
	assert.Equal(t, `attachment; filename="checkins_2026-10-17.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "No,Time\n", w.Body.String())
}

func TestCheckInHandlerExportUnknownFormat(t *testing.T) {
	handler := NewCheckInHandler(&checkInLogMock{}, &reportExporterMock{err: appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")})
	c, w := newGinContext(http.MethodGet, "/admin/checkins/export?format=docx", nil)
	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckInHandlerSummaryAndCancel(t *testing.T) {
	log := &checkInLogMock{}
	handler := NewCheckInHandler(log, &reportExporterMock{})

	c, w := newGinContext(http.MethodGet, "/admin/checkins/summary?date=2026-10-17", nil)
	handler.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decodeEnvelope(t, w).Data.(map[string]interface{})["total"])

	c, _ = newGinContext(http.MethodDelete, "/admin/checkins/c1", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.Cancel(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "c1", log.canceled)
}
