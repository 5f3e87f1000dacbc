package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
)

type backupServiceMock struct {
	name string
	err  error
}

func (m *backupServiceMock) List(ctx context.Context) (*dto.BackupList, error) {
	return &dto.BackupList{Count: 1, Backups: []dto.BackupFile{{Filename: "meal.db.backup_2026-10-17_12-00-00"}}}, m.err
}

func (m *backupServiceMock) Create(ctx context.Context) (*dto.BackupFile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.BackupFile{Filename: "meal.db.backup_2026-10-17_12-00-00", CreatedAt: time.Now()}, nil
}

func (m *backupServiceMock) Delete(ctx context.Context, name string) error {
	m.name = name
	return m.err
}

func (m *backupServiceMock) Restore(ctx context.Context, name string) (*dto.RestoreResult, error) {
	m.name = name
	if m.err != nil {
		return nil, m.err
	}
	return &dto.RestoreResult{RestoredFrom: name, SafetyBackup: "meal.db.backup_pre-restore_2026-10-17_12-00-01"}, nil
}

type maintenanceServiceMock struct {
	calls int
	err   error
}

func (m *maintenanceServiceMock) Reset(ctx context.Context) error {
	m.calls++
	return m.err
}

func TestBackupHandlerCreateUnsupportedDriver(t *testing.T) {
	handler := NewBackupHandler(&backupServiceMock{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "backups require sqlite")})
	c, w := newGinContext(http.MethodPost, "/admin/backups", nil)
	handler.Create(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestBackupHandlerRestore(t *testing.T) {
	svc := &backupServiceMock{}
	handler := NewBackupHandler(svc)
	c, w := newGinContext(http.MethodPost, "/admin/backups/meal.db.backup_2026-10-16_12-00-00/restore", nil)
	c.Params = gin.Params{{Key: "filename", Value: "meal.db.backup_2026-10-16_12-00-00"}}
	handler.Restore(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "meal.db.backup_2026-10-16_12-00-00", svc.name)
	assert.Equal(t, svc.name, decodeEnvelope(t, w).Data.(map[string]interface{})["restored_from"])
}

func TestBackupHandlerListAndDelete(t *testing.T) {
	svc := &backupServiceMock{}
	handler := NewBackupHandler(svc)

	c, w := newGinContext(http.MethodGet, "/admin/backups", nil)
	handler.List(c)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "backup not found")
	c, w = newGinContext(http.MethodDelete, "/admin/backups/missing", nil)
	c.Params = gin.Params{{Key: "filename", Value: "missing"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMaintenanceHandlerReset(t *testing.T) {
	svc := &maintenanceServiceMock{}
	handler := NewMaintenanceHandler(svc)

	c, _ := newGinContext(http.MethodDelete, "/admin/data", nil)
	handler.Reset(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, 1, svc.calls)

	svc.err = errors.New("disk full")
	c, w := newGinContext(http.MethodDelete, "/admin/data", nil)
	handler.Reset(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk full")
}
