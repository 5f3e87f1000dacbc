package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/pkg/period"
)

func TestApplicantServiceLifecycle(t *testing.T) {
	repo := newMemApplicants()
	repo.set("2026-09", "30101")
	clock := period.NewClock(time.UTC, func() time.Time { return time.Date(2026, 10, 1, 0, 0, 1, 0, time.UTC) })
	svc := NewApplicantService(repo, clock, nil, nil)
	ctx := context.Background()

	roster, err := svc.ListCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-10", roster.Period)
	assert.Zero(t, roster.Count)

	view, err := svc.Add(ctx, dto.AddApplicantRequest{StudentID: "20701"})
	require.NoError(t, err)
	assert.Equal(t, "20701", view.StudentID)

	_, err = svc.Add(ctx, dto.AddApplicantRequest{StudentID: "20701"})
	assert.Equal(t, http.StatusConflict, statusOf(err))
	_, err = svc.Add(ctx, dto.AddApplicantRequest{StudentID: "2070"})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	roster, err = svc.ListCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, roster.Count)

	assert.Equal(t, http.StatusNotFound, statusOf(svc.Remove(ctx, "30101")))
	require.NoError(t, svc.Remove(ctx, "20701"))
	assert.Equal(t, http.StatusBadRequest, statusOf(svc.Remove(ctx, "x")))
	assert.True(t, repo.rows["2026-09"]["30101"])
}
