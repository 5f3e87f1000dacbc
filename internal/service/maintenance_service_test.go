package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaintenanceRepo struct {
	calls int
	err   error
}

func (f *fakeMaintenanceRepo) Reset(ctx context.Context) error {
	f.calls++
	return f.err
}

func TestMaintenanceServiceReset(t *testing.T) {
	repo := &fakeMaintenanceRepo{}
	cache := newMemCache()
	svc := NewMaintenanceService(repo, NewCacheService(cache, nil, time.Minute, nil, true), nil)

	require.NoError(t, svc.Reset(context.Background()))
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.flushes)

	repo.err = errors.New("locked")
	assert.Equal(t, http.StatusInternalServerError, statusOf(svc.Reset(context.Background())))
	assert.Equal(t, 1, cache.flushes)
}
