package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/models"
)

func newStudentService(repo *memStudents, cache *memCache) *StudentService {
	svc := NewStudentService(repo, NewCacheService(cache, nil, time.Minute, nil, true), nil, nil)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestStudentServiceRegisterNewStudent(t *testing.T) {
	repo := &memStudents{}
	svc := newStudentService(repo, newMemCache())

	res, err := svc.Register(context.Background(), dto.RegisterRequest{CardID: "1234567890", StudentID: "20701", PIN: "1234"})
	require.NoError(t, err)
	assert.False(t, res.Merged)
	assert.True(t, res.Student.HasCard)
	assert.True(t, res.Student.HasPIN)
	assert.Equal(t, 2, res.Student.StudentInfo.Grade)

	stored, err := repo.FindByStudentID(context.Background(), "20701")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PINHash), []byte("1234")))
}

func TestStudentServiceRegisterRejectsUsedCard(t *testing.T) {
	repo := &memStudents{}
	repo.add("20701", strPtr("1234567890"), nil)
	svc := newStudentService(repo, newMemCache())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{CardID: "1234567890", StudentID: "30101", PIN: "1234"})
	assert.Equal(t, http.StatusConflict, statusOf(err))
}

func TestStudentServiceRegisterMergesCardIntoExistingStudent(t *testing.T) {
	repo := &memStudents{}
	repo.add("20701", nil, pinHash(t, "1234"))
	repo.add("30101", nil, nil)
	svc := newStudentService(repo, newMemCache())
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterRequest{CardID: "1234567890", StudentID: "20701", PIN: "9999"})
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	res, err := svc.Register(ctx, dto.RegisterRequest{CardID: "1234567890", StudentID: "20701", PIN: "1234"})
	require.NoError(t, err)
	assert.True(t, res.Merged)
	assert.Equal(t, "1234567890", *res.Student.CardID)

	res, err = svc.Register(ctx, dto.RegisterRequest{CardID: "5555555555", StudentID: "30101", PIN: "4321"})
	require.NoError(t, err)
	assert.True(t, res.Merged)
	stored, err := repo.FindByStudentID(ctx, "30101")
	require.NoError(t, err)
	require.True(t, stored.HasPIN())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PINHash), []byte("4321")))
}

func TestStudentServiceRegisterWithoutCard(t *testing.T) {
	repo := &memStudents{}
	repo.add("20701", nil, nil)
	svc := newStudentService(repo, newMemCache())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{StudentID: "20701", PIN: "1234"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	res, err := svc.Register(context.Background(), dto.RegisterRequest{StudentID: "30101", PIN: "1234"})
	require.NoError(t, err)
	assert.False(t, res.Student.HasCard)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{StudentID: "3010", PIN: "1234"})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestStudentServiceRegisterMapsUniqueRace(t *testing.T) {
	repo := &memStudents{createErr: uniqueErr}
	svc := newStudentService(repo, newMemCache())

	_, err := svc.Register(context.Background(), dto.RegisterRequest{CardID: "1234567890", StudentID: "20701", PIN: "1234"})
	assert.Equal(t, http.StatusConflict, statusOf(err))
}

func TestStudentServiceLookup(t *testing.T) {
	repo := &memStudents{}
	repo.add("20701", nil, pinHash(t, "1234"))
	svc := newStudentService(repo, newMemCache())

	res, err := svc.Lookup(context.Background(), dto.LookupStudentRequest{StudentID: "20701"})
	require.NoError(t, err)
	assert.True(t, res.Exists)
	assert.True(t, res.HasPIN)

	res, err = svc.Lookup(context.Background(), dto.LookupStudentRequest{StudentID: "30101"})
	require.NoError(t, err)
	assert.False(t, res.Exists)
}

func TestStudentServiceChangePIN(t *testing.T) {
	repo := &memStudents{}
	repo.add("20701", strPtr("1234567890"), pinHash(t, "1234"))
	svc := newStudentService(repo, newMemCache())

	_, err := svc.ChangePIN(context.Background(), dto.ChangePINRequest{CardID: "0000000000", NewPIN: "5678"})
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	view, err := svc.ChangePIN(context.Background(), dto.ChangePINRequest{CardID: "1234567890", NewPIN: "5678"})
	require.NoError(t, err)
	assert.Equal(t, "20701", view.StudentID)
	stored, _ := repo.FindByStudentID(context.Background(), "20701")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PINHash), []byte("5678")))
}

func TestStudentServiceAdminCreateAndUpdate(t *testing.T) {
	repo := &memStudents{}
	repo.add("30101", strPtr("1111111111"), nil)
	svc := newStudentService(repo, newMemCache())
	ctx := context.Background()

	view, err := svc.Create(ctx, dto.CreateStudentRequest{StudentID: "20701", PIN: "1234"})
	require.NoError(t, err)
	assert.False(t, view.HasCard)

	_, err = svc.Create(ctx, dto.CreateStudentRequest{StudentID: "20701", PIN: "1234"})
	assert.Equal(t, http.StatusConflict, statusOf(err))
	_, err = svc.Create(ctx, dto.CreateStudentRequest{CardID: "1111111111", StudentID: "20702", PIN: "1234"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	_, err = svc.Update(ctx, "20701", dto.UpdateStudentRequest{})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
	_, err = svc.Update(ctx, "20799", dto.UpdateStudentRequest{NewPIN: "1111"})
	assert.Equal(t, http.StatusNotFound, statusOf(err))
	_, err = svc.Update(ctx, "20701", dto.UpdateStudentRequest{NewCardID: "1111111111"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	view, err = svc.Update(ctx, "30101", dto.UpdateStudentRequest{NewCardID: "1111111111", NewPIN: "4321"})
	require.NoError(t, err)
	assert.True(t, view.HasPIN)

	view, err = svc.Update(ctx, "20701", dto.UpdateStudentRequest{NewCardID: "2222222222"})
	require.NoError(t, err)
	assert.Equal(t, "2222222222", *view.CardID)

	list, page, err := svc.List(ctx, models.StudentFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "20701", list[0].StudentID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize)
	assert.Equal(t, 2, page.TotalCount)
}

func TestStudentServiceDelete(t *testing.T) {
	repo := &memStudents{deleted: map[string]int64{"20701": 3}}
	repo.add("20701", nil, nil)
	cache := newMemCache()
	svc := newStudentService(repo, cache)

	require.NoError(t, svc.Delete(context.Background(), "20701"))
	assert.Equal(t, 1, cache.flushes)

	err := svc.Delete(context.Background(), "20701")
	assert.Equal(t, http.StatusNotFound, statusOf(err))
	err = svc.Delete(context.Background(), "abc")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}
