package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/noah-isme/meal-checkin-api/internal/models"
	appErrors "github.com/noah-isme/meal-checkin-api/pkg/errors"
)

// uniqueErr is the driver error database.IsUniqueViolation recognises.
var uniqueErr = sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}

type memStudents struct {
	mu        sync.Mutex
	rows      []*models.Student
	seq       int
	createErr error
	deleted   map[string]int64
}

func (m *memStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Student, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, len(out), nil
}

func (m *memStudents) FindByCardID(ctx context.Context, cardID string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.CardID != nil && *s.CardID == cardID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStudents) FindByStudentID(ctx context.Context, studentID string) (*models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.StudentID == studentID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStudents) Create(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	student.ID = fmt.Sprintf("s%d", m.seq)
	student.CreatedAt = time.Now().UTC()
	student.UpdatedAt = student.CreatedAt
	cp := *student
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memStudents) Update(ctx context.Context, student *models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.StudentID == student.StudentID {
			s.CardID = student.CardID
			s.PINHash = student.PINHash
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memStudents) DeleteWithCheckIns(ctx context.Context, studentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.rows {
		if s.StudentID == studentID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return m.deleted[studentID], nil
		}
	}
	return 0, sql.ErrNoRows
}

func (m *memStudents) add(studentID string, cardID, pinHash *string) {
	m.seq++
	m.rows = append(m.rows, &models.Student{ID: fmt.Sprintf("s%d", m.seq), StudentID: studentID, CardID: cardID, PINHash: pinHash})
}

type memApplicants struct {
	mu   sync.Mutex
	rows map[string]map[string]bool // period -> student id
	err  error
}

func newMemApplicants() *memApplicants {
	return &memApplicants{rows: make(map[string]map[string]bool)}
}

func (m *memApplicants) set(period string, ids ...string) {
	if m.rows[period] == nil {
		m.rows[period] = make(map[string]bool)
	}
	for _, id := range ids {
		m.rows[period][id] = true
	}
}

func (m *memApplicants) Exists(ctx context.Context, studentID, period string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.rows[period][studentID], nil
}

func (m *memApplicants) ListByPeriod(ctx context.Context, period string) ([]models.Applicant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Applicant, 0)
	for id := range m.rows[period] {
		out = append(out, models.Applicant{ID: "a-" + id, StudentID: id, Period: period})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *memApplicants) Create(ctx context.Context, applicant *models.Applicant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[applicant.Period][applicant.StudentID] {
		return uniqueErr
	}
	m.set(applicant.Period, applicant.StudentID)
	applicant.ID = "a-" + applicant.StudentID
	return nil
}

func (m *memApplicants) Delete(ctx context.Context, studentID, period string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.rows[period][studentID] {
		return false, nil
	}
	delete(m.rows[period], studentID)
	return true, nil
}

func (m *memApplicants) MergePeriod(ctx context.Context, period string, studentIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	created := 0
	for _, id := range studentIDs {
		if !m.rows[period][id] {
			m.set(period, id)
			created++
		}
	}
	return created, nil
}

func (m *memApplicants) ReplacePeriod(ctx context.Context, period string, studentIDs []string) (int, error) {
	m.mu.Lock()
	delete(m.rows, period)
	m.mu.Unlock()
	return m.MergePeriod(ctx, period, studentIDs)
}

type memCheckIns struct {
	mu    sync.Mutex
	rows  []models.CheckIn
	seq   int
	lists int
}

func (m *memCheckIns) ListByStudentAndDate(ctx context.Context, studentID, date string) ([]models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CheckIn
	for _, row := range m.rows {
		if row.StudentID == studentID && row.Date == date {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memCheckIns) ListByDate(ctx context.Context, date string) ([]models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	var out []models.CheckIn
	for _, row := range m.rows {
		if row.Date == date {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memCheckIns) Create(ctx context.Context, checkIn *models.CheckIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	checkIn.ID = fmt.Sprintf("c%d", m.seq)
	m.rows = append(m.rows, *checkIn)
	return nil
}

func (m *memCheckIns) FindByID(ctx context.Context, id string) (*models.CheckIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			cp := row
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memCheckIns) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memAdmins struct {
	mu   sync.Mutex
	rows []*models.Admin
	seq  int
}

func (m *memAdmins) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *memAdmins) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memAdmins) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memAdmins) Create(ctx context.Context, admin *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	admin.ID = fmt.Sprintf("admin-%d", m.seq)
	cp := *admin
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memAdmins) UpdateCredentials(ctx context.Context, admin *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == admin.ID {
			a.Username = admin.Username
			a.PasswordHash = admin.PasswordHash
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memAdmins) ReplaceAll(ctx context.Context, admin *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	admin.ID = fmt.Sprintf("admin-%d", m.seq)
	cp := *admin
	m.rows = []*models.Admin{&cp}
	return nil
}

// memCache is a CacheRepository backed by a map of raw values.
type memCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	flushes int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]interface{})}
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[key]
	if !ok {
		return errCacheMissForTest
	}
	return assign(value, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memCache) DeleteCheckInLogs(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	m.entries = make(map[string]interface{})
	return nil
}

func (m *memCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

var errCacheMissForTest = appErrors.ErrCacheMiss

// assign copies value into dest through JSON, the way the redis repository decodes payloads.
func assign(value, dest interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
