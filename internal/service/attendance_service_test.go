package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/selamtools/sunday-school-api/internal/models"
)

type attendanceKey struct {
	studentID string
	date      time.Time
}

type mockAttendanceRepo struct {
	records    map[attendanceKey]models.AttendanceRecord
	lastFilter models.AttendanceFilter
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[attendanceKey]models.AttendanceRecord)}
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	m.lastFilter = filter
	var out []models.AttendanceRecord
	for _, r := range m.records {
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		if filter.Date != nil && !r.Date.Equal(*filter.Date) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockAttendanceRepo) Upsert(ctx context.Context, studentID string, date time.Time, sessions models.Sessions) (*models.AttendanceRecord, bool, error) {
	key := attendanceKey{studentID: studentID, date: date}
	_, existed := m.records[key]
	record := models.AttendanceRecord{
		ID:        studentID + date.Format("2006-01-02"),
		StudentID: studentID,
		Date:      date,
		Sessions:  sessions,
	}
	m.records[key] = record
	return &record, !existed, nil
}

func (m *mockAttendanceRepo) BulkUpsert(ctx context.Context, date time.Time, entries []models.BulkAttendanceEntry) (models.BulkAttendanceResult, error) {
	var result models.BulkAttendanceResult
	for _, entry := range entries {
		if entry.StudentID == "" {
			result.Failed++
			continue
		}
		_, inserted, _ := m.Upsert(ctx, entry.StudentID, date, entry.Sessions)
		if inserted {
			result.Upserted++
		} else {
			result.Modified++
		}
	}
	return result, nil
}

func TestAttendanceServiceSaveNormalizesDate(t *testing.T) {
	repo := newMockAttendanceRepo()
	inv := &mockInvalidator{}
	svc := NewAttendanceService(repo, inv, validator.New(), zap.NewNop())

	record, err := svc.Save(context.Background(), SaveAttendanceRequest{
		StudentID: "s1",
		Date:      "2024-01-01T15:04:05Z",
		Sessions:  models.Sessions{Monday: true},
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), record.Date)
	assert.True(t, record.Sessions.Monday)
	assert.Equal(t, 1, inv.calls)
}

func TestAttendanceServiceSaveReplacesSameDay(t *testing.T) {
	repo := newMockAttendanceRepo()
	svc := NewAttendanceService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Save(context.Background(), SaveAttendanceRequest{
		StudentID: "s1",
		Date:      "2024-01-01",
		Sessions:  models.Sessions{Monday: true},
	})
	require.NoError(t, err)

	record, err := svc.Save(context.Background(), SaveAttendanceRequest{
		StudentID: "s1",
		Date:      "2024-01-01",
		Sessions:  models.Sessions{Wednesday: true},
	})
	require.NoError(t, err)
	assert.False(t, record.Sessions.Monday)
	assert.True(t, record.Sessions.Wednesday)
	assert.Len(t, repo.records, 1)
}

func TestAttendanceServiceSaveRejectsBadDate(t *testing.T) {
	svc := NewAttendanceService(newMockAttendanceRepo(), nil, validator.New(), zap.NewNop())

	_, err := svc.Save(context.Background(), SaveAttendanceRequest{
		StudentID: "s1",
		Date:      "01-01-2024",
	})
	require.Error(t, err)
}

func TestAttendanceServiceSaveBulkCounts(t *testing.T) {
	repo := newMockAttendanceRepo()
	svc := NewAttendanceService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Save(context.Background(), SaveAttendanceRequest{
		StudentID: "s1",
		Date:      "2024-01-01",
		Sessions:  models.Sessions{Monday: true},
	})
	require.NoError(t, err)

	result, err := svc.SaveBulk(context.Background(), BulkAttendanceRequest{
		Date: "2024-01-01",
		Records: []models.BulkAttendanceEntry{
			{StudentID: "s1", Sessions: models.Sessions{Friday: true}},
			{StudentID: "s2", Sessions: models.Sessions{Monday: true}},
			{StudentID: "", Sessions: models.Sessions{Monday: true}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Modified)
	assert.Equal(t, 1, result.Upserted)
	assert.Equal(t, 1, result.Failed)
}

func TestAttendanceServiceSaveBulkRequiresRecords(t *testing.T) {
	svc := NewAttendanceService(newMockAttendanceRepo(), nil, validator.New(), zap.NewNop())

	_, err := svc.SaveBulk(context.Background(), BulkAttendanceRequest{Date: "2024-01-01"})
	require.Error(t, err)
}

func TestAttendanceServiceListNeverNil(t *testing.T) {
	svc := NewAttendanceService(newMockAttendanceRepo(), nil, validator.New(), zap.NewNop())

	records, err := svc.List(context.Background(), models.AttendanceFilter{})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
