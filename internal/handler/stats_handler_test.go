package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/selamtools/sunday-school-api/internal/models"
	"github.com/selamtools/sunday-school-api/internal/service"
)

type fakeStatsStudents struct {
	students []models.Student
}

func (f *fakeStatsStudents) ListByName(ctx context.Context, group models.Group) ([]models.Student, error) {
	return f.students, nil
}

func (f *fakeStatsStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			student := s
			return &student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStatsStudents) CountBySex(ctx context.Context) (int, int, int, error) {
	return len(f.students), 0, 0, nil
}

func (f *fakeStatsStudents) CountByGroup(ctx context.Context) ([]models.GroupCount, error) {
	return nil, nil
}

type fakeStatsAttendance struct {
	pool []models.AttendanceRecord
}

func (f *fakeStatsAttendance) Pool(ctx context.Context, filter models.AttendancePoolFilter) ([]models.AttendanceRecord, error) {
	return f.pool, nil
}

func (f *fakeStatsAttendance) DistinctDates(ctx context.Context, filter models.AttendancePoolFilter) (int, error) {
	return 0, nil
}

func (f *fakeStatsAttendance) CountOnDate(ctx context.Context, date time.Time) (int, error) {
	return 0, nil
}

func newStatsHandler(students *fakeStatsStudents, attendance *fakeStatsAttendance) *StatsHandler {
	svc := service.NewStatsService(students, attendance, nil, zap.NewNop())
	return NewStatsHandler(svc)
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func TestStatsHandlerAttendancePopulation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStatsHandler(
		&fakeStatsStudents{students: []models.Student{{ID: "s1", FullName: "Abel", Group: models.GroupB}}},
		&fakeStatsAttendance{},
	)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/stats/attendance", nil)

	handler.Attendance(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope.Meta["cached"])
	assert.NotNil(t, envelope.Data["overall"])
}

func TestStatsHandlerAttendanceSingleStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStatsHandler(
		&fakeStatsStudents{students: []models.Student{{ID: "s1", FullName: "Abel", Group: models.GroupB}}},
		&fakeStatsAttendance{},
	)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/stats/attendance?studentId=s1", nil)

	handler.Attendance(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.NotNil(t, envelope.Data["records"])
}

func TestStatsHandlerAttendanceStudentNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStatsHandler(&fakeStatsStudents{}, &fakeStatsAttendance{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/stats/attendance?studentId=missing", nil)

	handler.Attendance(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsHandlerAttendanceRejectsUnknownGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStatsHandler(&fakeStatsStudents{}, &fakeStatsAttendance{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/stats/attendance?group=Z", nil)

	handler.Attendance(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsHandlerAttendanceRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStatsHandler(&fakeStatsStudents{}, &fakeStatsAttendance{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/stats/attendance?startDate=15-03-2024", nil)

	handler.Attendance(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
