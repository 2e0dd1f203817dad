package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selamtools/sunday-school-api/internal/models"
)

func attendanceRows(inserted bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "student_id", "date", "sessions.monday", "sessions.wednesday", "sessions.friday", "created_at", "updated_at", "inserted"}).
		AddRow("a1", "s1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true, false, true, now, now, inserted)
}

func TestAttendanceRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "date", "sessions.monday", "sessions.wednesday", "sessions.friday", "created_at", "updated_at"}).
		AddRow("a1", "s1", day, true, false, false, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("a.date = $1")).
		WithArgs(day).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.AttendanceFilter{Date: &day})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Sessions.Monday)
	assert.False(t, records[0].Sessions.Friday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertInsert(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, date)")).
		WillReturnRows(attendanceRows(true))

	record, inserted, err := repo.Upsert(context.Background(), "s1",
		time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC),
		models.Sessions{Monday: true, Friday: true})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "s1", record.StudentID)
	assert.True(t, record.Sessions.Monday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertUpdate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, date)")).
		WillReturnRows(attendanceRows(false))

	_, inserted, err := repo.Upsert(context.Background(), "s1",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		models.Sessions{Wednesday: true})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertContinuesOnFailure(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, date)")).
		WillReturnRows(attendanceRows(true))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, date)")).
		WillReturnError(assert.AnError)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, date)")).
		WillReturnRows(attendanceRows(false))

	result, err := repo.BulkUpsert(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]models.BulkAttendanceEntry{
			{StudentID: "s1", Sessions: models.Sessions{Monday: true}},
			{StudentID: "bad"},
			{StudentID: "s2", Sessions: models.Sessions{Friday: true}},
		})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Upserted)
	assert.Equal(t, 1, result.Modified)
	assert.Equal(t, 1, result.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertAllFailed(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, date)")).
		WillReturnError(assert.AnError)

	result, err := repo.BulkUpsert(context.Background(),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]models.BulkAttendanceEntry{{StudentID: "s1"}})
	require.Error(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDistinctDates(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(DISTINCT a.date)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.DistinctDates(context.Background(), models.AttendancePoolFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryDistinctDatesGroupJoin(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN students s ON s.id = a.student_id")).
		WithArgs("B").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.DistinctDates(context.Background(), models.AttendancePoolFilter{Group: models.GroupB})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryCountOnDate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_records WHERE date = $1")).
		WithArgs(day).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountOnDate(context.Background(), day.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
