package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/selamtools/sunday-school-api/internal/models"
)

const attendanceColumns = `a.id, a.student_id, a.date,
        a.monday AS "sessions.monday", a.wednesday AS "sessions.wednesday", a.friday AS "sessions.friday",
        a.created_at, a.updated_at`

// AttendanceRepository handles persistence for attendance records. One row
// exists per (student, date); writes go through Upsert.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance rows for a calendar day and/or student, newest first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Date != nil {
		where = append(where, fmt.Sprintf("a.date = $%d", len(args)+1))
		args = append(args, models.Midnight(*filter.Date))
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}

	query := fmt.Sprintf(`SELECT %s FROM attendance_records a WHERE %s ORDER BY a.date DESC`,
		attendanceColumns, strings.Join(where, " AND "))

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// Pool returns the attendance records feeding the statistics engine,
// restricted by date window, student, and (via the owning students) group.
func (r *AttendanceRepository) Pool(ctx context.Context, filter models.AttendancePoolFilter) ([]models.AttendanceRecord, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	base := "FROM attendance_records a"
	if filter.Group != "" {
		base += " JOIN students s ON s.id = a.student_id"
		where = append(where, fmt.Sprintf("s.student_group = $%d", len(args)+1))
		args = append(args, filter.Group)
	}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("a.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, models.Midnight(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, models.Midnight(*filter.DateTo))
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY a.date DESC`,
		attendanceColumns, base, strings.Join(where, " AND "))

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("load attendance pool: %w", err)
	}
	return records, nil
}

// Upsert inserts or replaces the record for (studentID, date). Returns the
// stored row and whether it was newly inserted.
func (r *AttendanceRepository) Upsert(ctx context.Context, studentID string, date time.Time, sessions models.Sessions) (*models.AttendanceRecord, bool, error) {
	now := time.Now().UTC()
	const query = `INSERT INTO attendance_records (id, student_id, date, monday, wednesday, friday, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
ON CONFLICT (student_id, date)
DO UPDATE SET monday = EXCLUDED.monday, wednesday = EXCLUDED.wednesday, friday = EXCLUDED.friday, updated_at = EXCLUDED.updated_at
RETURNING id, student_id, date,
        monday AS "sessions.monday", wednesday AS "sessions.wednesday", friday AS "sessions.friday",
        created_at, updated_at, (xmax = 0) AS "inserted"`
	row := struct {
		models.AttendanceRecord
		Inserted bool `db:"inserted"`
	}{}
	if err := r.db.GetContext(ctx, &row, query,
		uuid.NewString(), studentID, models.Midnight(date),
		sessions.Monday, sessions.Wednesday, sessions.Friday, now); err != nil {
		return nil, false, fmt.Errorf("upsert attendance: %w", err)
	}
	return &row.AttendanceRecord, row.Inserted, nil
}

// BulkUpsert applies one upsert per entry for the given date. Each upsert is
// atomic; the batch is not. A failed entry is counted and skipped so the rest
// of the batch still lands.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, date time.Time, entries []models.BulkAttendanceEntry) (models.BulkAttendanceResult, error) {
	result := models.BulkAttendanceResult{}
	day := models.Midnight(date)
	var firstErr error
	for _, entry := range entries {
		_, inserted, err := r.Upsert(ctx, entry.StudentID, day, entry.Sessions)
		if err != nil {
			result.Failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if inserted {
			result.Upserted++
		} else {
			result.Modified++
		}
	}
	if result.Failed == len(entries) && firstErr != nil {
		return result, fmt.Errorf("bulk upsert attendance: %w", firstErr)
	}
	return result, nil
}

// DistinctDates counts the distinct calendar dates present in the filtered
// attendance pool. This is the global count the overall rollup reports,
// not a per-student sum.
func (r *AttendanceRepository) DistinctDates(ctx context.Context, filter models.AttendancePoolFilter) (int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	base := "FROM attendance_records a"
	if filter.Group != "" {
		base += " JOIN students s ON s.id = a.student_id"
		where = append(where, fmt.Sprintf("s.student_group = $%d", len(args)+1))
		args = append(args, filter.Group)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("a.date >= $%d", len(args)+1))
		args = append(args, models.Midnight(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("a.date <= $%d", len(args)+1))
		args = append(args, models.Midnight(*filter.DateTo))
	}

	query := fmt.Sprintf(`SELECT COUNT(DISTINCT a.date) %s WHERE %s`, base, strings.Join(where, " AND "))
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count distinct attendance dates: %w", err)
	}
	return count, nil
}

// CountOnDate returns the number of attendance records for a calendar day.
func (r *AttendanceRepository) CountOnDate(ctx context.Context, date time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance_records WHERE date = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.Midnight(date)); err != nil {
		return 0, fmt.Errorf("count attendance on date: %w", err)
	}
	return count, nil
}
