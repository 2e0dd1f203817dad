package models

import "time"

// Sessions holds the three fixed weekly attendance slots. The slot names are
// labels, not calendar weekdays: a record saved for any date carries all
// three flags.
type Sessions struct {
	Monday    bool `db:"monday" json:"monday"`
	Wednesday bool `db:"wednesday" json:"wednesday"`
	Friday    bool `db:"friday" json:"friday"`
}

// AttendanceRecord is one student's attendance for one calendar date.
// At most one record exists per (student, date); writes upsert.
type AttendanceRecord struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Date      time.Time `db:"date" json:"date"`
	Sessions  Sessions  `db:"sessions" json:"sessions"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter defines query filters for attendance listings.
type AttendanceFilter struct {
	Date      *time.Time
	StudentID string
}

// AttendancePoolFilter restricts the attendance pool fed to the statistics
// engine: by date window and, via the owning students, by group.
type AttendancePoolFilter struct {
	Group     Group
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
}

// BulkAttendanceEntry pairs a student with the sessions to record.
type BulkAttendanceEntry struct {
	StudentID string   `json:"student_id"`
	Sessions  Sessions `json:"sessions"`
}

// BulkAttendanceResult reports the outcome of a bulk save. The batch is not
// transactional: failed entries do not roll back the rest.
type BulkAttendanceResult struct {
	Modified int `json:"modified"`
	Upserted int `json:"upserted"`
	Failed   int `json:"failed"`
}

// Midnight truncates a timestamp to the start of its UTC day. Both sides of
// the store boundary normalise through this so same-day comparisons hold.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay accepts a calendar date ("2006-01-02") or an RFC3339 timestamp
// and normalizes it to midnight UTC.
func ParseDay(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return Midnight(t), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return Midnight(t), nil
}
