package models

// SessionStats is the per-session breakdown inside a student's stats.
// Total always equals the number of recorded dates: every recorded date
// offers one opportunity per session, whatever weekday it falls on.
type SessionStats struct {
	Attended   int `json:"attended"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// SessionBreakdown groups the three fixed sessions.
type SessionBreakdown struct {
	Monday    SessionStats `json:"monday"`
	Wednesday SessionStats `json:"wednesday"`
	Friday    SessionStats `json:"friday"`
}

// AttendanceStats is the derived per-student statistic; it is never persisted.
type AttendanceStats struct {
	Student              Student          `json:"student"`
	TotalDays            int              `json:"total_days"`
	AttendedSessions     int              `json:"attended_sessions"`
	TotalSessions        int              `json:"total_sessions"`
	AttendancePercentage float64          `json:"attendance_percentage"`
	SessionStats         SessionBreakdown `json:"session_stats"`
}

// StudentStatsDetail augments single-student stats with the raw records
// matched by the query window.
type StudentStatsDetail struct {
	AttendanceStats
	Records []AttendanceRecord `json:"records"`
}

// OverallStats is the population-wide rollup.
type OverallStats struct {
	TotalStudents         int     `json:"total_students"`
	TotalDaysWithAttendance int   `json:"total_days_with_attendance"`
	AverageAttendanceRate float64 `json:"average_attendance_rate"`
	TotalSessions         int     `json:"total_sessions"`
	TotalAttendedSessions int     `json:"total_attended_sessions"`
}

// PopulationStats is the population-wide statistics response.
type PopulationStats struct {
	Students []AttendanceStats `json:"students"`
	Overall  OverallStats      `json:"overall"`
}

// StudentCounts summarises the student directory.
type StudentCounts struct {
	Total   int          `json:"total"`
	Male    int          `json:"male"`
	Female  int          `json:"female"`
	ByGroup []GroupCount `json:"by_group"`
}

// SystemSummary is the dashboard-facing summary payload.
type SystemSummary struct {
	Students   StudentCounts `json:"students"`
	Attendance struct {
		Today int `json:"today"`
	} `json:"attendance"`
}
