package service

import (
	"math"

	"github.com/selamtools/sunday-school-api/internal/models"
)

// computeStudentStats derives one student's statistics from the attendance
// records already selected for them. It never fails: an empty slice yields
// zero-valued stats. Every recorded date counts as one opportunity for each
// of the three sessions, regardless of the date's actual weekday.
func computeStudentStats(records []models.AttendanceRecord) models.AttendanceStats {
	totalDays := len(records)
	var mondayAttended, wednesdayAttended, fridayAttended int

	for _, record := range records {
		if record.Sessions.Monday {
			mondayAttended++
		}
		if record.Sessions.Wednesday {
			wednesdayAttended++
		}
		if record.Sessions.Friday {
			fridayAttended++
		}
	}

	attendedSessions := mondayAttended + wednesdayAttended + fridayAttended
	totalSessions := 3 * totalDays

	percentage := 0.0
	if totalSessions > 0 {
		percentage = round2(float64(attendedSessions) / float64(totalSessions) * 100)
	}

	return models.AttendanceStats{
		TotalDays:            totalDays,
		AttendedSessions:     attendedSessions,
		TotalSessions:        totalSessions,
		AttendancePercentage: percentage,
		SessionStats: models.SessionBreakdown{
			Monday:    sessionStats(mondayAttended, totalDays),
			Wednesday: sessionStats(wednesdayAttended, totalDays),
			Friday:    sessionStats(fridayAttended, totalDays),
		},
	}
}

// computeOverallStats rolls per-student stats up into the population summary.
// distinctDates is the count of distinct dates across the whole filtered
// attendance pool, not a per-student sum.
func computeOverallStats(perStudent []models.AttendanceStats, distinctDates int) models.OverallStats {
	overall := models.OverallStats{
		TotalStudents:           len(perStudent),
		TotalDaysWithAttendance: distinctDates,
	}

	var percentageSum float64
	for _, stats := range perStudent {
		percentageSum += stats.AttendancePercentage
		overall.TotalSessions += stats.TotalSessions
		overall.TotalAttendedSessions += stats.AttendedSessions
	}
	if len(perStudent) > 0 {
		overall.AverageAttendanceRate = percentageSum / float64(len(perStudent))
	}
	return overall
}

// groupByStudent buckets the attendance pool by student id, preserving the
// pool's record order within each bucket.
func groupByStudent(pool []models.AttendanceRecord) map[string][]models.AttendanceRecord {
	grouped := make(map[string][]models.AttendanceRecord, len(pool))
	for _, record := range pool {
		grouped[record.StudentID] = append(grouped[record.StudentID], record)
	}
	return grouped
}

func sessionStats(attended, total int) models.SessionStats {
	stats := models.SessionStats{Attended: attended, Total: total}
	if total > 0 {
		stats.Percentage = int(math.Round(float64(attended) / float64(total) * 100))
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
