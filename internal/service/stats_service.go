package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/selamtools/sunday-school-api/internal/models"
	appErrors "github.com/selamtools/sunday-school-api/pkg/errors"
)

type statsStudentRepository interface {
	ListByName(ctx context.Context, group models.Group) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	CountBySex(ctx context.Context) (total, male, female int, err error)
	CountByGroup(ctx context.Context) ([]models.GroupCount, error)
}

type statsAttendanceRepository interface {
	Pool(ctx context.Context, filter models.AttendancePoolFilter) ([]models.AttendanceRecord, error)
	DistinctDates(ctx context.Context, filter models.AttendancePoolFilter) (int, error)
	CountOnDate(ctx context.Context, date time.Time) (int, error)
}

// StatsRequest carries the optional filters for statistics queries.
type StatsRequest struct {
	Group     models.Group
	StartDate *time.Time
	EndDate   *time.Time
}

// StatsService runs the attendance aggregation over the student directory
// and the attendance ledger. It only reads; all failure modes live at the
// store boundary.
type StatsService struct {
	students   statsStudentRepository
	attendance statsAttendanceRepository
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(students statsStudentRepository, attendance statsAttendanceRepository, cache *CacheService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		students:   students,
		attendance: attendance,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Population computes per-student statistics for the (optionally
// group-filtered) population plus the overall rollup. Results are cached by
// filter key; any student or attendance write invalidates them.
func (s *StatsService) Population(ctx context.Context, req StatsRequest) (*models.PopulationStats, bool, error) {
	cacheKey := populationCacheKey(req)
	if s.cache.Enabled() {
		var cached models.PopulationStats
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	students, err := s.students.ListByName(ctx, req.Group)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	poolFilter := models.AttendancePoolFilter{Group: req.Group, DateFrom: req.StartDate, DateTo: req.EndDate}
	pool, err := s.attendance.Pool(ctx, poolFilter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	grouped := groupByStudent(pool)

	perStudent := make([]models.AttendanceStats, 0, len(students))
	for _, student := range students {
		stats := computeStudentStats(grouped[student.ID])
		stats.Student = student
		perStudent = append(perStudent, stats)
	}

	distinctDates, err := s.attendance.DistinctDates(ctx, poolFilter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance dates")
	}

	result := &models.PopulationStats{
		Students: perStudent,
		Overall:  computeOverallStats(perStudent, distinctDates),
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
			s.logger.Warn("population stats cache set failed", zap.Error(err))
		}
	}
	return result, false, nil
}

// Student computes one student's statistics plus the raw matched records.
// A missing student is a not-found error; a present student with no records
// yields zero-valued stats.
func (s *StatsService) Student(ctx context.Context, studentID string, req StatsRequest) (*models.StudentStatsDetail, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	records, err := s.attendance.Pool(ctx, models.AttendancePoolFilter{
		StudentID: studentID,
		DateFrom:  req.StartDate,
		DateTo:    req.EndDate,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	stats := computeStudentStats(records)
	stats.Student = *student
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return &models.StudentStatsDetail{AttendanceStats: stats, Records: records}, nil
}

// Summary returns the directory counts plus today's attendance count.
func (s *StatsService) Summary(ctx context.Context) (*models.SystemSummary, error) {
	total, male, female, err := s.students.CountBySex(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	byGroup, err := s.students.CountByGroup(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count groups")
	}
	today, err := s.attendance.CountOnDate(ctx, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count today's attendance")
	}
	if byGroup == nil {
		byGroup = []models.GroupCount{}
	}

	summary := &models.SystemSummary{
		Students: models.StudentCounts{Total: total, Male: male, Female: female, ByGroup: byGroup},
	}
	summary.Attendance.Today = today
	return summary, nil
}

// InvalidateCache drops every cached statistics payload. Write paths call
// this after mutating students or attendance.
func (s *StatsService) InvalidateCache(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func populationCacheKey(req StatsRequest) string {
	from, to := "", ""
	if req.StartDate != nil {
		from = models.Midnight(*req.StartDate).Format("2006-01-02")
	}
	if req.EndDate != nil {
		to = models.Midnight(*req.EndDate).Format("2006-01-02")
	}
	group := string(req.Group)
	if group == "" {
		group = "all"
	}
	return fmt.Sprintf("stats:population:%s:%s:%s", group, from, to)
}
