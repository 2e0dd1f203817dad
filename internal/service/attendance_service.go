package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/selamtools/sunday-school-api/internal/models"
	appErrors "github.com/selamtools/sunday-school-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
	Upsert(ctx context.Context, studentID string, date time.Time, sessions models.Sessions) (*models.AttendanceRecord, bool, error)
	BulkUpsert(ctx context.Context, date time.Time, entries []models.BulkAttendanceEntry) (models.BulkAttendanceResult, error)
}

// SaveAttendanceRequest records one student's sessions for a date.
type SaveAttendanceRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	Date      string          `json:"date" validate:"required"`
	Sessions  models.Sessions `json:"sessions"`
}

// BulkAttendanceRequest records many students' sessions for one date.
type BulkAttendanceRequest struct {
	Date    string                       `json:"date" validate:"required"`
	Records []models.BulkAttendanceEntry `json:"records" validate:"required,min=1,dive"`
}

// AttendanceService coordinates attendance reads and upserts.
type AttendanceService struct {
	repo      attendanceRepository
	stats     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, stats cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, stats: stats, validator: validate, logger: logger}
}

// List returns attendance records for a day and/or student.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}

// Save upserts one attendance record. A second save for the same
// (student, date) replaces the sessions rather than adding a row.
func (s *AttendanceService) Save(ctx context.Context, req SaveAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	date, err := models.ParseDay(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	record, _, err := s.repo.Upsert(ctx, req.StudentID, date, req.Sessions)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	s.invalidate(ctx)
	return record, nil
}

// SaveBulk upserts a batch of records for one date. Each upsert is atomic;
// the batch is not: a bad entry is counted as failed and the rest proceed.
func (s *AttendanceService) SaveBulk(ctx context.Context, req BulkAttendanceRequest) (models.BulkAttendanceResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.BulkAttendanceResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk attendance payload")
	}
	date, err := models.ParseDay(req.Date)
	if err != nil {
		return models.BulkAttendanceResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	result, err := s.repo.BulkUpsert(ctx, date, req.Records)
	if err != nil {
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save bulk attendance")
	}
	if result.Failed > 0 {
		s.logger.Warn("bulk attendance partially failed",
			zap.Int("failed", result.Failed),
			zap.Int("modified", result.Modified),
			zap.Int("upserted", result.Upserted))
	}
	s.invalidate(ctx)
	return result, nil
}

func (s *AttendanceService) invalidate(ctx context.Context) {
	if s.stats != nil {
		s.stats.InvalidateCache(ctx)
	}
}

