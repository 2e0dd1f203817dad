package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/selamtools/sunday-school-api/internal/models"
	appErrors "github.com/selamtools/sunday-school-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsDuplicate(ctx context.Context, phone, fullName, spiritualName string, age int, excludeID string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type cacheInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	SpiritualName string `json:"spiritual_name" validate:"required"`
	Sex           string `json:"sex" validate:"required,oneof=male female"`
	Age           int    `json:"age" validate:"required,gte=4,lte=18"`
	Class         string `json:"class" validate:"required"`
	FamilyName    string `json:"family_name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Address       string `json:"address" validate:"required"`
	Photo         string `json:"photo"`
}

// UpdateStudentRequest holds payload for updating students. Group and
// registration date are fixed at creation and absent here.
type UpdateStudentRequest struct {
	FullName      string `json:"full_name" validate:"required"`
	SpiritualName string `json:"spiritual_name" validate:"required"`
	Sex           string `json:"sex" validate:"required,oneof=male female"`
	Age           int    `json:"age" validate:"required,gte=4,lte=18"`
	Class         string `json:"class" validate:"required"`
	FamilyName    string `json:"family_name" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	Address       string `json:"address" validate:"required"`
	Photo         string `json:"photo"`
}

// StudentService handles student registration use-cases.
type StudentService struct {
	repo      studentRepository
	stats     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, stats cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, stats: stats, validator: validate, logger: logger}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	return students, nil
}

// Get returns a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student. The group is derived from age exactly once,
// here. A collision on phone or on the (full name, spiritual name, age)
// triple is rejected with the duplicate signal before anything is written;
// the phone unique index closes the remaining race window.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	exists, err := s.repo.ExistsDuplicate(ctx, req.Phone, req.FullName, req.SpiritualName, req.Age, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicates")
	}
	if exists {
		return nil, appErrors.ErrDuplicateStudent
	}

	student := &models.Student{
		FullName:      req.FullName,
		SpiritualName: req.SpiritualName,
		Sex:           models.Sex(req.Sex),
		Age:           req.Age,
		Class:         req.Class,
		FamilyName:    req.FamilyName,
		Phone:         req.Phone,
		Address:       req.Address,
		Photo:         req.Photo,
		Group:         models.GroupForAge(req.Age),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.invalidate(ctx)
	return student, nil
}

// Update modifies an existing student. The stored group is carried forward
// even when age changes: reclassification happens only at registration.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	exists, err := s.repo.ExistsByPhone(ctx, req.Phone, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check phone")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateStudent, "phone number already registered")
	}

	student.FullName = req.FullName
	student.SpiritualName = req.SpiritualName
	student.Sex = models.Sex(req.Sex)
	student.Age = req.Age
	student.Class = req.Class
	student.FamilyName = req.FamilyName
	student.Phone = req.Phone
	student.Address = req.Address
	student.Photo = req.Photo

	if err := s.repo.Update(ctx, student); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.invalidate(ctx)
	return student, nil
}

// Delete removes a student and cascades to their attendance records.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.invalidate(ctx)
	return nil
}

func (s *StudentService) invalidate(ctx context.Context) {
	if s.stats != nil {
		s.stats.InvalidateCache(ctx)
	}
}
