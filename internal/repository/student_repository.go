package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/selamtools/sunday-school-api/internal/models"
	appErrors "github.com/selamtools/sunday-school-api/pkg/errors"
)

const studentColumns = `id, full_name, spiritual_name, sex, age, class, family_name, phone, address, photo, student_group, registration_date, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters, newest registrations first.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Group != "" {
		conditions = append(conditions, fmt.Sprintf("student_group = $%d", len(args)+1))
		args = append(args, filter.Group)
	}
	if filter.Search != "" {
		pos := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(spiritual_name) LIKE $%d OR LOWER(class) LIKE $%d)", pos, pos, pos))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s ORDER BY registration_date DESC`,
		studentColumns, strings.Join(conditions, " AND "))

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListByName returns the (optionally group-filtered) population sorted by
// full name ascending, the ordering the statistics engine expects.
func (r *StudentRepository) ListByName(ctx context.Context, group models.Group) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE ($1 = '' OR student_group = $1) ORDER BY full_name ASC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, string(group)); err != nil {
		return nil, fmt.Errorf("list students by name: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsDuplicate reports whether a student collides on phone or on the
// (full name, spiritual name, age) triple, optionally excluding an ID.
func (r *StudentRepository) ExistsDuplicate(ctx context.Context, phone, fullName, spiritualName string, age int, excludeID string) (bool, error) {
	query := `SELECT 1 FROM students WHERE (phone = $1 OR (full_name = $2 AND spiritual_name = $3 AND age = $4))`
	args := []interface{}{phone, fullName, spiritualName, age}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate student: %w", err)
	}
	return true, nil
}

// ExistsByPhone checks phone uniqueness, optionally excluding an ID.
func (r *StudentRepository) ExistsByPhone(ctx context.Context, phone string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE phone = $1"
	args := []interface{}{phone}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check phone: %w", err)
	}
	return true, nil
}

// Create inserts a new student record. The unique index on phone backstops
// the application-level duplicate pre-check; violations surface as the
// duplicate error, not a generic failure.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.RegistrationDate.IsZero() {
		student.RegistrationDate = now
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, full_name, spiritual_name, sex, age, class, family_name, phone, address, photo, student_group, registration_date, created_at, updated_at)
        VALUES (:id, :full_name, :spiritual_name, :sex, :age, :class, :family_name, :phone, :address, :photo, :student_group, :registration_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateStudent, "phone number already registered")
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student. Group and registration date are fixed
// at creation and never written here.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, spiritual_name = :spiritual_name, sex = :sex, age = :age, class = :class, family_name = :family_name, phone = :phone, address = :address, photo = :photo, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateStudent, "phone number already registered")
		}
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student together with all attendance records referencing
// it, in one transaction.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE student_id = $1`, id); err != nil {
		return fmt.Errorf("delete student attendance: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	committed = true
	return nil
}

// CountBySex returns total, male and female student counts.
func (r *StudentRepository) CountBySex(ctx context.Context) (total, male, female int, err error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE sex = 'male') AS male,
        COUNT(*) FILTER (WHERE sex = 'female') AS female
        FROM students`
	row := struct {
		Total  int `db:"total"`
		Male   int `db:"male"`
		Female int `db:"female"`
	}{}
	if err = r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, 0, fmt.Errorf("count students by sex: %w", err)
	}
	return row.Total, row.Male, row.Female, nil
}

// CountByGroup returns student counts per cohort.
func (r *StudentRepository) CountByGroup(ctx context.Context) ([]models.GroupCount, error) {
	const query = `SELECT student_group, COUNT(*) AS count FROM students GROUP BY student_group ORDER BY student_group`
	var counts []models.GroupCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count students by group: %w", err)
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
