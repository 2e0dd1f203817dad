package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/selamtools/sunday-school-api/internal/models"
	"github.com/selamtools/sunday-school-api/internal/service"
)

type fakeStudentStore struct {
	students   []models.Student
	lastFilter models.StudentFilter
}

func (f *fakeStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	f.lastFilter = filter
	var out []models.Student
	for _, s := range f.students {
		if filter.Group != "" && s.Group != filter.Group {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			student := s
			return &student, nil
		}
	}
	return nil, nil
}

func (f *fakeStudentStore) ExistsDuplicate(ctx context.Context, phone, fullName, spiritualName string, age int, excludeID string) (bool, error) {
	return false, nil
}

func (f *fakeStudentStore) ExistsByPhone(ctx context.Context, phone string, excludeID string) (bool, error) {
	return false, nil
}

func (f *fakeStudentStore) Create(ctx context.Context, student *models.Student) error { return nil }
func (f *fakeStudentStore) Update(ctx context.Context, student *models.Student) error { return nil }
func (f *fakeStudentStore) Delete(ctx context.Context, id string) error               { return nil }

func newStudentHandler(store *fakeStudentStore) *StudentHandler {
	svc := service.NewStudentService(store, nil, nil, zap.NewNop())
	return NewStudentHandler(svc)
}

type listEnvelope struct {
	Data  []models.Student       `json:"data"`
	Error map[string]interface{} `json:"error"`
}

func TestStudentHandlerListFiltersByGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeStudentStore{students: []models.Student{
		{ID: "s1", FullName: "Abel Tesfaye", Group: models.GroupB},
		{ID: "s2", FullName: "Ruth Haile", Group: models.GroupC},
	}}
	handler := newStudentHandler(store)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students?group=B", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.GroupB, store.lastFilter.Group)
	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "s1", envelope.Data[0].ID)
}

func TestStudentHandlerListRejectsUnknownGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeStudentStore{}
	handler := newStudentHandler(store)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students?group=Z", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error["code"])
	assert.Equal(t, models.Group(""), store.lastFilter.Group)
}
