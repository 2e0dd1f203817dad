package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/selamtools/sunday-school-api/internal/models"
	"github.com/selamtools/sunday-school-api/internal/repository"
	appErrors "github.com/selamtools/sunday-school-api/pkg/errors"
	"github.com/selamtools/sunday-school-api/pkg/jobs"
)

type mockReportStore struct {
	jobs    map[string]*models.ReportJob
	updates []repository.UpdateReportJobParams
}

func newMockReportStore() *mockReportStore {
	return &mockReportStore{jobs: make(map[string]*models.ReportJob)}
}

func (m *mockReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = "job-generated"
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockReportStore) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	if job, ok := m.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportStore) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	m.updates = append(m.updates, params)
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockReportStore) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range m.jobs {
		if job.Status == models.ReportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockReportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockGenerator struct {
	result *ExportResult
	err    error
}

func (m *mockGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func TestReportServiceCreateJob(t *testing.T) {
	store := newMockReportStore()
	dispatcher := &mockDispatcher{}
	svc := NewReportService(store, dispatcher, nil, zap.NewNop(), ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), ReportRequest{Format: "CSV", Group: "B"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, resp.ID, dispatcher.enqueued[0].ID)

	stored := store.jobs[resp.ID]
	assert.Equal(t, models.ReportFormatCSV, stored.Params.Format)
	assert.Equal(t, models.GroupB, stored.Params.Group)
}

func TestReportServiceCreateJobRejectsFormat(t *testing.T) {
	svc := NewReportService(newMockReportStore(), &mockDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{Format: "xlsx"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestReportServiceCreateJobRejectsGroup(t *testing.T) {
	svc := NewReportService(newMockReportStore(), &mockDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{Format: "csv", Group: "Z"})
	require.Error(t, err)
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	store := newMockReportStore()
	svc := NewReportService(store, &mockDispatcher{err: assert.AnError}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{Format: "csv"})
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportServiceGetStatusNotFound(t *testing.T) {
	svc := NewReportService(newMockReportStore(), &mockDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.GetStatus(context.Background(), "missing")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	store := newMockReportStore()
	store.jobs["q1"] = &models.ReportJob{ID: "q1", Status: models.ReportStatusQueued}
	store.jobs["f1"] = &models.ReportJob{ID: "f1", Status: models.ReportStatusFinished}
	dispatcher := &mockDispatcher{}
	svc := NewReportService(store, dispatcher, nil, zap.NewNop(), ReportServiceConfig{})

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, "q1", dispatcher.enqueued[0].ID)
}

func TestReportWorkerHandleFinishes(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job1"] = &models.ReportJob{
		ID:     "job1",
		Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{Format: models.ReportFormatCSV},
	}
	generator := &mockGenerator{result: &ExportResult{URL: "/api/v1/reports/download?token=abc"}}
	worker := NewReportWorker(store, generator, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job1"})
	require.NoError(t, err)

	job := store.jobs["job1"]
	assert.Equal(t, models.ReportStatusFinished, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/reports/download?token=abc", *job.ResultURL)
	require.NotNil(t, job.FinishedAt)
}

func TestReportWorkerHandleRequeuesOnFailure(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job1"] = &models.ReportJob{ID: "job1", Status: models.ReportStatusQueued}
	worker := NewReportWorker(store, &mockGenerator{err: assert.AnError}, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job1", Attempt: 0})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, store.jobs["job1"].Status)
}

func TestReportWorkerHandleFailsAfterRetries(t *testing.T) {
	store := newMockReportStore()
	store.jobs["job1"] = &models.ReportJob{ID: "job1", Status: models.ReportStatusQueued}
	worker := NewReportWorker(store, &mockGenerator{err: assert.AnError}, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job1", Attempt: 2})
	require.Error(t, err)

	job := store.jobs["job1"]
	assert.Equal(t, models.ReportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.NotEmpty(t, *job.ErrorMessage)
	require.NotNil(t, job.FinishedAt)
}
