package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/selamtools/sunday-school-api/internal/models"
	"github.com/selamtools/sunday-school-api/pkg/storage"
)

type mockPopulationProvider struct {
	stats    *models.PopulationStats
	lastReq  StatsRequest
	err      error
	numCalls int
}

func (m *mockPopulationProvider) Population(ctx context.Context, req StatsRequest) (*models.PopulationStats, bool, error) {
	m.lastReq = req
	m.numCalls++
	if m.err != nil {
		return nil, false, m.err
	}
	return m.stats, false, nil
}

type mockFileStorage struct {
	saved map[string][]byte
}

func newMockFileStorage() *mockFileStorage {
	return &mockFileStorage{saved: make(map[string][]byte)}
}

func (m *mockFileStorage) Save(filename string, data []byte) (string, error) {
	m.saved[filename] = data
	return filename, nil
}

func (m *mockFileStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *mockFileStorage) Delete(filename string) error {
	delete(m.saved, filename)
	return nil
}

func (m *mockFileStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

func samplePopulation() *models.PopulationStats {
	return &models.PopulationStats{
		Students: []models.AttendanceStats{
			{
				Student:              models.Student{ID: "s1", FullName: "Abel Tesfaye", SpiritualName: "Gabriel", Group: models.GroupB},
				TotalDays:            2,
				AttendedSessions:     4,
				TotalSessions:        6,
				AttendancePercentage: 66.67,
				SessionStats: models.SessionBreakdown{
					Monday:    models.SessionStats{Attended: 2, Total: 2, Percentage: 100},
					Wednesday: models.SessionStats{Attended: 1, Total: 2, Percentage: 50},
					Friday:    models.SessionStats{Attended: 1, Total: 2, Percentage: 50},
				},
			},
		},
		Overall: models.OverallStats{TotalStudents: 1},
	}
}

func TestExportServiceGenerateCSV(t *testing.T) {
	provider := &mockPopulationProvider{stats: samplePopulation()}
	store := newMockFileStorage()
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(provider, store, signer, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop(), nil, nil)

	job := &models.ReportJob{
		ID:     "job1",
		Params: models.ReportJobParams{Format: models.ReportFormatCSV, Group: models.GroupB},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, models.GroupB, provider.lastReq.Group)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/reports/download?token="))
	assert.Equal(t, models.ReportFormatCSV, result.Format)

	require.Len(t, store.saved, 1)
	var content string
	for name, data := range store.saved {
		assert.True(t, strings.HasPrefix(name, "attendance_b_"))
		assert.True(t, strings.HasSuffix(name, ".csv"))
		content = string(data)
	}
	assert.Contains(t, content, "Full Name,Spiritual Name,Group")
	assert.Contains(t, content, "Abel Tesfaye,Gabriel,B,2,4,6,66.67,100,50,50")

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestExportServiceGeneratePDF(t *testing.T) {
	provider := &mockPopulationProvider{stats: samplePopulation()}
	store := newMockFileStorage()
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewExportService(provider, store, signer, ExportConfig{}, zap.NewNop(), nil, nil)

	job := &models.ReportJob{
		ID:     "job2",
		Params: models.ReportJobParams{Format: models.ReportFormatPDF},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatPDF, result.Format)

	require.Len(t, store.saved, 1)
	for name, data := range store.saved {
		assert.True(t, strings.HasPrefix(name, "attendance_all_"))
		assert.True(t, strings.HasSuffix(name, ".pdf"))
		assert.True(t, strings.HasPrefix(string(data), "%PDF"))
	}
}

func TestExportServiceGenerateUnknownFormat(t *testing.T) {
	provider := &mockPopulationProvider{stats: samplePopulation()}
	svc := NewExportService(provider, newMockFileStorage(), storage.NewSignedURLSigner("s", time.Hour), ExportConfig{}, zap.NewNop(), nil, nil)

	_, err := svc.Generate(context.Background(), &models.ReportJob{
		ID:     "job3",
		Params: models.ReportJobParams{Format: "xlsx"},
	})
	require.Error(t, err)
}
