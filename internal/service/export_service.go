package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selamtools/sunday-school-api/internal/models"
	"github.com/selamtools/sunday-school-api/pkg/export"
	"github.com/selamtools/sunday-school-api/pkg/storage"
)

type populationStatsProvider interface {
	Population(ctx context.Context, req StatsRequest) (*models.PopulationStats, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders attendance statistics into downloadable files.
type ExportService struct {
	stats   populationStatsProvider
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(stats populationStatsProvider, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		stats:   stats,
		storage: store,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the statistics dataset for the job and stores the rendered
// export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download?token=%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	stats, _, err := s.stats.Population(ctx, StatsRequest{
		Group:     params.Group,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	})
	if err != nil {
		return export.Dataset{}, "", err
	}

	headers := []string{"Full Name", "Spiritual Name", "Group", "Days", "Attended", "Possible", "Attendance (%)", "Monday (%)", "Wednesday (%)", "Friday (%)"}
	rows := make([]map[string]string, 0, len(stats.Students))
	for _, st := range stats.Students {
		rows = append(rows, map[string]string{
			"Full Name":      st.Student.FullName,
			"Spiritual Name": st.Student.SpiritualName,
			"Group":          string(st.Student.Group),
			"Days":           fmt.Sprintf("%d", st.TotalDays),
			"Attended":       fmt.Sprintf("%d", st.AttendedSessions),
			"Possible":       fmt.Sprintf("%d", st.TotalSessions),
			"Attendance (%)": fmt.Sprintf("%.2f", st.AttendancePercentage),
			"Monday (%)":     fmt.Sprintf("%d", st.SessionStats.Monday.Percentage),
			"Wednesday (%)":  fmt.Sprintf("%d", st.SessionStats.Wednesday.Percentage),
			"Friday (%)":     fmt.Sprintf("%d", st.SessionStats.Friday.Percentage),
		})
	}

	title := "Attendance Report"
	if params.Group != "" {
		title = fmt.Sprintf("Attendance Report Group %s", params.Group)
	}
	return export.Dataset{Headers: headers, Rows: rows}, title, nil
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	groupPart := "all"
	if job.Params.Group != "" {
		groupPart = strings.ToLower(string(job.Params.Group))
	}
	return fmt.Sprintf("attendance_%s_%s.%s", groupPart, timestamp, job.Params.Format)
}
