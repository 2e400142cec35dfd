package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fitcoach-api/internal/models"
	"github.com/noah-isme/fitcoach-api/internal/repository"
	appErrors "github.com/noah-isme/fitcoach-api/pkg/errors"
	"github.com/noah-isme/fitcoach-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig bounds export sizes.
type ExportConfig struct {
	PageSize int
	MaxRows  int
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders check-in history and coach engagement reports.
type ExportService struct {
	history    checkInHistory
	engagement engagementReader
	csv        datasetRenderer
	pdf        datasetRenderer
	cfg        ExportConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService instance.
func NewExportService(history checkInHistory, engagement engagementReader, cfg ExportConfig, logger *zap.Logger, csvRenderer, pdfRenderer datasetRenderer) *ExportService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = repository.MaxPageSize
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if csvRenderer == nil {
		csvRenderer = export.NewCSVExporter()
	}
	if pdfRenderer == nil {
		pdfRenderer = export.NewPDFExporter()
	}
	return &ExportService{
		history:    history,
		engagement: engagement,
		csv:        csvRenderer,
		pdf:        pdfRenderer,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// CheckIns renders a gym's check-ins matching filter, newest first.
func (s *ExportService) CheckIns(ctx context.Context, filter models.CheckInFilter, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if strings.TrimSpace(filter.GymID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "gym id is required")
	}

	data := export.Dataset{Title: "Check-ins", Headers: []string{"Time", "Member", "Member ID", "Method"}}
	filter.PageSize = s.cfg.PageSize
	for page := 1; len(data.Rows) < s.cfg.MaxRows; page++ {
		filter.Page = page
		entries, total, err := s.history.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-ins")
		}
		for _, entry := range entries {
			data.Append(
				entry.CreatedAt.UTC().Format(time.RFC3339),
				strings.TrimSpace(entry.FirstName+" "+entry.LastName),
				entry.MemberID,
				string(entry.Method),
			)
		}
		if len(entries) == 0 || page*s.cfg.PageSize >= total {
			break
		}
	}
	if len(data.Rows) > s.cfg.MaxRows {
		data.Rows = data.Rows[:s.cfg.MaxRows]
	}

	renderer, contentType := s.csv, "text/csv"
	if format == ExportFormatPDF {
		renderer, contentType = s.pdf, "application/pdf"
	}
	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("check-in export rendered", zap.String("gym_id", filter.GymID), zap.String("format", format), zap.Int("rows", len(data.Rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("checkins-%s-%s.%s", filter.GymID, s.now().UTC().Format("20060102"), format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// EngagementReport renders the coach's roster scores as a PDF, lowest score first.
func (s *ExportService) EngagementReport(ctx context.Context, coachUserID string) (*ExportFile, error) {
	scores, _, err := s.engagement.Engagement(ctx, coachUserID, "", false)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   "Client engagement",
		Headers: []string{"Client", "Overall", "Sessions", "Habits", "Messages", "Progress", "Plan", "Change"},
	}
	for _, score := range scores {
		data.Append(
			score.Name,
			strconv.Itoa(score.OverallScore),
			strconv.Itoa(score.Breakdown.SessionAttendance),
			strconv.Itoa(score.Breakdown.HabitCompletion),
			strconv.Itoa(score.Breakdown.MessageResponsiveness),
			strconv.Itoa(score.Breakdown.ProgressLogging),
			strconv.Itoa(score.Breakdown.PlanAdherence),
			fmt.Sprintf("%+d", score.WeekOverWeekChange),
		)
	}
	body, err := s.pdf.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render engagement report")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("engagement-%s.pdf", s.now().UTC().Format("20060102")),
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}
