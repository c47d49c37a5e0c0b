package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/site-cms-api/internal/dto"
	"github.com/noah-isme/site-cms-api/internal/models"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/export"
)

type historySource interface {
	HistoryRecords(ctx context.Context, key string, limit int) ([]models.SiteConfigHistory, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// maxExportedPaths bounds the changed-path column of an export row.
const maxExportedPaths = 10

var historyExportHeaders = []string{"Time", "Action", "Actor", "Role", "Changes", "Changed Paths", "Note", "Restored From", "Entry ID"}

// ExportService renders config history as downloadable CSV or PDF files.
type ExportService struct {
	history historySource
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(history historySource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	return &ExportService{history: history, csv: csv, pdf: pdf, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ExportHistory renders the newest limit entries of key in format.
func (s *ExportService) ExportHistory(ctx context.Context, key string, format models.ExportFormat, limit int) (*dto.HistoryExport, error) {
	if format == "" {
		format = models.ExportFormatCSV
	}
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	entries, err := s.history.HistoryRecords(ctx, key, limit)
	if err != nil {
		return nil, err
	}

	dataset := historyDataset(entries)
	var (
		payload     []byte
		contentType string
	)
	switch format {
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Config history: %s", key))
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render history export")
	}
	s.logger.Info("history exported", zap.String("key", key), zap.String("format", string(format)), zap.Int("entries", len(entries)))

	return &dto.HistoryExport{
		Filename:    s.buildFilename(key, format),
		ContentType: contentType,
		Content:     payload,
	}, nil
}

func historyDataset(entries []models.SiteConfigHistory) export.Dataset {
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		paths := make([]string, 0, len(entry.Diff))
		for i, change := range entry.Diff {
			if i == maxExportedPaths {
				paths = append(paths, fmt.Sprintf("+%d more", len(entry.Diff)-maxExportedPaths))
				break
			}
			paths = append(paths, fmt.Sprintf("%s %s", change.Op, change.Path))
		}
		rows = append(rows, map[string]string{
			"Time":          entry.CreatedAt.UTC().Format(time.RFC3339),
			"Action":        string(entry.Action),
			"Actor":         entry.ActorUsername,
			"Role":          entry.ActorRole,
			"Changes":       strconv.Itoa(len(entry.Diff)),
			"Changed Paths": strings.Join(paths, "; "),
			"Note":          deref(entry.Note),
			"Restored From": deref(entry.RestoredFrom),
			"Entry ID":      entry.ID,
		})
	}
	return export.Dataset{Headers: historyExportHeaders, Rows: rows}
}

func (s *ExportService) buildFilename(key string, format models.ExportFormat) string {
	timestamp := s.now().Format("20060102_150405")
	return fmt.Sprintf("history_%s_%s.%s", sanitizeFilename(key), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_", "\"", "", "\n", "", "\r", "")
	result := replacer.Replace(raw)
	if runes := []rune(result); len(runes) > 100 {
		return string(runes[:100])
	}
	return result
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
