package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/site-cms-api/internal/models"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/export"
	"github.com/noah-isme/site-cms-api/pkg/jsondiff"
)

type historySourceStub struct {
	entries   []models.SiteConfigHistory
	lastLimit int
}

func (h *historySourceStub) HistoryRecords(ctx context.Context, key string, limit int) ([]models.SiteConfigHistory, error) {
	h.lastLimit = limit
	return h.entries, nil
}

func newExportServiceForTest(entries []models.SiteConfigHistory) (*ExportService, *historySourceStub) {
	src := &historySourceStub{entries: entries}
	svc := NewExportService(src, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter(""))
	svc.now = func() time.Time { return time.Date(2026, 10, 2, 9, 30, 0, 0, time.UTC) }
	return svc, src
}

func sampleHistory() []models.SiteConfigHistory {
	note := "hero copy"
	return []models.SiteConfigHistory{{
		ID:            "h1",
		ConfigKey:     "home",
		Action:        models.HistoryActionUpdate,
		Diff:          models.HistoryDiff{{Op: jsondiff.OpChange, Path: "hero.title", Before: "a", After: "b"}},
		ActorUsername: "editor",
		ActorRole:     "ADMIN",
		Note:          &note,
		CreatedAt:     time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
	}}
}

func TestExportHistoryCSV(t *testing.T) {
	svc, src := newExportServiceForTest(sampleHistory())

	out, err := svc.ExportHistory(context.Background(), "home", models.ExportFormatCSV, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, src.lastLimit)
	assert.Equal(t, "history_home_20261002_093000.csv", out.Filename)
	assert.True(t, strings.HasPrefix(out.ContentType, "text/csv"))

	body := string(bytes.TrimPrefix(out.Content, []byte{0xEF, 0xBB, 0xBF}))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Time,Action,Actor,Role,Changes,Changed Paths,Note,Restored From,Entry ID", lines[0])
	assert.Equal(t, "2026-10-01T08:00:00Z,update,editor,ADMIN,1,change hero.title,hero copy,,h1", lines[1])
}

func TestExportHistoryPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(sampleHistory())

	out, err := svc.ExportHistory(context.Background(), "home", models.ExportFormatPDF, 0)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", out.ContentType)
	assert.True(t, bytes.HasPrefix(out.Content, []byte("%PDF")))
}

func TestExportHistoryRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(nil)

	_, err := svc.ExportHistory(context.Background(), "home", models.ExportFormat("xlsx"), 0)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestHistoryDatasetCapsChangedPaths(t *testing.T) {
	diff := make(models.HistoryDiff, 0, 12)
	for i := 0; i < 12; i++ {
		diff = append(diff, jsondiff.Change{Op: jsondiff.OpAdd, Path: string(rune('a' + i)), After: i})
	}
	data := historyDataset([]models.SiteConfigHistory{{ID: "h1", Diff: diff}})
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "12", data.Rows[0]["Changes"])
	assert.True(t, strings.HasSuffix(data.Rows[0]["Changed Paths"], "+2 more"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "a-b_c", sanitizeFilename("a/b c"))
	assert.Equal(t, "首页", sanitizeFilename("首页"))
}
