package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-cms-api/internal/dto"
	"github.com/noah-isme/site-cms-api/internal/middleware"
	"github.com/noah-isme/site-cms-api/internal/models"
	"github.com/noah-isme/site-cms-api/pkg/editor"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/response"
)

type siteConfigServiceMock struct {
	saveErr      error
	restoreErr   error
	lastKey      string
	lastActor    *models.JWTClaims
	lastSave     dto.SaveSiteConfigRequest
	lastQuery    dto.HistoryQuery
	lastRestore  dto.RestoreRequest
	lastHistory  string
	historyLimit int
}

func (m *siteConfigServiceMock) List(ctx context.Context) ([]models.SiteConfigSummary, error) {
	return []models.SiteConfigSummary{{Key: "home"}}, nil
}

func (m *siteConfigServiceMock) Get(ctx context.Context, key string, historyLimit int) (*dto.SiteConfigDetail, error) {
	m.lastKey, m.historyLimit = key, historyLimit
	return &dto.SiteConfigDetail{Key: key}, nil
}

func (m *siteConfigServiceMock) Tree(ctx context.Context, key string) (*editor.Node, error) {
	return &editor.Node{Kind: editor.NodeObject}, nil
}

func (m *siteConfigServiceMock) Save(ctx context.Context, key string, req dto.SaveSiteConfigRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	m.lastKey, m.lastSave, m.lastActor = key, req, actor
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	return &dto.HistoryEntry{ID: "h1", Key: key, Action: string(models.HistoryActionUpdate)}, nil
}

func (m *siteConfigServiceMock) ApplyEdits(ctx context.Context, key string, req dto.ApplyEditsRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	m.lastKey = key
	return &dto.HistoryEntry{ID: "h2", Key: key}, nil
}

func (m *siteConfigServiceMock) UpdateField(ctx context.Context, key string, req dto.UpdateFieldRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	m.lastKey = key
	return &dto.HistoryEntry{ID: "h3", Key: key}, nil
}

func (m *siteConfigServiceMock) History(ctx context.Context, key string, query dto.HistoryQuery) ([]dto.HistoryEntry, error) {
	m.lastKey, m.lastQuery = key, query
	return []dto.HistoryEntry{}, nil
}

func (m *siteConfigServiceMock) Restore(ctx context.Context, historyID string, req dto.RestoreRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	m.lastHistory, m.lastRestore = historyID, req
	if m.restoreErr != nil {
		return nil, m.restoreErr
	}
	return &dto.HistoryEntry{ID: "h9", Action: string(models.HistoryActionRestore)}, nil
}

type exporterMock struct {
	format models.ExportFormat
	limit  int
}

func (m *exporterMock) ExportHistory(ctx context.Context, key string, format models.ExportFormat, limit int) (*dto.HistoryExport, error) {
	m.format, m.limit = format, limit
	if format != models.ExportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &dto.HistoryExport{Filename: "history_home.csv", ContentType: "text/csv", Content: []byte("Time,Action\n")}, nil
}

var editorClaims = &models.JWTClaims{UserID: "u-1", Username: "editor", Role: models.RoleAdmin}

func newSiteConfigContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, editorClaims)
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSiteConfigHandlerSavePassesActorAndKey(t *testing.T) {
	svc := &siteConfigServiceMock{}
	handler := NewSiteConfigHandler(svc, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodPut, "/site-configs/home", []byte(`{"value":{"hero":{"title":{"zh-CN":"你好"}}},"note":"first"}`))
	c.Params = gin.Params{{Key: "key", Value: "home"}}

	handler.Save(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "home", svc.lastKey)
	assert.Equal(t, editorClaims, svc.lastActor)
	assert.Equal(t, "first", svc.lastSave.Note)
	assert.JSONEq(t, `{"hero":{"title":{"zh-CN":"你好"}}}`, string(svc.lastSave.Value))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestSiteConfigHandlerSaveInvalidBody(t *testing.T) {
	handler := NewSiteConfigHandler(&siteConfigServiceMock{}, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodPut, "/site-configs/home", []byte(`invalid`))
	c.Params = gin.Params{{Key: "key", Value: "home"}}

	handler.Save(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSiteConfigHandlerSaveRendersServiceError(t *testing.T) {
	svc := &siteConfigServiceMock{saveErr: appErrors.ErrSaveFailed}
	handler := NewSiteConfigHandler(svc, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodPut, "/site-configs/home", []byte(`{"value":{}}`))
	c.Params = gin.Params{{Key: "key", Value: "home"}}

	handler.Save(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "save failed, try again later", env.Error.Message)
}

func TestSiteConfigHandlerGetReadsHistoryLimit(t *testing.T) {
	svc := &siteConfigServiceMock{}
	handler := NewSiteConfigHandler(svc, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodGet, "/site-configs/home?history_limit=5", nil)
	c.Params = gin.Params{{Key: "key", Value: "home"}}

	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, svc.historyLimit)
}

func TestSiteConfigHandlerHistoryBindsQuery(t *testing.T) {
	svc := &siteConfigServiceMock{}
	handler := NewSiteConfigHandler(svc, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodGet, "/site-configs/home/history?limit=10&diff_limit=3", nil)
	c.Params = gin.Params{{Key: "key", Value: "home"}}

	handler.History(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.HistoryQuery{Limit: 10, DiffLimit: 3}, svc.lastQuery)
}

func TestSiteConfigHandlerHistoryRejectsBadLimit(t *testing.T) {
	handler := NewSiteConfigHandler(&siteConfigServiceMock{}, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodGet, "/site-configs/home/history?limit=ten", nil)
	c.Params = gin.Params{{Key: "key", Value: "home"}}

	handler.History(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSiteConfigHandlerRestoreModeFromQuery(t *testing.T) {
	svc := &siteConfigServiceMock{}
	handler := NewSiteConfigHandler(svc, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodPost, "/site-configs/history/h1/restore?mode=Previous", []byte(`{"note":"undo"}`))
	c.Params = gin.Params{{Key: "id", Value: "h1"}}

	handler.Restore(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "h1", svc.lastHistory)
	assert.Equal(t, models.RestoreModePrevious, svc.lastRestore.Mode)
	assert.Equal(t, "undo", svc.lastRestore.Note)
}

func TestSiteConfigHandlerRestoreWithoutBody(t *testing.T) {
	svc := &siteConfigServiceMock{restoreErr: appErrors.ErrNoPreviousValue}
	handler := NewSiteConfigHandler(svc, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodPost, "/site-configs/history/h1/restore?mode=previous", nil)
	c.Params = gin.Params{{Key: "id", Value: "h1"}}

	handler.Restore(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NO_PREVIOUS_VALUE", env.Error.Code)
}

func TestSiteConfigHandlerRestoreReadsChunkedBody(t *testing.T) {
	svc := &siteConfigServiceMock{}
	handler := NewSiteConfigHandler(svc, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodPost, "/site-configs/history/h1/restore", nil)
	c.Request.Body = io.NopCloser(strings.NewReader(`{"mode":"previous","note":"undo"}`))
	c.Request.ContentLength = -1
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "h1"}}

	handler.Restore(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RestoreModePrevious, svc.lastRestore.Mode)
	assert.Equal(t, "undo", svc.lastRestore.Note)
}

func TestSiteConfigHandlerRestoreEmptyChunkedBody(t *testing.T) {
	svc := &siteConfigServiceMock{}
	handler := NewSiteConfigHandler(svc, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodPost, "/site-configs/history/h1/restore", nil)
	c.Request.Body = io.NopCloser(strings.NewReader(""))
	c.Request.ContentLength = -1
	c.Params = gin.Params{{Key: "id", Value: "h1"}}

	handler.Restore(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.lastRestore.Mode)
}

func TestSiteConfigHandlerExportSetsAttachment(t *testing.T) {
	exporter := &exporterMock{}
	handler := NewSiteConfigHandler(&siteConfigServiceMock{}, exporter)
	c, w := newSiteConfigContext(http.MethodGet, "/site-configs/home/history/export?limit=50", nil)
	c.Params = gin.Params{{Key: "key", Value: "home"}}

	handler.ExportHistory(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ExportFormatCSV, exporter.format)
	assert.Equal(t, 50, exporter.limit)
	assert.Equal(t, `attachment; filename="history_home.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "Time,Action\n", w.Body.String())
}

func TestSiteConfigHandlerExportUnknownFormat(t *testing.T) {
	handler := NewSiteConfigHandler(&siteConfigServiceMock{}, &exporterMock{})
	c, w := newSiteConfigContext(http.MethodGet, "/site-configs/home/history/export?format=XLSX", nil)
	c.Params = gin.Params{{Key: "key", Value: "home"}}

	handler.ExportHistory(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
