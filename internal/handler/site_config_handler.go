package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-cms-api/internal/dto"
	"github.com/noah-isme/site-cms-api/internal/models"
	"github.com/noah-isme/site-cms-api/pkg/editor"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/response"
)

type siteConfigService interface {
	List(ctx context.Context) ([]models.SiteConfigSummary, error)
	Get(ctx context.Context, key string, historyLimit int) (*dto.SiteConfigDetail, error)
	Tree(ctx context.Context, key string) (*editor.Node, error)
	Save(ctx context.Context, key string, req dto.SaveSiteConfigRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error)
	ApplyEdits(ctx context.Context, key string, req dto.ApplyEditsRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error)
	UpdateField(ctx context.Context, key string, req dto.UpdateFieldRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error)
	History(ctx context.Context, key string, query dto.HistoryQuery) ([]dto.HistoryEntry, error)
	Restore(ctx context.Context, historyID string, req dto.RestoreRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error)
}

type historyExporter interface {
	ExportHistory(ctx context.Context, key string, format models.ExportFormat, limit int) (*dto.HistoryExport, error)
}

// SiteConfigHandler exposes the admin site config endpoints.
type SiteConfigHandler struct {
	service  siteConfigService
	exporter historyExporter
}

// NewSiteConfigHandler builds a new handler.
func NewSiteConfigHandler(service siteConfigService, exporter historyExporter) *SiteConfigHandler {
	return &SiteConfigHandler{service: service, exporter: exporter}
}

// List godoc
// @Summary List site configs
// @Tags SiteConfig
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /site-configs [get]
func (h *SiteConfigHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get site config with recent history
// @Tags SiteConfig
// @Produce json
// @Param key path string true "Config key"
// @Param history_limit query int false "History entries to include"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /site-configs/{key} [get]
func (h *SiteConfigHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("key"), queryInt(c, "history_limit"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Tree godoc
// @Summary Get the editor tree of a site config
// @Tags SiteConfig
// @Produce json
// @Param key path string true "Config key"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /site-configs/{key}/tree [get]
func (h *SiteConfigHandler) Tree(c *gin.Context) {
	tree, err := h.service.Tree(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tree, nil)
}

// Save godoc
// @Summary Replace a site config
// @Tags SiteConfig
// @Accept json
// @Produce json
// @Param key path string true "Config key"
// @Param payload body dto.SaveSiteConfigRequest true "Config document"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /site-configs/{key} [put]
func (h *SiteConfigHandler) Save(c *gin.Context) {
	var req dto.SaveSiteConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid site config payload"))
		return
	}
	entry, err := h.service.Save(c.Request.Context(), c.Param("key"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// ApplyEdits godoc
// @Summary Apply editor operations to a site config
// @Tags SiteConfig
// @Accept json
// @Produce json
// @Param key path string true "Config key"
// @Param payload body dto.ApplyEditsRequest true "Editor operations"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /site-configs/{key}/edits [post]
func (h *SiteConfigHandler) ApplyEdits(c *gin.Context) {
	var req dto.ApplyEditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid edit payload"))
		return
	}
	entry, err := h.service.ApplyEdits(c.Request.Context(), c.Param("key"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// UpdateField godoc
// @Summary Replace one field of a site config
// @Tags SiteConfig
// @Accept json
// @Produce json
// @Param key path string true "Config key"
// @Param payload body dto.UpdateFieldRequest true "Field path and value"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /site-configs/{key}/field [put]
func (h *SiteConfigHandler) UpdateField(c *gin.Context) {
	var req dto.UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid field payload"))
		return
	}
	entry, err := h.service.UpdateField(c.Request.Context(), c.Param("key"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// History godoc
// @Summary List history of a site config
// @Tags SiteConfig
// @Produce json
// @Param key path string true "Config key"
// @Param limit query int false "Entries to return"
// @Param diff_limit query int false "Diff entries shown per history entry"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /site-configs/{key}/history [get]
func (h *SiteConfigHandler) History(c *gin.Context) {
	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid history query"))
		return
	}
	entries, err := h.service.History(c.Request.Context(), c.Param("key"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportHistory godoc
// @Summary Export history of a site config
// @Tags SiteConfig
// @Produce text/csv
// @Produce application/pdf
// @Param key path string true "Config key"
// @Param format query string false "csv or pdf"
// @Param limit query int false "Entries to export"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /site-configs/{key}/history/export [get]
func (h *SiteConfigHandler) ExportHistory(c *gin.Context) {
	format := models.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(models.ExportFormatCSV))))
	export, err := h.exporter.ExportHistory(c.Request.Context(), c.Param("key"), format, queryInt(c, "limit"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, export.ContentType, export.Content)
}

// Restore godoc
// @Summary Restore a site config from a history entry
// @Tags SiteConfig
// @Accept json
// @Produce json
// @Param id path string true "History entry ID"
// @Param mode query string false "version (default) or previous"
// @Param payload body dto.RestoreRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /site-configs/history/{id}/restore [post]
func (h *SiteConfigHandler) Restore(c *gin.Context) {
	var req dto.RestoreRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid restore payload"))
			return
		}
	}
	if mode := c.Query("mode"); mode != "" {
		req.Mode = models.RestoreMode(strings.ToLower(mode))
	}
	entry, err := h.service.Restore(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
