package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-cms-api/internal/dto"
	"github.com/noah-isme/site-cms-api/internal/models"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/response"
	"github.com/noah-isme/site-cms-api/pkg/visibility"
)

type visibilityService interface {
	Get(ctx context.Context) (*visibility.Config, error)
	Fields(ctx context.Context, page, configKey string) ([]dto.VisibilityField, error)
	TogglePage(ctx context.Context, page string, actor *models.JWTClaims) (*dto.ToggleResult, error)
	ToggleSection(ctx context.Context, page, section string, actor *models.JWTClaims) (*dto.ToggleResult, error)
	ToggleField(ctx context.Context, page string, req dto.ToggleFieldRequest, actor *models.JWTClaims) (*dto.ToggleResult, error)
	SetFields(ctx context.Context, page string, req dto.SetFieldsRequest, actor *models.JWTClaims) (*visibility.Config, error)
	SetCategory(ctx context.Context, page, rawCategory string, req dto.SetCategoryRequest, actor *models.JWTClaims) (*dto.CategoryResult, error)
}

// VisibilityHandler exposes the visibility override endpoints.
type VisibilityHandler struct {
	service visibilityService
}

// NewVisibilityHandler builds a new handler.
func NewVisibilityHandler(service visibilityService) *VisibilityHandler {
	return &VisibilityHandler{service: service}
}

// Get godoc
// @Summary Get visibility overrides
// @Tags Visibility
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /visibility [get]
func (h *VisibilityHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Fields godoc
// @Summary List the fields of a page config with their overrides
// @Tags Visibility
// @Produce json
// @Param page path string true "Page"
// @Param config_key query string false "Config key holding the page content, defaults to the page"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /visibility/pages/{page}/fields [get]
func (h *VisibilityHandler) Fields(c *gin.Context) {
	fields, err := h.service.Fields(c.Request.Context(), c.Param("page"), c.Query("config_key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fields, nil)
}

// TogglePage godoc
// @Summary Toggle page visibility
// @Tags Visibility
// @Produce json
// @Param page path string true "Page"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /visibility/pages/{page}/toggle [post]
func (h *VisibilityHandler) TogglePage(c *gin.Context) {
	result, err := h.service.TogglePage(c.Request.Context(), c.Param("page"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ToggleSection godoc
// @Summary Toggle section visibility
// @Tags Visibility
// @Produce json
// @Param page path string true "Page"
// @Param section path string true "Section"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /visibility/pages/{page}/sections/{section}/toggle [post]
func (h *VisibilityHandler) ToggleSection(c *gin.Context) {
	result, err := h.service.ToggleSection(c.Request.Context(), c.Param("page"), c.Param("section"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ToggleField godoc
// @Summary Toggle field visibility
// @Tags Visibility
// @Accept json
// @Produce json
// @Param page path string true "Page"
// @Param payload body dto.ToggleFieldRequest true "Field path"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /visibility/pages/{page}/fields/toggle [post]
func (h *VisibilityHandler) ToggleField(c *gin.Context) {
	var req dto.ToggleFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid field payload"))
		return
	}
	result, err := h.service.ToggleField(c.Request.Context(), c.Param("page"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SetFields godoc
// @Summary Set visibility of several fields
// @Tags Visibility
// @Accept json
// @Produce json
// @Param page path string true "Page"
// @Param payload body dto.SetFieldsRequest true "Field paths and flag"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /visibility/pages/{page}/fields [put]
func (h *VisibilityHandler) SetFields(c *gin.Context) {
	var req dto.SetFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fields payload"))
		return
	}
	cfg, err := h.service.SetFields(c.Request.Context(), c.Param("page"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// SetCategory godoc
// @Summary Set visibility of every field in a category
// @Tags Visibility
// @Accept json
// @Produce json
// @Param page path string true "Page"
// @Param category path string true "all, button, copy or carousel"
// @Param payload body dto.SetCategoryRequest true "Hidden flag"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /visibility/pages/{page}/categories/{category} [put]
func (h *VisibilityHandler) SetCategory(c *gin.Context) {
	var req dto.SetCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	result, err := h.service.SetCategory(c.Request.Context(), c.Param("page"), c.Param("category"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
