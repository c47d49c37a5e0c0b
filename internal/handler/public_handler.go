package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-cms-api/internal/dto"
	"github.com/noah-isme/site-cms-api/internal/middleware"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/localized"
	"github.com/noah-isme/site-cms-api/pkg/response"
)

type publicConfigService interface {
	Public(ctx context.Context, key string, locale localized.Locale) (json.RawMessage, bool, error)
}

type visibilityResolver interface {
	Resolve(ctx context.Context, query dto.VisibilityResolveQuery) (*dto.VisibilityResolveResult, error)
}

// PublicHandler serves the unauthenticated read API used by the site frontend.
type PublicHandler struct {
	configs       publicConfigService
	visibility    visibilityResolver
	defaultLocale localized.Locale
	maxAge        time.Duration
}

// NewPublicHandler builds a new handler.
func NewPublicHandler(configs publicConfigService, visibility visibilityResolver, defaultLocale localized.Locale, maxAge time.Duration) *PublicHandler {
	return &PublicHandler{configs: configs, visibility: visibility, defaultLocale: defaultLocale, maxAge: maxAge}
}

// SiteConfig godoc
// @Summary Get a site config resolved for the request locale
// @Tags Public
// @Produce json
// @Param key path string true "Config key"
// @Param locale query string false "Locale, overrides X-Locale and Accept-Language"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/site-configs/{key} [get]
func (h *PublicHandler) SiteConfig(c *gin.Context) {
	locale := middleware.LocaleFromContext(c, h.defaultLocale)
	raw, hit, err := h.configs.Public(c.Request.Context(), c.Param("key"), locale)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	middleware.SetMeta(c, "locale", string(locale))
	response.Public(c, raw, h.maxAge, middleware.ExtractMeta(c))
}

// ResolveVisibility godoc
// @Summary Resolve whether a page, section or field is visible
// @Tags Public
// @Produce json
// @Param page query string true "Page"
// @Param section query string false "Section"
// @Param field query string false "Field path"
// @Success 200 {object} response.Envelope
// @Router /public/visibility/resolve [get]
func (h *PublicHandler) ResolveVisibility(c *gin.Context) {
	var query dto.VisibilityResolveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid visibility query"))
		return
	}
	result, err := h.visibility.Resolve(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Public(c, result, h.maxAge, nil)
}
