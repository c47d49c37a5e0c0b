package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-cms-api/internal/dto"
	"github.com/noah-isme/site-cms-api/internal/middleware"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/localized"
)

type publicConfigMock struct {
	locale localized.Locale
	hit    bool
}

func (m *publicConfigMock) Public(ctx context.Context, key string, locale localized.Locale) (json.RawMessage, bool, error) {
	m.locale = locale
	if key == "missing" {
		return nil, false, appErrors.ErrNotFound
	}
	return json.RawMessage(`{"hero":{"title":"Hello"}}`), m.hit, nil
}

type resolverMock struct{ query dto.VisibilityResolveQuery }

func (m *resolverMock) Resolve(ctx context.Context, query dto.VisibilityResolveQuery) (*dto.VisibilityResolveResult, error) {
	m.query = query
	return &dto.VisibilityResolveResult{Page: query.Page, Section: query.Section, Field: query.Field, Visible: true}, nil
}

func newPublicRouter(configs *publicConfigMock, resolver *resolverMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewPublicHandler(configs, resolver, localized.ZhCN, time.Minute)
	r := gin.New()
	r.Use(middleware.WithResponseMeta(), middleware.Locale(localized.ZhCN))
	r.GET("/public/site-configs/:key", handler.SiteConfig)
	r.GET("/public/visibility/resolve", handler.ResolveVisibility)
	return r
}

func TestPublicHandlerSiteConfigUsesNegotiatedLocale(t *testing.T) {
	configs := &publicConfigMock{hit: true}
	r := newPublicRouter(configs, &resolverMock{})

	req := httptest.NewRequest(http.MethodGet, "/public/site-configs/home", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, localized.En, configs.locale)
	assert.Equal(t, "public, max-age=60", w.Header().Get("Cache-Control"))

	env := decodeEnvelope(t, w)
	assert.Equal(t, map[string]interface{}{"hero": map[string]interface{}{"title": "Hello"}}, env.Data)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, "en", env.Meta["locale"])
}

func TestPublicHandlerSiteConfigNotFound(t *testing.T) {
	r := newPublicRouter(&publicConfigMock{}, &resolverMock{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public/site-configs/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestPublicHandlerResolveVisibility(t *testing.T) {
	resolver := &resolverMock{}
	r := newPublicRouter(&publicConfigMock{}, resolver)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public/visibility/resolve?page=home&section=hero&field=hero.title", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.VisibilityResolveQuery{Page: "home", Section: "hero", Field: "hero.title"}, resolver.query)
}
