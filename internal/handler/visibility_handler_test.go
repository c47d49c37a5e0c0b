package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-cms-api/internal/dto"
	"github.com/noah-isme/site-cms-api/internal/models"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/visibility"
)

type visibilityServiceMock struct {
	page      string
	section   string
	category  string
	configKey string
	fieldReq  dto.ToggleFieldRequest
	fieldsReq dto.SetFieldsRequest
	catReq    dto.SetCategoryRequest
	err       error
}

func (m *visibilityServiceMock) Get(ctx context.Context) (*visibility.Config, error) {
	return visibility.New(), nil
}

func (m *visibilityServiceMock) Fields(ctx context.Context, page, configKey string) ([]dto.VisibilityField, error) {
	m.page, m.configKey = page, configKey
	return []dto.VisibilityField{{Path: "hero.title"}}, nil
}

func (m *visibilityServiceMock) TogglePage(ctx context.Context, page string, actor *models.JWTClaims) (*dto.ToggleResult, error) {
	m.page = page
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ToggleResult{Page: page, Hidden: true}, nil
}

func (m *visibilityServiceMock) ToggleSection(ctx context.Context, page, section string, actor *models.JWTClaims) (*dto.ToggleResult, error) {
	m.page, m.section = page, section
	return &dto.ToggleResult{Page: page, Section: section, Hidden: true}, nil
}

func (m *visibilityServiceMock) ToggleField(ctx context.Context, page string, req dto.ToggleFieldRequest, actor *models.JWTClaims) (*dto.ToggleResult, error) {
	m.page, m.fieldReq = page, req
	return &dto.ToggleResult{Page: page, Field: req.Path, Hidden: true}, nil
}

func (m *visibilityServiceMock) SetFields(ctx context.Context, page string, req dto.SetFieldsRequest, actor *models.JWTClaims) (*visibility.Config, error) {
	m.page, m.fieldsReq = page, req
	return visibility.New(), nil
}

func (m *visibilityServiceMock) SetCategory(ctx context.Context, page, rawCategory string, req dto.SetCategoryRequest, actor *models.JWTClaims) (*dto.CategoryResult, error) {
	m.page, m.category, m.catReq = page, rawCategory, req
	return &dto.CategoryResult{Page: page, Category: rawCategory, Hidden: req.Hidden}, nil
}

func TestVisibilityHandlerToggleSectionReadsParams(t *testing.T) {
	svc := &visibilityServiceMock{}
	handler := NewVisibilityHandler(svc)
	c, w := newSiteConfigContext(http.MethodPost, "/visibility/pages/home/sections/hero/toggle", nil)
	c.Params = gin.Params{{Key: "page", Value: "home"}, {Key: "section", Value: "hero"}}

	handler.ToggleSection(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "home", svc.page)
	assert.Equal(t, "hero", svc.section)
}

func TestVisibilityHandlerToggleFieldBindsPath(t *testing.T) {
	svc := &visibilityServiceMock{}
	handler := NewVisibilityHandler(svc)
	c, w := newSiteConfigContext(http.MethodPost, "/visibility/pages/home/fields/toggle", []byte(`{"path":"hero.title"}`))
	c.Params = gin.Params{{Key: "page", Value: "home"}}

	handler.ToggleField(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hero.title", svc.fieldReq.Path)
}

func TestVisibilityHandlerSetCategory(t *testing.T) {
	svc := &visibilityServiceMock{}
	handler := NewVisibilityHandler(svc)
	c, w := newSiteConfigContext(http.MethodPut, "/visibility/pages/home/categories/button", []byte(`{"hidden":true,"config_key":"home_page"}`))
	c.Params = gin.Params{{Key: "page", Value: "home"}, {Key: "category", Value: "button"}}

	handler.SetCategory(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "button", svc.category)
	assert.True(t, svc.catReq.Hidden)
	assert.Equal(t, "home_page", svc.catReq.ConfigKey)
}

func TestVisibilityHandlerSetFieldsInvalidBody(t *testing.T) {
	handler := NewVisibilityHandler(&visibilityServiceMock{})
	c, w := newSiteConfigContext(http.MethodPut, "/visibility/pages/home/fields", []byte(`{"paths":`))
	c.Params = gin.Params{{Key: "page", Value: "home"}}

	handler.SetFields(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVisibilityHandlerFieldsPassesConfigKey(t *testing.T) {
	svc := &visibilityServiceMock{}
	handler := NewVisibilityHandler(svc)
	c, w := newSiteConfigContext(http.MethodGet, "/visibility/pages/home/fields?config_key=landing", nil)
	c.Params = gin.Params{{Key: "page", Value: "home"}}

	handler.Fields(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "landing", svc.configKey)
}

func TestVisibilityHandlerForbidden(t *testing.T) {
	svc := &visibilityServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "superadmin only")}
	handler := NewVisibilityHandler(svc)
	c, w := newSiteConfigContext(http.MethodPost, "/visibility/pages/home/toggle", nil)
	c.Params = gin.Params{{Key: "page", Value: "home"}}

	handler.TogglePage(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
