package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/site-cms-api/internal/models"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func guardedRouter(claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", JWT(validatorStub{claims: claims}), RequireRoles(models.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func serve(router *gin.Engine, auth string) int {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestJWTAndRBAC(t *testing.T) {
	root := guardedRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleSuperAdmin})
	editor := guardedRouter(&models.JWTClaims{UserID: "u2", Role: models.RoleAdmin})

	assert.Equal(t, http.StatusUnauthorized, serve(root, ""))
	assert.Equal(t, http.StatusUnauthorized, serve(root, "Basic abc"))
	assert.Equal(t, http.StatusUnauthorized, serve(root, "Bearer bad"))
	assert.Equal(t, http.StatusNoContent, serve(root, "Bearer good"))
	assert.Equal(t, http.StatusForbidden, serve(editor, "bearer good"))
}

func TestRBACWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
