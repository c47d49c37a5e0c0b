package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/site-cms-api/internal/models"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
)

type authServiceMock struct {
	loginReq     models.LoginRequest
	logoutToken  string
	logoutUserID string
	meUserID     string
	loginErr     error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.loginReq = req
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (m *authServiceMock) Logout(ctx context.Context, refreshToken string, userID string) error {
	m.logoutToken, m.logoutUserID = refreshToken, userID
	return nil
}

func (m *authServiceMock) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	m.meUserID = userID
	return &models.UserInfo{ID: userID, Role: models.RoleAdmin}, nil
}

func TestAuthHandlerLoginCapturesClientMeta(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)
	c, w := newSiteConfigContext(http.MethodPost, "/auth/login", []byte(`{"email":"editor@example.com","password":"secret"}`))
	c.Request.Header.Set("User-Agent", "cms-test")

	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "editor@example.com", svc.loginReq.Email)
	assert.Equal(t, "cms-test", svc.loginReq.UserAgent)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials})
	c, w := newSiteConfigContext(http.MethodPost, "/auth/login", []byte(`{"email":"editor@example.com","password":"nope"}`))

	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerLogoutUsesCurrentUser(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)
	c, w := newSiteConfigContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"refresh"}`))

	handler.Logout(c)
	c.Writer.WriteHeaderNow() // gin flushes status-only responses after the handler chain

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "refresh", svc.logoutToken)
	assert.Equal(t, editorClaims.UserID, svc.logoutUserID)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/auth/me", nil)

	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)
	c, w := newSiteConfigContext(http.MethodGet, "/auth/me", nil)

	handler.Me(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, editorClaims.UserID, svc.meUserID)
}
