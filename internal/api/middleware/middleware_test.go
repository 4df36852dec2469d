package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solbridge/bridge_service/internal/infrastructure/config"
	"github.com/solbridge/bridge_service/pkg/auth"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:    "test-secret",
			AccessTTL: 3600,
			Issuer:    "bridge_service",
		},
	}
}

func authedRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Authentication(cfg))
	router.Use(OwnerOnly())
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"caller": c.GetString("caller")})
	})
	return router
}

func TestAuthenticationRejectsMissingHeader(t *testing.T) {
	router := authedRouter(testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticationRejectsMalformedHeader(t *testing.T) {
	router := authedRouter(testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticationRejectsForgedToken(t *testing.T) {
	cfg := testConfig()
	token, _, err := auth.GenerateToken("owner-wallet", auth.RoleOwner, cfg.JWT.Issuer, "wrong-secret", cfg.JWT.AccessTTL)
	require.NoError(t, err)

	router := authedRouter(cfg)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticationSetsCaller(t *testing.T) {
	cfg := testConfig()
	token, _, err := auth.GenerateToken("owner-wallet", auth.RoleOwner, cfg.JWT.Issuer, cfg.JWT.Secret, cfg.JWT.AccessTTL)
	require.NoError(t, err)

	router := authedRouter(cfg)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "owner-wallet")
}

func TestOwnerOnlyRejectsOtherRoles(t *testing.T) {
	cfg := testConfig()
	token, _, err := auth.GenerateToken("reader", "viewer", cfg.JWT.Issuer, cfg.JWT.Secret, cfg.JWT.AccessTTL)
	require.NoError(t, err)

	router := authedRouter(cfg)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireTOTPPassesWhenDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	router := gin.New()
	router.Use(RequireTOTP(cfg))
	router.POST("/withdraw", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/withdraw", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireTOTPRejectsMissingCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.Security.RequireTOTP = true
	cfg.Security.TOTPSecret = "JBSWY3DPEHPK3PXP"

	router := gin.New()
	router.Use(RequireTOTP(cfg))
	router.POST("/withdraw", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/withdraw", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimitRejectsExcessRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	var lastCode int
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		lastCode = w.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}
