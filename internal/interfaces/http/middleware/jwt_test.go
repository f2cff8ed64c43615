package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	})
}

func issueToken(t *testing.T, svc *auth.JWTService, role string, vendorID *uuid.UUID, guest bool) (*auth.TokenPair, auth.GenerateTokenInput) {
	t.Helper()
	input := auth.GenerateTokenInput{
		UserID:   uuid.New(),
		Email:    "buyer@example.com",
		Role:     role,
		VendorID: vendorID,
		Guest:    guest,
	}
	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)
	return pair, input
}

func serve(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	vendorID := uuid.New()
	pair, input := issueToken(t, svc, RoleVendor, &vendorID, false)

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/test", func(c *gin.Context) {
		claims := GetJWTClaims(c)
		require.NotNil(t, claims)
		assert.Equal(t, input.UserID.String(), GetJWTUserID(c))
		assert.Equal(t, RoleVendor, GetJWTRole(c))
		assert.Equal(t, vendorID.String(), GetJWTVendorID(c))
		c.Status(http.StatusOK)
	})

	rec := serve(router, "/test", pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	svc := newTestJWTService()
	pair, _ := issueToken(t, svc, RoleCustomer, nil, false)

	expired := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  -time.Hour,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "test-issuer",
	})
	expiredPair, _ := issueToken(t, expired, RoleCustomer, nil, false)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", "INVALID_TOKEN"},
		{"refresh token as access", "Bearer " + pair.RefreshToken, "INVALID_TOKEN_TYPE"},
		{"expired", "Bearer " + expiredPair.AccessToken, "TOKEN_EXPIRED"},
	}

	router := gin.New()
	router.Use(JWTAuthMiddleware(svc))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotEmpty(t, errorCode(t, rec))
		})
	}
}

func TestJWTAuthMiddleware_SkipPaths(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuthMiddleware(newTestJWTService()))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/swagger/index.html", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, "/swagger/index.html", "").Code)
}

func TestJWTAuthMiddleware_Blacklist(t *testing.T) {
	svc := newTestJWTService()
	ctx := context.Background()

	t.Run("revoked jti", func(t *testing.T) {
		pair, _ := issueToken(t, svc, RoleCustomer, nil, false)
		claims, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)

		blacklist := auth.NewInMemoryTokenBlacklist()
		require.NoError(t, blacklist.AddToBlacklist(ctx, claims.ID, time.Hour))

		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = blacklist
		router := gin.New()
		router.Use(JWTAuthMiddlewareWithConfig(cfg))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		rec := serve(router, "/test", pair.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_REVOKED", errorCode(t, rec))
	})

	t.Run("user wide revocation", func(t *testing.T) {
		pair, input := issueToken(t, svc, RoleCustomer, nil, false)
		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = revokedUsers{input.UserID.String(): true}
		router := gin.New()
		router.Use(JWTAuthMiddlewareWithConfig(cfg))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, http.StatusUnauthorized, serve(router, "/test", pair.AccessToken).Code)
	})

	t.Run("blacklist errors fail open", func(t *testing.T) {
		pair, _ := issueToken(t, svc, RoleCustomer, nil, false)
		cfg := DefaultJWTConfig(svc)
		cfg.TokenBlacklist = brokenBlacklist{}
		router := gin.New()
		router.Use(JWTAuthMiddlewareWithConfig(cfg))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, http.StatusOK, serve(router, "/test", pair.AccessToken).Code)
	})
}

type revokedUsers map[string]bool

func (revokedUsers) AddToBlacklist(context.Context, string, time.Duration) error { return nil }
func (revokedUsers) IsBlacklisted(context.Context, string) (bool, error)         { return false, nil }
func (revokedUsers) AddUserTokensToBlacklist(context.Context, string, time.Duration) error {
	return nil
}
func (r revokedUsers) IsUserTokenInvalidated(_ context.Context, userID string, _ time.Time) (bool, error) {
	return r[userID], nil
}

type brokenBlacklist struct{}

func (brokenBlacklist) AddToBlacklist(context.Context, string, time.Duration) error { return nil }
func (brokenBlacklist) IsBlacklisted(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}
func (brokenBlacklist) AddUserTokensToBlacklist(context.Context, string, time.Duration) error {
	return nil
}
func (brokenBlacklist) IsUserTokenInvalidated(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("redis down")
}

func TestOptionalJWTAuthMiddleware(t *testing.T) {
	svc := newTestJWTService()
	pair, input := issueToken(t, svc, RoleCustomer, nil, true)

	var seen string
	router := gin.New()
	router.Use(OptionalJWTAuthMiddleware(DefaultJWTConfig(svc)))
	router.GET("/checkout", func(c *gin.Context) {
		seen = GetJWTUserID(c)
		c.Status(http.StatusOK)
	})

	t.Run("anonymous", func(t *testing.T) {
		seen = "unset"
		assert.Equal(t, http.StatusOK, serve(router, "/checkout", "").Code)
		assert.Empty(t, seen)
	})

	t.Run("invalid token is ignored", func(t *testing.T) {
		seen = "unset"
		assert.Equal(t, http.StatusOK, serve(router, "/checkout", "bogus").Code)
		assert.Empty(t, seen)
	})

	t.Run("valid guest token", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(router, "/checkout", pair.AccessToken).Code)
		assert.Equal(t, input.UserID.String(), seen)
	})
}

func TestJWTAuthMiddleware_CustomOnError(t *testing.T) {
	called := false
	cfg := DefaultJWTConfig(newTestJWTService())
	cfg.OnError = func(c *gin.Context, err error) {
		called = true
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"custom": "error"})
	}

	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, serve(router, "/test", "").Code)
	assert.True(t, called)
}

func TestGetters_NoClaims(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUserID(c))
	assert.Empty(t, GetJWTRole(c))
	assert.Empty(t, GetJWTVendorID(c))
	assert.False(t, IsAdmin(c))
}
