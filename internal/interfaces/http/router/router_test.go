package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/infrastructure/auth"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/realtime"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	var order []string
	r := NewRouter(engine, WithAPIVersion("v2")).Use(func(c *gin.Context) {
		order = append(order, "api")
		c.Next()
	})

	group := NewDomainGroup("test", "/test").Use(func(c *gin.Context) {
		order = append(order, "group")
		c.Next()
	})
	group.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	group.Group("nested", "/nested").DELETE("/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, []string{"api", "group"}, order)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v2/test/nested/1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, "test", group.Name())
	assert.Equal(t, "/test", group.Prefix())
}

func TestChainSkipsNil(t *testing.T) {
	h := func(*gin.Context) {}
	assert.Len(t, chain(nil, h, nil), 1)
}

func testJWT() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		RefreshSecret:          "test-refresh-secret-32-characters",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "marketplace-test",
		MaxRefreshCount:        10,
	})
}

// marketplaceEngine mounts every route with nil services so only the
// guards can answer without panicking
func marketplaceEngine(jwtSvc *auth.JWTService) *gin.Engine {
	engine := gin.New()
	h := Handlers{
		Auth:      handler.NewAuthHandler(nil),
		Product:   handler.NewProductHandler(nil),
		Vendor:    handler.NewVendorHandler(nil),
		Checkout:  handler.NewCheckoutHandler(nil),
		Payment:   handler.NewPaymentHandler(nil, nil),
		Wallet:    handler.NewWalletHandler(nil),
		Settings:  handler.NewSettingsHandler(nil),
		Analytics: handler.NewAnalyticsHandler(nil),
		Realtime:  handler.NewRealtimeHandler(realtime.NewHub()),
		System:    handler.NewSystemHandler("Marketplace API", "test", nil, nil),
	}
	jwtCfg := middleware.DefaultJWTConfig(jwtSvc)
	g := Guards{
		Auth:         middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		OptionalAuth: middleware.OptionalJWTAuthMiddleware(jwtCfg),
		Vendor:       middleware.RequireVendor(),
		Admin:        middleware.RequireRole(middleware.RoleAdmin),
		Registered:   middleware.RequireRegistered(),
	}
	NewRouter(engine).Register(MarketplaceGroups(h, g)...).Setup()
	FunctionGroup(h, g).RegisterRoutes(&engine.RouterGroup)
	return engine
}

func TestMarketplaceGroups_Routes(t *testing.T) {
	engine := marketplaceEngine(testJWT())

	registered := map[string]bool{}
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/claim",
		"GET /api/v1/products/:id/quote",
		"GET /api/v1/storefronts/:slug",
		"GET /api/v1/currencies/convert",
		"POST /api/v1/checkout",
		"GET /api/v1/orders/:id/invoice",
		"POST /api/v1/payments/callback/:gateway",
		"POST /api/v1/vendors/apply",
		"PATCH /api/v1/vendor/products/:id",
		"PUT /api/v1/vendor/orders/:id/fulfilment",
		"POST /api/v1/vendor/wallet/payouts",
		"POST /api/v1/admin/orders/:id/refund",
		"PUT /api/v1/admin/vendors/:id/commission-exempt",
		"GET /api/v1/admin/dashboard",
		"GET /api/v1/realtime/:table",
		"GET /api/v1/system/info",
		"POST /functions/v1/process-payment",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

func TestMarketplaceGroups_Guards(t *testing.T) {
	jwtSvc := testJWT()
	engine := marketplaceEngine(jwtSvc)

	token := func(role string, vendorID *uuid.UUID, guest bool) string {
		pair, err := jwtSvc.GenerateTokenPair(auth.GenerateTokenInput{
			UserID: uuid.New(), Email: "x@example.com", Role: role, VendorID: vendorID, Guest: guest,
		})
		require.NoError(t, err)
		return pair.AccessToken
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"orders need a token", http.MethodGet, "/api/v1/orders", "", http.StatusUnauthorized},
		{"process payment needs a token", http.MethodPost, "/functions/v1/process-payment", "", http.StatusUnauthorized},
		{"vendor area rejects customers", http.MethodGet, "/api/v1/vendor/wallet", token(middleware.RoleCustomer, nil, false), http.StatusForbidden},
		{"admin area rejects vendors", http.MethodGet, "/api/v1/admin/dashboard", token(middleware.RoleVendor, ptr(uuid.New()), false), http.StatusForbidden},
		{"guests cannot apply as vendor", http.MethodPost, "/api/v1/vendors/apply", token(middleware.RoleCustomer, nil, true), http.StatusForbidden},
		{"unknown gateway is not found", http.MethodPost, "/api/v1/payments/callback/stripe", "", http.StatusNotFound},
		{"ping is public", http.MethodGet, "/api/v1/system/ping", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func ptr[T any](v T) *T { return &v }
