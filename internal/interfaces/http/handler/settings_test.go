package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/marketplace/backend/internal/application/analytics"
	settingsapp "github.com/marketplace/backend/internal/application/settings"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSettingsService struct {
	mock.Mock
}

func (m *mockSettingsService) Get(ctx context.Context) (*settingsapp.SettingsResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settingsapp.SettingsResponse), args.Error(1)
}

func (m *mockSettingsService) Update(ctx context.Context, req settingsapp.UpdateSettingsRequest) (*settingsapp.SettingsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settingsapp.SettingsResponse), args.Error(1)
}

func (m *mockSettingsService) ListCurrencies(ctx context.Context, enabledOnly bool) ([]settingsapp.CurrencyResponse, error) {
	args := m.Called(ctx, enabledOnly)
	list, _ := args.Get(0).([]settingsapp.CurrencyResponse)
	return list, args.Error(1)
}

func (m *mockSettingsService) UpsertCurrency(ctx context.Context, req settingsapp.UpsertCurrencyRequest) (*settingsapp.CurrencyResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settingsapp.CurrencyResponse), args.Error(1)
}

func (m *mockSettingsService) ConvertAmount(ctx context.Context, amount decimal.Decimal, from, to string) (*settingsapp.ConversionResponse, error) {
	args := m.Called(ctx, amount, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settingsapp.ConversionResponse), args.Error(1)
}

type mockAnalyticsService struct {
	mock.Mock
}

func (m *mockAnalyticsService) RecordVisit(ctx context.Context, req analytics.RecordVisitRequest) (*analytics.RecordVisitResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.RecordVisitResponse), args.Error(1)
}

func (m *mockAnalyticsService) Dashboard(ctx context.Context) (*analytics.DashboardResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.DashboardResponse), args.Error(1)
}

func setupSettingsRouter(settings *mockSettingsService, stats *mockAnalyticsService) http.Handler {
	sh := NewSettingsHandler(settings)
	ah := NewAnalyticsHandler(stats)
	r := newTestEngine(newTestJWTService())
	r.GET("/settings", sh.GetSettings)
	r.PATCH("/admin/settings", sh.UpdateSettings)
	r.GET("/currencies", sh.ListCurrencies)
	r.GET("/currencies/convert", sh.ConvertAmount)
	r.PUT("/admin/currencies", sh.UpsertCurrency)
	r.POST("/analytics/visits", ah.RecordVisit)
	r.GET("/admin/dashboard", ah.Dashboard)
	return r
}

func TestSettingsHandler_UpdateSettings(t *testing.T) {
	svc := new(mockSettingsService)
	svc.On("Update", mock.Anything, mock.MatchedBy(func(req settingsapp.UpdateSettingsRequest) bool {
		return req.CommissionRate != nil && req.CommissionRate.Equal(decimal.RequireFromString("0.15")) && req.VATEnabled == nil
	})).Return(&settingsapp.SettingsResponse{CommissionRate: decimal.RequireFromString("0.15")}, nil)

	w := doRequest(setupSettingsRouter(svc, nil), http.MethodPatch, "/admin/settings", admin().token(t, newTestJWTService()),
		`{"commission_rate":"0.15"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSettingsHandler_ListCurrencies(t *testing.T) {
	jwtSvc := newTestJWTService()

	tests := []struct {
		name        string
		token       func() string
		query       string
		enabledOnly bool
	}{
		{"public", func() string { return "" }, "?all=true", true},
		{"customer cannot list disabled", func() string { return customer().token(t, jwtSvc) }, "?all=true", true},
		{"admin lists all", func() string { return admin().token(t, jwtSvc) }, "?all=true", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockSettingsService)
			svc.On("ListCurrencies", mock.Anything, tt.enabledOnly).Return(nil, nil)

			w := doRequest(setupSettingsRouter(svc, nil), http.MethodGet, "/currencies"+tt.query, tt.token(), nil)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "[]", string(decode(t, w).Data))
			svc.AssertExpectations(t)
		})
	}
}

func TestSettingsHandler_ConvertAmount(t *testing.T) {
	t.Run("converts", func(t *testing.T) {
		svc := new(mockSettingsService)
		svc.On("ConvertAmount", mock.Anything, decimal.RequireFromString("10"), "USD", "ZAR").
			Return(&settingsapp.ConversionResponse{ConvertedAmount: decimal.RequireFromString("185.00")}, nil)

		w := doRequest(setupSettingsRouter(svc, nil), http.MethodGet, "/currencies/convert?amount=10&from=usd&to=zar", "", nil)

		require.Equal(t, http.StatusOK, w.Code)
		res := decodeData[settingsapp.ConversionResponse](t, w)
		assert.True(t, res.ConvertedAmount.Equal(decimal.RequireFromString("185")))
	})

	t.Run("bad amount", func(t *testing.T) {
		w := doRequest(setupSettingsRouter(new(mockSettingsService), nil), http.MethodGet, "/currencies/convert?amount=ten&from=USD&to=ZAR", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing target", func(t *testing.T) {
		w := doRequest(setupSettingsRouter(new(mockSettingsService), nil), http.MethodGet, "/currencies/convert?amount=1&from=USD", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSettingsHandler_UpsertCurrency(t *testing.T) {
	svc := new(mockSettingsService)
	svc.On("UpsertCurrency", mock.Anything, mock.MatchedBy(func(req settingsapp.UpsertCurrencyRequest) bool {
		return req.Code == "ZWG"
	})).Return(&settingsapp.CurrencyResponse{Code: "ZWG"}, nil)

	w := doRequest(setupSettingsRouter(svc, nil), http.MethodPut, "/admin/currencies", admin().token(t, newTestJWTService()),
		`{"code":"zwg","symbol":"ZiG","rate":"26.8","enabled":true}`)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestAnalyticsHandler(t *testing.T) {
	t.Run("record visit", func(t *testing.T) {
		stats := new(mockAnalyticsService)
		stats.On("RecordVisit", mock.Anything, analytics.RecordVisitRequest{SessionID: "s-1", Path: "/"}).
			Return(&analytics.RecordVisitResponse{Counted: true}, nil)

		w := doRequest(setupSettingsRouter(nil, stats), http.MethodPost, "/analytics/visits", "", `{"session_id":"s-1","path":"/"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeData[analytics.RecordVisitResponse](t, w).Counted)
	})

	t.Run("session required", func(t *testing.T) {
		w := doRequest(setupSettingsRouter(nil, new(mockAnalyticsService)), http.MethodPost, "/analytics/visits", "", `{"path":"/"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("dashboard", func(t *testing.T) {
		stats := new(mockAnalyticsService)
		stats.On("Dashboard", mock.Anything).Return(&analytics.DashboardResponse{Orders: 4, Currency: "USD"}, nil)

		w := doRequest(setupSettingsRouter(nil, stats), http.MethodGet, "/admin/dashboard", admin().token(t, newTestJWTService()), nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(4), decodeData[analytics.DashboardResponse](t, w).Orders)
	})
}
