package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketplace/backend/internal/domain/payment"
)

type fakePayPal struct {
	t           *testing.T
	tokenCalls  atomic.Int32
	orderStatus string
	capture     *paypalCapture
	verify      string
	lastCreate  paypalCreateOrderRequest
	lastRefund  paypalRefundRequest
	requestIDs  []string
}

func (f *fakePayPal) order(id string) paypalOrder {
	o := paypalOrder{ID: id, Status: f.orderStatus}
	if f.capture != nil {
		o.PurchaseUnits = []paypalPurchaseUnit{{Payments: &paypalPayments{Captures: []paypalCapture{*f.capture}}}}
	}
	return o
}

func (f *fakePayPal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == paypalTokenPath {
		user, pass, ok := r.BasicAuth()
		require.True(f.t, ok)
		assert.Equal(f.t, "client", user)
		assert.Equal(f.t, "secret", pass)
		f.tokenCalls.Add(1)
		_ = json.NewEncoder(w).Encode(paypalTokenResponse{AccessToken: "tok-1", ExpiresIn: 3600})
		return
	}
	if r.Header.Get("Authorization") != "Bearer tok-1" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"name":"AUTHENTICATION_FAILURE","message":"bad token"}`))
		return
	}
	if id := r.Header.Get("PayPal-Request-Id"); id != "" {
		f.requestIDs = append(f.requestIDs, id)
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == paypalOrdersPath:
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastCreate))
		_ = json.NewEncoder(w).Encode(paypalOrder{
			ID:     "ORDER-1",
			Status: paypalOrderCreated,
			Links: []paypalLink{
				{Rel: "self", Href: "https://api.example/v2/checkout/orders/ORDER-1"},
				{Rel: "approve", Href: "https://paypal.example/checkoutnow?token=ORDER-1"},
			},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/v2/checkout/orders/ORDER-1":
		_ = json.NewEncoder(w).Encode(f.order("ORDER-1"))
	case r.Method == http.MethodPost && r.URL.Path == "/v2/checkout/orders/ORDER-1/capture":
		f.orderStatus = paypalOrderCompleted
		f.capture = &paypalCapture{ID: "CAP-1", Status: paypalCaptureCompleted, Amount: paypalAmount{CurrencyCode: "USD", Value: "49.00"}}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(f.order("ORDER-1"))
	case r.Method == http.MethodPost && r.URL.Path == "/v2/payments/captures/CAP-1/refund":
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastRefund))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(paypalRefund{ID: "REF-1", Status: paypalCaptureCompleted})
	case r.Method == http.MethodPost && r.URL.Path == paypalVerifyWebhookURL:
		var body paypalVerifyRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(f.t, "WH-1", body.WebhookID)
		assert.Equal(f.t, "sig", body.TransmissionSig)
		_ = json.NewEncoder(w).Encode(paypalVerifyResponse{VerificationStatus: f.verify})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"name":"RESOURCE_NOT_FOUND","message":"no such resource","debug_id":"dbg"}`))
	}
}

func newPayPalFixture(t *testing.T) (*PayPalAdapter, *fakePayPal) {
	fake := &fakePayPal{t: t, orderStatus: paypalOrderCreated, verify: "SUCCESS"}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	adapter, err := NewPayPalAdapter(&PayPalConfig{
		BaseURL: srv.URL, ClientID: "client", ClientSecret: "secret", WebhookID: "WH-1", BrandName: "Marketplace",
	}, ClientOptions{})
	require.NoError(t, err)
	return adapter, fake
}

func TestPayPalConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  PayPalConfig
		wantErr error
	}{
		{"valid", PayPalConfig{BaseURL: "https://api", ClientID: "id", ClientSecret: "s"}, nil},
		{"missing base URL", PayPalConfig{ClientID: "id", ClientSecret: "s"}, ErrPayPalMissingBaseURL},
		{"missing client ID", PayPalConfig{BaseURL: "https://api", ClientSecret: "s"}, ErrPayPalMissingClientID},
		{"missing secret", PayPalConfig{BaseURL: "https://api", ClientID: "id"}, ErrPayPalMissingClientSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.config.Validate())
		})
	}
}

func TestPayPalAdapter_CreatePayment(t *testing.T) {
	adapter, fake := newPayPalFixture(t)
	txnID := uuid.New()

	resp, err := adapter.CreatePayment(context.Background(), &payment.CreatePaymentRequest{
		TransactionID: txnID,
		Reference:     "PAY-1234",
		Amount:        decimal.RequireFromString("49"),
		Currency:      "usd",
		Description:   "Order ORD-1",
		ReturnURL:     "https://shop.example/checkout/return",
	})
	require.NoError(t, err)

	assert.True(t, resp.IsRedirect())
	assert.Equal(t, "https://paypal.example/checkoutnow?token=ORDER-1", resp.RedirectURL)
	assert.Equal(t, "ORDER-1", resp.GatewayReference)
	assert.Equal(t, payment.GatewayStatusPending, resp.Status)

	require.Len(t, fake.lastCreate.PurchaseUnits, 1)
	unit := fake.lastCreate.PurchaseUnits[0]
	assert.Equal(t, "49.00", unit.Amount.Value)
	assert.Equal(t, "USD", unit.Amount.CurrencyCode)
	assert.Equal(t, txnID.String(), unit.CustomID)
	assert.Equal(t, "Marketplace", fake.lastCreate.ApplicationContext.BrandName)
	assert.Equal(t, []string{txnID.String()}, fake.requestIDs)

	t.Run("token is cached", func(t *testing.T) {
		_, err := adapter.CreatePayment(context.Background(), &payment.CreatePaymentRequest{
			TransactionID: uuid.New(), Reference: "PAY-2", Amount: decimal.NewFromInt(5), Currency: "USD",
			ReturnURL: "https://shop.example/return",
		})
		require.NoError(t, err)
		assert.Equal(t, int32(1), fake.tokenCalls.Load())
	})

	t.Run("return URL is required", func(t *testing.T) {
		_, err := adapter.CreatePayment(context.Background(), &payment.CreatePaymentRequest{
			TransactionID: uuid.New(), Reference: "PAY-3", Amount: decimal.NewFromInt(5), Currency: "USD",
		})
		assert.ErrorIs(t, err, payment.ErrPaymentInvalidReturnURL)
	})
}

func TestPayPalAdapter_QueryPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("created order stays pending", func(t *testing.T) {
		adapter, _ := newPayPalFixture(t)
		resp, err := adapter.QueryPayment(ctx, &payment.QueryPaymentRequest{GatewayReference: "ORDER-1"})
		require.NoError(t, err)
		assert.Equal(t, payment.GatewayStatusPending, resp.Status)
	})

	t.Run("approved order is captured", func(t *testing.T) {
		adapter, fake := newPayPalFixture(t)
		fake.orderStatus = paypalOrderApproved
		resp, err := adapter.QueryPayment(ctx, &payment.QueryPaymentRequest{GatewayReference: "ORDER-1"})
		require.NoError(t, err)
		assert.Equal(t, payment.GatewayStatusSucceeded, resp.Status)
		assert.True(t, resp.PaidAmount.Equal(decimal.NewFromInt(49)))
		assert.Contains(t, fake.requestIDs, "capture-ORDER-1")
	})

	t.Run("declined capture fails", func(t *testing.T) {
		adapter, fake := newPayPalFixture(t)
		fake.orderStatus = paypalOrderCompleted
		fake.capture = &paypalCapture{ID: "CAP-1", Status: paypalCaptureDeclined, Amount: paypalAmount{CurrencyCode: "USD", Value: "49.00"}}
		resp, err := adapter.QueryPayment(ctx, &payment.QueryPaymentRequest{GatewayReference: "ORDER-1"})
		require.NoError(t, err)
		assert.Equal(t, payment.GatewayStatusFailed, resp.Status)
		assert.Equal(t, "capture declined", resp.FailureReason)
	})

	t.Run("unknown order", func(t *testing.T) {
		adapter, _ := newPayPalFixture(t)
		_, err := adapter.QueryPayment(ctx, &payment.QueryPaymentRequest{GatewayReference: "NOPE"})
		assert.ErrorIs(t, err, payment.ErrGatewayRequestFailed)
		assert.Contains(t, err.Error(), "RESOURCE_NOT_FOUND")
	})

	t.Run("poll URL alone is not enough", func(t *testing.T) {
		adapter, _ := newPayPalFixture(t)
		_, err := adapter.QueryPayment(ctx, &payment.QueryPaymentRequest{PollURL: "https://x"})
		assert.ErrorIs(t, err, payment.ErrPaymentInvalidQuery)
	})
}

func TestPayPalAdapter_CreateRefund(t *testing.T) {
	adapter, fake := newPayPalFixture(t)
	fake.orderStatus = paypalOrderCompleted
	fake.capture = &paypalCapture{ID: "CAP-1", Status: paypalCaptureCompleted, Amount: paypalAmount{CurrencyCode: "USD", Value: "49.00"}}

	resp, err := adapter.CreateRefund(context.Background(), &payment.RefundRequest{
		TransactionID:    uuid.New(),
		GatewayReference: "ORDER-1",
		Amount:           decimal.NewFromInt(49),
		PaymentAmount:    decimal.NewFromInt(49),
		Currency:         "USD",
		Reason:           "out of stock",
	})
	require.NoError(t, err)
	assert.Equal(t, payment.GatewayStatusRefunded, resp.Status)
	assert.Equal(t, "REF-1", resp.GatewayRefundID)
	assert.Equal(t, "49.00", fake.lastRefund.Amount.Value)

	t.Run("no capture", func(t *testing.T) {
		fake.capture = nil
		_, err := adapter.CreateRefund(context.Background(), &payment.RefundRequest{
			TransactionID: uuid.New(), GatewayReference: "ORDER-1", Amount: decimal.NewFromInt(1), PaymentAmount: decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, payment.ErrRefundNotSupported)
	})
}

func TestPayPalAdapter_VerifyCallback(t *testing.T) {
	headers := map[string]string{
		"paypal-auth-algo":         "SHA256withRSA",
		"paypal-cert-url":          "https://api.paypal.com/cert",
		"paypal-transmission-id":   "tx-1",
		"paypal-transmission-sig":  "sig",
		"paypal-transmission-time": "2026-01-01T00:00:00Z",
	}
	txnID := uuid.New()

	tests := []struct {
		name       string
		body       string
		wantStatus payment.GatewayStatus
		wantRef    string
		wantAmount string
		wantTxn    uuid.UUID
	}{
		{
			name:       "order approved",
			body:       `{"id":"WH-EV-1","event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORDER-1","status":"APPROVED","purchase_units":[{"custom_id":"` + txnID.String() + `","amount":{"currency_code":"USD","value":"49.00"}}]}}`,
			wantStatus: payment.GatewayStatusPending,
			wantRef:    "ORDER-1",
			wantAmount: "0",
			wantTxn:    txnID,
		},
		{
			name:       "capture completed",
			body:       `{"id":"WH-EV-2","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-1","status":"COMPLETED","custom_id":"` + txnID.String() + `","amount":{"currency_code":"USD","value":"49.00"},"supplementary_data":{"related_ids":{"order_id":"ORDER-1"}}}}`,
			wantStatus: payment.GatewayStatusSucceeded,
			wantRef:    "ORDER-1",
			wantAmount: "49",
			wantTxn:    txnID,
		},
		{
			name:       "capture denied",
			body:       `{"id":"WH-EV-3","event_type":"PAYMENT.CAPTURE.DENIED","resource":{"id":"CAP-1","status":"DECLINED","amount":{"currency_code":"USD","value":"49.00"},"supplementary_data":{"related_ids":{"order_id":"ORDER-1"}}}}`,
			wantStatus: payment.GatewayStatusFailed,
			wantRef:    "ORDER-1",
			wantAmount: "49",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, _ := newPayPalFixture(t)
			cb, err := adapter.VerifyCallback(context.Background(), []byte(tt.body), headers)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, cb.Status)
			assert.Equal(t, tt.wantRef, cb.GatewayReference)
			assert.True(t, cb.Amount.Equal(decimal.RequireFromString(tt.wantAmount)))
			assert.Equal(t, tt.wantTxn, cb.TransactionID)
		})
	}

	t.Run("signature rejected", func(t *testing.T) {
		adapter, fake := newPayPalFixture(t)
		fake.verify = "FAILURE"
		_, err := adapter.VerifyCallback(context.Background(), []byte(tests[1].body), headers)
		assert.ErrorIs(t, err, payment.ErrGatewayInvalidCallback)
	})

	t.Run("unsupported event", func(t *testing.T) {
		adapter, _ := newPayPalFixture(t)
		_, err := adapter.VerifyCallback(context.Background(), []byte(`{"event_type":"BILLING.PLAN.CREATED","resource":{}}`), headers)
		assert.ErrorIs(t, err, ErrPayPalUnsupportedEvent)
	})

	t.Run("webhook not configured", func(t *testing.T) {
		adapter, _ := newPayPalFixture(t)
		adapter.config.WebhookID = ""
		_, err := adapter.VerifyCallback(context.Background(), []byte(tests[0].body), headers)
		assert.ErrorIs(t, err, payment.ErrGatewayNotConfigured)
	})
}
