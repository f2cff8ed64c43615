package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace/backend/internal/domain/payment"
)

const (
	paypalTokenPath        = "/v1/oauth2/token"
	paypalOrdersPath       = "/v2/checkout/orders"
	paypalOrderPath        = "/v2/checkout/orders/%s"
	paypalCapturePath      = "/v2/checkout/orders/%s/capture"
	paypalRefundPath       = "/v2/payments/captures/%s/refund"
	paypalVerifyWebhookURL = "/v1/notifications/verify-webhook-signature"

	// tokens are refreshed this long before PayPal expires them
	paypalTokenSlack = time.Minute
)

// ErrPayPalUnsupportedEvent is returned for webhook events the adapter does not handle
var ErrPayPalUnsupportedEvent = errors.New("paypal: unsupported webhook event")

// PayPalAdapter implements payment.Gateway for PayPal Checkout (Orders v2).
// Payments are redirect based: CreatePayment returns the approval link and
// the order is captured when it is queried after approval.
type PayPalAdapter struct {
	config *PayPalConfig
	client *resty.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewPayPalAdapter creates a new PayPal adapter
func NewPayPalAdapter(config *PayPalConfig, opts ClientOptions) (*PayPalAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &PayPalAdapter{
		config: config,
		client: newGatewayClient(strings.TrimRight(config.BaseURL, "/"), opts),
	}, nil
}

// GatewayType returns the gateway type
func (a *PayPalAdapter) GatewayType() payment.GatewayType {
	return payment.GatewayPayPal
}

// CreatePayment creates a PayPal order and returns its approval link
func (a *PayPalAdapter) CreatePayment(ctx context.Context, req *payment.CreatePaymentRequest) (*payment.CreatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ReturnURL == "" {
		return nil, payment.ErrPaymentInvalidReturnURL
	}

	body := paypalCreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: req.Reference,
			CustomID:    req.TransactionID.String(),
			InvoiceID:   req.Reference,
			Description: truncate(req.Description, 120),
			Amount:      paypalAmount{CurrencyCode: strings.ToUpper(req.Currency), Value: req.Amount.StringFixed(2)},
		}},
		ApplicationContext: paypalApplicationContext{
			BrandName:          a.config.BrandName,
			ReturnURL:          req.ReturnURL,
			CancelURL:          req.ReturnURL,
			UserAction:         "PAY_NOW",
			ShippingPreference: "NO_SHIPPING",
		},
	}

	var order paypalOrder
	call, err := a.authorized(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := call.
		SetHeader("PayPal-Request-Id", req.TransactionID.String()).
		SetBody(body).
		SetResult(&order).
		Post(paypalOrdersPath)
	if err != nil {
		return nil, requestFailed("paypal", err)
	}
	if resp.IsError() {
		return nil, a.apiError(resp)
	}

	link := order.approveLink()
	if order.ID == "" || link == "" {
		return nil, invalidResponse("paypal", fmt.Errorf("order %q has no approval link", order.ID))
	}
	return &payment.CreatePaymentResponse{
		GatewayType:      payment.GatewayPayPal,
		GatewayReference: order.ID,
		Status:           payment.GatewayStatusPending,
		RedirectURL:      link,
		RawResponse:      resp.String(),
	}, nil
}

// QueryPayment reads the order and captures it once the buyer approved
func (a *PayPalAdapter) QueryPayment(ctx context.Context, req *payment.QueryPaymentRequest) (*payment.QueryPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.GatewayReference == "" {
		return nil, payment.ErrPaymentInvalidQuery
	}

	order, raw, err := a.getOrder(ctx, req.GatewayReference)
	if err != nil {
		return nil, err
	}
	if order.Status == paypalOrderApproved {
		order, raw, err = a.captureOrder(ctx, req.GatewayReference)
		if err != nil {
			return nil, err
		}
	}

	result := &payment.QueryPaymentResponse{
		GatewayReference: order.ID,
		Status:           mapPayPalOrderStatus(order),
		RawResponse:      raw,
	}
	if c := order.capture(); c != nil {
		result.PaidAmount, _ = decimal.NewFromString(c.Amount.Value)
		if result.Status == payment.GatewayStatusFailed {
			result.FailureReason = "capture " + strings.ToLower(c.Status)
		}
	}
	return result, nil
}

// CreateRefund refunds the order's capture
func (a *PayPalAdapter) CreateRefund(ctx context.Context, req *payment.RefundRequest) (*payment.RefundResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	order, _, err := a.getOrder(ctx, req.GatewayReference)
	if err != nil {
		return nil, err
	}
	c := order.capture()
	if c == nil {
		return nil, fmt.Errorf("paypal: %w: order %s has no capture", payment.ErrRefundNotSupported, order.ID)
	}

	var refund paypalRefund
	call, err := a.authorized(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := call.
		SetHeader("PayPal-Request-Id", "refund-"+req.TransactionID.String()).
		SetBody(paypalRefundRequest{
			Amount:      paypalAmount{CurrencyCode: strings.ToUpper(req.Currency), Value: req.Amount.StringFixed(2)},
			NoteToPayer: truncate(req.Reason, 255),
		}).
		SetResult(&refund).
		Post(fmt.Sprintf(paypalRefundPath, c.ID))
	if err != nil {
		return nil, requestFailed("paypal", err)
	}
	if resp.IsError() {
		return nil, a.apiError(resp)
	}

	status := payment.GatewayStatusPending
	switch refund.Status {
	case paypalCaptureCompleted:
		status = payment.GatewayStatusRefunded
	case paypalCaptureFailed:
		status = payment.GatewayStatusFailed
	}
	return &payment.RefundResponse{GatewayRefundID: refund.ID, Status: status, RawResponse: resp.String()}, nil
}

// VerifyCallback verifies a webhook with PayPal and parses it. Header names
// are expected in lower case.
func (a *PayPalAdapter) VerifyCallback(ctx context.Context, payload []byte, headers map[string]string) (*payment.Callback, error) {
	if a.config.WebhookID == "" {
		return nil, fmt.Errorf("paypal: %w: webhook ID", payment.ErrGatewayNotConfigured)
	}
	var event paypalWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, invalidResponse("paypal", err)
	}

	var verified paypalVerifyResponse
	call, err := a.authorized(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := call.
		SetBody(paypalVerifyRequest{
			AuthAlgo:         headers["paypal-auth-algo"],
			CertURL:          headers["paypal-cert-url"],
			TransmissionID:   headers["paypal-transmission-id"],
			TransmissionSig:  headers["paypal-transmission-sig"],
			TransmissionTime: headers["paypal-transmission-time"],
			WebhookID:        a.config.WebhookID,
			WebhookEvent:     json.RawMessage(payload),
		}).
		SetResult(&verified).
		Post(paypalVerifyWebhookURL)
	if err != nil {
		return nil, requestFailed("paypal", err)
	}
	if resp.IsError() {
		return nil, a.apiError(resp)
	}
	if verified.VerificationStatus != "SUCCESS" {
		return nil, payment.ErrGatewayInvalidCallback
	}

	var resource paypalWebhookResource
	if err := json.Unmarshal(event.Resource, &resource); err != nil {
		return nil, invalidResponse("paypal", err)
	}

	cb := &payment.Callback{GatewayType: payment.GatewayPayPal, RawPayload: string(payload)}
	switch event.EventType {
	case paypalEventOrderApproved:
		cb.GatewayReference = resource.ID
		cb.Status = payment.GatewayStatusPending
		if len(resource.PurchaseUnits) > 0 {
			cb.TransactionID, _ = uuid.Parse(resource.PurchaseUnits[0].CustomID)
		}
	case paypalEventOrderVoided:
		cb.GatewayReference = resource.ID
		cb.Status = payment.GatewayStatusCancelled
	case paypalEventCaptureComplete, paypalEventCaptureDenied:
		cb.GatewayReference = resource.SupplementaryData.RelatedIDs.OrderID
		cb.TransactionID, _ = uuid.Parse(resource.CustomID)
		cb.Amount, _ = decimal.NewFromString(resource.Amount.Value)
		cb.Status = payment.GatewayStatusSucceeded
		if event.EventType == paypalEventCaptureDenied {
			cb.Status = payment.GatewayStatusFailed
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrPayPalUnsupportedEvent, event.EventType)
	}
	if cb.GatewayReference == "" {
		return nil, invalidResponse("paypal", errors.New("webhook resource has no order ID"))
	}
	return cb, nil
}

func (a *PayPalAdapter) getOrder(ctx context.Context, orderID string) (*paypalOrder, string, error) {
	var order paypalOrder
	call, err := a.authorized(ctx)
	if err != nil {
		return nil, "", err
	}
	resp, err := call.
		SetResult(&order).
		Get(fmt.Sprintf(paypalOrderPath, orderID))
	if err != nil {
		return nil, "", requestFailed("paypal", err)
	}
	if resp.IsError() {
		return nil, "", a.apiError(resp)
	}
	return &order, resp.String(), nil
}

func (a *PayPalAdapter) captureOrder(ctx context.Context, orderID string) (*paypalOrder, string, error) {
	var order paypalOrder
	call, err := a.authorized(ctx)
	if err != nil {
		return nil, "", err
	}
	resp, err := call.
		SetHeader("PayPal-Request-Id", "capture-"+orderID).
		SetBody(map[string]any{}).
		SetResult(&order).
		Post(fmt.Sprintf(paypalCapturePath, orderID))
	if err != nil {
		return nil, "", requestFailed("paypal", err)
	}
	if resp.IsError() {
		return nil, "", a.apiError(resp)
	}
	return &order, resp.String(), nil
}

// authorized returns a request carrying a valid bearer token
func (a *PayPalAdapter) authorized(ctx context.Context) (*resty.Request, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	return a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(token), nil
}

func (a *PayPalAdapter) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token != "" && time.Now().Before(a.expiresAt) {
		return a.token, nil
	}

	var token paypalTokenResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBasicAuth(a.config.ClientID, a.config.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&token).
		Post(paypalTokenPath)
	if err != nil {
		return "", requestFailed("paypal", err)
	}
	if resp.IsError() || token.AccessToken == "" {
		return "", httpFailed("paypal", resp)
	}
	a.token = token.AccessToken
	a.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - paypalTokenSlack)
	return a.token, nil
}

func (a *PayPalAdapter) apiError(resp *resty.Response) error {
	var apiErr paypalErrorResponse
	if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Name != "" {
		if resp.StatusCode() == 401 {
			a.mu.Lock()
			a.token = ""
			a.mu.Unlock()
		}
		return fmt.Errorf("paypal: %w: %s: %s (debug_id %s)", payment.ErrGatewayRequestFailed, apiErr.Name, apiErr.Message, apiErr.DebugID)
	}
	return httpFailed("paypal", resp)
}

func mapPayPalOrderStatus(o *paypalOrder) payment.GatewayStatus {
	switch o.Status {
	case paypalOrderCompleted:
		if c := o.capture(); c != nil {
			switch c.Status {
			case paypalCaptureDeclined, paypalCaptureFailed:
				return payment.GatewayStatusFailed
			case paypalCaptureRefunded:
				return payment.GatewayStatusRefunded
			case paypalCapturePending:
				return payment.GatewayStatusPending
			}
		}
		return payment.GatewayStatusSucceeded
	case paypalOrderVoided:
		return payment.GatewayStatusCancelled
	case paypalOrderCreated, paypalOrderSaved, paypalOrderApproved, paypalOrderPayerActionReqd:
		return payment.GatewayStatusPending
	}
	return payment.GatewayStatusPending
}

// Ensure PayPalAdapter implements payment.Gateway
var _ payment.Gateway = (*PayPalAdapter)(nil)
