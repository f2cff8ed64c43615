package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/marketplace/backend/internal/domain/payment"
)

const (
	paynowInitiatePath = "/interface/initiatetransaction"
	paynowRemotePath   = "/interface/remotetransaction"
)

// Metadata keys for mobile money express checkout
const (
	MetaPaynowMethod = "method"
	MetaPhone        = "phone"
)

var paynowMobileMethods = map[string]bool{
	"ecocash":  true,
	"onemoney": true,
	"innbucks": true,
}

// PaynowAdapter implements payment.Gateway for Paynow. Web payments redirect
// the buyer to Paynow; mobile money payments are pushed to the buyer's phone
// and polled briefly so the checkout can answer synchronously.
type PaynowAdapter struct {
	config  *PaynowConfig
	client  *resty.Client
	baseURL *url.URL
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPaynowAdapter creates a new Paynow adapter
func NewPaynowAdapter(config *PaynowConfig, opts ClientOptions) (*PaynowAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.withDefaults()
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("paynow: invalid base URL: %w", err)
	}
	return &PaynowAdapter{
		config:  config,
		client:  newGatewayClient(base.String(), opts),
		baseURL: base,
		sleep:   sleepContext,
	}, nil
}

// GatewayType returns the gateway type
func (a *PaynowAdapter) GatewayType() payment.GatewayType {
	return payment.GatewayPaynow
}

// CreatePayment initiates a web or mobile money transaction
func (a *PaynowAdapter) CreatePayment(ctx context.Context, req *payment.CreatePaymentRequest) (*payment.CreatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	method := strings.ToLower(req.Meta(MetaPaynowMethod))
	if method != "" && !paynowMobileMethods[method] {
		return nil, fmt.Errorf("%w: unsupported paynow method %q", payment.ErrPaymentMissingMetadata, method)
	}
	if method != "" {
		return a.createMobile(ctx, req, method)
	}
	if req.ReturnURL == "" {
		return nil, payment.ErrPaymentInvalidReturnURL
	}

	msg, raw, err := a.post(ctx, paynowInitiatePath, a.baseMessage(req, ""))
	if err != nil {
		return nil, err
	}
	browserURL := msg.Get("browserurl")
	if browserURL == "" {
		return nil, invalidResponse("paynow", fmt.Errorf("no browser URL in %q", truncate(raw, 200)))
	}
	return &payment.CreatePaymentResponse{
		GatewayType: payment.GatewayPaynow,
		Status:      payment.GatewayStatusPending,
		RedirectURL: browserURL,
		PollURL:     msg.Get("pollurl"),
		RawResponse: raw,
	}, nil
}

func (a *PaynowAdapter) createMobile(ctx context.Context, req *payment.CreatePaymentRequest, method string) (*payment.CreatePaymentResponse, error) {
	phone := strings.ReplaceAll(req.Meta(MetaPhone), " ", "")
	if phone == "" {
		return nil, fmt.Errorf("%w: %s", payment.ErrPaymentMissingMetadata, MetaPhone)
	}
	authEmail := req.PayerEmail
	if a.config.AuthEmail != "" {
		authEmail = a.config.AuthEmail
	}
	base := a.baseMessage(req, authEmail)
	msg := append(base[:len(base)-1:len(base)-1],
		paynowField{"phone", phone},
		paynowField{"method", method},
		paynowField{"status", "Message"},
	)

	reply, raw, err := a.post(ctx, paynowRemotePath, msg)
	if err != nil {
		return nil, err
	}
	resp := &payment.CreatePaymentResponse{
		GatewayType:      payment.GatewayPaynow,
		GatewayReference: reply.Get("paynowreference"),
		Status:           payment.GatewayStatusPending,
		PollURL:          reply.Get("pollurl"),
		RawResponse:      raw,
	}
	if resp.PollURL == "" {
		return resp, nil
	}

	// the buyer confirms on their handset; wait a little for the outcome
	for attempt := 0; attempt < a.config.ExpressPollAttempts; attempt++ {
		if err := a.sleep(ctx, a.config.ExpressPollInterval); err != nil {
			break
		}
		status, err := a.QueryPayment(ctx, &payment.QueryPaymentRequest{PollURL: resp.PollURL})
		if err != nil {
			continue
		}
		if status.GatewayReference != "" {
			resp.GatewayReference = status.GatewayReference
		}
		if status.Status.IsFinal() {
			resp.Status = status.Status
			resp.FailureReason = status.FailureReason
			break
		}
	}
	return resp, nil
}

// QueryPayment polls the transaction's poll URL
func (a *PaynowAdapter) QueryPayment(ctx context.Context, req *payment.QueryPaymentRequest) (*payment.QueryPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.PollURL == "" {
		return nil, payment.ErrPaymentInvalidQuery
	}
	if err := a.checkPollURL(req.PollURL); err != nil {
		return nil, err
	}

	resp, err := a.client.R().SetContext(ctx).Post(req.PollURL)
	if err != nil {
		return nil, requestFailed("paynow", err)
	}
	if resp.IsError() {
		return nil, httpFailed("paynow", resp)
	}
	msg, err := parsePaynowMessage(resp.String())
	if err != nil {
		return nil, invalidResponse("paynow", err)
	}
	if msg.Status() == paynowStatusError {
		return nil, fmt.Errorf("paynow: %w: %s", payment.ErrGatewayRequestFailed, msg.Get("error"))
	}
	if err := msg.Verify(a.config.IntegrationKey); err != nil {
		return nil, invalidResponse("paynow", err)
	}

	result := &payment.QueryPaymentResponse{
		GatewayReference: msg.Get("paynowreference"),
		Status:           mapPaynowStatus(msg.Get("status")),
		RawResponse:      resp.String(),
	}
	result.PaidAmount, _ = decimal.NewFromString(msg.Get("amount"))
	if result.Status == payment.GatewayStatusFailed || result.Status == payment.GatewayStatusCancelled {
		result.FailureReason = "paynow status " + msg.Get("status")
	}
	return result, nil
}

// CreateRefund is not offered by the Paynow API
func (a *PaynowAdapter) CreateRefund(ctx context.Context, req *payment.RefundRequest) (*payment.RefundResponse, error) {
	return nil, fmt.Errorf("paynow: %w", payment.ErrRefundNotSupported)
}

// VerifyCallback parses and verifies a status update posted to the result URL
func (a *PaynowAdapter) VerifyCallback(ctx context.Context, payload []byte, headers map[string]string) (*payment.Callback, error) {
	msg, err := parsePaynowMessage(string(payload))
	if err != nil {
		return nil, invalidResponse("paynow", err)
	}
	if err := msg.Verify(a.config.IntegrationKey); err != nil {
		return nil, err
	}
	reference := msg.Get("reference")
	if reference == "" {
		return nil, payment.ErrPaymentInvalidReference
	}
	cb := &payment.Callback{
		GatewayType:      payment.GatewayPaynow,
		GatewayReference: reference,
		Status:           mapPaynowStatus(msg.Get("status")),
		RawPayload:       string(payload),
	}
	cb.Amount, _ = decimal.NewFromString(msg.Get("amount"))
	return cb, nil
}

// baseMessage builds the fields shared by web and mobile initiation. The
// status field is last so mobile requests can insert fields before it.
func (a *PaynowAdapter) baseMessage(req *payment.CreatePaymentRequest, authEmail string) paynowMessage {
	return paynowMessage{
		{"id", a.config.IntegrationID},
		{"reference", req.Reference},
		{"amount", req.Amount.StringFixed(2)},
		{"additionalinfo", truncate(req.Description, 200)},
		{"returnurl", req.ReturnURL},
		{"resulturl", req.NotifyURL},
		{"authemail", authEmail},
		{"status", "Message"},
	}
}

func (a *PaynowAdapter) post(ctx context.Context, path string, msg paynowMessage) (paynowMessage, string, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetFormData(msg.Signed(a.config.IntegrationKey).Form()).
		Post(path)
	if err != nil {
		return nil, "", requestFailed("paynow", err)
	}
	if resp.IsError() {
		return nil, "", httpFailed("paynow", resp)
	}
	raw := resp.String()
	reply, err := parsePaynowMessage(raw)
	if err != nil {
		return nil, raw, invalidResponse("paynow", err)
	}
	if reply.Status() != paynowStatusOk {
		reason := reply.Get("error")
		if reason == "" {
			reason = reply.Get("status")
		}
		return nil, raw, fmt.Errorf("paynow: %w: %s", payment.ErrGatewayRequestFailed, reason)
	}
	if err := reply.Verify(a.config.IntegrationKey); err != nil {
		return nil, raw, invalidResponse("paynow", err)
	}
	return reply, raw, nil
}

// checkPollURL refuses to post to hosts other than Paynow's
func (a *PaynowAdapter) checkPollURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !strings.EqualFold(u.Host, a.baseURL.Host) {
		return fmt.Errorf("%w: poll URL host not allowed", payment.ErrPaymentInvalidQuery)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ensure PaynowAdapter implements payment.Gateway
var _ payment.Gateway = (*PaynowAdapter)(nil)
