package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/marketplace/backend/internal/domain/payment"
)

const iveriTransactionsPath = "/api/transactions"

// Metadata keys read from the checkout request
const (
	MetaCardNumber = "card_number"
	MetaCardToken  = "card_token"
	MetaCardExpiry = "card_expiry" // MMYY
	MetaCardCVV    = "cvv"
	MetaCardHolder = "card_holder"
)

// ErrIVeriQueryNotSupported is returned by QueryPayment; iVeri debits are
// final when CreatePayment returns
var ErrIVeriQueryNotSupported = errors.New("iveri: payments settle synchronously and cannot be queried")

// IVeriAdapter implements payment.Gateway for iVeri card payments. Cards are
// debited server-side so CreatePayment always returns a final status.
type IVeriAdapter struct {
	config *IVeriConfig
	client *resty.Client
}

// NewIVeriAdapter creates a new iVeri adapter
func NewIVeriAdapter(config *IVeriConfig, opts ClientOptions) (*IVeriAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &IVeriAdapter{
		config: config,
		client: newGatewayClient(strings.TrimRight(config.BaseURL, "/"), opts),
	}, nil
}

// GatewayType returns the gateway type
func (a *IVeriAdapter) GatewayType() payment.GatewayType {
	return payment.GatewayIVeri
}

// CreatePayment debits the card described in the request metadata
func (a *IVeriAdapter) CreatePayment(ctx context.Context, req *payment.CreatePaymentRequest) (*payment.CreatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	txn := a.transaction(iveriCommandDebit, req.Reference, req.Amount, req.Currency)
	switch {
	case req.Meta(MetaCardToken) != "":
		txn.PAN = req.Meta(MetaCardToken)
		txn.PANFormat = "Token"
	case req.Meta(MetaCardNumber) != "":
		txn.PAN = strings.ReplaceAll(req.Meta(MetaCardNumber), " ", "")
		txn.PANFormat = "Keyed"
	default:
		return nil, fmt.Errorf("%w: %s or %s", payment.ErrPaymentMissingMetadata, MetaCardToken, MetaCardNumber)
	}
	txn.ExpiryDate = strings.ReplaceAll(req.Meta(MetaCardExpiry), "/", "")
	if len(txn.ExpiryDate) != 4 {
		return nil, fmt.Errorf("%w: %s must be MMYY", payment.ErrPaymentMissingMetadata, MetaCardExpiry)
	}
	txn.CardSecurityCode = req.Meta(MetaCardCVV)
	txn.CardHolderName = req.Meta(MetaCardHolder)
	txn.CardHolderEmail = req.PayerEmail

	result, raw, err := a.send(ctx, txn)
	if err != nil {
		return nil, err
	}

	resp := &payment.CreatePaymentResponse{
		GatewayType:      payment.GatewayIVeri,
		GatewayReference: result.reference(txn.MerchantReference),
		Status:           payment.GatewayStatusSucceeded,
		RawResponse:      raw,
	}
	if r := result.Result; r == nil || r.Status != iveriStatusApproved {
		resp.Status = payment.GatewayStatusFailed
		resp.FailureReason = iveriFailure(r)
	}
	return resp, nil
}

// QueryPayment is not supported for synchronous card payments
func (a *IVeriAdapter) QueryPayment(ctx context.Context, req *payment.QueryPaymentRequest) (*payment.QueryPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrIVeriQueryNotSupported
}

// CreateRefund credits the card through a follow-up Credit command
func (a *IVeriAdapter) CreateRefund(ctx context.Context, req *payment.RefundRequest) (*payment.RefundResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	txn := a.transaction(iveriCommandCredit, req.TransactionID.String()[:8], req.Amount, req.Currency)
	// follow-up transactions reference the original by its trace
	txn.MerchantTrace = req.GatewayReference

	result, raw, err := a.send(ctx, txn)
	if err != nil {
		return nil, err
	}
	status := payment.GatewayStatusRefunded
	if r := result.Result; r == nil || r.Status != iveriStatusApproved {
		status = payment.GatewayStatusFailed
	}
	return &payment.RefundResponse{
		GatewayRefundID: result.reference(txn.MerchantReference),
		Status:          status,
		RawResponse:     raw,
	}, nil
}

// VerifyCallback always fails; iVeri does not post callbacks
func (a *IVeriAdapter) VerifyCallback(ctx context.Context, payload []byte, headers map[string]string) (*payment.Callback, error) {
	return nil, fmt.Errorf("iveri: %w: callbacks are not used", payment.ErrGatewayInvalidCallback)
}

func (a *IVeriAdapter) transaction(command, reference string, amount decimal.Decimal, currency string) iveriTransaction {
	return iveriTransaction{
		ApplicationID:     a.config.ApplicationID,
		Command:           command,
		Mode:              a.config.Mode,
		MerchantReference: a.config.MerchantReferencePrefix + reference,
		// iVeri amounts are in minor units
		Amount:   amount.Shift(2).Round(0).String(),
		Currency: strings.ToUpper(currency),
	}
}

func (a *IVeriAdapter) send(ctx context.Context, txn iveriTransaction) (*iveriTransaction, string, error) {
	var out iveriResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(iveriEnvelope{
			Version:        "2.0",
			CertificateID:  a.config.CertificateID,
			ProductType:    "Enterprise",
			ProductVersion: "WebAPI",
			Direction:      "Request",
			Transaction:    txn,
		}).
		SetResult(&out).
		Post(iveriTransactionsPath)
	if err != nil {
		return nil, "", requestFailed("iveri", err)
	}
	if resp.IsError() {
		return nil, "", httpFailed("iveri", resp)
	}
	if out.Transaction.Result == nil {
		return nil, "", invalidResponse("iveri", errors.New("response has no result"))
	}
	return &out.Transaction, resp.String(), nil
}

// reference prefers the gateway's request ID and falls back to ours
func (t *iveriTransaction) reference(fallback string) string {
	if t.RequestID != "" {
		return t.RequestID
	}
	if t.MerchantTrace != "" {
		return t.MerchantTrace
	}
	return fallback
}

func iveriFailure(r *iveriResult) string {
	if r == nil {
		return "no result"
	}
	desc := r.Description
	if desc == "" {
		desc = "declined"
	}
	if r.Status == iveriStatusRetry {
		return desc + " (try again)"
	}
	return desc
}

// Ensure IVeriAdapter implements payment.Gateway
var _ payment.Gateway = (*IVeriAdapter)(nil)
