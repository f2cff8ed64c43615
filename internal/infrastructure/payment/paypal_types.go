package payment

import "encoding/json"

// PayPal order statuses
const (
	paypalOrderCreated         = "CREATED"
	paypalOrderSaved           = "SAVED"
	paypalOrderApproved        = "APPROVED"
	paypalOrderVoided          = "VOIDED"
	paypalOrderCompleted       = "COMPLETED"
	paypalOrderPayerActionReqd = "PAYER_ACTION_REQUIRED"
)

// PayPal capture and refund statuses
const (
	paypalCaptureCompleted = "COMPLETED"
	paypalCaptureDeclined  = "DECLINED"
	paypalCaptureFailed    = "FAILED"
	paypalCaptureRefunded  = "REFUNDED"
	paypalCapturePending   = "PENDING"
)

// PayPal webhook event types the adapter understands
const (
	paypalEventOrderApproved   = "CHECKOUT.ORDER.APPROVED"
	paypalEventCaptureComplete = "PAYMENT.CAPTURE.COMPLETED"
	paypalEventCaptureDenied   = "PAYMENT.CAPTURE.DENIED"
	paypalEventCaptureRefunded = "PAYMENT.CAPTURE.REFUNDED"
	paypalEventOrderVoided     = "CHECKOUT.ORDER.VOIDED"
)

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string          `json:"reference_id,omitempty"`
	CustomID    string          `json:"custom_id,omitempty"`
	InvoiceID   string          `json:"invoice_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Amount      paypalAmount    `json:"amount"`
	Payments    *paypalPayments `json:"payments,omitempty"`
}

type paypalPayments struct {
	Captures []paypalCapture `json:"captures"`
}

type paypalCapture struct {
	ID       string       `json:"id"`
	Status   string       `json:"status"`
	Amount   paypalAmount `json:"amount"`
	CustomID string       `json:"custom_id,omitempty"`
}

type paypalApplicationContext struct {
	BrandName          string `json:"brand_name,omitempty"`
	ReturnURL          string `json:"return_url,omitempty"`
	CancelURL          string `json:"cancel_url,omitempty"`
	UserAction         string `json:"user_action"`
	ShippingPreference string `json:"shipping_preference"`
}

type paypalCreateOrderRequest struct {
	Intent             string                   `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit     `json:"purchase_units"`
	ApplicationContext paypalApplicationContext `json:"application_context"`
}

type paypalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type paypalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
	Links         []paypalLink         `json:"links"`
}

// approveLink returns the URL the buyer is redirected to
func (o *paypalOrder) approveLink() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

// capture returns the first capture of the order, if any
func (o *paypalOrder) capture() *paypalCapture {
	for _, pu := range o.PurchaseUnits {
		if pu.Payments != nil && len(pu.Payments.Captures) > 0 {
			return &pu.Payments.Captures[0]
		}
	}
	return nil
}

type paypalRefundRequest struct {
	Amount      paypalAmount `json:"amount"`
	NoteToPayer string       `json:"note_to_payer,omitempty"`
}

type paypalRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type paypalErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	DebugID string `json:"debug_id"`
}

type paypalWebhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
}

type paypalWebhookResource struct {
	ID                string       `json:"id"`
	Status            string       `json:"status"`
	CustomID          string       `json:"custom_id"`
	Amount            paypalAmount `json:"amount"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalVerifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type paypalVerifyResponse struct {
	VerificationStatus string `json:"verification_status"`
}
