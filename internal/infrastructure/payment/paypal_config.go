package payment

import "errors"

// PayPalConfig contains configuration for the PayPal REST API
type PayPalConfig struct {
	// BaseURL is https://api-m.paypal.com in live mode
	BaseURL      string
	ClientID     string
	ClientSecret string
	// WebhookID is the webhook registered in the PayPal dashboard; webhook
	// signatures are verified against it
	WebhookID string
	// BrandName is shown on the PayPal approval page
	BrandName string
}

// Errors for configuration validation
var (
	ErrPayPalMissingBaseURL      = errors.New("paypal: missing base URL")
	ErrPayPalMissingClientID     = errors.New("paypal: missing client ID")
	ErrPayPalMissingClientSecret = errors.New("paypal: missing client secret")
)

// Validate validates the configuration
func (c *PayPalConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrPayPalMissingBaseURL
	}
	if c.ClientID == "" {
		return ErrPayPalMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrPayPalMissingClientSecret
	}
	return nil
}
