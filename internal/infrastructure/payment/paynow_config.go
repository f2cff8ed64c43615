package payment

import (
	"errors"
	"time"
)

// PaynowConfig contains configuration for the Paynow Zimbabwe integration
type PaynowConfig struct {
	BaseURL        string
	IntegrationID  string
	IntegrationKey string
	// AuthEmail is sent with mobile payments; Paynow requires it in test mode
	AuthEmail string
	// ExpressPollAttempts bounds how often a mobile payment is polled before
	// CreatePayment gives up and leaves it pending
	ExpressPollAttempts int
	// ExpressPollInterval is the wait between mobile payment polls
	ExpressPollInterval time.Duration
}

// Errors for configuration validation
var (
	ErrPaynowMissingBaseURL        = errors.New("paynow: missing base URL")
	ErrPaynowMissingIntegrationID  = errors.New("paynow: missing integration ID")
	ErrPaynowMissingIntegrationKey = errors.New("paynow: missing integration key")
)

// Validate validates the configuration
func (c *PaynowConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrPaynowMissingBaseURL
	}
	if c.IntegrationID == "" {
		return ErrPaynowMissingIntegrationID
	}
	if c.IntegrationKey == "" {
		return ErrPaynowMissingIntegrationKey
	}
	return nil
}

func (c *PaynowConfig) withDefaults() {
	if c.ExpressPollAttempts <= 0 {
		c.ExpressPollAttempts = 6
	}
	if c.ExpressPollInterval <= 0 {
		c.ExpressPollInterval = 5 * time.Second
	}
}
