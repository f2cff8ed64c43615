package payment

import "errors"

// IVeriConfig contains configuration for the iVeri Enterprise REST API
type IVeriConfig struct {
	BaseURL       string
	ApplicationID string
	CertificateID string
	// Mode is "Test" or "Live"
	Mode string
	// MerchantReferencePrefix is prepended to our payment reference
	MerchantReferencePrefix string
}

// Errors for configuration validation
var (
	ErrIVeriMissingBaseURL       = errors.New("iveri: missing base URL")
	ErrIVeriMissingApplicationID = errors.New("iveri: missing application ID")
	ErrIVeriMissingCertificateID = errors.New("iveri: missing certificate ID")
	ErrIVeriInvalidMode          = errors.New("iveri: mode must be Test or Live")
)

// Validate validates the configuration
func (c *IVeriConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrIVeriMissingBaseURL
	}
	if c.ApplicationID == "" {
		return ErrIVeriMissingApplicationID
	}
	if c.CertificateID == "" {
		return ErrIVeriMissingCertificateID
	}
	if c.Mode != "Test" && c.Mode != "Live" {
		return ErrIVeriInvalidMode
	}
	return nil
}
