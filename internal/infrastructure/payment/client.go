package payment

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/marketplace/backend/internal/domain/payment"
)

// ClientOptions tunes the HTTP client shared by gateway adapters
type ClientOptions struct {
	// Timeout bounds a single gateway call
	Timeout time.Duration
	// RetryCount applies to GET requests only; payments are never re-posted
	RetryCount int
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RetryCount < 0 {
		o.RetryCount = 0
	}
	return o
}

func newGatewayClient(baseURL string, opts ClientOptions) *resty.Client {
	opts = opts.withDefaults()
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "marketplace-backend/1.0").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})
}

// requestFailed wraps a transport or HTTP-level failure
func requestFailed(gateway string, err error) error {
	return fmt.Errorf("%s: %w: %v", gateway, payment.ErrGatewayRequestFailed, err)
}

// httpFailed reports a non-2xx response
func httpFailed(gateway string, resp *resty.Response) error {
	return fmt.Errorf("%s: %w: status %d: %s", gateway, payment.ErrGatewayRequestFailed, resp.StatusCode(), truncate(resp.String(), 300))
}

// invalidResponse wraps a body the adapter could not understand
func invalidResponse(gateway string, err error) error {
	return fmt.Errorf("%s: %w: %v", gateway, payment.ErrGatewayInvalidResponse, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
