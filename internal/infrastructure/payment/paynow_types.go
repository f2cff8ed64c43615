package payment

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"

	"github.com/marketplace/backend/internal/domain/payment"
)

// Paynow transaction statuses, compared case-insensitively
const (
	paynowStatusOk               = "ok"
	paynowStatusError            = "error"
	paynowStatusPaid             = "paid"
	paynowStatusAwaitingDelivery = "awaiting delivery"
	paynowStatusDelivered        = "delivered"
	paynowStatusCreated          = "created"
	paynowStatusSent             = "sent"
	paynowStatusCancelled        = "cancelled"
	paynowStatusFailed           = "failed"
	paynowStatusDisputed         = "disputed"
	paynowStatusRefunded         = "refunded"
)

var errPaynowHashMismatch = errors.New("paynow: hash mismatch")

// paynowField is one key/value of a Paynow message. Field order matters
// because the hash covers values in the order they were sent.
type paynowField struct {
	Key   string
	Value string
}

type paynowMessage []paynowField

// Get returns the value of a field, ignoring key case
func (m paynowMessage) Get(key string) string {
	for _, f := range m {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return ""
}

// Status returns the lower-cased status field
func (m paynowMessage) Status() string {
	return strings.ToLower(strings.TrimSpace(m.Get("status")))
}

// Form returns the message as form data
func (m paynowMessage) Form() map[string]string {
	out := make(map[string]string, len(m))
	for _, f := range m {
		out[f.Key] = f.Value
	}
	return out
}

// Signed returns a copy with the hash field appended
func (m paynowMessage) Signed(integrationKey string) paynowMessage {
	out := make(paynowMessage, 0, len(m)+1)
	out = append(out, m...)
	return append(out, paynowField{Key: "hash", Value: paynowHash(m, integrationKey)})
}

// Verify checks the message hash against the integration key
func (m paynowMessage) Verify(integrationKey string) error {
	got := m.Get("hash")
	if got == "" || !strings.EqualFold(got, paynowHash(m, integrationKey)) {
		return errPaynowHashMismatch
	}
	return nil
}

// paynowHash is SHA-512 over all values except the hash, followed by the
// integration key, upper-case hex encoded
func paynowHash(m paynowMessage, integrationKey string) string {
	var sb strings.Builder
	for _, f := range m {
		if strings.EqualFold(f.Key, "hash") {
			continue
		}
		sb.WriteString(f.Value)
	}
	sb.WriteString(integrationKey)
	sum := sha512.Sum512([]byte(sb.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// parsePaynowMessage decodes a URL-encoded body keeping field order
func parsePaynowMessage(body string) (paynowMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.New("paynow: empty message")
	}
	var out paynowMessage
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		out = append(out, paynowField{Key: key, Value: value})
	}
	return out, nil
}

// mapPaynowStatus maps a Paynow transaction status to a gateway status
func mapPaynowStatus(status string) payment.GatewayStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case paynowStatusPaid, paynowStatusAwaitingDelivery, paynowStatusDelivered:
		return payment.GatewayStatusSucceeded
	case paynowStatusCancelled:
		return payment.GatewayStatusCancelled
	case paynowStatusFailed, paynowStatusDisputed:
		return payment.GatewayStatusFailed
	case paynowStatusRefunded:
		return payment.GatewayStatusRefunded
	}
	return payment.GatewayStatusPending
}
