package dto

import (
	"net/http"
	"strings"
)

// Response error codes follow ERR_<CATEGORY>_<DESCRIPTION>. Domain codes
// without the prefix (EMPTY_CART, GUEST_ACCOUNT, ...) pass through as-is.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"
)

// auth
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

const (
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeBusinessRule        = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientStock   = "ERR_INSUFFICIENT_STOCK"
	ErrCodeInsufficientBalance = "ERR_INSUFFICIENT_BALANCE"
)

const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	// body exceeds http.max_body_size
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

const (
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

const (
	// a payment gateway could not be reached
	ErrCodeGatewayUnavailable = "ERR_GATEWAY_UNAVAILABLE"
	ErrCodeServiceDisabled    = "ERR_SERVICE_DISABLED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:   http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,

	ErrCodeGatewayUnavailable: http.StatusServiceUnavailable,
	ErrCodeServiceDisabled:    http.StatusServiceUnavailable,

	// Domain codes that keep their own name in responses
	"ACCOUNT_EXISTS":         http.StatusConflict,
	"DUPLICATE_ITEM":         http.StatusConflict,
	"AMOUNT_MISMATCH":        http.StatusUnprocessableEntity,
	"CURRENCY_MISMATCH":      http.StatusUnprocessableEntity,
	"IMAGE_NOT_UPLOADED":     http.StatusUnprocessableEntity,
	"NOTHING_TO_PAY":         http.StatusUnprocessableEntity,
	"PAYOUT_DETAILS_MISSING": http.StatusUnprocessableEntity,
	"PRODUCT_UNAVAILABLE":    http.StatusUnprocessableEntity,
	"TOO_MANY_IMAGES":        http.StatusUnprocessableEntity,
	"UNSUPPORTED_CURRENCY":   http.StatusUnprocessableEntity,
	"EMPTY_CART":             http.StatusBadRequest,
	"REASON_REQUIRED":        http.StatusBadRequest,
	"INVALID_CREDENTIALS":    http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":      http.StatusUnauthorized,
	"TOKEN_REVOKED":          http.StatusUnauthorized,
	"GUEST_ACCOUNT":          http.StatusForbidden,
	"VENDOR_NOT_APPROVED":    http.StatusForbidden,
	"USER_NOT_FOUND":         http.StatusNotFound,
	"UNKNOWN_TABLE":          http.StatusNotFound,
	"REFUND_FAILED":          http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unlisted INVALID_* codes are client errors; anything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps bare domain codes onto the ERR_ namespace
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
	"INSUFFICIENT_BALANCE": ErrCodeInsufficientBalance,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
	"TOKEN_EXPIRED":        ErrCodeTokenExpired,
	"TOKEN_INVALID":        ErrCodeTokenInvalid,
	"GATEWAY_UNAVAILABLE":  ErrCodeGatewayUnavailable,
	"STORAGE_DISABLED":     ErrCodeServiceDisabled,
	"INVOICES_DISABLED":    ErrCodeServiceDisabled,
	"PASSWORD_HASH_ERROR":  ErrCodeInternal,
	"TOKEN_ERROR":          ErrCodeInternal,
}

// NormalizeErrorCode maps a bare domain code into the ERR_ namespace when a
// mapping exists and returns anything else unchanged
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// ValidationDetail describes one invalid field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
