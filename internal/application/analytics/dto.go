package analytics

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordVisitRequest is sent by the storefront once per page load
type RecordVisitRequest struct {
	SessionID string `json:"session_id" binding:"required,max=128"`
	Path      string `json:"path" binding:"max=512"`
}

// RecordVisitResponse tells whether the visit was counted
type RecordVisitResponse struct {
	Counted bool `json:"counted"`
}

// DashboardResponse is the admin overview
type DashboardResponse struct {
	Orders           int64           `json:"orders"`
	GrossValue       decimal.Decimal `json:"gross_value"`
	CommissionEarned decimal.Decimal `json:"commission_earned"`
	VATCollected     decimal.Decimal `json:"vat_collected"`
	ActiveVendors    int64           `json:"active_vendors"`
	PendingVendors   int64           `json:"pending_vendors"`
	VisitsToday      int64           `json:"visits_today"`
	Currency         string          `json:"currency"`
	GeneratedAt      time.Time       `json:"generated_at"`
}
