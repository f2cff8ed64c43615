package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/wallet"
	"github.com/shopspring/decimal"
)

// PayoutRequest withdraws money from the available balance
type PayoutRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reference string          `json:"reference" binding:"max=100"`
}

// ListTransactionsRequest pages through wallet movements
type ListTransactionsRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ListCommissionsRequest filters commission listings
type ListCommissionsRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Status   string `form:"status" binding:"omitempty,oneof=pending settled reversed"`
	VendorID string `form:"vendor_id" binding:"omitempty,uuid"`
}

// WalletResponse is a vendor's balance
type WalletResponse struct {
	ID        uuid.UUID       `json:"id"`
	VendorID  uuid.UUID       `json:"vendor_id"`
	Currency  string          `json:"currency"`
	Available decimal.Decimal `json:"available"`
	Pending   decimal.Decimal `json:"pending"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TransactionResponse is one wallet movement
type TransactionResponse struct {
	ID             uuid.UUID       `json:"id"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	AvailableAfter decimal.Decimal `json:"available_after"`
	PendingAfter   decimal.Decimal `json:"pending_after"`
	Reference      string          `json:"reference,omitempty"`
	Description    string          `json:"description"`
	OrderID        *uuid.UUID      `json:"order_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// CommissionResponse is the platform's share of one order
type CommissionResponse struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    uuid.UUID       `json:"order_id"`
	VendorID   uuid.UUID       `json:"vendor_id"`
	Rate       decimal.Decimal `json:"rate"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	SettledAt  *time.Time      `json:"settled_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CommissionSummaryResponse totals commissions by status
type CommissionSummaryResponse struct {
	Pending  decimal.Decimal `json:"pending"`
	Settled  decimal.Decimal `json:"settled"`
	Reversed decimal.Decimal `json:"reversed"`
	Earned   decimal.Decimal `json:"earned"`
	Count    int64           `json:"count"`
}

// ToWalletResponse converts a wallet
func ToWalletResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID,
		VendorID:  w.VendorID,
		Currency:  w.Currency.String(),
		Available: w.Available,
		Pending:   w.Pending,
		Balance:   w.Balance(),
		UpdatedAt: w.UpdatedAt,
	}
}

// ToTransactionResponse converts a wallet transaction
func ToTransactionResponse(t *wallet.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             t.ID,
		Type:           t.Type.String(),
		Amount:         t.Amount,
		AvailableAfter: t.AvailableAfter,
		PendingAfter:   t.PendingAfter,
		Reference:      t.Reference,
		Description:    t.Description,
		OrderID:        t.OrderID,
		CreatedAt:      t.CreatedAt,
	}
}

// ToCommissionResponse converts a commission
func ToCommissionResponse(c *wallet.Commission) CommissionResponse {
	return CommissionResponse{
		ID:         c.ID,
		OrderID:    c.OrderID,
		VendorID:   c.VendorID,
		Rate:       c.Rate,
		BaseAmount: c.BaseAmount,
		Amount:     c.Amount,
		Currency:   c.Currency.String(),
		Status:     string(c.Status),
		SettledAt:  c.SettledAt,
		CreatedAt:  c.CreatedAt,
	}
}

// ToCommissionSummaryResponse converts a commission summary
func ToCommissionSummaryResponse(s wallet.CommissionSummary) CommissionSummaryResponse {
	return CommissionSummaryResponse{
		Pending:  s.Pending,
		Settled:  s.Settled,
		Reversed: s.Reversed,
		Earned:   s.Earned(),
		Count:    s.Count,
	}
}
