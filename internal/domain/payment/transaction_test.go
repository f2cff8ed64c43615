package payment

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(t *testing.T) *Transaction {
	t.Helper()
	tx, err := NewTransaction(uuid.New(), uuid.New(), []uuid.UUID{uuid.New()}, GatewayPaynow,
		decimal.RequireFromString("25.555"), "USD", "https://shop.example.com/return",
		map[string]string{"phone": "0771111111", "card_token": "tok_secret"})
	require.NoError(t, err)
	return tx
}

func TestNewTransaction(t *testing.T) {
	tx := newTx(t)
	assert.Equal(t, TransactionPending, tx.Status)
	assert.Equal(t, "25.56", tx.Amount.StringFixed(2))
	assert.Contains(t, tx.Reference, "PAY-")
	assert.Equal(t, map[string]string{"phone": "0771111111"}, tx.Metadata)

	_, err := NewTransaction(uuid.New(), uuid.New(), []uuid.UUID{uuid.New()}, "stripe", decimal.NewFromInt(1), "USD", "", nil)
	assert.Error(t, err)
	_, err = NewTransaction(uuid.New(), uuid.New(), nil, GatewayPayPal, decimal.NewFromInt(1), "USD", "", nil)
	assert.Error(t, err)
	_, err = NewTransaction(uuid.New(), uuid.New(), []uuid.UUID{uuid.New()}, GatewayPayPal, decimal.Zero, "USD", "", nil)
	assert.Error(t, err)
}

func TestTransactionComplete(t *testing.T) {
	t.Run("pending is ignored", func(t *testing.T) {
		tx := newTx(t)
		changed, err := tx.Complete(GatewayStatusPending, "")
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("success then duplicate", func(t *testing.T) {
		tx := newTx(t)
		changed, err := tx.Complete(GatewayStatusSucceeded, "")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, tx.Succeeded())
		assert.NotNil(t, tx.CompletedAt)

		changed, err = tx.Complete(GatewayStatusSucceeded, "")
		require.NoError(t, err)
		assert.False(t, changed)

		_, err = tx.Complete(GatewayStatusFailed, "late failure")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("refund after success", func(t *testing.T) {
		tx := newTx(t)
		_, err := tx.Complete(GatewayStatusSucceeded, "")
		require.NoError(t, err)
		changed, err := tx.Complete(GatewayStatusRefunded, "customer request")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, TransactionRefunded, tx.Status)
	})

	t.Run("failure records reason", func(t *testing.T) {
		tx := newTx(t)
		changed, err := tx.Complete(GatewayStatusFailed, "insufficient funds")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "insufficient funds", tx.FailureReason)
		events := tx.GetDomainEvents()
		assert.Equal(t, EventTypePaymentFailed, events[len(events)-1].EventType())
	})
}

func TestTransactionVoid(t *testing.T) {
	tx := newTx(t)
	assert.True(t, tx.Void("superseded by PAY-2"))
	assert.Equal(t, TransactionCancelled, tx.Status)
	assert.Equal(t, "superseded by PAY-2", tx.FailureReason)

	assert.False(t, tx.Void("again"), "only a pending transaction is voided")

	paid := newTx(t)
	_, err := paid.Complete(GatewayStatusSucceeded, "")
	require.NoError(t, err)
	assert.False(t, paid.Void("order cancelled"))
	assert.True(t, paid.Succeeded())
}

func TestTransactionCapturedLate(t *testing.T) {
	tests := []struct {
		name     string
		prepare  func(*Transaction)
		refunded bool
		want     TransactionStatus
		event    string
	}{
		{"pending and refunded", func(*Transaction) {}, true, TransactionRefunded, EventTypePaymentRefunded},
		{"voided and refunded", func(tx *Transaction) { tx.Void("order cancelled") }, true, TransactionRefunded, EventTypePaymentRefunded},
		{"voided and refund declined", func(tx *Transaction) { tx.Void("order cancelled") }, false, TransactionReview, EventTypePaymentReview},
		{"failed and refund declined", func(tx *Transaction) { _, _ = tx.Complete(GatewayStatusFailed, "") }, false, TransactionReview, EventTypePaymentReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := newTx(t)
			tt.prepare(tx)
			tx.ClearDomainEvents()

			require.NoError(t, tx.CapturedLate(tt.refunded, "orders no longer payable"))
			assert.Equal(t, tt.want, tx.Status)
			assert.Equal(t, "orders no longer payable", tx.FailureReason)
			require.Len(t, tx.GetDomainEvents(), 1)
			assert.Equal(t, tt.event, tx.GetDomainEvents()[0].EventType())
			assert.Contains(t, tt.want.CompletesFrom(), TransactionCancelled)
		})
	}

	t.Run("captured transaction is not touched", func(t *testing.T) {
		tx := newTx(t)
		_, err := tx.Complete(GatewayStatusSucceeded, "")
		require.NoError(t, err)
		assert.ErrorIs(t, tx.CapturedLate(true, "late"), shared.ErrInvalidState)
		assert.True(t, tx.Succeeded())
	})
}

func TestTransactionStatus_CompletesFrom(t *testing.T) {
	assert.Equal(t, []TransactionStatus{TransactionPending}, TransactionSucceeded.CompletesFrom())
	assert.Equal(t, []TransactionStatus{TransactionPending}, TransactionCancelled.CompletesFrom())
	assert.Contains(t, TransactionRefunded.CompletesFrom(), TransactionSucceeded)
	assert.NotContains(t, TransactionReview.CompletesFrom(), TransactionSucceeded)
	assert.Empty(t, TransactionPending.CompletesFrom())
}

func TestTransactionCovers(t *testing.T) {
	tx := newTx(t)
	assert.True(t, tx.Covers(tx.OrderIDs[0]))
	assert.False(t, tx.Covers(uuid.New()))
}

func TestCreatePaymentRequestValidate(t *testing.T) {
	valid := CreatePaymentRequest{
		TransactionID: uuid.New(),
		Reference:     "PAY-1",
		Amount:        decimal.NewFromInt(10),
		Currency:      "USD",
		ReturnURL:     "https://shop.example.com/done",
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Amount = decimal.Zero
	assert.ErrorIs(t, bad.Validate(), ErrPaymentInvalidAmount)

	bad = valid
	bad.ReturnURL = "javascript:alert(1)"
	assert.ErrorIs(t, bad.Validate(), ErrPaymentInvalidReturnURL)

	bad = valid
	bad.Currency = "US"
	assert.ErrorIs(t, bad.Validate(), ErrPaymentInvalidCurrency)
}

func TestParseGatewayType(t *testing.T) {
	g, err := ParseGatewayType(" PayPal ")
	require.NoError(t, err)
	assert.Equal(t, GatewayPayPal, g)

	_, err = ParseGatewayType("stripe")
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)
}

func TestRefundRequestValidate(t *testing.T) {
	r := RefundRequest{
		TransactionID:    uuid.New(),
		GatewayReference: "ref",
		Amount:           decimal.NewFromInt(11),
		PaymentAmount:    decimal.NewFromInt(10),
	}
	assert.ErrorIs(t, r.Validate(), ErrRefundExceedsPayment)
	r.Amount = decimal.NewFromInt(10)
	assert.NoError(t, r.Validate())
}
