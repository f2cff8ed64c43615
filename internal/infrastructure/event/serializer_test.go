package event

import (
	"encoding/json"
	"testing"

	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSerializer_EncodeDecode(t *testing.T) {
	s := NewEventSerializer()
	RegisterMarketplaceEvents(s)

	original := newOrderEvent(order.EventTypeOrderPaid)
	original.Total = decimal.RequireFromString("265.65")

	data, err := s.Encode("instance-a", original)
	require.NoError(t, err)

	env, decoded, err := s.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "instance-a", env.Origin)
	assert.Equal(t, order.EventTypeOrderPaid, env.Type)

	got, ok := decoded.(*order.OrderEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), got.EventID())
	assert.Equal(t, order.TopicOrders, got.Topic())
	assert.Equal(t, original.OwnerIDs(), got.OwnerIDs())
	assert.True(t, got.Total.Equal(original.Total))
}

func TestEventSerializer_Decode_Errors(t *testing.T) {
	s := NewEventSerializer()
	s.Register(wallet.EventTypeWalletCredited, &wallet.WalletEvent{})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := s.Decode([]byte("not json"))
		assert.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		data, _ := json.Marshal(Envelope{Type: "order.paid", Payload: json.RawMessage(`{}`)})
		_, _, err := s.Decode(data)
		assert.ErrorContains(t, err, "unknown event type")
	})
}

func TestRegisterMarketplaceEvents(t *testing.T) {
	s := NewEventSerializer()
	RegisterMarketplaceEvents(s)

	for _, eventType := range []string{
		"order.created", "order.delivered", "product.stock_changed", "payment.succeeded",
		"vendor.approved", "wallet.credited", "commission.settled", "settings.updated", "currency.updated",
	} {
		assert.True(t, s.IsRegistered(eventType), eventType)
	}
}
