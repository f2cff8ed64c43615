package wallet

import (
	"context"
	"fmt"

	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderEventHandler moves vendor money when orders are paid, delivered or
// refunded
type OrderEventHandler struct {
	service   *WalletService
	orderRepo order.Repository
	logger    *zap.Logger
}

// NewOrderEventHandler creates a new handler for order lifecycle events
func NewOrderEventHandler(service *WalletService, orderRepo order.Repository, logger *zap.Logger) *OrderEventHandler {
	return &OrderEventHandler{
		service:   service,
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderEventHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderPaid,
		order.EventTypeOrderDelivered,
		order.EventTypeOrderRefunded,
	}
}

// Handle reloads the order and applies the matching wallet movement
func (h *OrderEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	orderEvent, ok := event.(*order.OrderEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", "*order.OrderEvent"),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	// the event is a snapshot; the stored order carries the current payout state
	o, err := h.orderRepo.FindByID(ctx, orderEvent.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderEvent.OrderID, err)
	}

	switch event.EventType() {
	case order.EventTypeOrderPaid:
		err = h.service.CreditPaidOrder(ctx, o)
	case order.EventTypeOrderDelivered:
		err = h.service.ReleaseOrder(ctx, o)
	case order.EventTypeOrderRefunded:
		err = h.service.ReverseOrder(ctx, o)
	}
	if err != nil {
		h.logger.Error("failed to apply order event to wallet",
			zap.String("event_type", event.EventType()),
			zap.String("order_id", o.ID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
