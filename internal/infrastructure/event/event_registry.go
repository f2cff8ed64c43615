package event

import (
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/payment"
	"github.com/marketplace/backend/internal/domain/settings"
	"github.com/marketplace/backend/internal/domain/vendor"
	"github.com/marketplace/backend/internal/domain/wallet"
)

// RegisterMarketplaceEvents registers every change-feed event so that
// instances can rebuild events received from their peers
func RegisterMarketplaceEvents(s *EventSerializer) {
	for _, t := range []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderPaid,
		order.EventTypeOrderUpdated,
		order.EventTypeOrderDelivered,
		order.EventTypeOrderCancelled,
		order.EventTypeOrderRefunded,
	} {
		s.Register(t, &order.OrderEvent{})
	}

	for _, t := range []string{
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductUpdated,
		catalog.EventTypeProductStock,
		catalog.EventTypeProductArchive,
	} {
		s.Register(t, &catalog.ProductEvent{})
	}

	for _, t := range []string{
		payment.EventTypePaymentInitiated,
		payment.EventTypePaymentSucceeded,
		payment.EventTypePaymentFailed,
		payment.EventTypePaymentRefunded,
		payment.EventTypePaymentReview,
	} {
		s.Register(t, &payment.TransactionEvent{})
	}

	for _, t := range []string{
		vendor.EventTypeApplied,
		vendor.EventTypeApproved,
		vendor.EventTypeSuspended,
		vendor.EventTypeStoreUpdated,
		vendor.EventTypeExemptChanged,
	} {
		s.Register(t, &vendor.VendorEvent{})
	}

	for _, t := range []string{
		wallet.EventTypeWalletCredited,
		wallet.EventTypeWalletReleased,
		wallet.EventTypeWalletDebited,
		wallet.EventTypeWalletPayout,
	} {
		s.Register(t, &wallet.WalletEvent{})
	}

	for _, t := range []string{
		wallet.EventTypeCommissionRecorded,
		wallet.EventTypeCommissionSettled,
		wallet.EventTypeCommissionReversed,
	} {
		s.Register(t, &wallet.CommissionEvent{})
	}

	for _, t := range []string{
		identity.EventTypeProfileCreated,
		identity.EventTypeGuestClaimed,
		identity.EventTypeProfileRoleSet,
		identity.EventTypeProfileModified,
	} {
		s.Register(t, &identity.ProfileEvent{})
	}

	s.Register(settings.EventTypeSettingsUpdate, &settings.UpdatedEvent{})
	s.Register(settings.EventTypeCurrencyUpdate, &settings.CurrencyChangedEvent{})
}
