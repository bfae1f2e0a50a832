package payment

import (
	"context"
	"time"

	"adspace/internal/app/commands"
	"adspace/internal/app/policies"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainpayment "adspace/internal/domain/payment"
)

const pollPaymentKey = "payment.poll"

// PollPaymentCommand actively asks the provider for the current settlement
// state, as a fallback for lost webhooks.
type PollPaymentCommand struct {
	PaymentID string
	Actor     domainbooking.Actor
}

func (c PollPaymentCommand) Key() string { return pollPaymentKey }

type PollPaymentHandler struct {
	Providers policies.ProviderRegistry
	Reconcile *ReconcilePaymentHandler
}

func (h *PollPaymentHandler) Handle(ctx context.Context, cmd PollPaymentCommand) (*ReconcilePaymentResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	pay, err := unit.Payments().ByID(ctx, domainpayment.PaymentID(cmd.PaymentID))
	if err != nil {
		return nil, err
	}
	bk, err := unit.Bookings().ByID(ctx, pay.BookingID)
	if err != nil {
		return nil, err
	}
	if cmd.Actor.Role != domainbooking.RoleAdmin &&
		!(cmd.Actor.Role == domainbooking.RoleAdvertiser && cmd.Actor.ID == bk.AdvertiserID) {
		return nil, domainbooking.ErrActorForbidden
	}
	if pay.Status != domainpayment.StatusPending {
		return noop(pay), nil
	}
	provider, err := h.Providers.ByName(pay.ProviderName)
	if err != nil {
		return nil, err
	}
	// A provider failure here must not settle anything; the payment stays
	// PENDING and the next poll or webhook retries.
	status, err := provider.CheckStatus(ctx, pay.ProviderTxnID)
	if err != nil {
		return nil, err
	}
	return h.Reconcile.apply(ctx, unit, pay, status, time.Now().UTC())
}

var _ commands.Handler[PollPaymentCommand, *ReconcilePaymentResult] = (*PollPaymentHandler)(nil)
