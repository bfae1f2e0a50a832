package payment

import (
	"context"
	"time"

	"adspace/internal/app/commands"
	"adspace/internal/app/outbox"
	"adspace/internal/app/policies"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainpayment "adspace/internal/domain/payment"
)

const retryPaymentKey = "payment.retry"

type RetryPaymentCommand struct {
	BookingID    string
	Actor        domainbooking.Actor
	Method       domainpayment.Method
	PayerContact string
}

func (c RetryPaymentCommand) Key() string { return retryPaymentKey }

type RetryPaymentHandler struct {
	Providers policies.ProviderRegistry
	Budget    policies.RetryBudget
	Outbox    outbox.Outbox
	Encoder   outbox.EventEncoder
}

// Handle abandons any still-pending attempts for the booking and starts a
// fresh one. Attempts are bounded by the retry budget.
func (h *RetryPaymentHandler) Handle(ctx context.Context, cmd RetryPaymentCommand) (*InitiatePaymentResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if cmd.Actor.Role != domainbooking.RoleAdmin &&
		!(cmd.Actor.Role == domainbooking.RoleAdvertiser && cmd.Actor.ID == bk.AdvertiserID) {
		return nil, domainbooking.ErrActorForbidden
	}
	if h.Budget != nil {
		if err := h.Budget.Consume(ctx, cmd.BookingID); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	if _, err := unit.Payments().FailPending(ctx, bk.ID, now); err != nil {
		return nil, err
	}
	pay, err := InitiateForBooking(ctx, InitiateDeps{
		Unit:      unit,
		Providers: h.Providers,
		Outbox:    h.Outbox,
		Encoder:   h.Encoder,
	}, bk, cmd.Method, cmd.PayerContact, now)
	if err != nil {
		return nil, err
	}
	return &InitiatePaymentResult{
		PaymentID:     string(pay.ID),
		TransactionID: pay.ProviderTxnID,
		Status:        string(pay.Status),
	}, nil
}

var _ commands.Handler[RetryPaymentCommand, *InitiatePaymentResult] = (*RetryPaymentHandler)(nil)
