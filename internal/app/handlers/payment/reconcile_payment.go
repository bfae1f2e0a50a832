package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"adspace/internal/app/commands"
	"adspace/internal/app/handlers/availability"
	"adspace/internal/app/outbox"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/shared/events"
	"adspace/internal/domain/shared/money"
)

const reconcilePaymentKey = "payment.reconcile"

// ReconcilePaymentCommand carries provider-reported settlement, learned from
// a webhook or an active status poll. Providers may deliver the same
// settlement more than once.
type ReconcilePaymentCommand struct {
	TransactionID  string
	ReportedStatus domainpayment.Status
	ReportedAmount money.Money
	// Provider names the channel the report arrived on; when set, it must
	// match the provider the payment was initiated with.
	Provider string
}

func (c ReconcilePaymentCommand) Key() string { return reconcilePaymentKey }

type ReconcilePaymentResult struct {
	PaymentID string `json:"payment_id"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	// Applied is false when the payment was already settled and the call
	// was a no-op.
	Applied bool `json:"applied"`
}

type ReconcilePaymentHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *ReconcilePaymentHandler) Handle(ctx context.Context, cmd ReconcilePaymentCommand) (*ReconcilePaymentResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	pay, err := unit.Payments().ByProviderTxn(ctx, cmd.TransactionID)
	if err != nil {
		return nil, err
	}
	if cmd.Provider != "" && cmd.Provider != pay.ProviderName {
		// A transaction id replayed at another provider's endpoint would have
		// its status vocabulary misread; reject it outright.
		return nil, domainpayment.ErrProviderMismatch
	}
	if pay.Status != domainpayment.StatusPending {
		// Duplicate delivery of an already settled payment.
		return noop(pay), nil
	}
	if !cmd.ReportedAmount.Equals(pay.Amount) {
		return nil, domainpayment.ErrAmountMismatch
	}
	now := time.Now().UTC()
	return h.apply(ctx, unit, pay, cmd.ReportedStatus, now)
}

// apply settles the payment through the repository's atomic pending check
// and, on success, advances the booking. Shared with the poll handler.
func (h *ReconcilePaymentHandler) apply(ctx context.Context, unit uow.UnitOfWork, pay *domainpayment.Payment, reported domainpayment.Status, now time.Time) (*ReconcilePaymentResult, error) {
	switch reported {
	case domainpayment.StatusPending:
		return noop(pay), nil

	case domainpayment.StatusFailed:
		settled, applied, err := unit.Payments().Settle(ctx, pay.ID, domainpayment.StatusFailed, now)
		if err != nil {
			return nil, err
		}
		if !applied {
			return noop(settled), nil
		}
		ev := domainpayment.PaymentFailed{PaymentID: settled.ID, BookingID: settled.BookingID, At: now}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{ev}); err != nil {
			return nil, err
		}
		return &ReconcilePaymentResult{
			PaymentID: string(settled.ID),
			BookingID: string(settled.BookingID),
			Status:    string(settled.Status),
			Applied:   true,
		}, nil

	case domainpayment.StatusSuccess:
		settled, applied, err := unit.Payments().Settle(ctx, pay.ID, domainpayment.StatusSuccess, now)
		if err != nil {
			return nil, err
		}
		if !applied {
			return noop(settled), nil
		}
		ev := domainpayment.PaymentSucceeded{PaymentID: settled.ID, BookingID: settled.BookingID, Amount: settled.Amount, At: now}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{ev}); err != nil {
			return nil, err
		}
		if err := h.confirmBooking(ctx, unit, settled.BookingID, now); err != nil {
			return nil, err
		}
		return &ReconcilePaymentResult{
			PaymentID: string(settled.ID),
			BookingID: string(settled.BookingID),
			Status:    string(settled.Status),
			Applied:   true,
		}, nil
	}
	return nil, domainpayment.ErrUnknownStatus
}

func (h *ReconcilePaymentHandler) confirmBooking(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID, now time.Time) error {
	bk, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bk.ConfirmOnSettlement(now); err != nil {
		// The booking left PENDING before settlement arrived (cancelled or
		// already confirmed). The payment stays settled; nothing to advance.
		if errors.Is(err, domainbooking.ErrInvalidState) {
			if h.Logger != nil {
				h.Logger.Warn("settlement arrived for non-pending booking",
					"booking_id", bk.ID, "state", bk.State)
			}
			return nil
		}
		return err
	}
	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return err
	}
	pending := bk.PendingEvents()
	bk.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return err
	}
	return availability.SyncListing(ctx, unit, h.Outbox, h.encoder(), bk.ListingID, now)
}

func (h *ReconcilePaymentHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func noop(p *domainpayment.Payment) *ReconcilePaymentResult {
	return &ReconcilePaymentResult{
		PaymentID: string(p.ID),
		BookingID: string(p.BookingID),
		Status:    string(p.Status),
		Applied:   false,
	}
}

var _ commands.Handler[ReconcilePaymentCommand, *ReconcilePaymentResult] = (*ReconcilePaymentHandler)(nil)
