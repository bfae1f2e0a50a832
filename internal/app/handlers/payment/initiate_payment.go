package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"adspace/internal/app/commands"
	"adspace/internal/app/outbox"
	"adspace/internal/app/policies"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainpayment "adspace/internal/domain/payment"
)

const initiatePaymentKey = "payment.initiate"

// ErrBookingNotPayable rejects payment attempts against cancelled or
// rejected bookings.
var ErrBookingNotPayable = errors.New("payment: booking is not payable")

type InitiatePaymentCommand struct {
	BookingID    string
	Method       domainpayment.Method
	PayerContact string
}

func (c InitiatePaymentCommand) Key() string { return initiatePaymentKey }

type InitiatePaymentResult struct {
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

type InitiatePaymentHandler struct {
	Providers policies.ProviderRegistry
	Outbox    outbox.Outbox
	Encoder   outbox.EventEncoder
}

func (h *InitiatePaymentHandler) Handle(ctx context.Context, cmd InitiatePaymentCommand) (*InitiatePaymentResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
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

type InitiateDeps struct {
	Unit      uow.UnitOfWork
	Providers policies.ProviderRegistry
	Outbox    outbox.Outbox
	Encoder   outbox.EventEncoder
}

// InitiateForBooking validates the attempt, obtains a provider transaction
// id and records a PENDING payment. The amount is copied from the booking
// and never changes afterwards. A provider failure surfaces as
// policies.ErrProvider with no payment recorded.
func InitiateForBooking(ctx context.Context, deps InitiateDeps, bk *domainbooking.Booking, method domainpayment.Method, payerContact string, now time.Time) (*domainpayment.Payment, error) {
	if !bk.Payable() {
		return nil, ErrBookingNotPayable
	}
	if !method.Valid() {
		return nil, domainpayment.ErrUnknownMethod
	}
	if method.RequiresPayerContact() && payerContact == "" {
		return nil, domainpayment.ErrContactRequired
	}
	exists, err := deps.Unit.Payments().SuccessExists(ctx, bk.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domainpayment.ErrDuplicateSuccess
	}

	provider, err := deps.Providers.ForMethod(method)
	if err != nil {
		return nil, err
	}
	res, err := provider.Initiate(ctx, policies.InitiateRequest{
		Reference:    string(bk.ID),
		Amount:       bk.Total,
		PayerContact: payerContact,
	})
	if err != nil {
		return nil, err
	}

	pay, err := domainpayment.NewPayment(domainpayment.CreateParams{
		ID:            domainpayment.PaymentID(uuid.NewString()),
		BookingID:     bk.ID,
		Amount:        bk.Total,
		Method:        method,
		PayerContact:  payerContact,
		ProviderName:  provider.Name(),
		ProviderTxnID: res.TransactionID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	if err := deps.Unit.Payments().Save(ctx, pay); err != nil {
		return nil, err
	}
	pending := pay.PendingEvents()
	pay.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, deps.Outbox, deps.Encoder, pending); err != nil {
		return nil, err
	}
	return pay, nil
}

var _ commands.Handler[InitiatePaymentCommand, *InitiatePaymentResult] = (*InitiatePaymentHandler)(nil)
