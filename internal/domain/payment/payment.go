package payment

import (
	"context"
	"errors"
	"time"

	"adspace/internal/domain/booking"
	"adspace/internal/domain/shared/events"
	"adspace/internal/domain/shared/money"
)

var (
	ErrPaymentNotFound  = errors.New("payment: not found")
	ErrAlreadySettled   = errors.New("payment: already settled")
	ErrAmountMismatch   = errors.New("payment: reported amount does not match")
	ErrDuplicateSuccess = errors.New("payment: booking already has a successful payment")
	ErrContactRequired  = errors.New("payment: payer contact required for mobile money")
	ErrUnknownMethod    = errors.New("payment: unknown payment method")
	ErrUnknownStatus    = errors.New("payment: unknown reported status")
	ErrProviderMismatch = errors.New("payment: transaction belongs to a different provider")
)

type PaymentID string

type Method string

const (
	MethodMTNMoMo     Method = "mtn_momo"
	MethodOrangeMoney Method = "orange_money"
	MethodCard        Method = "card"
)

// RequiresPayerContact reports whether the method needs an msisdn to push
// the charge to.
func (m Method) RequiresPayerContact() bool {
	switch m {
	case MethodMTNMoMo, MethodOrangeMoney:
		return true
	}
	return false
}

func (m Method) Valid() bool {
	switch m {
	case MethodMTNMoMo, MethodOrangeMoney, MethodCard:
		return true
	}
	return false
}

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Payment is one attempt to settle a booking's total through a provider.
// Amount is copied from the booking at creation and never changes; status
// moves out of PENDING exactly once.
type Payment struct {
	ID             PaymentID
	BookingID      booking.BookingID
	Amount         money.Money
	Method         Method
	PayerContact   string
	ProviderName   string
	ProviderTxnID  string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id PaymentID) (*Payment, error)
	ByProviderTxn(ctx context.Context, txnID string) (*Payment, error)
	Save(ctx context.Context, p *Payment) error
	ListByBooking(ctx context.Context, bookingID booking.BookingID) ([]*Payment, error)
	SuccessExists(ctx context.Context, bookingID booking.BookingID) (bool, error)
	// Settle flips the payment out of PENDING as an atomic compare-and-set:
	// the update applies only while the stored status is still PENDING.
	// applied=false means another caller settled it first; the returned
	// payment reflects the stored record either way.
	Settle(ctx context.Context, id PaymentID, to Status, now time.Time) (p *Payment, applied bool, err error)
	// FailPending marks every PENDING payment of the booking FAILED and
	// returns how many were flipped.
	FailPending(ctx context.Context, bookingID booking.BookingID, now time.Time) (int, error)
}

type CreateParams struct {
	ID            PaymentID
	BookingID     booking.BookingID
	Amount        money.Money
	Method        Method
	PayerContact  string
	ProviderName  string
	ProviderTxnID string
	Now           time.Time
}

func NewPayment(params CreateParams) (*Payment, error) {
	if !params.Method.Valid() {
		return nil, ErrUnknownMethod
	}
	if params.Method.RequiresPayerContact() && params.PayerContact == "" {
		return nil, ErrContactRequired
	}
	if params.Amount.Amount <= 0 {
		return nil, errors.New("payment: amount must be positive")
	}
	now := params.Now.UTC()
	p := &Payment{
		ID:            params.ID,
		BookingID:     params.BookingID,
		Amount:        params.Amount,
		Method:        params.Method,
		PayerContact:  params.PayerContact,
		ProviderName:  params.ProviderName,
		ProviderTxnID: params.ProviderTxnID,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.Record(PaymentInitiated{PaymentID: p.ID, BookingID: p.BookingID, Amount: p.Amount, Method: p.Method, At: now})
	return p, nil
}

// MarkSuccess settles the in-memory aggregate. Persistence must go through
// Repository.Settle so the pending check is atomic against the store.
func (p *Payment) MarkSuccess(now time.Time) error {
	if p.Status != StatusPending {
		return ErrAlreadySettled
	}
	p.Status = StatusSuccess
	p.UpdatedAt = now.UTC()
	p.Record(PaymentSucceeded{PaymentID: p.ID, BookingID: p.BookingID, Amount: p.Amount, At: p.UpdatedAt})
	return nil
}

func (p *Payment) MarkFailed(now time.Time) error {
	if p.Status != StatusPending {
		return ErrAlreadySettled
	}
	p.Status = StatusFailed
	p.UpdatedAt = now.UTC()
	p.Record(PaymentFailed{PaymentID: p.ID, BookingID: p.BookingID, At: p.UpdatedAt})
	return nil
}
