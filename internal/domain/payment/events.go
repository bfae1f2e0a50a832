package payment

import (
	"time"

	"adspace/internal/domain/booking"
	"adspace/internal/domain/shared/money"
)

type PaymentInitiated struct {
	PaymentID PaymentID
	BookingID booking.BookingID
	Amount    money.Money
	Method    Method
	At        time.Time
}

func (e PaymentInitiated) EventName() string     { return "payment.initiated" }
func (e PaymentInitiated) AggregateID() string   { return string(e.PaymentID) }
func (e PaymentInitiated) OccurredAt() time.Time { return e.At }

type PaymentSucceeded struct {
	PaymentID PaymentID
	BookingID booking.BookingID
	Amount    money.Money
	At        time.Time
}

func (e PaymentSucceeded) EventName() string     { return "payment.success" }
func (e PaymentSucceeded) AggregateID() string   { return string(e.PaymentID) }
func (e PaymentSucceeded) OccurredAt() time.Time { return e.At }

type PaymentFailed struct {
	PaymentID PaymentID
	BookingID booking.BookingID
	At        time.Time
}

func (e PaymentFailed) EventName() string     { return "payment.failed" }
func (e PaymentFailed) AggregateID() string   { return string(e.PaymentID) }
func (e PaymentFailed) OccurredAt() time.Time { return e.At }
