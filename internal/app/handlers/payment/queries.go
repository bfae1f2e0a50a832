package payment

import (
	"context"

	"adspace/internal/app/queries"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainpayment "adspace/internal/domain/payment"
)

const listPaymentsKey = "payment.list_by_booking"

type ListPaymentsQuery struct {
	BookingID string
}

func (q ListPaymentsQuery) Key() string { return listPaymentsKey }

type ListPaymentsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListPaymentsHandler) Handle(ctx context.Context, q ListPaymentsQuery) ([]*domainpayment.Payment, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback(ctx) }()
	return unit.Payments().ListByBooking(ctx, domainbooking.BookingID(q.BookingID))
}

var _ queries.Handler[ListPaymentsQuery, []*domainpayment.Payment] = (*ListPaymentsHandler)(nil)
