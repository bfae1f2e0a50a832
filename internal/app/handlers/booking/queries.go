package booking

import (
	"context"

	"adspace/internal/app/queries"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
)

const (
	getBookingKey   = "booking.get"
	listBookingsKey = "booking.list"
)

type GetBookingQuery struct {
	BookingID string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*domainbooking.Booking, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback(ctx) }()
	return unit.Bookings().ByID(ctx, domainbooking.BookingID(q.BookingID))
}

// ListBookingsQuery filters by advertiser or by listing; exactly one of the
// two should be set.
type ListBookingsQuery struct {
	AdvertiserID string
	ListingID    string
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) ([]*domainbooking.Booking, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback(ctx) }()
	if q.ListingID != "" {
		return unit.Bookings().ListByListing(ctx, domainlistings.ListingID(q.ListingID))
	}
	return unit.Bookings().ListByAdvertiser(ctx, q.AdvertiserID)
}

var _ queries.Handler[GetBookingQuery, *domainbooking.Booking] = (*GetBookingHandler)(nil)
var _ queries.Handler[ListBookingsQuery, []*domainbooking.Booking] = (*ListBookingsHandler)(nil)
