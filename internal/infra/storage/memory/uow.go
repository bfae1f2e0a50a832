package memory

import (
	"context"

	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
)

// Factory hands out units backed by shared in-memory repositories. Memory
// units give no isolation between concurrent commands; the Mongo factory is
// the one that provides real transaction boundaries.
type Factory struct {
	ListingsRepo domainlistings.Repository
	BookingsRepo domainbooking.Repository
	PaymentsRepo domainpayment.Repository
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	return &Unit{
		listings: f.ListingsRepo,
		bookings: f.BookingsRepo,
		payments: f.PaymentsRepo,
	}, nil
}

type Unit struct {
	listings domainlistings.Repository
	bookings domainbooking.Repository
	payments domainpayment.Repository
}

func (u *Unit) Listings() domainlistings.Repository { return u.listings }
func (u *Unit) Bookings() domainbooking.Repository  { return u.bookings }
func (u *Unit) Payments() domainpayment.Repository  { return u.payments }

func (u *Unit) Commit(ctx context.Context) error   { return nil }
func (u *Unit) Rollback(ctx context.Context) error { return nil }

var _ uow.UoWFactory = Factory{}
