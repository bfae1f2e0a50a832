package uow

import (
	"context"

	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
)

// UnitOfWork coordinates repositories inside a transaction boundary. The
// availability check and the booking insert must share one unit so two
// overlapping bookings cannot both be admitted.
type UnitOfWork interface {
	Listings() domainlistings.Repository
	Bookings() domainbooking.Repository
	Payments() domainpayment.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
