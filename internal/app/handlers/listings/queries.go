package listings

import (
	"context"

	"adspace/internal/app/queries"
	"adspace/internal/app/uow"
	domainlistings "adspace/internal/domain/listings"
)

const getListingKey = "listing.get"

type GetListingQuery struct {
	ListingID string
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (*domainlistings.Listing, error) {
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = unit.Rollback(ctx) }()
	return unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
}

var _ queries.Handler[GetListingQuery, *domainlistings.Listing] = (*GetListingHandler)(nil)
