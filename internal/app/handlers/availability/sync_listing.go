package availability

import (
	"context"
	"time"

	"adspace/internal/app/outbox"
	"adspace/internal/app/uow"
	domainlistings "adspace/internal/domain/listings"
)

// SyncListing recomputes the listing's derived ACTIVE/BOOKED flag from the
// count of currently confirmed bookings. It must run inside the same unit of
// work as the transition that made the count change.
func SyncListing(ctx context.Context, unit uow.UnitOfWork, box outbox.Outbox, encoder outbox.EventEncoder, id domainlistings.ListingID, now time.Time) error {
	listing, err := unit.Listings().ByID(ctx, id)
	if err != nil {
		return err
	}
	confirmed, err := unit.Bookings().CountConfirmed(ctx, id)
	if err != nil {
		return err
	}
	listing.SyncAvailability(confirmed, now)
	pending := listing.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	listing.ClearEvents()
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return err
	}
	return outbox.RecordDomainEvents(ctx, box, encoder, pending)
}
