package listings

import (
	"context"
	"time"

	"adspace/internal/app/commands"
	"adspace/internal/app/outbox"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	"adspace/internal/domain/shared/money"
)

const (
	createListingKey     = "listing.create"
	deactivateListingKey = "listing.deactivate"
)

type CreateListingCommand struct {
	CommandID   string
	OwnerID     string
	Title       string
	Description string
	City        string
	MonthlyRate money.Money
}

func (c CreateListingCommand) Key() string { return createListingKey }

type CreateListingResult struct {
	ListingID string `json:"listing_id"`
}

type CreateListingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*CreateListingResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:          domainlistings.ListingID(cmd.CommandID),
		Owner:       domainlistings.OwnerID(cmd.OwnerID),
		Title:       cmd.Title,
		Description: cmd.Description,
		City:        cmd.City,
		MonthlyRate: cmd.MonthlyRate,
		Now:         time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	pending := listing.PendingEvents()
	listing.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, pending); err != nil {
		return nil, err
	}
	return &CreateListingResult{ListingID: string(listing.ID)}, nil
}

type DeactivateListingCommand struct {
	ListingID string
	Actor     domainbooking.Actor
}

func (c DeactivateListingCommand) Key() string { return deactivateListingKey }

type DeactivateListingResult struct {
	ListingID string `json:"listing_id"`
	State     string `json:"state"`
}

type DeactivateListingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *DeactivateListingHandler) Handle(ctx context.Context, cmd DeactivateListingCommand) (*DeactivateListingResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if cmd.Actor.Role != domainbooking.RoleAdmin &&
		!(cmd.Actor.Role == domainbooking.RoleOwner && cmd.Actor.ID == string(listing.Owner)) {
		return nil, domainbooking.ErrActorForbidden
	}
	listing.Deactivate(time.Now().UTC())
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	pending := listing.PendingEvents()
	listing.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, pending); err != nil {
		return nil, err
	}
	return &DeactivateListingResult{ListingID: string(listing.ID), State: string(listing.State)}, nil
}

var _ commands.Handler[CreateListingCommand, *CreateListingResult] = (*CreateListingHandler)(nil)
var _ commands.Handler[DeactivateListingCommand, *DeactivateListingResult] = (*DeactivateListingHandler)(nil)
