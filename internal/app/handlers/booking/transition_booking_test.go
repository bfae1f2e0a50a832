package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
)

func (e *createEnv) seedBooking(t *testing.T) string {
	t.Helper()
	e.addListing(t, "lst-1", 300000)
	start, end := futureRange(10, 30)
	_, err := e.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-1", ListingID: "lst-1", AdvertiserID: "adv-1",
		Start: start, End: end,
	})
	require.NoError(t, err)
	return "bk-1"
}

func (e *createEnv) unitCtx(t *testing.T) context.Context {
	t.Helper()
	factory := e.handler.UoWFactory
	unit, err := factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return uow.ContextWithUnitOfWork(context.Background(), unit)
}

func TestTransitionConfirmMarksListingBooked(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	id := env.seedBooking(t)
	handler := &TransitionBookingHandler{Outbox: env.outbox}

	result, err := handler.Handle(env.unitCtx(t), TransitionBookingCommand{
		BookingID: id,
		Action:    ActionConfirm,
		Actor:     domainbooking.Actor{ID: "owner-1", Role: domainbooking.RoleOwner},
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StateConfirmed), result.State)

	listing, err := env.listings.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingBooked, listing.State)

	names := eventNames(env.outbox)
	assert.Contains(t, names, "booking.confirmed")
	assert.Contains(t, names, "listing.booked")
}

func TestTransitionRejectByAdvertiserForbidden(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	id := env.seedBooking(t)
	handler := &TransitionBookingHandler{Outbox: env.outbox}

	_, err := handler.Handle(env.unitCtx(t), TransitionBookingCommand{
		BookingID: id,
		Action:    ActionReject,
		Actor:     domainbooking.Actor{ID: "adv-1", Role: domainbooking.RoleAdvertiser},
	})
	assert.ErrorIs(t, err, domainbooking.ErrActorForbidden)
}

func TestTransitionCancelReleasesListing(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	id := env.seedBooking(t)
	handler := &TransitionBookingHandler{Outbox: env.outbox}

	_, err := handler.Handle(env.unitCtx(t), TransitionBookingCommand{
		BookingID: id,
		Action:    ActionConfirm,
		Actor:     domainbooking.Actor{ID: "owner-1", Role: domainbooking.RoleOwner},
	})
	require.NoError(t, err)

	result, err := handler.Handle(env.unitCtx(t), TransitionBookingCommand{
		BookingID: id,
		Action:    ActionCancel,
		Actor:     domainbooking.Actor{ID: "adv-1", Role: domainbooking.RoleAdvertiser},
		Reason:    "campaign scrapped",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domainbooking.StateCancelled), result.State)

	listing, err := env.listings.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingActive, listing.State)
	assert.Contains(t, eventNames(env.outbox), "listing.released")
}

func TestTransitionListingStaysBookedWhileOthersConfirmed(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	first := env.seedBooking(t)
	start, end := futureRange(45, 30)
	_, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-2", ListingID: "lst-1", AdvertiserID: "adv-2",
		Start: start, End: end,
	})
	require.NoError(t, err)

	handler := &TransitionBookingHandler{Outbox: env.outbox}
	owner := domainbooking.Actor{ID: "owner-1", Role: domainbooking.RoleOwner}
	for _, id := range []string{first, "bk-2"} {
		_, err := handler.Handle(env.unitCtx(t), TransitionBookingCommand{
			BookingID: id, Action: ActionConfirm, Actor: owner,
		})
		require.NoError(t, err)
	}

	// one campaign ends while the other is still confirmed
	_, err = handler.Handle(env.unitCtx(t), TransitionBookingCommand{
		BookingID: first, Action: ActionComplete, Actor: owner,
	})
	require.NoError(t, err)

	listing, err := env.listings.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingBooked, listing.State)

	// completing the last confirmed booking frees the listing
	_, err = handler.Handle(env.unitCtx(t), TransitionBookingCommand{
		BookingID: "bk-2", Action: ActionComplete, Actor: owner,
	})
	require.NoError(t, err)

	listing, err = env.listings.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingActive, listing.State)
}

func TestTransitionUnknownBooking(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	handler := &TransitionBookingHandler{Outbox: env.outbox}

	_, err := handler.Handle(env.unitCtx(t), TransitionBookingCommand{
		BookingID: "bk-missing",
		Action:    ActionConfirm,
		Actor:     domainbooking.Actor{ID: "owner-1", Role: domainbooking.RoleOwner},
	})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestTransitionFreedDatesAcceptNewBooking(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	id := env.seedBooking(t)
	handler := &TransitionBookingHandler{Outbox: env.outbox}

	_, err := handler.Handle(env.unitCtx(t), TransitionBookingCommand{
		BookingID: id,
		Action:    ActionReject,
		Actor:     domainbooking.Actor{ID: "owner-1", Role: domainbooking.RoleOwner},
	})
	require.NoError(t, err)

	start, end := futureRange(10, 30)
	_, err = env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-2", ListingID: "lst-1", AdvertiserID: "adv-2",
		Start: start, End: end,
		Method: domainpayment.MethodCard,
	})
	assert.NoError(t, err)
}
