package booking

import (
	"context"
	"errors"
	"time"

	"adspace/internal/domain/listings"
	"adspace/internal/domain/shared/daterange"
	"adspace/internal/domain/shared/events"
	"adspace/internal/domain/shared/money"
)

var (
	ErrInvalidState    = errors.New("booking: invalid state transition")
	ErrActorForbidden  = errors.New("booking: actor not allowed for this transition")
	ErrBookingNotFound = errors.New("booking: not found")
	ErrStartInPast     = errors.New("booking: start date is in the past")
	ErrDatesConflict   = errors.New("booking: dates overlap an existing booking")
)

type BookingID string

type BookingState string

const (
	StatePending   BookingState = "PENDING"
	StateConfirmed BookingState = "CONFIRMED"
	StateRejected  BookingState = "REJECTED"
	StateCancelled BookingState = "CANCELLED"
	StateCompleted BookingState = "COMPLETED"
)

// Terminal reports whether the state accepts no further transition.
func (s BookingState) Terminal() bool {
	switch s {
	case StateRejected, StateCancelled, StateCompleted:
		return true
	}
	return false
}

type Role string

const (
	RoleAdvertiser Role = "advertiser"
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
)

// Actor identifies who requests a transition. Identity is established
// upstream of this service; the engine only enforces role rules.
type Actor struct {
	ID   string
	Role Role
}

// Booking reserves a listing for a half-open date range. Bookings are never
// hard-deleted; terminal states are kept for audit.
type Booking struct {
	ID           BookingID
	ListingID    listings.ListingID
	ListingOwner listings.OwnerID
	AdvertiserID string
	Range        daterange.DateRange
	Total        money.Money
	State        BookingState
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByAdvertiser(ctx context.Context, advertiserID string) ([]*Booking, error)
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Booking, error)
	// ActiveOverlapping returns bookings in {PENDING, CONFIRMED} for the
	// listing whose range intersects dr. Callers must run this and the
	// subsequent Save inside one transaction.
	ActiveOverlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]*Booking, error)
	CountConfirmed(ctx context.Context, listingID listings.ListingID) (int, error)
}

type CreateParams struct {
	ID           BookingID
	Listing      *listings.Listing
	AdvertiserID string
	Range        daterange.DateRange
	Total        money.Money
	Now          time.Time
}

// ValidateDateRange rejects ranges whose start day is before today.
func ValidateDateRange(dr daterange.DateRange, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := time.Date(dr.Start.Year(), dr.Start.Month(), dr.Start.Day(), 0, 0, 0, 0, time.UTC)
	if start.Before(today) {
		return ErrStartInPast
	}
	return nil
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.AdvertiserID == "" {
		return nil, errors.New("booking: advertiser id required")
	}
	if params.Listing == nil {
		return nil, listings.ErrListingNotFound
	}
	if params.Total.Amount <= 0 {
		return nil, errors.New("booking: total must be positive")
	}
	now := params.Now.UTC()
	b := &Booking{
		ID:           params.ID,
		ListingID:    params.Listing.ID,
		ListingOwner: params.Listing.Owner,
		AdvertiserID: params.AdvertiserID,
		Range:        params.Range,
		Total:        params.Total,
		State:        StatePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.Record(BookingCreated{
		BookingID:    b.ID,
		ListingID:    b.ListingID,
		AdvertiserID: b.AdvertiserID,
		Range:        b.Range,
		Total:        b.Total,
		At:           now,
	})
	return b, nil
}

// Confirm moves PENDING to CONFIRMED. Only the listing owner or an
// administrator may confirm.
func (b *Booking) Confirm(actor Actor, now time.Time) error {
	if !b.actorIsOwner(actor) {
		return ErrActorForbidden
	}
	return b.confirm(now)
}

// ConfirmOnSettlement is the system-originated confirmation used when a
// payment settles; it bypasses actor authorization.
func (b *Booking) ConfirmOnSettlement(now time.Time) error {
	return b.confirm(now)
}

func (b *Booking) confirm(now time.Time) error {
	if b.State != StatePending {
		return ErrInvalidState
	}
	b.State = StateConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, Range: b.Range, Total: b.Total, At: b.UpdatedAt})
	return nil
}

// Reject moves PENDING to REJECTED; owner or administrator only.
func (b *Booking) Reject(actor Actor, reason string, now time.Time) error {
	if !b.actorIsOwner(actor) {
		return ErrActorForbidden
	}
	if b.State != StatePending {
		return ErrInvalidState
	}
	b.State = StateRejected
	b.UpdatedAt = now.UTC()
	b.Record(BookingRejected{BookingID: b.ID, ListingID: b.ListingID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Cancel is available to the advertiser or an administrator while the
// booking is PENDING or CONFIRMED.
func (b *Booking) Cancel(actor Actor, reason string, now time.Time) error {
	if actor.Role != RoleAdmin && !(actor.Role == RoleAdvertiser && actor.ID == b.AdvertiserID) {
		return ErrActorForbidden
	}
	if b.State != StatePending && b.State != StateConfirmed {
		return ErrInvalidState
	}
	b.State = StateCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Complete moves CONFIRMED to COMPLETED; owner or administrator only.
func (b *Booking) Complete(actor Actor, now time.Time) error {
	if !b.actorIsOwner(actor) {
		return ErrActorForbidden
	}
	if b.State != StateConfirmed {
		return ErrInvalidState
	}
	b.State = StateCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, ListingID: b.ListingID, At: b.UpdatedAt})
	return nil
}

// Payable reports whether new payment attempts may target the booking.
func (b *Booking) Payable() bool {
	return b.State != StateCancelled && b.State != StateRejected
}

func (b *Booking) actorIsOwner(actor Actor) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	return actor.Role == RoleOwner && actor.ID == string(b.ListingOwner)
}
