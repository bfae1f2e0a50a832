package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"adspace/internal/domain/shared/events"
	"adspace/internal/domain/shared/money"
)

var (
	ErrTitleRequired   = errors.New("listings: title is required")
	ErrOwnerRequired   = errors.New("listings: owner id is required")
	ErrMonthlyRate     = errors.New("listings: monthly rate must be positive")
	ErrListingNotFound = errors.New("listings: not found")
	ErrNotActive       = errors.New("listings: listing is not active")
)

type ListingID string
type OwnerID string

type ListingState string

const (
	// ListingActive and ListingBooked are derived: booked iff at least one
	// confirmed booking exists. ListingInactive is owner-controlled.
	ListingActive   ListingState = "ACTIVE"
	ListingBooked   ListingState = "BOOKED"
	ListingInactive ListingState = "INACTIVE"
)

// Listing is a physical advertising space offered by an owner.
type Listing struct {
	ID          ListingID
	Owner       OwnerID
	Title       string
	Description string
	City        string
	MonthlyRate money.Money
	State       ListingState
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateParams struct {
	ID          ListingID
	Owner       OwnerID
	Title       string
	Description string
	City        string
	MonthlyRate money.Money
	Now         time.Time
}

func NewListing(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id required")
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.MonthlyRate.Amount <= 0 {
		return nil, ErrMonthlyRate
	}
	now := params.Now.UTC()
	l := &Listing{
		ID:          params.ID,
		Owner:       params.Owner,
		Title:       strings.TrimSpace(params.Title),
		Description: params.Description,
		City:        params.City,
		MonthlyRate: params.MonthlyRate,
		State:       ListingActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.Record(ListingCreatedEvent{ListingID: l.ID, Owner: l.Owner, At: now})
	return l, nil
}

// Bookable reports whether new bookings may be created against the listing.
func (l *Listing) Bookable() bool {
	return l.State == ListingActive
}

// SyncAvailability recomputes the derived state from the number of bookings
// currently confirmed. Booking logic must never set State directly.
func (l *Listing) SyncAvailability(confirmedBookings int, now time.Time) {
	if l.State == ListingInactive {
		return
	}
	next := ListingActive
	if confirmedBookings > 0 {
		next = ListingBooked
	}
	if next == l.State {
		return
	}
	l.State = next
	l.UpdatedAt = now.UTC()
	if next == ListingBooked {
		l.Record(ListingBookedEvent{ListingID: l.ID, At: l.UpdatedAt})
		return
	}
	l.Record(ListingReleasedEvent{ListingID: l.ID, At: l.UpdatedAt})
}

// Deactivate takes the listing off the marketplace. Existing bookings are
// unaffected; only new creations are blocked.
func (l *Listing) Deactivate(now time.Time) {
	if l.State == ListingInactive {
		return
	}
	l.State = ListingInactive
	l.UpdatedAt = now.UTC()
	l.Record(ListingDeactivatedEvent{ListingID: l.ID, At: l.UpdatedAt})
}
