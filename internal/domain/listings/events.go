package listings

import "time"

type ListingCreatedEvent struct {
	ListingID ListingID
	Owner     OwnerID
	At        time.Time
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingBookedEvent struct {
	ListingID ListingID
	At        time.Time
}

func (e ListingBookedEvent) EventName() string     { return "listing.booked" }
func (e ListingBookedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingBookedEvent) OccurredAt() time.Time { return e.At }

type ListingReleasedEvent struct {
	ListingID ListingID
	At        time.Time
}

func (e ListingReleasedEvent) EventName() string     { return "listing.released" }
func (e ListingReleasedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingReleasedEvent) OccurredAt() time.Time { return e.At }

type ListingDeactivatedEvent struct {
	ListingID ListingID
	At        time.Time
}

func (e ListingDeactivatedEvent) EventName() string     { return "listing.deactivated" }
func (e ListingDeactivatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingDeactivatedEvent) OccurredAt() time.Time { return e.At }
