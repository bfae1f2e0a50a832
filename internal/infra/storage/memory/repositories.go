package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/shared/daterange"
)

// ListingRepository is an in-memory implementation for dev mode and tests.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlistings.ListingID]domainlistings.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrListingNotFound
	}
	cp := listing
	cp.ClearEvents()
	return &cp, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing.Version++
	stored := *listing
	stored.ClearEvents()
	r.items[listing.ID] = stored
	return nil
}

// BookingRepository keeps bookings in memory. Bookings are never removed,
// matching the audit requirement of the persistent stores.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bk, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	cp := bk
	cp.ClearEvents()
	return &cp, nil
}

func (r *BookingRepository) Save(ctx context.Context, bk *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *bk
	stored.ClearEvents()
	r.items[bk.ID] = stored
	return nil
}

func (r *BookingRepository) ListByAdvertiser(ctx context.Context, advertiserID string) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, bk := range r.items {
		if bk.AdvertiserID == advertiserID {
			cp := bk
			out = append(out, &cp)
		}
	}
	sortBookings(out)
	return out, nil
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, bk := range r.items {
		if bk.ListingID == listingID {
			cp := bk
			out = append(out, &cp)
		}
	}
	sortBookings(out)
	return out, nil
}

func (r *BookingRepository) ActiveOverlapping(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, bk := range r.items {
		if bk.ListingID != listingID {
			continue
		}
		if bk.State != domainbooking.StatePending && bk.State != domainbooking.StateConfirmed {
			continue
		}
		if bk.Range.Overlaps(dr) {
			cp := bk
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *BookingRepository) CountConfirmed(ctx context.Context, listingID domainlistings.ListingID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, bk := range r.items {
		if bk.ListingID == listingID && bk.State == domainbooking.StateConfirmed {
			n++
		}
	}
	return n, nil
}

func sortBookings(items []*domainbooking.Booking) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// PaymentRepository keeps payments in memory. Settle holds the write lock
// across the pending check and the update, mirroring the compare-and-set
// the Mongo implementation performs with FindOneAndUpdate.
type PaymentRepository struct {
	mu    sync.RWMutex
	items map[domainpayment.PaymentID]domainpayment.Payment
	byTxn map[string]domainpayment.PaymentID
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		items: make(map[domainpayment.PaymentID]domainpayment.Payment),
		byTxn: make(map[string]domainpayment.PaymentID),
	}
}

func (r *PaymentRepository) ByID(ctx context.Context, id domainpayment.PaymentID) (*domainpayment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainpayment.ErrPaymentNotFound
	}
	cp := p
	cp.ClearEvents()
	return &cp, nil
}

func (r *PaymentRepository) ByProviderTxn(ctx context.Context, txnID string) (*domainpayment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTxn[txnID]
	if !ok {
		return nil, domainpayment.ErrPaymentNotFound
	}
	p := r.items[id]
	cp := p
	cp.ClearEvents()
	return &cp, nil
}

func (r *PaymentRepository) Save(ctx context.Context, p *domainpayment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *p
	stored.ClearEvents()
	r.items[p.ID] = stored
	if p.ProviderTxnID != "" {
		r.byTxn[p.ProviderTxnID] = p.ID
	}
	return nil
}

func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domainpayment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainpayment.Payment
	for _, p := range r.items {
		if p.BookingID == bookingID {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *PaymentRepository) SuccessExists(ctx context.Context, bookingID domainbooking.BookingID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.items {
		if p.BookingID == bookingID && p.Status == domainpayment.StatusSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (r *PaymentRepository) Settle(ctx context.Context, id domainpayment.PaymentID, to domainpayment.Status, now time.Time) (*domainpayment.Payment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, false, domainpayment.ErrPaymentNotFound
	}
	if p.Status != domainpayment.StatusPending {
		cp := p
		return &cp, false, nil
	}
	p.Status = to
	p.UpdatedAt = now.UTC()
	r.items[id] = p
	cp := p
	return &cp, true, nil
}

func (r *PaymentRepository) FailPending(ctx context.Context, bookingID domainbooking.BookingID, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, p := range r.items {
		if p.BookingID == bookingID && p.Status == domainpayment.StatusPending {
			p.Status = domainpayment.StatusFailed
			p.UpdatedAt = now.UTC()
			r.items[id] = p
			n++
		}
	}
	return n, nil
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
var _ domainbooking.Repository = (*BookingRepository)(nil)
var _ domainpayment.Repository = (*PaymentRepository)(nil)
