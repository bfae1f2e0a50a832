package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adspace/internal/app/policies"
	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/shared/money"
	"adspace/internal/infra/storage/memory"
)

type stubProvider struct {
	name string
	err  error
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) Initiate(ctx context.Context, req policies.InitiateRequest) (policies.InitiateResult, error) {
	if p.err != nil {
		return policies.InitiateResult{}, p.err
	}
	return policies.InitiateResult{TransactionID: "txn-" + req.Reference, Status: domainpayment.StatusPending}, nil
}

func (p stubProvider) CheckStatus(ctx context.Context, transactionID string) (domainpayment.Status, error) {
	if p.err != nil {
		return "", p.err
	}
	return domainpayment.StatusPending, nil
}

type stubRegistry struct {
	provider policies.PaymentProvider
}

func (r stubRegistry) ForMethod(method domainpayment.Method) (policies.PaymentProvider, error) {
	return r.provider, nil
}

func (r stubRegistry) ByName(name string) (policies.PaymentProvider, error) {
	return r.provider, nil
}

type createEnv struct {
	listings *memory.ListingRepository
	bookings *memory.BookingRepository
	payments *memory.PaymentRepository
	outbox   *memory.Outbox
	handler  *CreateBookingHandler
}

func newCreateEnv(t *testing.T, provider policies.PaymentProvider) *createEnv {
	t.Helper()
	env := &createEnv{
		listings: memory.NewListingRepository(),
		bookings: memory.NewBookingRepository(),
		payments: memory.NewPaymentRepository(),
		outbox:   memory.NewOutbox(),
	}
	factory := memory.Factory{
		ListingsRepo: env.listings,
		BookingsRepo: env.bookings,
		PaymentsRepo: env.payments,
	}
	env.handler = &CreateBookingHandler{
		UoWFactory: factory,
		Providers:  stubRegistry{provider: provider},
		Outbox:     env.outbox,
	}
	return env
}

func (e *createEnv) addListing(t *testing.T, id string, rate int64) *domainlistings.Listing {
	t.Helper()
	l, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:          domainlistings.ListingID(id),
		Owner:       "owner-1",
		Title:       "Billboard " + id,
		City:        "Yaounde",
		MonthlyRate: money.Must(rate, "XAF"),
		Now:         time.Now().UTC(),
	})
	require.NoError(t, err)
	l.ClearEvents()
	require.NoError(t, e.listings.Save(context.Background(), l))
	return l
}

func futureRange(offsetDays, lengthDays int) (time.Time, time.Time) {
	start := time.Now().UTC().AddDate(0, 0, offsetDays).Truncate(24 * time.Hour)
	return start, start.AddDate(0, 0, lengthDays)
}

func TestCreateBooking(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	env.addListing(t, "lst-1", 300000)
	start, end := futureRange(10, 45)

	result, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID:    "bk-1",
		ListingID:    "lst-1",
		AdvertiserID: "adv-1",
		Start:        start,
		End:          end,
		Method:       domainpayment.MethodMTNMoMo,
		PayerContact: "+237670000001",
	})
	require.NoError(t, err)

	// 45 days bill as two months
	assert.Equal(t, int64(600000), result.TotalAmount)
	assert.Equal(t, "XAF", result.Currency)
	assert.NotEmpty(t, result.PaymentID)
	assert.Equal(t, string(domainpayment.StatusPending), result.PaymentStatus)

	bk, err := env.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatePending, bk.State)

	pays, err := env.payments.ListByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.True(t, pays[0].Amount.Equals(bk.Total))

	names := eventNames(env.outbox)
	assert.Contains(t, names, "booking.created")
	assert.Contains(t, names, "payment.initiated")
}

func TestCreateBookingWithoutMethod(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	env.addListing(t, "lst-1", 300000)
	start, end := futureRange(10, 30)

	result, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID:    "bk-1",
		ListingID:    "lst-1",
		AdvertiserID: "adv-1",
		Start:        start,
		End:          end,
	})
	require.NoError(t, err)
	assert.Empty(t, result.PaymentID)

	pays, err := env.payments.ListByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Empty(t, pays)
}

func TestCreateBookingConflict(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	env.addListing(t, "lst-1", 300000)
	start, end := futureRange(10, 30)

	_, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-1", ListingID: "lst-1", AdvertiserID: "adv-1",
		Start: start, End: end,
	})
	require.NoError(t, err)

	// overlapping request from another advertiser
	_, err = env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-2", ListingID: "lst-1", AdvertiserID: "adv-2",
		Start: start.AddDate(0, 0, 15), End: end.AddDate(0, 0, 15),
	})
	assert.ErrorIs(t, err, domainbooking.ErrDatesConflict)

	// back-to-back range starting exactly at the previous end is fine
	_, err = env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-3", ListingID: "lst-1", AdvertiserID: "adv-2",
		Start: end, End: end.AddDate(0, 0, 30),
	})
	assert.NoError(t, err)
}

func TestCreateBookingCancelledDoesNotBlock(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	env.addListing(t, "lst-1", 300000)
	start, end := futureRange(10, 30)

	_, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-1", ListingID: "lst-1", AdvertiserID: "adv-1",
		Start: start, End: end,
	})
	require.NoError(t, err)

	bk, err := env.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	require.NoError(t, bk.Cancel(domainbooking.Actor{ID: "adv-1", Role: domainbooking.RoleAdvertiser}, "", time.Now().UTC()))
	require.NoError(t, env.bookings.Save(context.Background(), bk))

	_, err = env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-2", ListingID: "lst-1", AdvertiserID: "adv-2",
		Start: start, End: end,
	})
	assert.NoError(t, err)
}

func TestCreateBookingInactiveListing(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	l := env.addListing(t, "lst-1", 300000)
	l.Deactivate(time.Now().UTC())
	l.ClearEvents()
	require.NoError(t, env.listings.Save(context.Background(), l))
	start, end := futureRange(10, 30)

	_, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-1", ListingID: "lst-1", AdvertiserID: "adv-1",
		Start: start, End: end,
	})
	assert.ErrorIs(t, err, domainlistings.ErrNotActive)
}

func TestCreateBookingStartInPast(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	env.addListing(t, "lst-1", 300000)
	start, end := futureRange(-5, 30)

	_, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-1", ListingID: "lst-1", AdvertiserID: "adv-1",
		Start: start, End: end,
	})
	assert.ErrorIs(t, err, domainbooking.ErrStartInPast)
}

func TestCreateBookingProviderFailureKeepsBooking(t *testing.T) {
	failing := stubProvider{name: "mtn_momo", err: fmt.Errorf("%w: connection refused", policies.ErrProvider)}
	env := newCreateEnv(t, failing)
	env.addListing(t, "lst-1", 300000)
	start, end := futureRange(10, 30)

	result, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID:    "bk-1",
		ListingID:    "lst-1",
		AdvertiserID: "adv-1",
		Start:        start,
		End:          end,
		Method:       domainpayment.MethodMTNMoMo,
		PayerContact: "+237670000001",
	})
	require.NoError(t, err)
	assert.Empty(t, result.PaymentID)

	bk, err := env.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatePending, bk.State)

	pays, err := env.payments.ListByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Empty(t, pays)
}

func TestCreateBookingPriceFrozen(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	l := env.addListing(t, "lst-1", 300000)
	start, end := futureRange(10, 30)

	_, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-1", ListingID: "lst-1", AdvertiserID: "adv-1",
		Start: start, End: end,
	})
	require.NoError(t, err)

	l.MonthlyRate = money.Must(999999, "XAF")
	require.NoError(t, env.listings.Save(context.Background(), l))

	bk, err := env.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, int64(300000), bk.Total.Amount)
}

func TestCreateBookingWritesListingRow(t *testing.T) {
	env := newCreateEnv(t, stubProvider{name: "mtn_momo"})
	l := env.addListing(t, "lst-1", 300000)
	seeded := l.Version
	start, end := futureRange(10, 30)

	_, err := env.handler.Handle(context.Background(), CreateBookingCommand{
		CommandID: "bk-1", ListingID: "lst-1", AdvertiserID: "adv-1",
		Start: start, End: end,
	})
	require.NoError(t, err)

	// Every creation must write the listing document so racing creators for
	// the same listing collide instead of committing disjoint inserts.
	stored, err := env.listings.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Greater(t, stored.Version, seeded)
}

func eventNames(box *memory.Outbox) []string {
	var names []string
	for _, rec := range box.Records() {
		names = append(names, rec.Name)
	}
	return names
}
