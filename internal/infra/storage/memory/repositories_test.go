package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/shared/daterange"
	"adspace/internal/domain/shared/money"
)

func seedPayment(t *testing.T, repo *PaymentRepository) *domainpayment.Payment {
	t.Helper()
	pay, err := domainpayment.NewPayment(domainpayment.CreateParams{
		ID:            "pay-1",
		BookingID:     "bk-1",
		Amount:        money.Must(250000, "XAF"),
		Method:        domainpayment.MethodMTNMoMo,
		PayerContact:  "+237670000001",
		ProviderName:  "mtn_momo",
		ProviderTxnID: "txn-1",
		Now:           time.Now().UTC(),
	})
	require.NoError(t, err)
	pay.ClearEvents()
	require.NoError(t, repo.Save(context.Background(), pay))
	return pay
}

func TestPaymentSettleAppliesOnce(t *testing.T) {
	repo := NewPaymentRepository()
	seedPayment(t, repo)
	now := time.Now().UTC()

	var wg sync.WaitGroup
	applied := make(chan bool, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.Settle(context.Background(), "pay-1", domainpayment.StatusSuccess, now)
			assert.NoError(t, err)
			applied <- ok
		}()
	}
	wg.Wait()
	close(applied)

	wins := 0
	for ok := range applied {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	pay, err := repo.ByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayment.StatusSuccess, pay.Status)
}

func TestPaymentByProviderTxn(t *testing.T) {
	repo := NewPaymentRepository()
	seedPayment(t, repo)

	pay, err := repo.ByProviderTxn(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayment.PaymentID("pay-1"), pay.ID)

	_, err = repo.ByProviderTxn(context.Background(), "txn-nope")
	assert.ErrorIs(t, err, domainpayment.ErrPaymentNotFound)
}

func TestFailPending(t *testing.T) {
	repo := NewPaymentRepository()
	seedPayment(t, repo)
	now := time.Now().UTC()

	n, err := repo.FailPending(context.Background(), "bk-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// nothing pending anymore
	n, err = repo.FailPending(context.Background(), "bk-1", now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func seedBooking(t *testing.T, repo *BookingRepository, id string, state domainbooking.BookingState, start, end time.Time) {
	t.Helper()
	dr, err := daterange.New(start, end)
	require.NoError(t, err)
	bk := &domainbooking.Booking{
		ID:           domainbooking.BookingID(id),
		ListingID:    "lst-1",
		ListingOwner: "owner-1",
		AdvertiserID: "adv-1",
		Range:        dr,
		Total:        money.Must(100000, "XAF"),
		State:        state,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Save(context.Background(), bk))
}

func TestActiveOverlapping(t *testing.T) {
	repo := NewBookingRepository()
	day := func(d int) time.Time { return time.Date(2027, 1, d, 0, 0, 0, 0, time.UTC) }
	seedBooking(t, repo, "bk-pending", domainbooking.StatePending, day(1), day(10))
	seedBooking(t, repo, "bk-cancelled", domainbooking.StateCancelled, day(1), day(10))
	seedBooking(t, repo, "bk-confirmed", domainbooking.StateConfirmed, day(12), day(20))

	dr, err := daterange.New(day(5), day(15))
	require.NoError(t, err)
	out, err := repo.ActiveOverlapping(context.Background(), "lst-1", dr)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// range touching bk-confirmed's end does not collide with it
	dr, err = daterange.New(day(20), day(25))
	require.NoError(t, err)
	out, err = repo.ActiveOverlapping(context.Background(), "lst-1", dr)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCountConfirmed(t *testing.T) {
	repo := NewBookingRepository()
	day := func(d int) time.Time { return time.Date(2027, 1, d, 0, 0, 0, 0, time.UTC) }
	seedBooking(t, repo, "bk-1", domainbooking.StateConfirmed, day(1), day(10))
	seedBooking(t, repo, "bk-2", domainbooking.StatePending, day(11), day(20))

	n, err := repo.CountConfirmed(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListingRepositoryRoundTrip(t *testing.T) {
	repo := NewListingRepository()
	l, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID: "lst-1", Owner: "owner-1", Title: "Panel", City: "Douala",
		MonthlyRate: money.Must(100000, "XAF"), Now: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), l))

	got, err := repo.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingActive, got.State)
	assert.Empty(t, got.PendingEvents())

	_, err = repo.ByID(context.Background(), "lst-missing")
	assert.ErrorIs(t, err, domainlistings.ErrListingNotFound)
}

func TestRetryBudgetWindow(t *testing.T) {
	budget := NewRetryBudget(2, time.Hour)
	current := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	budget.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, budget.Consume(ctx, "bk-1"))
	require.NoError(t, budget.Consume(ctx, "bk-1"))
	assert.Error(t, budget.Consume(ctx, "bk-1"))

	// counter resets once the window passes
	current = current.Add(2 * time.Hour)
	assert.NoError(t, budget.Consume(ctx, "bk-1"))
}
