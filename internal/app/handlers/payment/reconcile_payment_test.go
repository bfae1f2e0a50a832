package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adspace/internal/app/handlers/availability"
	"adspace/internal/app/policies"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/pricing"
	"adspace/internal/domain/shared/daterange"
	"adspace/internal/domain/shared/money"
	"adspace/internal/infra/storage/memory"
)

type reconcileEnv struct {
	listings *memory.ListingRepository
	bookings *memory.BookingRepository
	payments *memory.PaymentRepository
	outbox   *memory.Outbox
	factory  memory.Factory
	handler  *ReconcilePaymentHandler
}

func newReconcileEnv(t *testing.T) *reconcileEnv {
	t.Helper()
	env := &reconcileEnv{
		listings: memory.NewListingRepository(),
		bookings: memory.NewBookingRepository(),
		payments: memory.NewPaymentRepository(),
		outbox:   memory.NewOutbox(),
	}
	env.factory = memory.Factory{
		ListingsRepo: env.listings,
		BookingsRepo: env.bookings,
		PaymentsRepo: env.payments,
	}
	env.handler = &ReconcilePaymentHandler{Outbox: env.outbox}
	return env
}

func (e *reconcileEnv) ctx(t *testing.T) context.Context {
	t.Helper()
	unit, err := e.factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return uow.ContextWithUnitOfWork(context.Background(), unit)
}

// seed creates an active listing, a pending booking over [2027-02-01,
// 2027-03-01) at 250000/month and a pending payment with txn id "txn-1".
func (e *reconcileEnv) seed(t *testing.T) (*domainbooking.Booking, *domainpayment.Payment) {
	t.Helper()
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:          "lst-1",
		Owner:       "owner-1",
		Title:       "Facade on the boulevard",
		City:        "Douala",
		MonthlyRate: money.Must(250000, "XAF"),
		Now:         now,
	})
	require.NoError(t, err)
	listing.ClearEvents()
	require.NoError(t, e.listings.Save(context.Background(), listing))

	dr, err := daterange.New(
		time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	total := pricing.Quote(listing.MonthlyRate, dr)
	require.Equal(t, int64(250000), total.Amount)

	bk, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:           "bk-1",
		Listing:      listing,
		AdvertiserID: "adv-1",
		Range:        dr,
		Total:        total,
		Now:          now,
	})
	require.NoError(t, err)
	bk.ClearEvents()
	require.NoError(t, e.bookings.Save(context.Background(), bk))

	pay, err := domainpayment.NewPayment(domainpayment.CreateParams{
		ID:            "pay-1",
		BookingID:     bk.ID,
		Amount:        total,
		Method:        domainpayment.MethodMTNMoMo,
		PayerContact:  "+237670000001",
		ProviderName:  "mtn_momo",
		ProviderTxnID: "txn-1",
		Now:           now,
	})
	require.NoError(t, err)
	pay.ClearEvents()
	require.NoError(t, e.payments.Save(context.Background(), pay))
	return bk, pay
}

func TestReconcileSuccessConfirmsBooking(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)

	result, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.StatusSuccess,
		ReportedAmount: money.Must(250000, "XAF"),
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, string(domainpayment.StatusSuccess), result.Status)

	pay, err := env.payments.ByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayment.StatusSuccess, pay.Status)

	bk, err := env.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StateConfirmed, bk.State)

	listing, err := env.listings.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingBooked, listing.State)

	names := recordedEvents(env.outbox)
	assert.Contains(t, names, "payment.success")
	assert.Contains(t, names, "booking.confirmed")
	assert.Contains(t, names, "listing.booked")
}

func TestReconcileDuplicateDeliveryIsNoop(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)
	cmd := ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.StatusSuccess,
		ReportedAmount: money.Must(250000, "XAF"),
	}

	first, err := env.handler.Handle(env.ctx(t), cmd)
	require.NoError(t, err)
	require.True(t, first.Applied)
	eventsAfterFirst := len(env.outbox.Records())

	second, err := env.handler.Handle(env.ctx(t), cmd)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, string(domainpayment.StatusSuccess), second.Status)

	// exactly one settlement: no extra events, booking still confirmed once
	assert.Equal(t, eventsAfterFirst, len(env.outbox.Records()))
	bk, err := env.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StateConfirmed, bk.State)
}

func TestReconcileAmountMismatch(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)

	_, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.StatusSuccess,
		ReportedAmount: money.Must(200000, "XAF"),
	})
	assert.ErrorIs(t, err, domainpayment.ErrAmountMismatch)

	// nothing moved
	pay, err := env.payments.ByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayment.StatusPending, pay.Status)
	bk, err := env.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatePending, bk.State)
	assert.Empty(t, env.outbox.Records())
}

func TestReconcileCurrencyMismatch(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)

	_, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.StatusSuccess,
		ReportedAmount: money.Must(250000, "USD"),
	})
	assert.ErrorIs(t, err, domainpayment.ErrAmountMismatch)
}

func TestReconcileUnknownTransaction(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)

	_, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-unknown",
		ReportedStatus: domainpayment.StatusSuccess,
		ReportedAmount: money.Must(250000, "XAF"),
	})
	assert.ErrorIs(t, err, domainpayment.ErrPaymentNotFound)
}

func TestReconcileFailureKeepsBookingPending(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)

	result, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.StatusFailed,
		ReportedAmount: money.Must(250000, "XAF"),
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	pay, err := env.payments.ByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayment.StatusFailed, pay.Status)

	// the advertiser may retry; the booking is untouched
	bk, err := env.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatePending, bk.State)
	assert.Contains(t, recordedEvents(env.outbox), "payment.failed")
}

func TestReconcilePendingReportIsNoop(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)

	result, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.StatusPending,
		ReportedAmount: money.Must(250000, "XAF"),
	})
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Empty(t, env.outbox.Records())
}

func TestReconcileSettlementAfterCancellation(t *testing.T) {
	env := newReconcileEnv(t)
	bk, _ := env.seed(t)
	require.NoError(t, bk.Cancel(domainbooking.Actor{ID: "adv-1", Role: domainbooking.RoleAdvertiser}, "", time.Now().UTC()))
	bk.ClearEvents()
	require.NoError(t, env.bookings.Save(context.Background(), bk))

	result, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.StatusSuccess,
		ReportedAmount: money.Must(250000, "XAF"),
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)

	// the payment settles for the audit trail, the booking stays cancelled
	pay, err := env.payments.ByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayment.StatusSuccess, pay.Status)
	stored, err := env.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StateCancelled, stored.State)
}

func TestBookingLifecycleReleasesListing(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)
	now := time.Now().UTC()

	_, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.StatusSuccess,
		ReportedAmount: money.Must(250000, "XAF"),
	})
	require.NoError(t, err)

	listing, err := env.listings.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	require.Equal(t, domainlistings.ListingBooked, listing.State)

	// campaign ends: completing the booking frees the listing again
	ctx := env.ctx(t)
	unit, _ := uow.FromContext(ctx)
	bk, err := unit.Bookings().ByID(ctx, "bk-1")
	require.NoError(t, err)
	require.NoError(t, bk.Complete(domainbooking.Actor{ID: "owner-1", Role: domainbooking.RoleOwner}, now))
	require.NoError(t, unit.Bookings().Save(ctx, bk))
	bk.ClearEvents()
	require.NoError(t, availability.SyncListing(ctx, unit, env.outbox, nil, bk.ListingID, now))

	listing, err = env.listings.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingActive, listing.State)
	assert.Contains(t, recordedEvents(env.outbox), "listing.released")
}

type errorProvider struct{}

func (errorProvider) Name() string { return "mtn_momo" }

func (errorProvider) Initiate(ctx context.Context, req policies.InitiateRequest) (policies.InitiateResult, error) {
	return policies.InitiateResult{}, fmt.Errorf("%w: timeout", policies.ErrProvider)
}

func (errorProvider) CheckStatus(ctx context.Context, transactionID string) (domainpayment.Status, error) {
	return "", fmt.Errorf("%w: timeout", policies.ErrProvider)
}

type singleRegistry struct {
	provider policies.PaymentProvider
}

func (r singleRegistry) ForMethod(domainpayment.Method) (policies.PaymentProvider, error) {
	return r.provider, nil
}

func (r singleRegistry) ByName(string) (policies.PaymentProvider, error) {
	return r.provider, nil
}

func TestPollProviderErrorKeepsPaymentPending(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)
	poll := &PollPaymentHandler{
		Providers: singleRegistry{provider: errorProvider{}},
		Reconcile: env.handler,
	}

	_, err := poll.Handle(env.ctx(t), PollPaymentCommand{
		PaymentID: "pay-1",
		Actor:     domainbooking.Actor{ID: "adv-1", Role: domainbooking.RoleAdvertiser},
	})
	assert.ErrorIs(t, err, policies.ErrProvider)

	pay, err := env.payments.ByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayment.StatusPending, pay.Status)
}

func TestPollByOtherActorForbidden(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)
	poll := &PollPaymentHandler{
		Providers: singleRegistry{provider: errorProvider{}},
		Reconcile: env.handler,
	}

	for _, actor := range []domainbooking.Actor{
		{ID: "owner-1", Role: domainbooking.RoleOwner},
		{ID: "adv-2", Role: domainbooking.RoleAdvertiser},
	} {
		_, err := poll.Handle(env.ctx(t), PollPaymentCommand{PaymentID: "pay-1", Actor: actor})
		assert.ErrorIs(t, err, domainbooking.ErrActorForbidden, "actor=%s", actor.ID)
	}
}

func TestReconcileProviderMismatch(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)

	// txn-1 was initiated through mtn_momo; a replay at another provider's
	// endpoint must not settle it
	_, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.StatusSuccess,
		ReportedAmount: money.Must(250000, "XAF"),
		Provider:       "orange_money",
	})
	assert.ErrorIs(t, err, domainpayment.ErrProviderMismatch)

	pay, err := env.payments.ByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayment.StatusPending, pay.Status)
}

func TestReconcileUnknownStatusRejected(t *testing.T) {
	env := newReconcileEnv(t)
	env.seed(t)

	_, err := env.handler.Handle(env.ctx(t), ReconcilePaymentCommand{
		TransactionID:  "txn-1",
		ReportedStatus: domainpayment.Status("SOMETHING_ELSE"),
		ReportedAmount: money.Must(250000, "XAF"),
	})
	assert.ErrorIs(t, err, domainpayment.ErrUnknownStatus)

	pay, err := env.payments.ByID(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Equal(t, domainpayment.StatusPending, pay.Status)
	assert.Empty(t, env.outbox.Records())
}

func recordedEvents(box *memory.Outbox) []string {
	var names []string
	for _, rec := range box.Records() {
		names = append(names, rec.Name)
	}
	return names
}
