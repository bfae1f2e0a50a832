package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"adspace/internal/app/commands"
	"adspace/internal/app/handlers/payment"
	"adspace/internal/app/middleware"
	"adspace/internal/app/outbox"
	"adspace/internal/app/policies"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/pricing"
	domainrange "adspace/internal/domain/shared/daterange"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	CommandID       string
	ListingID       string
	AdvertiserID    string
	Start           time.Time
	End             time.Time
	Method          domainpayment.Method
	PayerContact    string
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

type CreateBookingResult struct {
	BookingID     string `json:"booking_id"`
	TotalAmount   int64  `json:"total_amount"`
	Currency      string `json:"currency"`
	PaymentID     string `json:"payment_id,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Providers  policies.ProviderRegistry
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	dr, err := domainrange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := domainbooking.ValidateDateRange(dr, now); err != nil {
		return nil, err
	}
	if cmd.Method != "" {
		if !cmd.Method.Valid() {
			return nil, domainpayment.ErrUnknownMethod
		}
		if cmd.Method.RequiresPayerContact() && cmd.PayerContact == "" {
			return nil, domainpayment.ErrContactRequired
		}
	}

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if !listing.Bookable() {
		return nil, domainlistings.ErrNotActive
	}

	overlapping, err := unit.Bookings().ActiveOverlapping(ctx, listing.ID, dr)
	if err != nil {
		return nil, err
	}
	if len(overlapping) > 0 {
		return nil, domainbooking.ErrDatesConflict
	}
	// The availability read alone cannot stop two racing creators: under
	// snapshot isolation both see no overlap, and inserts of distinct
	// bookings have disjoint write sets, so both transactions would commit.
	// Writing the listing row pins every creation for a listing to one
	// document; the slower transaction hits a write conflict and aborts.
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}

	total := pricing.Quote(listing.MonthlyRate, dr)
	bk, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:           domainbooking.BookingID(cmd.CommandID),
		Listing:      listing,
		AdvertiserID: cmd.AdvertiserID,
		Range:        dr,
		Total:        total,
		Now:          now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return nil, err
	}

	pendingEvents := bk.PendingEvents()
	bk.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pendingEvents); err != nil {
		return nil, err
	}

	result := &CreateBookingResult{
		BookingID:   string(bk.ID),
		TotalAmount: total.Amount,
		Currency:    total.Currency,
	}

	if cmd.Method != "" {
		pay, err := payment.InitiateForBooking(ctx, payment.InitiateDeps{
			Unit:      unit,
			Providers: h.Providers,
			Outbox:    h.Outbox,
			Encoder:   h.encoder(),
		}, bk, cmd.Method, cmd.PayerContact, now)
		switch {
		case errors.Is(err, policies.ErrProvider):
			// Partial-failure policy: the booking stays PENDING and the
			// advertiser can retry the payment later.
			if h.Logger != nil {
				h.Logger.Warn("payment initiation failed, booking kept pending",
					"booking_id", bk.ID, "method", cmd.Method, "error", err)
			}
		case err != nil:
			return nil, err
		default:
			result.PaymentID = string(pay.ID)
			result.PaymentStatus = string(pay.Status)
		}
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}
	return result, nil
}

func (h *CreateBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
