package booking

import (
	"context"
	"time"

	"adspace/internal/app/commands"
	"adspace/internal/app/handlers/availability"
	"adspace/internal/app/outbox"
	"adspace/internal/app/uow"
	domainbooking "adspace/internal/domain/booking"
)

const transitionBookingKey = "booking.transition"

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

type TransitionBookingCommand struct {
	BookingID string
	Action    Action
	Actor     domainbooking.Actor
	Reason    string
}

func (c TransitionBookingCommand) Key() string { return transitionBookingKey }

type TransitionBookingResult struct {
	BookingID string `json:"booking_id"`
	State     string `json:"state"`
}

type TransitionBookingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
}

func (h *TransitionBookingHandler) Handle(ctx context.Context, cmd TransitionBookingCommand) (*TransitionBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, ErrUnitOfWorkRequired
	}
	now := time.Now().UTC()

	bk, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}

	switch cmd.Action {
	case ActionConfirm:
		err = bk.Confirm(cmd.Actor, now)
	case ActionReject:
		err = bk.Reject(cmd.Actor, cmd.Reason, now)
	case ActionCancel:
		err = bk.Cancel(cmd.Actor, cmd.Reason, now)
	case ActionComplete:
		err = bk.Complete(cmd.Actor, now)
	default:
		err = domainbooking.ErrInvalidState
	}
	if err != nil {
		return nil, err
	}

	if err := unit.Bookings().Save(ctx, bk); err != nil {
		return nil, err
	}
	pending := bk.PendingEvents()
	bk.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	// Confirm and every terminal state change the confirmed set, so the
	// listing flag is recomputed inside the same unit of work.
	if err := availability.SyncListing(ctx, unit, h.Outbox, h.encoder(), bk.ListingID, now); err != nil {
		return nil, err
	}

	return &TransitionBookingResult{BookingID: string(bk.ID), State: string(bk.State)}, nil
}

func (h *TransitionBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[TransitionBookingCommand, *TransitionBookingResult] = (*TransitionBookingHandler)(nil)
