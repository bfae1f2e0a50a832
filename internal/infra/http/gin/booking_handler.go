package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"adspace/internal/app/commands"
	BookingApp "adspace/internal/app/handlers/booking"
	"adspace/internal/app/queries"
	domainbooking "adspace/internal/domain/booking"
	domainpayment "adspace/internal/domain/payment"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	ListingID    string    `json:"listing_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Method       string    `json:"method"`
	PayerContact string    `json:"payer_contact"`
}

func (h BookingHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := BookingApp.CreateBookingCommand{
		CommandID:       uuid.NewString(),
		ListingID:       req.ListingID,
		AdvertiserID:    actor.ID,
		Start:           req.Start,
		End:             req.End,
		Method:          domainpayment.Method(req.Method),
		PayerContact:    req.PayerContact,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[BookingApp.CreateBookingCommand, *BookingApp.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type transitionRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) transition(c *gin.Context, action BookingApp.Action) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req transitionRequest
	_ = c.ShouldBindJSON(&req)
	cmd := BookingApp.TransitionBookingCommand{
		BookingID: c.Param("id"),
		Action:    action,
		Actor:     actor,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[BookingApp.TransitionBookingCommand, *BookingApp.TransitionBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context)  { h.transition(c, BookingApp.ActionConfirm) }
func (h BookingHandler) Reject(c *gin.Context)   { h.transition(c, BookingApp.ActionReject) }
func (h BookingHandler) Cancel(c *gin.Context)   { h.transition(c, BookingApp.ActionCancel) }
func (h BookingHandler) Complete(c *gin.Context) { h.transition(c, BookingApp.ActionComplete) }

func (h BookingHandler) Get(c *gin.Context) {
	bk, err := queries.Ask[BookingApp.GetBookingQuery, *domainbooking.Booking](c.Request.Context(), h.Queries, BookingApp.GetBookingQuery{BookingID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookingView(bk))
}

func (h BookingHandler) List(c *gin.Context) {
	q := BookingApp.ListBookingsQuery{
		AdvertiserID: c.Query("advertiser_id"),
		ListingID:    c.Query("listing_id"),
	}
	if q.AdvertiserID == "" && q.ListingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "advertiser_id or listing_id query parameter required"})
		return
	}
	items, err := queries.Ask[BookingApp.ListBookingsQuery, []*domainbooking.Booking](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]gin.H, 0, len(items))
	for _, bk := range items {
		views = append(views, bookingView(bk))
	}
	c.JSON(http.StatusOK, gin.H{"bookings": views})
}

func bookingView(bk *domainbooking.Booking) gin.H {
	return gin.H{
		"booking_id":    bk.ID,
		"listing_id":    bk.ListingID,
		"advertiser_id": bk.AdvertiserID,
		"start":         bk.Range.Start,
		"end":           bk.Range.End,
		"total_amount":  bk.Total.Amount,
		"currency":      bk.Total.Currency,
		"state":         bk.State,
		"created_at":    bk.CreatedAt,
		"updated_at":    bk.UpdatedAt,
	}
}
