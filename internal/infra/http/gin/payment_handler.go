package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"adspace/internal/app/commands"
	PaymentApp "adspace/internal/app/handlers/payment"
	"adspace/internal/app/queries"
	domainpayment "adspace/internal/domain/payment"
)

type PaymentHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type initiatePaymentRequest struct {
	Method       string `json:"method"`
	PayerContact string `json:"payer_contact"`
}

func (h PaymentHandler) Initiate(c *gin.Context) {
	if _, ok := actorFrom(c); !ok {
		return
	}
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := PaymentApp.InitiatePaymentCommand{
		BookingID:    c.Param("id"),
		Method:       domainpayment.Method(req.Method),
		PayerContact: req.PayerContact,
	}
	result, err := commands.Dispatch[PaymentApp.InitiatePaymentCommand, *PaymentApp.InitiatePaymentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h PaymentHandler) Retry(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := PaymentApp.RetryPaymentCommand{
		BookingID:    c.Param("id"),
		Actor:        actor,
		Method:       domainpayment.Method(req.Method),
		PayerContact: req.PayerContact,
	}
	result, err := commands.Dispatch[PaymentApp.RetryPaymentCommand, *PaymentApp.InitiatePaymentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h PaymentHandler) Poll(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	cmd := PaymentApp.PollPaymentCommand{PaymentID: c.Param("id"), Actor: actor}
	result, err := commands.Dispatch[PaymentApp.PollPaymentCommand, *PaymentApp.ReconcilePaymentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PaymentHandler) ListByBooking(c *gin.Context) {
	items, err := queries.Ask[PaymentApp.ListPaymentsQuery, []*domainpayment.Payment](c.Request.Context(), h.Queries, PaymentApp.ListPaymentsQuery{BookingID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]gin.H, 0, len(items))
	for _, p := range items {
		views = append(views, gin.H{
			"payment_id":     p.ID,
			"booking_id":     p.BookingID,
			"amount":         p.Amount.Amount,
			"currency":       p.Amount.Currency,
			"method":         p.Method,
			"provider":       p.ProviderName,
			"transaction_id": p.ProviderTxnID,
			"status":         p.Status,
			"created_at":     p.CreatedAt,
			"updated_at":     p.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"payments": views})
}
