package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	payhandlers "adspace/internal/app/handlers/payment"
	"adspace/internal/app/policies"
	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/shared/daterange"
)

// writeError maps domain sentinels onto HTTP status codes. Anything
// unrecognized is a 500 with the message withheld.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrStartInPast),
		errors.Is(err, domainpayment.ErrUnknownMethod),
		errors.Is(err, domainpayment.ErrContactRequired),
		errors.Is(err, domainpayment.ErrAmountMismatch),
		errors.Is(err, domainpayment.ErrUnknownStatus),
		errors.Is(err, domainpayment.ErrProviderMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainlistings.ErrListingNotFound),
		errors.Is(err, domainpayment.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrActorForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrDatesConflict),
		errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, domainlistings.ErrNotActive),
		errors.Is(err, domainpayment.ErrDuplicateSuccess),
		errors.Is(err, domainpayment.ErrAlreadySettled),
		errors.Is(err, payhandlers.ErrBookingNotPayable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, policies.ErrRetryBudgetExhausted):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, policies.ErrProvider):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// actorFrom reads the caller identity set by the gateway. Authentication
// itself happens upstream; the engine only consumes the verdict.
func actorFrom(c *gin.Context) (domainbooking.Actor, bool) {
	actor := domainbooking.Actor{
		ID:   c.GetHeader("X-Actor-ID"),
		Role: domainbooking.Role(c.GetHeader("X-Actor-Role")),
	}
	if actor.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing actor identity"})
		return domainbooking.Actor{}, false
	}
	switch actor.Role {
	case domainbooking.RoleAdvertiser, domainbooking.RoleOwner, domainbooking.RoleAdmin:
		return actor, true
	default:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown actor role"})
		return domainbooking.Actor{}, false
	}
}
