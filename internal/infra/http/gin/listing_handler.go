package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"adspace/internal/app/commands"
	ListingApp "adspace/internal/app/handlers/listings"
	"adspace/internal/app/queries"
	domainbooking "adspace/internal/domain/booking"
	domainlistings "adspace/internal/domain/listings"
	"adspace/internal/domain/shared/money"
)

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Currency string
}

type createListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	City        string `json:"city"`
	MonthlyRate int64  `json:"monthly_rate"`
}

func (h ListingHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if actor.Role != domainbooking.RoleOwner && actor.Role != domainbooking.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only owners may create listings"})
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := ListingApp.CreateListingCommand{
		CommandID:   uuid.NewString(),
		OwnerID:     actor.ID,
		Title:       req.Title,
		Description: req.Description,
		City:        req.City,
		MonthlyRate: money.Money{Amount: req.MonthlyRate, Currency: h.Currency},
	}
	result, err := commands.Dispatch[ListingApp.CreateListingCommand, *ListingApp.CreateListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Deactivate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	cmd := ListingApp.DeactivateListingCommand{ListingID: c.Param("id"), Actor: actor}
	result, err := commands.Dispatch[ListingApp.DeactivateListingCommand, *ListingApp.DeactivateListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	listing, err := queries.Ask[ListingApp.GetListingQuery, *domainlistings.Listing](c.Request.Context(), h.Queries, ListingApp.GetListingQuery{ListingID: c.Param("id")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"listing_id":   listing.ID,
		"owner_id":     listing.Owner,
		"title":        listing.Title,
		"description":  listing.Description,
		"city":         listing.City,
		"monthly_rate": listing.MonthlyRate.Amount,
		"currency":     listing.MonthlyRate.Currency,
		"state":        listing.State,
	})
}
