package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"adspace/internal/infra/config"
	"adspace/internal/infra/obs"
)

type Handlers struct {
	Booking BookingHandler
	Payment PaymentHandler
	Listing ListingHandler
	Webhook WebhookHandler
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-Actor-ID", "X-Actor-Role"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	// Webhooks sit outside the versioned API; provider callback URLs are
	// registered once and must not move.
	router.POST("/payments/webhook/:provider", h.Webhook.Receive)

	api := router.Group("/api/v1")
	api.POST("/listings", h.Listing.Create)
	api.GET("/listings/:id", h.Listing.Get)
	api.POST("/listings/:id/deactivate", h.Listing.Deactivate)

	api.POST("/bookings", h.Booking.Create)
	api.GET("/bookings", h.Booking.List)
	api.GET("/bookings/:id", h.Booking.Get)
	api.POST("/bookings/:id/confirm", h.Booking.Confirm)
	api.POST("/bookings/:id/reject", h.Booking.Reject)
	api.POST("/bookings/:id/cancel", h.Booking.Cancel)
	api.POST("/bookings/:id/complete", h.Booking.Complete)

	api.POST("/bookings/:id/payments", h.Payment.Initiate)
	api.POST("/bookings/:id/payments/retry", h.Payment.Retry)
	api.GET("/bookings/:id/payments", h.Payment.ListByBooking)
	api.POST("/payments/:id/poll", h.Payment.Poll)

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
