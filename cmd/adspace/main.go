package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adspace/internal/app/commands"
	bookingapp "adspace/internal/app/handlers/booking"
	listingapp "adspace/internal/app/handlers/listings"
	paymentapp "adspace/internal/app/handlers/payment"
	"adspace/internal/app/middleware"
	appoutbox "adspace/internal/app/outbox"
	"adspace/internal/app/policies"
	"adspace/internal/app/queries"
	"adspace/internal/app/uow"
	domainlistings "adspace/internal/domain/listings"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/shared/money"
	"adspace/internal/infra/broker/kafka"
	"adspace/internal/infra/cache"
	"adspace/internal/infra/config"
	mongodb "adspace/internal/infra/db/mongo"
	ginserver "adspace/internal/infra/http/gin"
	"adspace/internal/infra/notify"
	"adspace/internal/infra/obs"
	infraoutbox "adspace/internal/infra/outbox"
	"adspace/internal/infra/provider"
	"adspace/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	if cfg.ListingsFixtures != "" {
		if err := app.loadListingFixtures(ctx, cfg, logger); err != nil {
			logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingsFixtures)
		}
	}

	for _, run := range app.workers {
		go run(ctx)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode, "payment_mode", cfg.PaymentMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	workers  []func(context.Context)
	ready    func() error
	closers  []func() error

	uowFactory uow.UoWFactory
	listings   domainlistings.Repository
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func buildApplication(cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}

	var (
		box     appoutbox.Outbox
		idStore middleware.IdempotencyStore
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		app.closers = append(app.closers, func() error {
			return client.Close(context.Background())
		})
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		listingsRepo := mongodb.NewListingRepository(client.DB)
		bookingsRepo := mongodb.NewBookingRepository(client.DB)
		paymentsRepo := mongodb.NewPaymentRepository(client.DB)
		app.listings = listingsRepo
		app.uowFactory = mongodb.Factory{
			DB:           client.DB,
			ListingsRepo: listingsRepo,
			BookingsRepo: bookingsRepo,
			PaymentsRepo: paymentsRepo,
		}
		store := infraoutbox.NewStore(client.DB)
		box = store
		idStore = mongodb.NewIdempotencyStore(client.DB)

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, logger)
			if err != nil {
				return nil, fmt.Errorf("kafka producer: %w", err)
			}
			app.closers = append(app.closers, producer.Close)
			worker := &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Logger:      logger,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
			app.workers = append(app.workers, func(ctx context.Context) {
				if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("outbox worker stopped", "error", err)
				}
			})

			consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, "adspace-notify", nil, notify.EventHandler{
				Notifier: notify.LogNotifier{Logger: logger},
				Logger:   logger,
			})
			if err != nil {
				return nil, fmt.Errorf("kafka consumer: %w", err)
			}
			app.closers = append(app.closers, consumer.Close)
			topics := []string{
				cfg.KafkaTopicPrefix + "booking.events.v1",
				cfg.KafkaTopicPrefix + "payment.events.v1",
			}
			app.workers = append(app.workers, func(ctx context.Context) {
				if err := consumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("notification consumer stopped", "error", err)
				}
			})
		}

	default: // memory
		listingsRepo := memory.NewListingRepository()
		bookingsRepo := memory.NewBookingRepository()
		paymentsRepo := memory.NewPaymentRepository()
		app.listings = listingsRepo
		app.uowFactory = memory.Factory{
			ListingsRepo: listingsRepo,
			BookingsRepo: bookingsRepo,
			PaymentsRepo: paymentsRepo,
		}
		box = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore()
	}

	var budget policies.RetryBudget
	if cfg.RedisAddr != "" {
		redisBudget := cache.NewRetryBudget(cfg.RedisAddr, cfg.PaymentRetryMax, cfg.PaymentRetryTTL)
		app.closers = append(app.closers, redisBudget.Close)
		budget = redisBudget
	} else {
		budget = memory.NewRetryBudget(cfg.PaymentRetryMax, cfg.PaymentRetryTTL)
	}

	providers := buildProviders(cfg)
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	createBooking := &bookingapp.CreateBookingHandler{
		UoWFactory: app.uowFactory,
		Providers:  providers,
		Outbox:     box,
		Encoder:    encoder,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), createBooking)
	commands.RegisterHandler(commandBus, bookingapp.TransitionBookingCommand{}.Key(), &bookingapp.TransitionBookingHandler{Outbox: box, Encoder: encoder})
	commands.RegisterHandler(commandBus, paymentapp.InitiatePaymentCommand{}.Key(), &paymentapp.InitiatePaymentHandler{Providers: providers, Outbox: box, Encoder: encoder})
	reconcile := &paymentapp.ReconcilePaymentHandler{Outbox: box, Encoder: encoder, Logger: logger}
	commands.RegisterHandler(commandBus, paymentapp.ReconcilePaymentCommand{}.Key(), reconcile)
	commands.RegisterHandler(commandBus, paymentapp.PollPaymentCommand{}.Key(), &paymentapp.PollPaymentHandler{Providers: providers, Reconcile: reconcile})
	commands.RegisterHandler(commandBus, paymentapp.RetryPaymentCommand{}.Key(), &paymentapp.RetryPaymentHandler{Providers: providers, Budget: budget, Outbox: box, Encoder: encoder})
	commands.RegisterHandler(commandBus, listingapp.CreateListingCommand{}.Key(), &listingapp.CreateListingHandler{Outbox: box, Encoder: encoder})
	commands.RegisterHandler(commandBus, listingapp.DeactivateListingCommand{}.Key(), &listingapp.DeactivateListingHandler{Outbox: box, Encoder: encoder})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: app.uowFactory})
	queries.RegisterHandler(queryBus, bookingapp.ListBookingsQuery{}.Key(), &bookingapp.ListBookingsHandler{UoWFactory: app.uowFactory})
	queries.RegisterHandler(queryBus, paymentapp.ListPaymentsQuery{}.Key(), &paymentapp.ListPaymentsHandler{UoWFactory: app.uowFactory})
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{UoWFactory: app.uowFactory})

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(app.uowFactory, nil),
		middleware.OutboxFlush(box),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	app.handlers = ginserver.Handlers{
		Booking: ginserver.BookingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
		Payment: ginserver.PaymentHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
		Listing: ginserver.ListingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Currency: cfg.Currency},
		Webhook: ginserver.WebhookHandler{Commands: commandBusWithMiddleware, Secret: cfg.WebhookSecret},
	}
	return app, nil
}

// buildProviders selects adapters by payment mode. Mock serves every method
// in mock mode; live mode registers only the providers with credentials.
func buildProviders(cfg config.Config) policies.ProviderRegistry {
	registry := provider.NewRegistry()
	if cfg.PaymentMode == "mock" {
		mock := provider.NewMock()
		registry.Register(domainpayment.MethodMTNMoMo, mock)
		registry.Register(domainpayment.MethodOrangeMoney, mock)
		registry.Register(domainpayment.MethodCard, mock)
		return registry
	}
	if cfg.MTNSubscriptionKey != "" {
		registry.Register(domainpayment.MethodMTNMoMo,
			provider.NewMTN(cfg.MTNBaseURL, cfg.MTNSubscriptionKey, cfg.MTNTargetEnv, cfg.CountryDialPrefix, cfg.ProviderTimeout))
	}
	if cfg.OrangeAuthToken != "" {
		registry.Register(domainpayment.MethodOrangeMoney,
			provider.NewOrange(cfg.OrangeBaseURL, cfg.OrangeAuthToken, cfg.ProviderTimeout))
	}
	return registry
}

type listingFixture struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Title       string `json:"title"`
	Description string `json:"description"`
	City        string `json:"city"`
	MonthlyRate int64  `json:"monthly_rate"`
}

func (a *application) loadListingFixtures(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	data, err := os.ReadFile(cfg.ListingsFixtures)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", cfg.ListingsFixtures)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures {
		listing, err := domainlistings.NewListing(domainlistings.CreateParams{
			ID:          domainlistings.ListingID(fx.ID),
			Owner:       domainlistings.OwnerID(fx.Owner),
			Title:       fx.Title,
			Description: fx.Description,
			City:        fx.City,
			MonthlyRate: money.Money{Amount: fx.MonthlyRate, Currency: cfg.Currency},
			Now:         now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		listing.ClearEvents()
		if err := a.listings.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", listing.ID)
	}
	return nil
}
