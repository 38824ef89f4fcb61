package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/config"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/handlers"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/realtime"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/services"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/services/gateway"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/store/pbstore"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/store/pgstore"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/store/redisstore"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/models"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/monitoring"
	"github.com/PiyushSaini04/optimus-event-flow-sub000/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/redis/go-redis/v9"
)

type registrationBackend interface {
	services.RegistrationStore
	services.EventStore
}

// eventSink receives PocketBase events when registrations live outside
// PocketBase.
type eventSink interface {
	PutEvent(ctx context.Context, e *models.Event) error
}

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()
	monitor := monitoring.NewMonitor()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Registration store
	var (
		backend registrationBackend = pbstore.New(app)
		sink    eventSink
		pool    *pgxpool.Pool
	)
	if cfg.StoreDriver == config.StoreDriverPostgres {
		var err error
		pool, err = pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg := pgstore.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		backend, sink = pg, pg
		log.Println("Registrations stored in Postgres")
	}

	// Grant store
	var (
		grantStore  services.GrantStore = pbstore.New(app)
		redisClient *redis.Client
	)
	if cfg.GrantStore == config.GrantStoreRedis {
		var err error
		redisClient, err = utils.NewRedisClient(cfg.RedisOptions())
		if err != nil {
			return err
		}
		defer redisClient.Close()
		grantStore = redisstore.NewGrantStore(redisClient)
	}

	// Realtime
	hub := realtime.NewHub(16)
	publishers := realtime.Multi{hub}
	switch cfg.RealtimeDriver {
	case config.RealtimePubNub:
		publishers = append(publishers, realtime.NewPubNubPublisher(realtime.PubNubConfig{
			PublishKey:   cfg.PubNubPublishKey,
			SubscribeKey: cfg.PubNubSubscribeKey,
			SecretKey:    cfg.PubNubSecretKey,
			UUID:         cfg.PubNubUUID,
		}))
	case config.RealtimeAMQP:
		amqpPublisher, err := realtime.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
	}

	// Initialize services
	gw := gateway.NewClient(gateway.ClientConfig{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
		Timeout:   cfg.Gateway.Timeout,
	})
	paymentService := services.NewPaymentService(gw, cfg.Gateway.KeySecret, cfg.Gateway.MaxAmount, monitor)
	ticketService := services.NewTicketService(backend, backend, paymentService, monitor, cfg.QRSize)
	checkInService := services.NewCheckInService(backend, publishers, monitor)
	grantService := services.NewGrantService(grantStore, cfg.GrantTTL, monitor)

	// Initialize handlers
	access := handlers.NewAccess(backend, grantService)
	checkInHandler := handlers.NewCheckInHandler(access, checkInService)
	grantHandler := handlers.NewGrantHandler(access, grantService)
	registrationHandler := handlers.NewRegistrationHandler(access, ticketService, backend)
	streamHandler := handlers.NewStreamHandler(access, hub)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.IsDevelopment(),
	})

	setupRegistrationHooks(app)
	if sink != nil {
		setupEventHooks(app, sink)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		if sink != nil {
			syncEvents(ctx, app, sink)
		}

		// Check-in desk
		e.Router.POST("/api/v1/checkin", checkInHandler.CheckIn)
		e.Router.GET("/api/v1/events/{eventId}/checkins/stream", streamHandler.StreamCheckIns)

		// Access delegation
		e.Router.POST("/api/v1/events/{eventId}/grants", grantHandler.CreateGrant)
		e.Router.GET("/api/v1/events/{eventId}/grants/validate", grantHandler.ValidateGrant)

		// Registration and tickets
		e.Router.POST("/api/v1/events/{eventId}/register", registrationHandler.Register)
		e.Router.POST("/api/v1/events/{eventId}/register/paid", registrationHandler.RegisterPaid)
		e.Router.GET("/api/v1/events/{eventId}/registrations", registrationHandler.ListRegistrations)
		e.Router.GET("/api/v1/events/{eventId}/registrations/export", registrationHandler.ExportRegistrations)
		e.Router.GET("/api/v1/tickets/{ticketCode}/qr.png", registrationHandler.TicketQR)

		if cfg.EnableMetrics {
			e.Router.GET("/metrics", func(e *core.RequestEvent) error {
				monitor.Handler().ServeHTTP(e.Response, e.Request)
				return nil
			})
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := healthCheck(e.Request.Context(), app, pool, redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	return app.Start()
}

// setupRegistrationHooks keeps records written through the generic records
// API in line with the check-in rules.
func setupRegistrationHooks(app *pocketbase.PocketBase) {
	app.OnRecordCreate(pbstore.CollectionRegistrations).BindFunc(pbstore.RegistrationCreateHook(utils.NewTicketCode))
	app.OnRecordUpdateRequest(pbstore.CollectionRegistrations).BindFunc(pbstore.RegistrationUpdateRequestHook)
}

// setupEventHooks mirrors every saved PocketBase event into the external
// registration store, which needs it for ownership and price lookups.
func setupEventHooks(app *pocketbase.PocketBase, sink eventSink) {
	mirror := func(e *core.RecordEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := sink.PutEvent(ctx, pbstore.EventFromRecord(e.Record)); err != nil {
			slog.Error("Failed to mirror event",
				"eventID", e.Record.Id,
				"error", err,
			)
		}
		return e.Next()
	}

	app.OnRecordAfterCreateSuccess(pbstore.CollectionEvents).BindFunc(mirror)
	app.OnRecordAfterUpdateSuccess(pbstore.CollectionEvents).BindFunc(mirror)
}

// syncEvents copies all PocketBase events into the external store on start.
func syncEvents(ctx context.Context, app *pocketbase.PocketBase, sink eventSink) {
	records, err := app.FindAllRecords(pbstore.CollectionEvents)
	if err != nil {
		log.Printf("Error fetching events: %v", err)
		return
	}

	synced := 0
	for _, rec := range records {
		if err := sink.PutEvent(ctx, pbstore.EventFromRecord(rec)); err != nil {
			slog.Error("sink.PutEvent()", "eventID", rec.Id, "error", err)
			continue
		}
		synced++
	}
	log.Printf("Synced %d events", synced)
}

func healthCheck(ctx context.Context, app core.App, pool *pgxpool.Pool, redisClient *redis.Client) error {
	if _, err := app.DB().NewQuery("SELECT 1").WithContext(ctx).Execute(); err != nil {
		return fmt.Errorf("pocketbase db: %w", err)
	}
	if pool != nil {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if redisClient != nil {
		if err := utils.RedisHealthCheck(ctx, redisClient); err != nil {
			return err
		}
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
