package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/threadcraft/internal/domain/catalog"
	"github.com/xenking/threadcraft/internal/domain/order"
	"github.com/xenking/threadcraft/internal/events"
	"github.com/xenking/threadcraft/internal/handler"
	"github.com/xenking/threadcraft/internal/storage/postgres"
	"github.com/xenking/threadcraft/pkg/health"
	"github.com/xenking/threadcraft/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	rate, err := cfg.Pricing.Rate()
	if err != nil {
		return err
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Order events go to RabbitMQ when configured, to the log otherwise.
	var publisher order.Publisher
	if cfg.Events.RabbitMQURL != "" {
		amqpPub, err := events.DialAMQP(cfg.Events.RabbitMQURL, cfg.Events.Exchange)
		if err != nil {
			return errors.Wrap(err, "connect event broker")
		}
		defer func() {
			if err := amqpPub.Close(); err != nil {
				lg.Warn("Close event broker", zap.Error(err))
			}
		}()
		healthSvc.AddReadinessCheck("rabbitmq", time.Second, health.PingCheck("rabbitmq", amqpPub))
		publisher = amqpPub
		lg.Info("Publishing order events", zap.String("exchange", cfg.Events.Exchange))
	} else {
		publisher = events.NewLogPublisher(lg.Named("events"))
		lg.Warn("No event broker configured, order events are only logged")
	}

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	optionsRepo := postgres.NewOptionsRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	catalogService := catalog.NewService(productRepo, optionsRepo)
	orderService, err := order.NewService(orderRepo, productRepo, optionsRepo, publisher, order.Config{
		Shipping: order.ShippingPolicy{
			Flat:     cfg.Pricing.ShippingFlat,
			FreeOver: cfg.Pricing.FreeShippingOver,
		},
		DisplayRate:    rate,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	keys, err := orderRepo.IdempotencyKeys(ctx)
	if err != nil {
		return errors.Wrap(err, "load idempotency keys")
	}
	orderService.RememberKeys(keys...)
	lg.Info("Idempotency index warmed", zap.Int("keys", len(keys)))

	if cfg.Admin.JWTSecret == "" {
		lg.Warn("Admin JWT secret not set, admin API rejects every request")
	}
	securityHandler := handler.NewSecurityHandler(apikeyRepo, cfg.APIKeyPepper, handler.AdminConfig{
		JWTSecret: []byte(cfg.Admin.JWTSecret),
		Issuer:    cfg.Admin.Issuer,
	})
	h := handler.NewHandler(
		handler.HandlerConfig{DisplayRate: rate},
		catalogService,
		orderService,
		securityHandler,
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, "/api")
	routeFinder := httpmiddleware.MakeRouteFinder(mux)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("threadcraft", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
