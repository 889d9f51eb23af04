package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	cartapp "github.com/bookstore/storefront/internal/application/cart"
	"github.com/bookstore/storefront/internal/domain/shared/valueobject"
	"github.com/bookstore/storefront/internal/infrastructure/auth"
	"github.com/bookstore/storefront/internal/infrastructure/config"
	"github.com/bookstore/storefront/internal/infrastructure/event"
	"github.com/bookstore/storefront/internal/infrastructure/localstore"
	"github.com/bookstore/storefront/internal/infrastructure/logger"
	"github.com/bookstore/storefront/internal/infrastructure/remote"
	"github.com/bookstore/storefront/internal/infrastructure/telemetry"
	"github.com/bookstore/storefront/internal/interfaces/http/handler"
	"github.com/bookstore/storefront/internal/interfaces/http/middleware"
	"github.com/bookstore/storefront/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("remote", cfg.Remote.BaseURL),
	)

	// Metrics
	mp, err := telemetry.NewMeterProvider(telemetry.MetricsConfig{
		Enabled:     cfg.Telemetry.MetricsEnabled,
		ServiceName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(ctx); err != nil {
			log.Warn("Error shutting down meter provider", zap.Error(err))
		}
	}()
	meter := mp.Meter(cfg.Telemetry.ServiceName)
	cartMetrics, err := telemetry.NewCartMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create cart metrics", zap.Error(err))
	}

	// Device-local storage for the cart snapshot and the credential
	kv, err := localstore.NewFactory(cfg.LocalStore, localstore.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to open local store", zap.Error(err))
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Error("Error closing local store", zap.Error(err))
		}
	}()
	currency := valueobject.Currency(cfg.Cart.Currency)
	snapshots := localstore.NewCartSnapshotStore(kv, cfg.LocalStore.CartKey, currency)

	bus := event.NewInMemoryEventBus(log)

	// Session
	sessions := auth.NewSessionManager(kv, cfg.LocalStore.CredentialKey, bus, auth.WithSessionLogger(log))
	identity, err := sessions.Restore(context.Background())
	if err != nil {
		log.Warn("Failed to restore session, starting signed out", zap.Error(err))
	}
	log.Info("Session restored", zap.Bool("signed_in", identity.SignedIn), zap.String("user_id", identity.UserID))

	// Bookstore backend clients
	client, err := remote.NewClient(remote.Config{
		BaseURL:          cfg.Remote.BaseURL,
		Timeout:          cfg.Remote.Timeout,
		MaxResponseBytes: cfg.Remote.MaxResponseBytes,
		Currency:         currency,
	}, sessions, remote.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create bookstore client", zap.Error(err))
	}

	// Cart
	store := cartapp.NewStore(
		cartapp.Config{
			Currency:           currency,
			RollbackFailedAdds: cfg.Cart.RollbackFailedAdds,
			EnrichConcurrency:  cfg.Cart.EnrichConcurrency,
		},
		snapshots,
		remote.NewCartGateway(client),
		sessions,
		bus,
		cartapp.WithCatalog(remote.NewCatalogClient(client)),
		cartapp.WithExpirer(sessions),
		cartapp.WithMetrics(cartMetrics),
		cartapp.WithLogger(log),
	)
	if err := store.Start(context.Background()); err != nil {
		log.Error("Initial cart load failed", zap.Error(err))
	}
	handoff := cartapp.NewHandoff(store, remote.NewOrderClient(client), log)

	// HTTP surface
	middleware.SetupValidator()
	stream := handler.NewCartStreamHandler(store,
		handler.WithStreamLogger(log),
		handler.WithHeartbeat(cfg.HTTP.SSEPingInterval),
	)
	stream.Start()

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:  cfg.Telemetry.ServiceName,
		MaxBodySize:  cfg.HTTP.MaxBodySize,
		AllowOrigins: cfg.HTTP.AllowOrigins,
		Logger:       log,
		Session:      sessions,
		Meter:        meter,
		Metrics:      mp.Handler(),
		Health:       handler.NewSystemHandler(cfg.App.Name, store).Health,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}
	router.NewRouter(engine).
		Register(handler.NewCartHandler(store, handoff)).
		Register(handler.NewSessionHandler(sessions)).
		Register(stream).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Stream connections never finish on their own
	stream.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight cart calls settle so the local snapshot is final
	store.Close()

	log.Info("Server exited gracefully")
}
