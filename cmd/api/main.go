package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	_ "github.com/ghuser/marketplace/docs/swagger"
	"github.com/ghuser/marketplace/pkg/app"
	"github.com/ghuser/marketplace/pkg/auth"
	"github.com/ghuser/marketplace/pkg/broker"
	"github.com/ghuser/marketplace/pkg/cache"
	"github.com/ghuser/marketplace/pkg/config"
	"github.com/ghuser/marketplace/pkg/database"
	"github.com/ghuser/marketplace/pkg/events"
	"github.com/ghuser/marketplace/pkg/httpx"
	"github.com/ghuser/marketplace/pkg/logger"
	"github.com/ghuser/marketplace/pkg/telemetry"
	orderApi "github.com/ghuser/marketplace/services/order/application/api"
	orderEvents "github.com/ghuser/marketplace/services/order/domain/events"
	productApi "github.com/ghuser/marketplace/services/product/application/api"
	productEvents "github.com/ghuser/marketplace/services/product/domain/events"
	userApi "github.com/ghuser/marketplace/services/user/application/api"
	userEvents "github.com/ghuser/marketplace/services/user/domain/events"
)

// @title					Marketplace API
// @version				1.0
// @description			Marketplace modular monolith: users, products and orders with domain events on a broker.
// @termsOfService			http://swagger.io/terms/
// @contact.name			API Support
// @contact.email			support@marketplace.example
// @license.name			MIT
// @license.url			https://opensource.org/licenses/MIT
// @host					localhost:8080
// @BasePath				/api
// @schemes				http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	// Telemetry: OTel tracing + metrics
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(context.Background()) //nolint:errcheck

	// Crash reporting is optional: log and continue on failure.
	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure, deferred flushes are best-effort
	}
	defer pool.Close() //nolint:errcheck
	log.Info("database pool connected")

	connector, err := broker.New(cfg, pool.DB(), log)
	if err != nil {
		log.Error("failed to setup broker", "driver", cfg.BrokerDriver, "error", err)
		os.Exit(1) //nolint:gocritic
	}
	if c, ok := connector.(io.Closer); ok {
		defer c.Close() //nolint:errcheck
	}

	publisher, err := events.NewPublisher(connector, events.Options{
		ConnectTimeout: cfg.BrokerConnectTimeout,
		PublishTimeout: cfg.PublishTimeout,
		Workers:        cfg.PublishWorkers,
		QueueSize:      cfg.PublishQueueSize,
		Meter:          otel.Meter(cfg.ServiceName),
	}, log)
	if err != nil {
		log.Error("failed to setup publisher", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	// A broker outage at startup is not fatal: non-critical writes still succeed
	// and critical ones are refused until the publisher is reconnected.
	if err := publisher.Connect(ctx); err != nil {
		log.Warn("broker unavailable at startup, continuing disconnected", "driver", cfg.BrokerDriver, "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := publisher.Disconnect(shutdownCtx); err != nil {
			log.Error("publisher disconnect failed", "error", err)
		}
	}()

	catalog := events.NewCatalog(userEvents.Schemas, productEvents.Schemas, orderEvents.Schemas)
	log.Info("event catalog loaded", "types", catalog.Types())

	if err := startBrokerSide(ctx, cfg, connector, catalog, log); err != nil {
		log.Error("failed to start broker side tasks", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	sessionStore := auth.NewSessionStore(
		redisClient.Client(),
		[]byte(cfg.SessionAuthKey),
		[]byte(cfg.SessionEncryptionKey),
		cfg.Environment == config.EnvProduction,
	)
	log.Info("session store initialized", "backend", "redis")

	appConfig := &app.Application{
		Config:       cfg,
		Db:           pool,
		Logger:       log,
		Publisher:    publisher,
		Catalog:      catalog,
		SessionStore: sessionStore,
	}
	if cfg.ProductCacheEnabled {
		appConfig.Redis = redisClient
	}

	r := httpx.NewRouter(
		httpx.ServerConfig{
			ServiceName:        cfg.ServiceName,
			IsDevelopment:      cfg.Environment == config.EnvDevelopment,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		},
		logger.Middleware(log),
		logger.Recovery(log),
		telemetry.SentryMiddleware(),
		otelhttp.NewMiddleware(cfg.ServiceName),
	)

	r.Get("/health", httpx.HealthHandler(httpx.HealthChecks{
		Database: pool,
		Redis:    redisClient,
		Broker:   publisher,
	}))
	r.Get("/metrics", metricsHandler.ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Route("/api", func(r chi.Router) {
		registerRoutes(r, appConfig)
	})

	srv := httpx.NewServer(cfg.HTTPAddr, r)

	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Environment, "services", cfg.Services())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
	}
	log.Info("server stopped")
}

// registerRoutes mounts the service modules listed in ENABLED_SERVICES under /api.
func registerRoutes(r chi.Router, a *app.Application) {
	if a.Config.ServiceEnabled(config.ServiceAuth) {
		userApi.UserRoutes(r, a)
	}
	if a.Config.ServiceEnabled(config.ServiceProduct) {
		productApi.ProductRoutes(r, a)
	}
	if a.Config.ServiceEnabled(config.ServiceOrder) {
		orderApi.OrderRoutes(r, a)
	}
}

// startBrokerSide runs the driver-specific background work owned by the api
// process: the postgres forwarder when enabled, and the in-process audit tap
// for the memory driver, whose events never leave this process.
func startBrokerSide(ctx context.Context, cfg *config.Config, conn events.Connector, cat *events.Catalog, log logger.Logger) error {
	switch b := conn.(type) {
	case *broker.Postgres:
		if cfg.BrokerUseForwarder {
			return b.StartForwarder(ctx)
		}
	case *broker.Memory:
		return b.Consume(ctx, allTopics(), broker.AuditHandler(cat, log))
	}
	return nil
}

func allTopics() []string {
	topics := append([]string{}, userEvents.AllTopics...)
	topics = append(topics, productEvents.AllTopics...)
	return append(topics, orderEvents.AllTopics...)
}
