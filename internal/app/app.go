// Package app wires the checkout service together and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/auth"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/config"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/event"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/gateway"
	handler "github.com/ByteBenders-compScientists/smart-retail-checkout/internal/handler/http"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/poller"
	pgrepo "github.com/ByteBenders-compScientists/smart-retail-checkout/internal/repository/postgres"
	cartredis "github.com/ByteBenders-compScientists/smart-retail-checkout/internal/repository/redis"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/internal/service"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/migrations"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/database"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/health"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/httpclient"
	pkgkafka "github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/kafka"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/middleware"
	"github.com/ByteBenders-compScientists/smart-retail-checkout/pkg/tracing"
)

// App holds the wired dependencies and runs the service.
type App struct {
	cfg             *config.Config
	logger          *slog.Logger
	pool            *pgxpool.Pool
	redisClient     *goredis.Client
	producer        *pkgkafka.Producer
	checkoutService *service.CheckoutService
	httpServer      *http.Server
	tracerShutdown  func(context.Context) error
}

// NewApp initializes every dependency and builds the HTTP server.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown := func(context.Context) error { return nil }
	if cfg.OTELEnabled {
		shutdown, err := tracing.InitTracer(ctx, tracing.Config{
			ServiceName:  cfg.ServiceName,
			OTLPEndpoint: cfg.OTELEndpoint,
			SampleRate:   cfg.OTELSampleRate,
			Environment:  cfg.Environment,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		tracerShutdown = shutdown
	}

	pool, err := database.NewPostgresPool(ctx, database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		Database:        cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.Migrate(ctx, pool, migrations.FS, "."); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	baseClient := httpclient.New(httpclient.Config{
		Timeout:         time.Duration(cfg.BackendTimeout) * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    4 * time.Second,
		MaxConnsPerHost: 64,
	})
	breakerClient := httpclient.NewBreakerClient(baseClient, httpclient.BreakerConfig{
		Name:         "storefront-backend",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}, logger)

	backend := gateway.New(cfg.BackendBaseURL, breakerClient, logger)

	cartRepo := cartredis.NewCartRepository(redisClient, cfg.CartTTL())
	sessionRepo := pgrepo.NewSessionRepository(pool)
	publisher := event.NewPublisher(producer)

	cartService := service.NewCartService(cartRepo, logger)
	checkoutService := service.NewCheckoutService(
		cartRepo,
		sessionRepo,
		backend,
		publisher,
		poller.Config{
			Interval:    cfg.PollInterval(),
			MaxAttempts: cfg.PollMaxAttempts,
			GraceDelay:  cfg.PollGraceDelay(),
		},
		logger,
	)

	validator := auth.NewJWTValidator(cfg.JWTSecret)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("backend", backend.Ping)

	router := handler.NewRouter(
		cartService,
		checkoutService,
		backend,
		validator.Validate,
		healthHandler,
		middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		cfg.ServiceName,
		logger,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redisClient:     redisClient,
		producer:        producer,
		checkoutService: checkoutService,
		httpServer:      httpServer,
		tracerShutdown:  tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown stops components in dependency order: drain HTTP first, then stop
// the pollers that write to the stores, then flush and close the rest.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.ShutdownTimeout)*time.Second)
	defer cancel()

	var errs []error

	if err := a.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}

	a.checkoutService.StopAll()
	a.logger.Info("payment pollers stopped")

	if err := a.tracerShutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
	}

	if err := a.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
	}

	if err := a.redisClient.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis client: %w", err))
	}

	a.pool.Close()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	a.logger.Info("shutdown complete")
	return nil
}
