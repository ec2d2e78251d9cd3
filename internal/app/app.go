// Package app wires the storefront's dependency graph and owns its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vymjay/aprylo/internal/auth"
	"github.com/vymjay/aprylo/internal/config"
	"github.com/vymjay/aprylo/internal/domain"
	"github.com/vymjay/aprylo/internal/event"
	handler "github.com/vymjay/aprylo/internal/handler/http"
	"github.com/vymjay/aprylo/internal/payment"
	postgresrepo "github.com/vymjay/aprylo/internal/repository/postgres"
	redisrepo "github.com/vymjay/aprylo/internal/repository/redis"
	"github.com/vymjay/aprylo/internal/service"
	"github.com/vymjay/aprylo/migrations"
	"github.com/vymjay/aprylo/pkg/cache"
	"github.com/vymjay/aprylo/pkg/database"
	"github.com/vymjay/aprylo/pkg/health"
	"github.com/vymjay/aprylo/pkg/httpclient"
	pkgkafka "github.com/vymjay/aprylo/pkg/kafka"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg         *config.Config
	logger      *slog.Logger
	pool        *pgxpool.Pool
	rdb         *redis.Client
	producer    *pkgkafka.Producer
	pageCache   *cache.Cache[*domain.ReviewPage]
	detailCache *cache.Cache[*domain.ProductDetail]
	httpServer  *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Postgres.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.DBHost
	pgCfg.Port = cfg.DBPort
	pgCfg.User = cfg.DBUser
	pgCfg.Password = cfg.DBPassword
	pgCfg.DBName = cfg.DBName
	pgCfg.SSLMode = cfg.DBSSLMode

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	database.RegisterPoolMetrics(pool, "storefront")

	if err := database.RunMigrations(ctx, pool, migrations.Files, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// Redis.
	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	// Kafka producer.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Query caches.
	staleTime := time.Duration(cfg.CacheStaleTime) * time.Second
	gcTime := time.Duration(cfg.CacheGCTime) * time.Second
	pageCache := cache.New[*domain.ReviewPage](cache.Config{
		Name: "review_pages", StaleTime: staleTime, GCTime: gcTime, Logger: logger,
	})
	detailCache := cache.New[*domain.ProductDetail](cache.Config{
		Name: "product_details", StaleTime: staleTime, GCTime: gcTime, Logger: logger,
	})

	// Repositories.
	productRepo := postgresrepo.NewProductRepository(pool)
	reviewRepo := postgresrepo.NewReviewRepository(pool)
	orderRepo := postgresrepo.NewOrderRepository(pool)
	checkoutRepo := postgresrepo.NewCheckoutRepository(pool)
	cartRepo := redisrepo.NewCartRepository(rdb, time.Duration(cfg.CartTTL)*time.Hour)

	// Payment gateway behind a retrying client and a circuit breaker.
	httpClient := httpclient.New(httpclient.DefaultConfig())
	breaker := httpclient.NewCircuitBreakerClient(httpClient, httpclient.DefaultCircuitBreakerConfig("payment"), logger)
	gateway := payment.NewClient(breaker, cfg.PaymentBaseURL, logger)

	// Services.
	events := event.NewProducer(producer, logger)
	catalogService := service.NewCatalogService(productRepo, reviewRepo, detailCache, logger)
	reviewService := service.NewReviewService(reviewRepo, pageCache, events, logger)
	cartService := service.NewCartService(cartRepo, productRepo, events, logger)
	checkoutService := service.NewCheckoutService(checkoutRepo, orderRepo, cartRepo, productRepo, gateway, detailCache, events, logger)
	orderService := service.NewOrderService(orderRepo, events, logger)

	// Auth.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTAccessExpiryMin)*time.Minute)

	// Health checks. Kafka is non-critical: the storefront still serves
	// requests when events cannot be published.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := handler.NewRouter(handler.RouterConfig{
		Catalog:  catalogService,
		Reviews:  reviewService,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   orderService,
		Health:   healthHandler,
		Auth:     jwtManager.Validator(),
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		rdb:         rdb,
		producer:    producer,
		pageCache:   pageCache,
		detailCache: detailCache,
		httpServer:  httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.pageCache.Close()
	a.detailCache.Close()

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return nil
}
