package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/cache"
	h "github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/http"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/oracle"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/poller"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/repository"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/service"
)

type Config struct {
	HTTPPort        string
	Postgres        repository.Credentials
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	StockFailOpen   bool
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		Postgres: repository.Credentials{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnvInt("POSTGRES_PORT", 5432),
			User:              getEnv("POSTGRES_USER", "storefront"),
			Password:          getEnv("POSTGRES_PASSWORD", "storefront"),
			DBName:            getEnv("POSTGRES_DB", "storefront"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		StockFailOpen:   getEnvBool("STOCK_FAIL_OPEN", false),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	repo, err := repository.NewRepository(&cfg.Postgres)
	if err != nil {
		logger.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.Postgres.MigrationsDirPath); err != nil {
		logger.Error("running migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to redis", "addr", cfg.RedisAddr)

	viewCache := cache.NewRedisCache(redisClient)
	priceOracle := oracle.New(repo, oracle.Config{FailOpenStock: cfg.StockFailOpen}, logger)
	validator := service.NewValidator(priceOracle)
	cartService := service.NewCartService(repo, validator, viewCache, logger)

	cartHandler := h.NewCartHandler(cartService)
	productHandler := h.NewProductHandler(repo)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.IdentityMiddleware)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{itemID}", cartHandler.UpdateItemQuantity)
				r.Delete("/items/{itemID}", cartHandler.RemoveItem)
				r.Post("/merge", cartHandler.MergeCart)
				r.Post("/validate", cartHandler.ValidateCart)
			})
		})
		r.Get("/products", productHandler.ListProducts)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	pollerCtx, stopPoller := context.WithCancel(ctx)
	checkoutPoller := poller.NewPoller(cartService, logger, cfg.KafkaBrokers...)
	go checkoutPoller.Run(pollerCtx)

	go func() {
		logger.Info("storefront listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopPoller()
	checkoutPoller.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("storefront stopped")
}
