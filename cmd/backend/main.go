package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/backend/cache"
	"github.com/ikramzafar0343/style-sathi/internal/backend/catalog"
	"github.com/ikramzafar0343/style-sathi/internal/backend/httpapi"
	"github.com/ikramzafar0343/style-sathi/internal/backend/orderstore"
	"github.com/ikramzafar0343/style-sathi/internal/backend/repository"
	"github.com/ikramzafar0343/style-sathi/internal/backend/service"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type Config struct {
	HTTPPort           string
	MongoURI           string
	MongoDBName        string
	RedisAddr          string
	RedisPassword      string
	CacheTTL           time.Duration
	CatalogDBPath      string
	Postgres           orderstore.Credentials
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

func loadConfig() (*Config, error) {
	pgPort, err := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	if err != nil {
		return nil, errors.New("invalid POSTGRES_PORT")
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "15m"))
	if err != nil {
		return nil, errors.New("invalid CACHE_TTL")
	}

	return &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8081"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "cartdb"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      cacheTTL,
		CatalogDBPath: getEnv("CATALOG_DB_PATH", "./catalog.db"),
		Postgres: orderstore.Credentials{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     pgPort,
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:   getEnv("POSTGRES_DB", "storefront"),
		},
		RequestTimeout:     10 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 1 << 20, // 1MB
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.Level = logrus.DebugLevel
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout
	return log
}

// connectMongoDB opens the cart database. Every operation is bounded by the
// request timeout unless its context sets a shorter one.
func connectMongoDB(ctx context.Context, cfg *Config) (*mongo.Database, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetAppName("storefront-backend").
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetTimeout(cfg.RequestTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return client.Database(cfg.MongoDBName), nil
}

func main() {
	log := newLogger()
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))

	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx := context.Background()

	// Carts
	mongoDB, err := connectMongoDB(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer mongoDB.Client().Disconnect(context.Background())

	cartRepo := repository.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.WithError(err).Fatal("failed to create cart indexes")
	}
	log.WithField("uri", cfg.MongoURI).Info("connected to MongoDB")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("redis connection failed")
	}

	// Catalog
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open catalog")
	}
	defer products.Close()
	if err := products.RunMigrations(); err != nil {
		log.WithError(err).Fatal("failed to run catalog migrations")
	}

	// Orders
	orderRepo, err := orderstore.NewRepository(&cfg.Postgres)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Postgres")
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(); err != nil {
		log.WithError(err).Fatal("failed to run order migrations")
	}
	log.Info("database migrations completed")

	cartService := service.NewCartService(cartRepo, cache.NewRedisCache(redisClient, cfg.CacheTTL), products, log)
	orderService := service.NewOrderService(orderRepo, cartService, products, log)

	handler := httpapi.NewRouter(
		httpapi.RouterConfig{RequestTimeout: cfg.RequestTimeout, MaxRequestBodySize: cfg.MaxRequestBodySize},
		httpapi.NewProductHandler(products, cfg.RequestTimeout),
		httpapi.NewCartHandler(cartService, products, cfg.RequestTimeout),
		httpapi.NewOrdersHandler(orderService, cfg.RequestTimeout),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("backend starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down backend...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("backend stopped")
}
