package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ikramzafar0343/style-sathi/internal/api"
	"github.com/ikramzafar0343/style-sathi/internal/app"
	httpx "github.com/ikramzafar0343/style-sathi/internal/http"
	"github.com/ikramzafar0343/style-sathi/internal/notify"
	"github.com/ikramzafar0343/style-sathi/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

type Config struct {
	HTTPPort           string
	APIBaseURL         string
	SessionBackend     string
	RedisAddr          string
	RedisPassword      string
	SQLitePath         string
	SessionTTL         time.Duration
	KafkaBrokers       []string
	KafkaTopic         string
	RequestTimeout     time.Duration
	SyncMaxRetries     int
	SessionIdleTimeout time.Duration
	InboxSize          int
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

func loadConfig() (*Config, error) {
	requestTimeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	idleTimeout, err := time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: %w", err)
	}
	maxRetries, err := strconv.Atoi(getEnv("SYNC_MAX_RETRIES", "0"))
	if err != nil || maxRetries < 0 {
		return nil, errors.New("invalid SYNC_MAX_RETRIES")
	}

	var brokers []string
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		brokers = strings.Split(v, ",")
	}

	backend := getEnv("SESSION_BACKEND", "redis")
	if backend != "redis" && backend != "sqlite" {
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", backend)
	}

	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8081"),
		SessionBackend:     backend,
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "./sessions.db"),
		SessionTTL:         sessionTTL,
		KafkaBrokers:       brokers,
		KafkaTopic:         getEnv("KAFKA_TOPIC", "storefront-events"),
		RequestTimeout:     requestTimeout,
		SyncMaxRetries:     maxRetries,
		SessionIdleTimeout: idleTimeout,
		InboxSize:          50,
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

// openStores returns the per-session store factory of the configured backend
// and a func releasing the shared connection.
func openStores(ctx context.Context, cfg *Config, log logrus.FieldLogger) (app.StoreFactory, func() error, error) {
	switch cfg.SessionBackend {
	case "sqlite":
		db, err := session.OpenSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, err
		}
		factory := func(sessionID string) session.Store { return db.ForSession(sessionID) }
		return factory, db.Close, nil
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		factory := func(sessionID string) session.Store {
			return session.NewRedisStore(client, sessionID, cfg.SessionTTL, log)
		}
		return factory, client.Close, nil
	}
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	stores, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open session store")
	}
	defer closeStores()
	log.WithField("backend", cfg.SessionBackend).Info("session store ready")

	// Notifications
	bus := notify.NewBus()
	inbox := notify.NewInbox(cfg.InboxSize)
	bus.Subscribe(inbox.Handle)
	bus.Subscribe(func(e notify.Event) {
		log.WithField("session_id", e.SessionID).
			WithField("event", e.Type).
			WithField("order_id", e.OrderID).
			Info(e.Message)
	})

	var forwarder *notify.KafkaForwarder
	if len(cfg.KafkaBrokers) > 0 {
		forwarder = notify.NewKafkaForwarder(notify.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...), 256, log)
		bus.Subscribe(forwarder.Handle)
		wg.Add(1)
		go func() {
			defer wg.Done()
			forwarder.Run(ctx)
		}()
		log.WithField("topic", cfg.KafkaTopic).Info("forwarding events to Kafka")
	}

	// Backend API
	apiCfg := api.DefaultConfig(cfg.APIBaseURL)
	orderClient := api.NewOrderClient(apiCfg, log)

	appCfg := app.DefaultConfig()
	appCfg.Sync.MaxRetries = cfg.SyncMaxRetries
	appCfg.IdleTimeout = cfg.SessionIdleTimeout
	appCfg.CloseTimeout = cfg.ShutdownTimeout
	registry := app.NewRegistry(appCfg, app.Dependencies{
		Stores:  stores,
		Cart:    api.NewCartClient(apiCfg, log),
		Catalog: api.NewCatalogClient(apiCfg, log),
		Orders:  orderClient,
		Bus:     bus,
	}, log)

	handler := httpx.NewRouter(httpx.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, registry, inbox, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down storefront...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	// pending cart writes are flushed before the stores close
	if err := registry.Close(shutdownCtx); err != nil {
		log.WithError(err).Warn("some sessions did not flush")
	}

	cancel()
	wg.Wait()
	if forwarder != nil {
		forwarder.Close()
	}

	log.Info("storefront stopped")
}
