/*
Package main is the entry point of the QuickTalk server.

It loads configuration, initialises logging, wires storage, fan-out, rate limiting and the event
stream according to the configured drivers, serves HTTP and websocket traffic, and shuts
everything down in order on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"quicktalk/internal/app/bus"
	"quicktalk/internal/app/chat"
	"quicktalk/internal/app/db"
	"quicktalk/internal/app/eventlog"
	"quicktalk/internal/app/message"
	"quicktalk/internal/app/presence"
	"quicktalk/internal/app/storage"
	"quicktalk/internal/app/user"
	"quicktalk/internal/configs"
	"quicktalk/internal/handler"
	"quicktalk/internal/pkg/limiter"
	"quicktalk/internal/pkg/logx"
	"quicktalk/internal/pkg/pow"
)

const (
	// websocket connection attempts per second and burst, per address.
	connectRate  = 0.5
	connectBurst = 10

	windowPurgeInterval = time.Minute
	shutdownTimeout     = 5 * time.Second
	kafkaPartitions     = 3
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.Init(logx.Options{
		Development: cfg.IsDevelopment(),
		Level:       os.Getenv("LOG_LEVEL"),
		Service:     "quicktalk",
	})
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("store_driver", cfg.StoreDriver).
		Str("bus_driver", cfg.BusDriver).
		Str("rate_limit_backend", cfg.RateLimitBackend).
		Bool("kafka_enabled", cfg.KafkaEnabled()).
		Bool("storage_enabled", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal(err, "Server stopped with error")
	}
	logx.Info("Server gracefully stopped.")
}

func run(ctx context.Context, cfg *configs.AppConfig) error {
	// --- Persistence ---
	var (
		users      user.Repository
		msgBackend message.Backend
		pool       *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case configs.StoreDriverPostgres:
		var err error
		pool, err = db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		users = user.NewPostgresRepository(pool)
		msgBackend = message.NewPostgresBackend(pool)
	default:
		memUsers := user.NewMemoryRepository()
		users = memUsers
		msgBackend = message.NewMemoryBackend(memUsers)
		logx.Warn("Using in-memory store; data is lost on restart")
	}
	messages := message.NewStore(msgBackend)

	// --- Redis ---
	var redisClient *redis.Client
	if cfg.RedisRequired() {
		var err error
		redisClient, err = bus.NewRedisClient(ctx, bus.RedisConfig{
			Address:      cfg.RedisAddress,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     20,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logx.Error(err, "Failed to close redis client")
			}
		}()
	}

	// --- Presence and fan-out ---
	router := presence.NewRouter(presence.NewDirectory())

	var routeBus bus.Bus
	if cfg.BusDriver == configs.BusDriverRedis {
		routeBus = bus.NewRedisBus(redisClient, bus.DefaultChannel, bus.RouterHandler(router))
	} else {
		routeBus = bus.NewLocalBus(bus.RouterHandler(router))
	}

	// --- Message event stream ---
	var recorder eventlog.Recorder = eventlog.Noop{}
	if cfg.KafkaEnabled() {
		kafkaRecorder, err := eventlog.NewKafkaRecorder(cfg.KafkaBrokers, cfg.KafkaTopic, kafkaPartitions)
		if err != nil {
			return err
		}
		recorder = kafkaRecorder
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logx.Error(err, "Failed to close message recorder")
		}
	}()

	// --- File storage ---
	var storageService storage.StorageService
	if cfg.StorageEnabled() {
		var err error
		storageService, err = storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return err
		}
	}

	// --- Rate limiting ---
	var (
		windowStore limiter.WindowStore
		memWindow   *limiter.MemoryWindowStore
	)
	if cfg.RateLimitBackend == configs.RateLimitBackendRedis {
		windowStore = limiter.NewRedisWindowStore(redisClient)
	} else {
		memWindow = limiter.NewMemoryWindowStore()
		windowStore = memWindow
	}
	sendLimiter := limiter.NewFixedWindow(windowStore, cfg.MessageRateLimit, cfg.MessageRateWindow)
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(connectRate), connectBurst)

	powManager := pow.NewManager(cfg.PowDifficulty)

	deps := &handler.AppDeps{
		Config:         cfg,
		Users:          users,
		Messages:       messages,
		Aggregator:     chat.NewAggregator(messages, users),
		Sender:         chat.NewCoordinator(messages, routeBus, recorder),
		Router:         router,
		Pow:            powManager,
		SendLimiter:    sendLimiter,
		ConnectLimiter: connectLimiter,
		StorageService: storageService,
		BaseContext:    ctx,
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler.Router(deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logx.Info(fmt.Sprintf("QuickTalk Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error { return routeBus.Run(gctx) })

	g.Go(func() error {
		powManager.Run(gctx)
		return nil
	})

	g.Go(func() error {
		connectLimiter.Run(gctx)
		return nil
	})

	if memWindow != nil {
		g.Go(func() error {
			memWindow.Run(gctx, windowPurgeInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logx.Info("Received shutdown signal. Starting graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logx.Error(err, "Server forced to shutdown")
		}
		router.Shutdown()

		if err := routeBus.Close(); err != nil {
			logx.Error(err, "Failed to close route bus")
		}
		return nil
	})

	return g.Wait()
}
