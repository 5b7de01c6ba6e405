package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/americano-tennis/internal/auth"
	"github.com/americano-tennis/internal/config"
	"github.com/americano-tennis/internal/handler"
	"github.com/americano-tennis/internal/kafka"
	"github.com/americano-tennis/internal/matchmaker"
	"github.com/americano-tennis/internal/memstore"
	"github.com/americano-tennis/internal/metrics"
	"github.com/americano-tennis/internal/postgres"
	"github.com/americano-tennis/internal/redis"
	"github.com/americano-tennis/internal/service"
	"github.com/americano-tennis/internal/store"
	"github.com/americano-tennis/internal/websocket"
	"github.com/americano-tennis/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to an optional .env file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if path, err := config.LoadEnv(*envPath); err != nil {
		logger.Warn("failed to load env file", "error", err)
	} else if path != "" {
		logger.Info("loaded env file", "path", path)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := make(map[string]handler.ReadinessCheck)

	// Initialize storage
	var st store.Store
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		st = memstore.New()
	default:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err := postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer repo.Close()

		if err := repo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		st = repo
	}
	checks["store"] = st.Ping

	// Initialize the Redis standings cache
	var (
		standingsCache service.StandingsCache
		playerCache    service.PlayerCache
	)
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		cache, err := redis.NewStandingsCache(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, serving standings from the store", "error", err)
		} else {
			defer cache.Close()
			standingsCache = cache
			playerCache = cache
			checks["redis"] = cache.Ping
		}
	}

	wsHub := websocket.NewHub(logger)
	go wsHub.Run()

	m := metrics.New()

	seed := cfg.Scheduler.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := matchmaker.NewEngine(rand.New(rand.NewSource(seed)), cfg.Scheduler.TrialBudget)

	// Initialize services
	tournaments := service.NewTournamentService(st, engine, standingsCache, wsHub, m, &cfg.Scheduler, &cfg.Standings, logger)
	players := service.NewPlayerService(st, playerCache, logger)

	authenticator, err := auth.NewAuthenticator(&cfg.Auth)
	if err != nil {
		logger.Warn("admin routes disabled", "error", err)
	}

	// Reconcile worker
	reconcileWorker := worker.NewReconcileWorker(tournaments, &cfg.Sync, logger)
	if err := reconcileWorker.SyncAllToCache(ctx); err != nil {
		logger.Warn("failed to warm standings cache on startup", "error", err)
	}
	if cfg.Sync.Enabled {
		if err := reconcileWorker.Start(ctx); err != nil {
			logger.Error("failed to start reconcile worker", "error", err)
			os.Exit(1)
		}
	}

	// Kafka consumer for match results reported by courtside devices
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, tournaments, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else if err := kafkaConsumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
			kafkaConsumer = nil
		}
	}

	httpHandler := handler.NewHandler(handler.Dependencies{
		Tournaments:    tournaments,
		Players:        players,
		Auth:           authenticator,
		Hub:            wsHub,
		Metrics:        m,
		Checks:         checks,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	wsHub.Stop()

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	if err := reconcileWorker.Stop(); err != nil {
		logger.Error("failed to stop reconcile worker", "error", err)
	}

	logger.Info("server stopped")
}
