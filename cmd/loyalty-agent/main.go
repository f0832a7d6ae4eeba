// cmd/loyalty-agent/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loyalty-agent/internal/agent"
	"loyalty-agent/internal/api"
	"loyalty-agent/internal/common/config"
	"loyalty-agent/internal/common/database"
	commonhttp "loyalty-agent/internal/common/http"
	"loyalty-agent/internal/common/logger"
	"loyalty-agent/internal/common/observability"
	"loyalty-agent/internal/memory"
	"loyalty-agent/internal/registry"
	"loyalty-agent/internal/store"
	agentmeta "loyalty-agent/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	configPath := flag.String("config", "", "config file (default: configs/config.yaml plus config.<env>.yaml)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loyalty agent...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("dataSource", cfg.Data.Source),
	)

	obs := observability.New(cfg.App.Name, nil)
	defer obs.Shutdown(context.Background())

	lifetime, stop := context.WithCancel(context.Background())
	defer stop()

	// --- Reference data ---
	// A failed load leaves the agent nil and the API degraded rather than
	// stopping the process.
	catalog, err := loadCatalog(lifetime, cfg, zapLog)
	var loyaltyAgent *agent.Agent
	if err != nil {
		zapLog.Error("customer data unavailable, serving degraded", zap.Error(err))
	} else {
		loyaltyAgent = agent.New(catalog, log, agent.WithObservability(obs))
		zapLog.Info("Customer data loaded",
			zap.Int("customers", catalog.CustomerCount()),
			zap.Int("transactions", catalog.TransactionCount()),
		)
	}

	// --- Memory, with optional Redis mirror ---
	var memOpts []memory.Option
	if cfg.Database.Redis.Enabled {
		redis := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(lifetime)
		}, 5, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, short-term memory stays local", zap.Error(err))
			_ = redis.Close()
		} else {
			defer redis.Close()
			memOpts = append(memOpts, memory.WithMirror(
				memory.NewRedisMirror(redis, cfg.Database.Redis.KeyPrefix, config.GetDuration(cfg.Database.Redis.TTL)),
			))
			zapLog.Info("Redis connected successfully")
		}
	}
	mem := memory.NewManager(cfg.Memory, log, memOpts...)

	if interval := config.GetDuration(cfg.Memory.PruneInterval); interval > 0 {
		go pruneLoop(lifetime, mem, interval, cfg.Memory.RetentionDays)
	}

	// --- Supervisor registry ---
	metadata, err := loadMetadata(cfg)
	if err != nil {
		zapLog.Fatal("agent metadata load failed", zap.Error(err))
	}
	regClient := registry.NewClient(metadata, commonhttp.NewClient(config.GetDuration(cfg.Registry.Timeout)), log)
	heartbeat := config.GetDuration(cfg.Registry.HeartbeatInterval)
	if cfg.Registry.Enabled {
		go func() {
			err := retryWithBackoff(func() error {
				_, err := regClient.Register(lifetime, cfg.Registry.SupervisorURL, nil)
				return err
			}, 5, 2*time.Second, zapLog, "Supervisor registration")
			if err != nil {
				zapLog.Error("supervisor registration failed", zap.Error(err))
				return
			}
			regClient.StartHeartbeat(lifetime, heartbeat)
		}()
	}

	// --- HTTP API ---
	server := api.NewServer(api.Dependencies{
		Agent:             loyaltyAgent,
		Catalog:           catalogOrNil(catalog),
		Memory:            mem,
		Registry:          regClient,
		App:               cfg.App,
		Logger:            log,
		HeartbeatInterval: heartbeat,
		Lifetime:          lifetime,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLog.Info("API server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received, stopping agent...")
	case err := <-serverErr:
		zapLog.Error("API server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	stop()
	regClient.Stop()
	if regClient.Registered() {
		if err := regClient.Deregister(shutdownCtx); err != nil {
			zapLog.Warn("Error deregistering from supervisor", zap.Error(err))
		}
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down API server", zap.Error(err))
	}

	persisted := mem.PersistAll()
	zapLog.Info("Loyalty agent stopped gracefully", zap.Int("persistedEntries", persisted))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func loadCatalog(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (*store.Store, error) {
	if cfg.Data.Source != "postgres" {
		return store.LoadFiles(cfg.Data.CustomersFile, cfg.Data.TransactionsFile)
	}

	var (
		pg        *database.PostgresClient
		customers int
	)
	err := retryWithBackoff(func() error {
		var err error
		if pg == nil {
			if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
				return err
			}
		}
		if err = pg.Ping(ctx); err != nil {
			return err
		}
		// The tables may still be seeding when the server first accepts connections.
		customers, err = pg.Count(ctx, "customers")
		return err
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		if pg != nil {
			pg.Close()
		}
		return nil, err
	}
	// Reference data is read once; the pool is not needed afterwards.
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully", zap.Int("customers", customers))

	return store.LoadPostgres(ctx, pg)
}

// catalogOrNil keeps a nil *store.Store from becoming a non-nil interface.
func catalogOrNil(s *store.Store) api.Catalog {
	if s == nil {
		return nil
	}
	return s
}

func loadMetadata(cfg *config.Config) (*agentmeta.AgentMetadata, error) {
	publicURL := cfg.Registry.PublicURL
	if publicURL == "" {
		host := cfg.Server.Host
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		publicURL = fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)
	}

	if cfg.Registry.MetadataPath == "" {
		return agentmeta.DefaultMetadata(cfg.Registry.AgentID, cfg.App.Version, publicURL), nil
	}

	m, err := agentmeta.LoadMetadata(cfg.Registry.MetadataPath)
	if err != nil {
		return nil, err
	}
	if m.APIURL == "" || cfg.Registry.PublicURL != "" {
		m.SetAPIURL(publicURL)
	}
	if problems := m.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid metadata %s: %s", cfg.Registry.MetadataPath, strings.Join(problems, "; "))
	}
	return m, nil
}

func pruneLoop(ctx context.Context, mem *memory.Manager, interval time.Duration, retentionDays int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mem.PruneOlderThan(retentionDays)
		}
	}
}
