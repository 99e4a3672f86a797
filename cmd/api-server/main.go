// cmd/api-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stockshock-backend/internal/agent"
	"stockshock-backend/internal/chaos"
	"stockshock-backend/internal/common/config"
	"stockshock-backend/internal/common/database"
	"stockshock-backend/internal/common/logger"
	"stockshock-backend/internal/common/observability"
	"stockshock-backend/internal/marketdata"
	"stockshock-backend/internal/orchestrator"
	"stockshock-backend/internal/server"
	"stockshock-backend/internal/sqlguard"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting stockshock backend...",
		zap.String("environment", cfg.App.Environment),
		zap.String("address", cfg.Server.Address),
	)

	obs := observability.New("stockshock-backend")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Embedded store with retry ---
	var sqliteClient *database.SQLiteClient
	err = retryWithBackoff(func() error {
		var err error
		sqliteClient, err = database.NewSQLite(cfg.Database.SQLite)
		if err != nil {
			return err
		}
		return sqliteClient.Ping(ctx)
	}, 5, time.Second, zapLog, "SQLite initialization")
	if err != nil {
		zapLog.Fatal("embedded store unavailable", zap.Error(err))
	}
	defer sqliteClient.Close()

	// --- Optional Redis plan cache ---
	var planCache agent.PlanCache
	if cfg.Database.Redis.Enabled() {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 5, time.Second, zapLog, "Redis initialization")
		if err != nil {
			// The cache is an accelerator, not a dependency.
			zapLog.Warn("plan cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer redisClient.Close()
			planCache = redisClient
		}
	}

	// --- Schemas ---
	chaosStore := chaos.NewStore(sqliteClient.GetDB(), log)
	if err := chaosStore.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("theming schema setup failed", zap.Error(err))
	}

	marketStore := marketdata.NewStore(sqliteClient.GetDB())
	if err := marketStore.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("market data schema setup failed", zap.Error(err))
	}

	// --- Planner ---
	planner := agent.NewClient(&agent.Config{
		BaseURL:    cfg.APIs.GenAI.BaseURL,
		APIKey:     cfg.APIs.GenAI.APIKey,
		Model:      cfg.APIs.GenAI.Model,
		Timeout:    config.GetDuration(cfg.APIs.GenAI.Timeout),
		MaxRetries: cfg.APIs.GenAI.MaxRetries,
		CacheTTL:   config.GetDuration(cfg.APIs.GenAI.CacheTTL),
	}, planCache, log)

	guard := sqlguard.New(&sqlguard.Config{
		AllowedTables:     cfg.Guard.AllowedTables,
		ForbiddenKeywords: cfg.Guard.ForbiddenKeywords,
	})

	orch := orchestrator.New(planner, guard, marketStore, chaosStore, obs, log)

	srv := server.New(orch, chaosStore, sqliteClient, obs, &cfg.Server, log)

	// --- Run until SIGINT/SIGTERM ---
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(runCtx); err != nil {
		zapLog.Fatal("http server failed", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
