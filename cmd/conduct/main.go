package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/mementohq/conduct/internal/engine"
	"github.com/mementohq/conduct/internal/entities"
	"github.com/mementohq/conduct/internal/logging"
	"github.com/mementohq/conduct/internal/scheduler"
	"github.com/mementohq/conduct/internal/store"
	"github.com/mementohq/conduct/internal/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "conduct:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()
	logger := setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(conductDir(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	validator, err := validation.NewParamsValidator()
	if err != nil {
		return fmt.Errorf("compile parameter schemas: %w", err)
	}

	// In-memory entity stores back the engine until the surrounding
	// application registers its own repositories.
	registry := entities.NewRegistry(nil)
	for _, t := range []string{"note", "task", "project", "person"} {
		registry.Register(t, entities.NewMemoryRepository())
	}
	links := entities.NewMemoryLinkStore()
	reminders := entities.NewMemoryReminderStore()

	runner := engine.NewRunner(st, registry, links, reminders, validator, logger)
	workflows := engine.NewWorkflowExecutor(st, runner, logger)

	sched := scheduler.NewScheduler(st, func(ctx context.Context, tenantID, workflowID string, triggerData map[string]any) error {
		res := workflows.Execute(ctx, tenantID, workflowID, triggerData)
		if !res.Success {
			return fmt.Errorf("workflow %s: %s", workflowID, strings.Join(res.Errors, "; "))
		}
		return nil
	}, logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	logger.Info("conduct engine started",
		slog.String("db_path", cfg.DBPath),
		slog.String("tenant_id", cfg.TenantID))

	<-ctx.Done()
	logger.Info("shutting down")

	if err := sched.Stop(); err != nil {
		logger.Error("stop scheduler", slog.String("error", err.Error()))
	}
	workflows.Drain()
	return nil
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339Nano,
	})
	logger := slog.New(logging.NewCorrelationHandler(handler))
	slog.SetDefault(logger)
	return logger
}
