/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Warp Royalty Engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env file, then environment variables)
  2. Build the structured logger
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start the period-close scheduler
  6. Start server with graceful shutdown

CONFIGURATION:
  All config is environment-driven; see config/config.go for the full
  list. The ones that matter most:
    PORT                HTTP server port (default: 8080)
    DATA_PATH           SQLite database path (default: royalty.db)
                        Use ":memory:" for an in-memory database
    PERIOD_SCHEME       quarterly | monthly | semiannual | annual
    SCHEDULER_ENABLED   Automatic period close on/off

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Stop the scheduler and wait for an in-flight sweep
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  DATA_PATH=./data/royalty.db ./server

  # Run with in-memory database on another port
  DATA_PATH=":memory:" PORT=3000 ./server

SEE ALSO:
  - config/config.go: Environment loading and defaults
  - api/server.go: Router configuration
  - api/scheduler.go: Automatic period close
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/royalty-engine/api"
	"github.com/warp/royalty-engine/config"
	"github.com/warp/royalty-engine/obs"
	"github.com/warp/royalty-engine/royalty"
	"github.com/warp/royalty-engine/store/sqlite"
)

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
		Str("env", cfg.AppEnv).
		Logger()

	store, err := sqlite.New(cfg.DataPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DataPath).Msg("failed to initialize database")
	}
	defer store.Close()

	periods := royalty.PeriodConfig{
		Scheme:               royalty.ParsePeriodScheme(cfg.PeriodScheme),
		FiscalYearStartMonth: time.Month(cfg.FiscalYearStart),
	}

	handler := api.NewHandler(store, periods, logger)
	router := api.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	scheduler := api.NewPeriodCloseScheduler(store, handler.Runner, periods, logger)
	scheduler.Enabled = cfg.SchedulerEnabled
	if cfg.SchedulerInterval > 0 {
		scheduler.CheckInterval = cfg.SchedulerInterval
	}
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("scheme", string(periods.Scheme)).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
