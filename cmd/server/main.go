package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/riteshkumar/ledger-replay/internal/config"
	"github.com/riteshkumar/ledger-replay/internal/handler"
	"github.com/riteshkumar/ledger-replay/internal/repository"
	"github.com/riteshkumar/ledger-replay/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Initialise logger
	logger, err := cfg.NewLogger(os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// Persistence is optional; without DB_HOST replays are only returned.
	var replayRepo repository.ReplayRepository
	if cfg.PersistenceEnabled() {
		db, err := connectDB(cfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()

		logger.Info("connected to database successfully")

		repo := repository.NewReplayRepository(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Error("failed to prepare database schema", "error", err.Error())
			os.Exit(1)
		}
		replayRepo = repo
	} else {
		logger.Info("DB_HOST not set, replay persistence disabled")
	}

	replayService := service.NewReplayService(replayRepo, logger)
	replayHandler := handler.NewReplayHandler(replayService, logger)

	// Setup router
	router := mux.NewRouter()
	replayHandler.RegisterRoutes(router)

	// Add health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Add middleware for logging
	router.Use(handler.LoggingMiddleware(logger))

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a go routine
	go func() {
		logger.Info("starting server on port " + cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err.Error())
	}

	logger.Info("server exited gracefully")
}

// connectDB establishes a connection to the Postgres database
func connectDB(cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
