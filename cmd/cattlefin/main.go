package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/haya4M/cattle-fin-mobile/internal/amqp"
	"github.com/haya4M/cattle-fin-mobile/internal/config"
	apphttp "github.com/haya4M/cattle-fin-mobile/internal/http"
	applog "github.com/haya4M/cattle-fin-mobile/internal/log"
	"github.com/haya4M/cattle-fin-mobile/internal/services"
	"github.com/haya4M/cattle-fin-mobile/internal/sheets"
	gsheet "github.com/haya4M/cattle-fin-mobile/internal/sheets/google"
	"github.com/haya4M/cattle-fin-mobile/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(os.Getenv("LOG_LEVEL")),
		Component: "api",
	})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The broker and the spreadsheet mirror are optional for the API: without
	// them writes still land in SQLite, and the worker's poller picks up
	// transactions later. Headcounts mirror straight from the write path
	// since the registry has no sync queue.
	var (
		amqpClient      *amqp.Client
		headcountMirror sheets.HeadcountAppender
	)
	if cfg.SheetsEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on the worker poller", "error", err)
			amqpClient = nil
		}

		sheetsClient, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Warn("Google Sheets unavailable, headcounts stay local", "error", err)
		} else {
			headcountMirror = sheetsClient
		}
	} else {
		logger.Info("Spreadsheet mirror disabled - skipping AMQP setup")
	}

	txService := services.NewTransactionService(repo, amqpClient, headcountMirror)
	defer txService.Close()

	reportService := services.NewReportService(repo)

	srv := apphttp.NewServer(":"+cfg.Port, txService, reportService, cfg.ReportCacheTTL)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting cattlefin server", "port", cfg.Port, "db", cfg.SQLiteDBPath, "mirror_enabled", cfg.SheetsEnabled())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
