package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"lastbite/internal/config"
	"lastbite/internal/database"
	"lastbite/internal/handler"
	"lastbite/internal/pickupcode"
	"lastbite/internal/repository"
	"lastbite/internal/router"
	"lastbite/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting lastbite API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool, logger)
	eventRepo := repository.NewEventRepository(pool, logger)
	invoiceRepo := repository.NewInvoiceRepository(pool, logger)
	mealRepo := repository.NewMealRepository(pool, logger)

	// Initialize the code codec
	codec, err := pickupcode.NewCodec([]byte(cfg.Pickup.EncryptionKey))
	if err != nil {
		return fmt.Errorf("failed to initialize code codec: %w", err)
	}

	// Initialize services
	notifier := service.NewLogNotifier(logger)
	orderService := service.NewOrderService(
		orderRepo, eventRepo, mealRepo,
		codec, notifier,
		cfg.Pickup, cfg.Settlement.DefaultCommissionRate,
		logger,
	)
	expiryService := service.NewExpiryService(orderRepo, eventRepo, mealRepo, cfg.Pickup, logger)
	invoiceService := service.NewInvoiceService(orderRepo, invoiceRepo, mealRepo, cfg.Settlement, logger)

	// Start background jobs
	var background sync.WaitGroup
	background.Add(1)
	go func() {
		defer background.Done()
		expiryService.Run(ctx)
	}()
	background.Add(1)
	go func() {
		defer background.Done()
		invoiceService.Run(ctx)
	}()

	// Initialize HTTP handlers
	orderHandler := handler.NewOrderHandler(orderService, logger)
	settlementHandler := handler.NewSettlementHandler(invoiceService, logger)

	// Initialize router
	mux := router.New(orderHandler, settlementHandler, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Stop background jobs first so no sweep runs during shutdown
		cancel()
		background.Wait()

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
