package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/makerstall/payoutsapi/internal/api"
	"github.com/makerstall/payoutsapi/internal/config"
	"github.com/makerstall/payoutsapi/internal/payout"
	"github.com/makerstall/payoutsapi/internal/reconcile"
	"github.com/makerstall/payoutsapi/internal/repository/postgres"
	"github.com/makerstall/payoutsapi/internal/shopify"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	logger.Info("Starting payouts API server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
	)

	// Initialize database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	repos := postgres.NewRepositories(db, logger)

	// Shopify order fetching with throttle-aware retry
	source := shopify.NewOrderSourceFromConfig(cfg.Shopify, logger)
	fetcher := shopify.NewOrderFetcher(source, shopify.DefaultRetryPolicy(), logger)

	// Reconciliation and payout services
	reconciler := reconcile.NewReconciler(reconcile.Options{
		LegacyStatusOverride: cfg.Payout.LegacyRefundOverride,
	})
	calc := payout.Calculator{
		Rate:         cfg.Payout.CommissionRate,
		MinThreshold: cfg.Payout.MinThreshold,
		BaseCurrency: cfg.Payout.BaseCurrency,
	}
	gen := payout.NewGenerator(fetcher, reconciler, calc, repos, logger)
	dash := payout.NewDashboard(fetcher, reconciler, cfg.Payout.CommissionRate, repos, logger, time.Now)

	// Initialize router
	router := api.NewRouter(cfg, gen, dash, repos, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // batch generation fetches paginated order history
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started successfully", zap.String("address", srv.Addr))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
