package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marginality/indexing-admin/internal/api"
	"github.com/marginality/indexing-admin/internal/config"
	"github.com/marginality/indexing-admin/internal/indexer"
	"github.com/marginality/indexing-admin/internal/logger"
	"github.com/marginality/indexing-admin/internal/repository"
	"github.com/marginality/indexing-admin/internal/service"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize logger
	appLog := logger.NewDefault()
	logger.SetDefaultLogger(appLog)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	testRunRepo := repository.NewTestRunRepository(db, appLog)
	fixtureRepo := repository.NewFixtureRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	indexingRunRepo := repository.NewIndexingRunRepository(db)

	// Initialize indexer client
	indexerClient := indexer.NewClient(&indexer.Config{
		BaseURL:    cfg.Indexer.BaseURL,
		ServiceKey: cfg.Indexer.ServiceKey,
		Timeout:    cfg.Indexer.Timeout,
	})

	// Initialize services
	testRunService := service.NewTestRunService(testRunRepo, indexerClient, appLog)
	unlockService := service.NewUnlockService(videoRepo, channelRepo, indexerClient, appLog)
	fixtureService := service.NewFixtureService(testRunRepo, fixtureRepo, appLog)
	opsService := service.NewOpsService(indexingRunRepo, appLog)

	// Setup router
	router := api.SetupRouter(cfg, &api.Services{
		TestRuns: testRunService,
		Unlock:   unlockService,
		Fixtures: fixtureService,
		Ops:      opsService,
		Ledger:   testRunRepo,
	}, appLog)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLog.WithField("port", cfg.Server.Port).
			WithField("mode", cfg.Server.Mode).
			Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Fatal("Server forced to shutdown")
	}

	appLog.Info("Server exited")
}
