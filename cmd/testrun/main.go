package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/marginality/indexing-admin/internal/config"
	"github.com/marginality/indexing-admin/internal/indexer"
	"github.com/marginality/indexing-admin/internal/logger"
	"github.com/marginality/indexing-admin/internal/repository"
	"github.com/marginality/indexing-admin/internal/service"
)

// Runs one indexing test run from the command line, for smoke-testing a
// deployment without going through the HTTP API.
func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "indexing-admin-testrun",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	youtubeURL := flag.String("url", "", "YouTube URL or video id to run against")
	runMode := flag.String("mode", "admin_test", "Run mode: admin_test, public, or personal")
	userID := flag.String("user", "", "Requesting admin user id (required for personal mode)")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *youtubeURL == "" {
		fmt.Fprintln(os.Stderr, "usage: testrun -url <youtube-url> [-mode admin_test] [-user <uuid>]")
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid config")
	}

	appLogger.WithFields(logger.Fields{
		"url":  *youtubeURL,
		"mode": *runMode,
	}).Info("Starting test run")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	testRunRepo := repository.NewTestRunRepository(db, appLogger)
	indexerClient := indexer.NewClient(&indexer.Config{
		BaseURL:    cfg.Indexer.BaseURL,
		ServiceKey: cfg.Indexer.ServiceKey,
		Timeout:    cfg.Indexer.Timeout,
	})
	testRunService := service.NewTestRunService(testRunRepo, indexerClient, appLogger)

	input := service.StartTestRunInput{
		YoutubeURL:   *youtubeURL,
		RunMode:      *runMode,
		CallerUserID: *userID,
	}
	if *userID != "" {
		input.RequestedByUserID = userID
	}

	result, err := testRunService.StartTestRun(context.Background(), input)
	if err != nil {
		appLogger.WithError(err).Fatal("Test run failed")
	}

	encoded, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(encoded))
}
