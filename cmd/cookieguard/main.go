package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aiscihub/cookieguard-ai/internal/config"
	"github.com/aiscihub/cookieguard-ai/internal/orchestrator"
)

// main is the entry point for the CookieGuard analysis service.
//
// The service is responsible for:
//   - Scoring browser cookies for security risk via the HTTP API
//   - Classifying cookies with the trained model (rules fallback)
//   - Filtering findings muted by the Redis override store
//   - Persisting scan reports to Postgres, MySQL or MongoDB
//   - Publishing critical and high findings to NATS for downstream consumers
//
// Lifecycle:
//  1. Load configuration from environment variables
//  2. Initialize orchestrator with the pipeline and service connections
//  3. Start the HTTP API server
//  4. Listen for shutdown signals (SIGINT, SIGTERM)
//  5. Gracefully close all connections on shutdown
func main() {
	log.Printf("CookieGuard AI starting...")

	// Load configuration from environment variables and .env file
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded successfully")
	log.Printf("  HTTP Port: %s", cfg.HTTPPort)
	log.Printf("  NATS URL: %s", cfg.NatsURL)
	log.Printf("  Model Path: %s", cfg.ModelPath)
	log.Printf("  Analysis Workers: %d", cfg.AnalysisWorkers)
	log.Printf("  Auth Gate Threshold: %.2f", cfg.Thresholds.AuthGate)
	log.Printf("  Redis Address: %s", cfg.RedisAddr)
	log.Printf("  Storage Backend: %s", cfg.StorageBackend)

	// Create orchestrator to manage service lifecycle
	orch := orchestrator.NewOrchestrator(cfg)

	// Initialize the pipeline and service connections
	if err := orch.Start(); err != nil {
		log.Fatalf("Failed to start orchestrator: %v", err)
	}

	// Setup graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Listen for shutdown signals (Ctrl+C, Docker stop, k8s termination)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start the HTTP server in background goroutine
	go func() {
		if err := orch.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Orchestrator error: %v", err)
		}
	}()

	// Block until shutdown signal received
	<-sigChan
	log.Printf("Shutdown signal received, initiating graceful shutdown...")

	// Cancel context to stop servers
	cancel()

	// Close all connections and cleanup resources
	if err := orch.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Printf("CookieGuard stopped successfully")
}
