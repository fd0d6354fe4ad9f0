package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/classifier"
	"github.com/aiscihub/cookieguard-ai/internal/config"
	"github.com/aiscihub/cookieguard-ai/internal/eventbus"
	"github.com/aiscihub/cookieguard-ai/internal/history"
	"github.com/aiscihub/cookieguard-ai/internal/overrides"
	"github.com/aiscihub/cookieguard-ai/internal/pipeline"
	"github.com/aiscihub/cookieguard-ai/internal/server"
)

// Orchestrator manages the CookieGuard service lifecycle and coordinates
// the analysis pipeline, storage connections, and the HTTP API server.
//
// Lifecycle:
//  1. Start() - Loads the model, connects Redis, history and NATS, builds the HTTP server
//  2. Run() - Starts the server and blocks until context is cancelled
//  3. Stop() - Gracefully closes all connections and resources
//
// The orchestrator implements graceful degradation:
//   - Model load failure: classification falls back to rules (analysis continues)
//   - Redis failure: mute overrides unavailable (every finding is reported)
//   - History failure: scan reports are not persisted
//   - NATS failure: findings are not published to the event bus
type Orchestrator struct {
	config *config.Config

	// Core components
	analyzer    *pipeline.Analyzer
	modelLoaded bool

	// Downstream service connections
	overrideStore *overrides.Store    // Redis-backed mute store
	historyStore  history.Store       // Postgres, MySQL or Mongo report history
	natsPublisher *eventbus.Publisher // NATS publisher for findings

	// Servers
	httpServer *server.Server
}

// NewOrchestrator creates a new Orchestrator instance with the provided configuration.
// The orchestrator is not started until Start() is called.
func NewOrchestrator(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		config: cfg,
	}
}

// Start initializes the pipeline and all service connections.
// This method must be called before Run().
//
// Start connects to:
//   - Model artifact on disk (optional - rule-based fallback when missing)
//   - Redis (optional - mute overrides)
//   - Postgres, MySQL or MongoDB (optional - report history)
//   - NATS event bus (optional - finding publication)
//   - HTTP server (required - analysis API)
//
// Every downstream connection degrades with a logged warning on failure.
func (o *Orchestrator) Start() error {
	log.Printf("Starting CookieGuard Orchestrator...")

	o.initializeAnalyzer()

	// Connect to downstream services
	o.connectOverrides()
	o.connectHistory()
	o.connectNATS()

	o.initializeHTTPServer()

	log.Printf("CookieGuard Orchestrator started successfully")
	return nil
}

// initializeAnalyzer loads the trained model and builds the analysis
// pipeline. A missing or incompatible artifact is not fatal; the
// pipeline runs rule-based classification instead.
func (o *Orchestrator) initializeAnalyzer() {
	var model classifier.Classifier

	loaded, err := classifier.LoadModel(o.config.ModelPath)
	if err != nil {
		log.Printf("Warning: failed to load model from %s: %v", o.config.ModelPath, err)
		log.Printf("Classification will use rules only")
	} else {
		model = loaded
		o.modelLoaded = true
		log.Printf("Loaded model from: %s", o.config.ModelPath)

		if card, cardErr := classifier.LoadModelCard(o.config.ModelCardPath); cardErr == nil {
			log.Printf("Model version %s (%s, trained on %d samples)", card.ModelVersion, card.Algorithm, card.Samples)
		}
	}

	o.analyzer = pipeline.NewAnalyzer(pipeline.Options{
		Model:            model,
		GateThreshold:    o.config.Thresholds.AuthGate,
		ReviewConfidence: o.config.Thresholds.ReviewConfidence,
		Workers:          o.config.AnalysisWorkers,
	})
	log.Printf("Analysis pipeline initialized with %d workers", o.config.AnalysisWorkers)
}

// connectOverrides establishes the Redis connection backing mute
// overrides. Without Redis every finding is reported.
func (o *Orchestrator) connectOverrides() {
	log.Printf("Connecting to Redis at: %s (DB: %d)", o.config.RedisAddr, o.config.RedisDB)

	store, err := overrides.NewStore(o.config.RedisAddr, o.config.RedisPassword, o.config.RedisDB, o.config.OverrideTTL)
	if err != nil {
		log.Printf("Warning: failed to connect to Redis: %v", err)
		log.Printf("Mute overrides will be unavailable")
		return
	}

	o.overrideStore = store
}

// connectHistory establishes the report history connection named by
// STORAGE_BACKEND. Without it scan reports are not persisted.
func (o *Orchestrator) connectHistory() {
	if o.config.StorageBackend == "none" || o.config.StorageBackend == "" {
		log.Printf("Report history disabled (STORAGE_BACKEND=none)")
		return
	}

	log.Printf("Connecting to report history backend: %s", o.config.StorageBackend)

	var connStr string
	switch o.config.StorageBackend {
	case "mysql":
		connStr = o.config.MySQLDSN
	case "mongo", "mongodb":
		connStr = o.config.MongoURI
	default:
		connStr = o.config.DatabaseURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := history.NewStore(ctx, o.config.StorageBackend, connStr, o.config.MongoDatabase)
	if err != nil {
		log.Printf("Warning: failed to connect to report history: %v", err)
		log.Printf("Scan reports will not be persisted")
		return
	}

	o.historyStore = store
	log.Printf("Connected to report history (%s)", o.config.StorageBackend)
}

// connectNATS establishes the event bus connection used to publish
// findings and scan summaries for downstream consumers.
func (o *Orchestrator) connectNATS() {
	log.Printf("Connecting to NATS at: %s", o.config.NatsURL)

	publisher, err := eventbus.NewPublisher(o.config.NatsURL)
	if err != nil {
		log.Printf("Warning: failed to connect to NATS: %v", err)
		log.Printf("Findings will not be published to the event bus")
		return
	}

	o.natsPublisher = publisher
}

// initializeHTTPServer builds the analysis API server from whichever
// components came up.
func (o *Orchestrator) initializeHTTPServer() {
	log.Printf("Initializing HTTP server on port: %s", o.config.HTTPPort)

	deps := server.Deps{
		Analyzer:    o.analyzer,
		History:     o.historyStore,
		ModelLoaded: o.modelLoaded,
	}
	// Assign optional components only when connected so the server sees
	// nil interfaces, not nil pointers.
	if o.overrideStore != nil {
		deps.Overrides = o.overrideStore
	}
	if o.natsPublisher != nil {
		deps.Publisher = o.natsPublisher
	}

	o.httpServer = server.NewServer(deps)
	log.Printf("HTTP server initialized on port %s", o.config.HTTPPort)
}

// Run starts the HTTP server and blocks until the context is cancelled
// or the server fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Printf("Starting servers...")

	httpErrChan := make(chan error, 1)
	go func() {
		addr := ":" + o.config.HTTPPort
		if err := o.httpServer.Start(addr); err != nil {
			httpErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	log.Printf("CookieGuard ready - analysis API on port %s", o.config.HTTPPort)

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		log.Printf("Shutdown signal received")
		return ctx.Err()
	case err := <-httpErrChan:
		return err
	}
}

// Stop gracefully closes all connections and releases resources.
// This method should be called during application shutdown.
func (o *Orchestrator) Stop() error {
	log.Printf("Stopping Orchestrator...")

	// Stop HTTP server gracefully
	if o.httpServer != nil {
		if err := o.httpServer.Stop(); err != nil {
			log.Printf("Error stopping HTTP server: %v", err)
		}
	}

	// Close NATS publisher
	if o.natsPublisher != nil {
		o.natsPublisher.Close()
	}

	// Close report history
	if o.historyStore != nil {
		if err := o.historyStore.Close(); err != nil {
			log.Printf("Error closing report history: %v", err)
		}
	}

	// Close Redis connection
	if o.overrideStore != nil {
		if err := o.overrideStore.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}

	log.Printf("Orchestrator stopped successfully")
	return nil
}
