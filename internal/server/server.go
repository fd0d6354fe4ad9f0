// Package server exposes the analysis pipeline over HTTP for the
// browser extension and dashboard.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/eventbus"
	"github.com/aiscihub/cookieguard-ai/internal/history"
	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/aiscihub/cookieguard-ai/internal/overrides"
	"github.com/aiscihub/cookieguard-ai/internal/pipeline"
)

// OverrideStore is the slice of the Redis store the server uses.
type OverrideStore interface {
	Mute(ctx context.Context, override overrides.Override) error
	Unmute(ctx context.Context, domain, name string) error
	IsMuted(ctx context.Context, domain, name string) (bool, error)
	ListMuted(ctx context.Context, domain string) ([]overrides.Override, error)
	Ping(ctx context.Context) error
}

// FindingPublisher is the slice of the event bus publisher the server
// uses.
type FindingPublisher interface {
	PublishFinding(finding *eventbus.Finding) error
	PublishScanCompleted(scanID string, siteHost string, stats models.SummaryStats) error
	IsConnected() bool
}

// Deps carries the server's collaborators. Overrides, History and
// Publisher are optional; the matching endpoints degrade when absent.
type Deps struct {
	Analyzer    *pipeline.Analyzer
	Overrides   OverrideStore
	History     history.Store
	Publisher   FindingPublisher
	ModelLoaded bool
}

type Server struct {
	analyzer    *pipeline.Analyzer
	overrides   OverrideStore
	history     history.Store
	publisher   FindingPublisher
	modelLoaded bool
	httpServer  *http.Server // Store server instance for graceful shutdown
}

func NewServer(deps Deps) *Server {
	return &Server{
		analyzer:    deps.Analyzer,
		overrides:   deps.Overrides,
		history:     deps.History,
		publisher:   deps.Publisher,
		modelLoaded: deps.ModelLoaded,
	}
}

func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	log.Printf("HTTP Server listening on: %s", addr)
	return s.httpServer.ListenAndServe()
}

// Handler builds the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/demo", s.handleDemo)
	mux.HandleFunc("/api/export-report", s.handleExportReport)
	mux.HandleFunc("/api/overrides", s.handleOverrides)
	mux.HandleFunc("/api/reports", s.handleReports)
	mux.HandleFunc("/health", s.handleHealth)

	return s.enableCORS(s.logRequests(mux))
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	log.Printf("Stopping HTTP server...")

	// 5 second timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	log.Printf("HTTP server stopped successfully")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
