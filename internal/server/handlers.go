package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/demo"
	"github.com/aiscihub/cookieguard-ai/internal/eventbus"
	"github.com/aiscihub/cookieguard-ai/internal/history"
	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/aiscihub/cookieguard-ai/internal/overrides"
	"github.com/aiscihub/cookieguard-ai/internal/pipeline"
	"github.com/aiscihub/cookieguard-ai/internal/report"
	"github.com/aiscihub/cookieguard-ai/internal/system"
)

type analyzeRequest struct {
	Cookies  []models.CookieRecord `json:"cookies"`
	Context  *models.LoginContext  `json:"context,omitempty"`
	SiteHost string                `json:"site_host,omitempty"`
}

type analyzeResponse struct {
	models.BatchResult
	Muted int `json:"muted"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not supported", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if len(req.Cookies) == 0 {
		writeError(w, http.StatusBadRequest, "No cookies provided")
		return
	}

	result := s.analyzer.AnalyzeBatch(r.Context(), pipeline.BatchRequest{
		Cookies:  req.Cookies,
		Context:  req.Context,
		SiteHost: req.SiteHost,
		Now:      time.Now(),
	})

	muted := s.filterMuted(r, &result)

	scanID := s.saveReport(r, req.SiteHost, result)
	s.publishFindings(req.SiteHost, result)
	s.publishScanSummary(scanID, req.SiteHost, result.SummaryStats)

	writeJSON(w, http.StatusOK, analyzeResponse{BatchResult: result, Muted: muted})
}

// filterMuted drops results the user has muted and recomputes the
// summary counts over what remains.
func (s *Server) filterMuted(r *http.Request, result *models.BatchResult) int {
	if s.overrides == nil {
		return 0
	}

	muted := 0
	kept := make([]models.CookieAnalysis, 0, len(result.Results))
	for _, analysis := range result.Results {
		isMuted, err := s.overrides.IsMuted(r.Context(), analysis.CookieDomain, analysis.CookieName)
		if err != nil {
			log.Printf("Warning: failed to check override for %s: %v", analysis.CookieName, err)
		}
		if isMuted {
			muted++
			continue
		}
		kept = append(kept, analysis)
	}

	if muted > 0 {
		result.Results = kept
		result.SummaryStats = pipeline.Tally(kept)
	}

	return muted
}

func (s *Server) saveReport(r *http.Request, siteHost string, result models.BatchResult) string {
	if s.history == nil {
		return ""
	}

	record := &history.ReportRecord{
		SiteHost: siteHost,
		Stats:    result.SummaryStats,
		Results:  result.Results,
	}

	if err := s.history.SaveReport(r.Context(), record); err != nil {
		log.Printf("Warning: failed to save report: %v", err)
		return ""
	}

	return record.ID
}

func (s *Server) publishFindings(siteHost string, result models.BatchResult) {
	if s.publisher == nil {
		return
	}

	for i := range result.Results {
		analysis := &result.Results[i]
		severity := analysis.Risk.Severity
		if severity != models.SeverityCritical && severity != models.SeverityHigh {
			continue
		}

		if err := s.publisher.PublishFinding(eventbus.NewFinding(siteHost, analysis)); err != nil {
			log.Printf("Warning: failed to publish finding for %s: %v", analysis.CookieName, err)
		}
	}
}

func (s *Server) publishScanSummary(scanID string, siteHost string, stats models.SummaryStats) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.PublishScanCompleted(scanID, siteHost, stats); err != nil {
		log.Printf("Warning: failed to publish scan summary: %v", err)
	}
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not supported", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cookies":   demo.Cookies(time.Now()),
		"site_host": demo.SiteHost,
	})
}

type exportRequest struct {
	Results   []models.CookieAnalysis `json:"results"`
	Stats     models.SummaryStats     `json:"summary_stats"`
	Timestamp string                  `json:"timestamp"`
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not supported", http.StatusMethodNotAllowed)
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var generatedAt time.Time
	if req.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, req.Timestamp); err == nil {
			generatedAt = parsed
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"report": report.Generate(req.Results, req.Stats, generatedAt),
	})
}

func (s *Server) handleOverrides(w http.ResponseWriter, r *http.Request) {
	if s.overrides == nil {
		writeError(w, http.StatusServiceUnavailable, "Override store not available")
		return
	}

	switch r.Method {
	case http.MethodGet:
		domain := r.URL.Query().Get("domain")
		if domain == "" {
			writeError(w, http.StatusBadRequest, "Domain parameter required")
			return
		}

		muted, err := s.overrides.ListMuted(r.Context(), domain)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"overrides": muted})

	case http.MethodPost:
		var override overrides.Override
		if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if override.CookieName == "" || override.CookieDomain == "" {
			writeError(w, http.StatusBadRequest, "Cookie name and domain required")
			return
		}

		if override.MutedAt.IsZero() {
			override.MutedAt = time.Now().UTC()
		}

		if err := s.overrides.Mute(r.Context(), override); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, override)

	case http.MethodDelete:
		domain := r.URL.Query().Get("domain")
		name := r.URL.Query().Get("name")
		if domain == "" || name == "" {
			writeError(w, http.StatusBadRequest, "Domain and name parameters required")
			return
		}

		if err := s.overrides.Unmute(r.Context(), domain, name); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "unmuted"})

	default:
		http.Error(w, "Method not supported", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not supported", http.StatusMethodNotAllowed)
		return
	}

	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "Report history not available")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	reports, err := s.history.RecentReports(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

var startTime time.Time

func init() {
	startTime = time.Now()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not supported", http.StatusMethodNotAllowed)
		return
	}

	payload := map[string]interface{}{
		"status":         "healthy",
		"model_loaded":   s.modelLoaded,
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
	}

	metrics, err := system.Collect()
	if err == nil {
		payload["system"] = metrics.ToMap()
	}

	components := map[string]bool{
		"eventbus":  s.publisher != nil && s.publisher.IsConnected(),
		"overrides": s.overrides != nil && s.overrides.Ping(r.Context()) == nil,
		"history":   s.history != nil && s.history.Ping(r.Context()) == nil,
	}
	payload["components"] = components

	writeJSON(w, http.StatusOK, payload)
}
