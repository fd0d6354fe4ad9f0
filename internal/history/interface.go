// Package history persists analysis reports so past scans can be
// reviewed after the fact. Postgres, MySQL and MongoDB backends are
// supported; storage is optional and the service runs without it.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/models"
)

// Store defines what every report storage backend has to do.
type Store interface {
	SaveReport(ctx context.Context, report *ReportRecord) error
	RecentReports(ctx context.Context, limit int) ([]*ReportRecord, error)
	Ping(ctx context.Context) error
	Close() error
}

// ReportRecord is one stored scan: the per-cookie results plus the
// summary counts shown in the report header.
type ReportRecord struct {
	ID        string                  `json:"id" bson:"_id"`
	SiteHost  string                  `json:"site_host" bson:"site_host"`
	CreatedAt time.Time               `json:"created_at" bson:"created_at"`
	Stats     models.SummaryStats     `json:"summary_stats" bson:"summary_stats"`
	Results   []models.CookieAnalysis `json:"results" bson:"results"`
}

var (
	// ErrUnsupportedBackend - STORAGE_BACKEND names a backend we don't ship
	ErrUnsupportedBackend = errors.New("history: unsupported storage backend")
)

// defaultReportLimit applies when a caller asks for recent reports
// without a limit.
const defaultReportLimit = 20
