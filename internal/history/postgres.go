package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createReportsTable = `
	CREATE TABLE IF NOT EXISTS analysis_reports (
		id UUID PRIMARY KEY,
		site_host TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		summary_stats JSONB NOT NULL,
		results JSONB NOT NULL
	)
`

const createReportsIndex = `
	CREATE INDEX IF NOT EXISTS idx_analysis_reports_created_at
	ON analysis_reports (created_at DESC)
`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connectionString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

func (p *PostgresStore) migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, createReportsTable); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	if _, err := p.pool.Exec(ctx, createReportsIndex); err != nil {
		return fmt.Errorf("failed to create reports index: %w", err)
	}

	return nil
}

func (p *PostgresStore) SaveReport(ctx context.Context, report *ReportRecord) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	statsJSON, err := json.Marshal(report.Stats)
	if err != nil {
		return fmt.Errorf("failed to marshal summary stats: %w", err)
	}

	resultsJSON, err := json.Marshal(report.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	query := `
		INSERT INTO analysis_reports (id, site_host, created_at, summary_stats, results)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = p.pool.Exec(ctx, query, report.ID, report.SiteHost, report.CreatedAt, statsJSON, resultsJSON)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	return nil
}

func (p *PostgresStore) RecentReports(ctx context.Context, limit int) ([]*ReportRecord, error) {
	if limit <= 0 {
		limit = defaultReportLimit
	}

	query := `
		SELECT id, site_host, created_at, summary_stats, results
		FROM analysis_reports
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := p.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*ReportRecord, 0, limit)

	for rows.Next() {
		var report ReportRecord
		var statsJSON, resultsJSON []byte

		if err := rows.Scan(&report.ID, &report.SiteHost, &report.CreatedAt, &statsJSON, &resultsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		if err := json.Unmarshal(statsJSON, &report.Stats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summary stats: %w", err)
		}
		if err := json.Unmarshal(resultsJSON, &report.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}

		reports = append(reports, &report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}

	return reports, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

func (p *PostgresStore) GetPool() *pgxpool.Pool {
	return p.pool
}
