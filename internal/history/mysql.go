package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

const createReportsTableMySQL = `
	CREATE TABLE IF NOT EXISTS analysis_reports (
		id CHAR(36) PRIMARY KEY,
		site_host VARCHAR(255) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		summary_stats JSON NOT NULL,
		results JSON NOT NULL,
		KEY idx_analysis_reports_created_at (created_at)
	)
`

// MySQLStore persists reports to MySQL. The DSN must include
// parseTime=true so created_at scans back into time.Time.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	store := &MySQLStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (m *MySQLStore) migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createReportsTableMySQL); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	return nil
}

func (m *MySQLStore) SaveReport(ctx context.Context, report *ReportRecord) error {
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
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = m.db.ExecContext(ctx, query, report.ID, report.SiteHost, report.CreatedAt, statsJSON, resultsJSON)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	return nil
}

func (m *MySQLStore) RecentReports(ctx context.Context, limit int) ([]*ReportRecord, error) {
	if limit <= 0 {
		limit = defaultReportLimit
	}

	query := `
		SELECT id, site_host, created_at, summary_stats, results
		FROM analysis_reports
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := m.db.QueryContext(ctx, query, limit)
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

func (m *MySQLStore) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLStore) Close() error {
	if m.db != nil {
		err := m.db.Close()
		m.db = nil
		return err
	}
	return nil
}

func (m *MySQLStore) GetDB() *sql.DB {
	return m.db
}
