// Package postgres reads crime reports from a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/crime-watch/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is the table the source reads. EnsureSchema applies it.
const schema = `CREATE TABLE IF NOT EXISTS crime_reports (
	id                text PRIMARY KEY,
	incident_type     text NOT NULL,
	incident_severity text NOT NULL DEFAULT '',
	incident_date     date NOT NULL,
	incident_time     time,
	status            text NOT NULL DEFAULT 'New',
	latitude          double precision NOT NULL,
	longitude         double precision NOT NULL,
	created_at        timestamptz NOT NULL DEFAULT now()
)`

const selectReports = `SELECT id, incident_type, incident_severity,
	to_char(incident_date, 'YYYY-MM-DD'),
	coalesce(to_char(incident_time, 'HH24:MI:SS'), ''),
	status, latitude, longitude, created_at
FROM crime_reports
ORDER BY created_at, id`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var newPool = pgxpool.New

// Source implements dashboard.ReportFetcher over the crime_reports table.
type Source struct {
	db   querier
	pool *pgxpool.Pool
}

// Open connects a pool to dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*Source, error) {
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Source{db: pool, pool: pool}, nil
}

// Close releases the pool.
func (s *Source) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the crime_reports table when it does not exist.
func (s *Source) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create crime_reports: %w", err)
	}
	return nil
}

// FetchReports returns every row of crime_reports, oldest first.
func (s *Source) FetchReports(ctx context.Context) ([]domain.CrimeReport, error) {
	rows, err := s.db.Query(ctx, selectReports)
	if err != nil {
		return nil, fmt.Errorf("query crime_reports: %w", err)
	}
	defer rows.Close()

	reports := []domain.CrimeReport{}
	for rows.Next() {
		var (
			r         domain.CrimeReport
			lat, lon  float64
			createdAt time.Time
		)
		if err := rows.Scan(&r.ID, &r.IncidentType, &r.IncidentSeverity, &r.Date, &r.Time,
			&r.Status, &lat, &lon, &createdAt); err != nil {
			return nil, fmt.Errorf("scan crime_reports row: %w", err)
		}
		r.Location = domain.NewPoint(lat, lon)
		r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read crime_reports: %w", err)
	}
	return reports, nil
}
