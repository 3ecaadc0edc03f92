// Package analytics records executed search queries in PostgreSQL and
// aggregates them into the "popular searches" feed. Recording is best
// effort: a failed insert is logged, never returned to the search path.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/studylab/lessonsearch/pkg/postgres"
)

// Store persists query events.
//
// It requires a `search_queries` table:
//
//	CREATE TABLE search_queries (
//	    id          BIGSERIAL PRIMARY KEY,
//	    query       TEXT NOT NULL,
//	    mode        TEXT NOT NULL,
//	    results     INT NOT NULL,
//	    duration_ms DOUBLE PRECISION NOT NULL,
//	    executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// QueryEvent is one executed search.
type QueryEvent struct {
	Query    string
	Mode     string
	Results  int
	Duration time.Duration
}

// QueryCount is one entry of the popular-searches aggregation.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// NewStore creates a query-analytics store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "query-analytics"),
	}
}

// Record inserts one query event. Errors are logged and swallowed so the
// search path never fails on analytics.
func (s *Store) Record(ctx context.Context, event QueryEvent) {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO search_queries (query, mode, results, duration_ms, executed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.Query, event.Mode, event.Results,
		float64(event.Duration.Microseconds())/1000,
		time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("recording query event failed", "query", event.Query, "error", err)
	}
}

// TopQueries returns the most frequent queries, most popular first.
func (s *Store) TopQueries(ctx context.Context, limit int) ([]QueryCount, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT query, COUNT(*) AS n
		 FROM search_queries
		 GROUP BY query
		 ORDER BY n DESC, query ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top searches: %w", err)
	}
	defer rows.Close()

	var top []QueryCount
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scanning top search row: %w", err)
		}
		top = append(top, qc)
	}
	return top, rows.Err()
}
