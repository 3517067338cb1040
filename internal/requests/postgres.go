package requests

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Source = (*PostgresSource)(nil)

// PostgresConfig holds connection parameters for the request source database.
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	QueryTimeout    time.Duration
}

// PostgresSource reads current request snapshots from the workflow database.
// Scenario queries must yield exactly three columns: id, status id and the
// change token, in that order.
type PostgresSource struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
	logger       *slog.Logger
}

// NewPostgresSource connects to the workflow database and verifies the
// connection with a ping.
func NewPostgresSource(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*PostgresSource, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresSource{pool: pool, queryTimeout: cfg.QueryTimeout, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresSource) Close() { s.pool.Close() }

// Current executes the scenario query and scans the rows into snapshots.
// Rows with an empty id are skipped individually with a warning; the rest of
// the result is still returned.
func (s *PostgresSource) Current(ctx context.Context, query string) ([]Snapshot, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying current requests: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.StatusID, &snap.ChangeDateTime); err != nil {
			return nil, fmt.Errorf("scanning request row: %w", err)
		}
		if snap.ID == "" {
			s.logger.Warn("skipping request row with empty id", "status_id", snap.StatusID)
			continue
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating request rows: %w", err)
	}
	return out, nil
}
