// Package archive stores completed classification runs in PostGIS.
package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TechRanger101/AgriSense-App/internal/pipeline"
	"github.com/TechRanger101/AgriSense-App/pkg/geojson"
)

// execer is the subset of *pgxpool.Pool used by the recorder.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS classification_runs (
	id            BIGSERIAL PRIMARY KEY,
	product       TEXT NOT NULL,
	mode          TEXT NOT NULL,
	acquired_on   DATE,
	query         GEOMETRY(Geometry, 4326),
	feature_count INTEGER NOT NULL,
	skipped_count INTEGER NOT NULL,
	duration_ms   BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS classification_runs_query_idx ON classification_runs USING GIST (query);
`

const insertSQL = `
	INSERT INTO classification_runs (
		product, mode, acquired_on, query, feature_count, skipped_count, duration_ms
	) VALUES ($1, $2, $3, ST_GeomFromText($4, 4326), $5, $6, $7)
`

// PostGISRecorder implements pipeline.Recorder on a PostGIS table.
type PostGISRecorder struct {
	db   execer
	pool *pgxpool.Pool
}

// Connect opens a pool to url with at most maxConns connections and checks
// that the server is reachable.
func Connect(ctx context.Context, url string, maxConns int32) (*PostGISRecorder, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid database URL: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to reach database: %w", err)
	}

	return &PostGISRecorder{db: pool, pool: pool}, nil
}

// NewPostGISRecorder wraps an existing pool.
func NewPostGISRecorder(pool *pgxpool.Pool) *PostGISRecorder {
	return &PostGISRecorder{db: pool, pool: pool}
}

// EnsureSchema creates the PostGIS extension and the runs table.
func (r *PostGISRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: failed to create schema: %w", err)
	}
	return nil
}

// Record inserts one run.
func (r *PostGISRecorder) Record(ctx context.Context, rec pipeline.RunRecord) error {
	var wkt *string
	if rec.Query != nil {
		s, err := geojson.ToWKT(rec.Query)
		if err != nil {
			return fmt.Errorf("postgres: failed to encode query: %w", err)
		}
		wkt = &s
	}

	var acquired any
	if !rec.AcquiredOn.IsZero() {
		acquired = rec.AcquiredOn.UTC()
	}

	_, err := r.db.Exec(ctx, insertSQL,
		rec.Product, rec.Kind, acquired, wkt,
		rec.Features, rec.Skipped, rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save run: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *PostGISRecorder) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
