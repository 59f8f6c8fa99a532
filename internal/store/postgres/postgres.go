// Package postgres implements the embedding store on PostgreSQL with a
// pgvector column for embeddings. The clinical tables (patients,
// patient_summary) belong to the wider EMR schema and are only read here.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/clinicware/face-finder/internal/config"
)

// Pool manages a PostgreSQL connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new PostgreSQL connection pool.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// DB returns the underlying sql.DB for direct access.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// QueryRow executes a query that returns a single row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

// Exec executes a query that doesn't return rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

// Migrate sets up the patient_faces table this service owns. The embedding
// column dimension is fixed at creation time by the configured model.
func (p *Pool) Migrate(ctx context.Context, embeddingDim int) error {
	if embeddingDim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", embeddingDim)
	}

	if _, err := p.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS patient_faces (
			face_uid     UUID PRIMARY KEY,
			patient_id   BIGINT NOT NULL,
			embedding    vector(%d) NOT NULL,
			model        VARCHAR(255) NOT NULL,
			dim          INTEGER NOT NULL,
			created_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, embeddingDim)
	if _, err := p.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create patient_faces table: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS patient_faces_patient_id_idx ON patient_faces(patient_id)
	`); err != nil {
		return fmt.Errorf("failed to create patient_id index: %w", err)
	}

	return nil
}

// Initialize creates a pool, runs migrations and returns the ready repository.
func Initialize(cfg *config.DatabaseConfig, embeddingDim int) (*Repository, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	pool, err := NewPool(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err := pool.Migrate(context.Background(), embeddingDim); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return NewRepository(pool), nil
}
