// Package mariadb implements the embedding store on MySQL/MariaDB.
// Embeddings are kept as a JSON text column and decoded into memory for
// every scan; there is no vector SQL, so near-miss diagnostics are not
// available on this backend.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool. The DSN must include
// parseTime=true so TIMESTAMP columns scan into time.Time.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
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

// Migrate sets up the patient_faces table this service owns.
func (p *Pool) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS patient_faces (
			face_uid     CHAR(36) PRIMARY KEY,
			patient_id   BIGINT NOT NULL,
			embedding_json MEDIUMTEXT NOT NULL,
			model        VARCHAR(255) NOT NULL,
			dim          INT NOT NULL,
			created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			KEY patient_faces_patient_id_idx (patient_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create patient_faces table: %w", err)
	}
	return nil
}

// Initialize creates a pool, runs migrations and returns the ready repository.
func Initialize(dsn string) (*Repository, error) {
	pool, err := NewPool(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create MariaDB pool: %w", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return NewRepository(pool), nil
}
