package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/clinicware/face-finder/internal/config"
	"github.com/clinicware/face-finder/internal/extract"
	"github.com/clinicware/face-finder/internal/identity"
	"github.com/clinicware/face-finder/internal/store"
	"github.com/clinicware/face-finder/internal/store/mariadb"
	"github.com/clinicware/face-finder/internal/store/postgres"
)

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// openStore selects the storage backend: PostgreSQL when DATABASE_URL is
// set, MariaDB when MARIADB_DSN is set. The similarity searcher is non-nil
// only for backends with vector search support.
func openStore(cfg *config.Config) (store.Store, store.SimilaritySearcher, error) {
	switch {
	case cfg.Database.URL != "":
		repo, err := postgres.Initialize(&cfg.Database, cfg.Embedding.Dim)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return repo, repo, nil
	case cfg.MariaDB.DSN != "":
		repo, err := mariadb.Initialize(cfg.MariaDB.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		return repo, nil, nil
	default:
		return nil, nil, errors.New("DATABASE_URL or MARIADB_DSN environment variable is required")
	}
}

func newExtractor(cfg *config.Config) *extract.Service {
	return extract.NewService(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.Dim, cfg.Embedding.MaxEdge)
}

func newIdentityService(cfg *config.Config, st store.Store, log zerolog.Logger) (*identity.Service, error) {
	return identity.NewService(newExtractor(cfg), st, cfg.Matching.Threshold, log)
}
