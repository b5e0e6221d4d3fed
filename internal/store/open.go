// Package store picks the inventory backend named by store.driver.
package store

import (
	"fmt"

	"toolcrib/internal/backend"
	"toolcrib/internal/config"
	"toolcrib/internal/database"
	"toolcrib/internal/domain"
	"toolcrib/internal/pgstore"

	"github.com/rs/zerolog"
)

// Open constructs the single store handle used for every read and write.
// The returned *database.DB is non-nil only for the sqlite driver, which is
// the one the backup service can copy.
func Open(cfg *config.Config, logger *zerolog.Logger) (domain.Store, *database.DB, error) {
	switch cfg.Store.Driver {
	case config.DriverREST:
		client, err := backend.New(cfg.Backend, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init backend client: %w", err)
		}
		return client, nil, nil
	case config.DriverSQLite:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite: %w", err)
		}
		return db, db, nil
	case config.DriverPostgres:
		pg, err := pgstore.Open(cfg.Store.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres: %w", err)
		}
		return pg, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
