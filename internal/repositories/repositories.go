// Package repositories implements the SQLite library cache.
//
// Playlists and their tracks are cached after each successful API listing so
// `tdj library` keeps working offline. Rows are upserted by provider
// identifier; nothing credential-shaped is ever written here.
//
// Key Implementations:
//   - [PlaylistRepository] : cached playlist metadata
//   - [TrackRepository] : cached tracks keyed by (track, playlist)
package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/tidaldj/internal/shared"
)

// Open opens the cache database at path and applies pending migrations.
// Foreign keys are switched on so clearing a playlist drops its tracks.
func Open(cfg shared.DatabaseConfig) (*sql.DB, error) {
	db, err := shared.NewDatabase(cfg.Path + "?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}
