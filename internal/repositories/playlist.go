package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/tidaldj/internal/models"
	"github.com/desertthunder/tidaldj/internal/shared"
)

// PlaylistRepository caches playlist metadata by provider identifier.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Save upserts a playlist row.
func (r *PlaylistRepository) Save(playlist models.Playlist) error {
	query := `
		INSERT INTO playlists (id, name, description, track_count, cached_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			track_count = excluded.track_count,
			cached_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.Exec(query, playlist.ID, playlist.Name, playlist.Description, playlist.TrackCount); err != nil {
		return fmt.Errorf("failed to cache playlist: %w", err)
	}

	return nil
}

// SaveAll upserts a batch of playlists in one transaction.
func (r *PlaylistRepository) SaveAll(playlists []models.Playlist) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO playlists (id, name, description, track_count, cached_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			track_count = excluded.track_count,
			cached_at = CURRENT_TIMESTAMP
	`

	for _, playlist := range playlists {
		if _, err := tx.Exec(query, playlist.ID, playlist.Name, playlist.Description, playlist.TrackCount); err != nil {
			return fmt.Errorf("failed to cache playlist %s: %w", playlist.ID, err)
		}
	}

	return tx.Commit()
}

// Get retrieves a cached playlist by its provider identifier.
func (r *PlaylistRepository) Get(id string) (*models.Playlist, error) {
	query := `SELECT id, name, description, track_count FROM playlists WHERE id = ?`

	var p models.Playlist
	err := r.db.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.Description, &p.TrackCount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	return &p, nil
}

// List returns all cached playlists ordered by name.
func (r *PlaylistRepository) List() ([]models.Playlist, error) {
	rows, err := r.db.Query(`SELECT id, name, description, track_count FROM playlists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.TrackCount); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}

	return playlists, rows.Err()
}

// Clear removes all cached playlists (and, via cascade, their tracks).
func (r *PlaylistRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM playlists`); err != nil {
		return fmt.Errorf("failed to clear playlists: %w", err)
	}
	return nil
}
