package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/tidaldj/internal/models"
)

// TrackRepository caches playlist track listings.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// SaveAll replaces the cached track listing for a playlist.
func (r *TrackRepository) SaveAll(playlistID string, tracks []models.Track) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tracks WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("failed to clear stale tracks: %w", err)
	}

	query := `
		INSERT INTO tracks (id, playlist_id, position, title, artist, album, artwork_url, bpm, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`

	for i, track := range tracks {
		if _, err := tx.Exec(query, track.ID, playlistID, i, track.Title, track.Artist, track.Album, track.ArtworkURL, track.BPM); err != nil {
			return fmt.Errorf("failed to cache track %s: %w", track.ID, err)
		}
	}

	return tx.Commit()
}

// ListByPlaylist returns the cached tracks for a playlist in listing order.
func (r *TrackRepository) ListByPlaylist(playlistID string) ([]models.Track, error) {
	query := `
		SELECT id, title, artist, album, artwork_url, bpm
		FROM tracks
		WHERE playlist_id = ?
		ORDER BY position
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	return scanTracks(rows)
}

// Clear removes all cached tracks.
func (r *TrackRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM tracks`); err != nil {
		return fmt.Errorf("failed to clear tracks: %w", err)
	}
	return nil
}

func scanTracks(rows *sql.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Album, &t.ArtworkURL, &t.BPM); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, t)
	}

	return tracks, rows.Err()
}
