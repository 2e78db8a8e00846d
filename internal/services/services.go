// package services defines interface Service for interacting with the music
// provider's HTTP API.
package services

import (
	"context"

	"github.com/desertthunder/tidaldj/internal/models"
)

// Service is the consumer-facing surface exposed to the presentation layer.
// Playback is driven by the domain records returned here, never by this
// subsystem directly.
type Service interface {
	// SignIn runs the browser-based consent flow and returns the signed-in
	// user's profile.
	SignIn(ctx context.Context) (*models.UserProfile, error)

	// SignOut revokes and clears the credential. Never fails the local
	// teardown on provider errors.
	SignOut(ctx context.Context) error

	// Profile returns the cached user profile, fetching it when absent.
	Profile(ctx context.Context) (*models.UserProfile, error)

	// Playlists retrieves all playlists for the authenticated user.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks retrieves every track in the given playlist.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// Search returns track and playlist hits for a query. Empty or
	// whitespace-only queries yield empty results without a network call.
	Search(ctx context.Context, query string) (*models.SearchResults, error)

	// IsAuthenticated reports whether a credential is currently held.
	IsAuthenticated() bool

	// Name returns the provider name (e.g. "TIDAL")
	Name() string
}
