package ui

import (
	"github.com/desertthunder/tidaldj/internal/models"
)

// signedInMsg carries the profile returned by the consent flow.
type signedInMsg struct {
	profile *models.UserProfile
	err     error
}

// playlistsFetchedMsg carries the playlist listing for [PlaylistListView].
type playlistsFetchedMsg struct {
	playlists []models.Playlist
	err       error
}

// tracksFetchedMsg carries one playlist's tracks for [TrackListView].
type tracksFetchedMsg struct {
	playlist models.Playlist
	tracks   []models.Track
	err      error
}

// searchResultsMsg carries track hits for a library search.
type searchResultsMsg struct {
	query   string
	results *models.SearchResults
	err     error
}

// deckUpdatedMsg signals that mixer state changed and the deck view should
// re-render. A non-nil err surfaces engine failures without quitting.
type deckUpdatedMsg struct {
	err error
}
