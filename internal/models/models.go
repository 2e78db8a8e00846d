// package models defines the domain records exchanged between the TIDAL
// client, the deck player, and the presentation layers.
package models

import "strings"

// Track is an immutable description of one playable track.
//
// ArtworkURL is empty when the provider supplied no cover. BPM is the
// provider's tempo hint; zero means unknown.
type Track struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	ArtworkURL string  `json:"artwork_url,omitempty"`
	BPM        float64 `json:"bpm,omitempty"`
}

// Playlist is basic playlist metadata from the provider.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
}

// SearchResults bundles the independent track and playlist hits for a query.
type SearchResults struct {
	Tracks    []Track    `json:"tracks"`
	Playlists []Playlist `json:"playlists"`
}

// UserProfile is the signed-in user's account record.
type UserProfile struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	Email       string `json:"email,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// DisplayName derives the name shown in UI chrome.
//
// Priority: nickname, then joined first/last name, then full name, then the
// account id.
func (p UserProfile) DisplayName() string {
	if nick := strings.TrimSpace(p.Nickname); nick != "" {
		return nick
	}

	var parts []string
	for _, component := range []string{p.FirstName, p.LastName} {
		if trimmed := strings.TrimSpace(component); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}

	if full := strings.TrimSpace(p.FullName); full != "" {
		return full
	}

	return p.ID
}
