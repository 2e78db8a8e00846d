package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/tidaldj/internal/models"
)

// UnknownArtist is the sentinel artist name used when the wire payload
// carries no artist at all.
const UnknownArtist = "Unknown Artist"

// coverSize is the rendered square artwork dimension in the canonical image
// URL template.
const coverSize = 640

// flexID normalizes identifiers that arrive as either JSON strings or
// numbers. The domain model keeps a single representation (string).
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}

	return fmt.Errorf("identifier is neither string nor number: %s", string(data))
}

// Wire payload shapes. The provider API speaks snake_case.

type artistResource struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

type albumResource struct {
	ID    flexID `json:"id"`
	Title string `json:"title"`
	Cover string `json:"cover"`
}

type trackResource struct {
	ID      flexID           `json:"id"`
	Title   string           `json:"title"`
	Artist  *artistResource  `json:"artist"`
	Artists []artistResource `json:"artists"`
	Album   *albumResource   `json:"album"`
	BPM     float64          `json:"bpm"`
}

type playlistResource struct {
	UUID           flexID `json:"uuid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	NumberOfTracks int    `json:"number_of_tracks"`
}

type userResource struct {
	ID          flexID `json:"id"`
	FullName    string `json:"full_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	CountryCode string `json:"country_code"`
}

type trackPage struct {
	Items              []trackResource `json:"items"`
	TotalNumberOfItems int             `json:"total_number_of_items"`
	Limit              int             `json:"limit"`
	Offset             int             `json:"offset"`
}

type playlistPage struct {
	Items              []playlistResource `json:"items"`
	TotalNumberOfItems int                `json:"total_number_of_items"`
	Limit              int                `json:"limit"`
	Offset             int                `json:"offset"`
}

type searchResource struct {
	Tracks    trackPage    `json:"tracks"`
	Playlists playlistPage `json:"playlists"`
}

// coverURL expands a cover identifier into the canonical image URL: hyphens
// become path separators, the identifier is uppercased, and the size segment
// selects the rendition.
func coverURL(id string, size int) string {
	if id == "" {
		return ""
	}

	path := strings.ToUpper(strings.ReplaceAll(id, "-", "/"))
	return fmt.Sprintf("https://resources.tidal.com/images/%s/%dx%d.jpg", path, size, size)
}

// mapTrack converts a wire track into the domain record.
func mapTrack(t trackResource) models.Track {
	artist := UnknownArtist
	if t.Artist != nil && t.Artist.Name != "" {
		artist = t.Artist.Name
	} else if len(t.Artists) > 0 && t.Artists[0].Name != "" {
		artist = t.Artists[0].Name
	}

	track := models.Track{
		ID:     string(t.ID),
		Title:  t.Title,
		Artist: artist,
		BPM:    t.BPM,
	}

	if t.Album != nil {
		track.Album = t.Album.Title
		track.ArtworkURL = coverURL(t.Album.Cover, coverSize)
	}

	return track
}

// mapPlaylist converts a wire playlist into the domain record.
func mapPlaylist(p playlistResource) models.Playlist {
	return models.Playlist{
		ID:          string(p.UUID),
		Name:        p.Title,
		Description: p.Description,
		TrackCount:  p.NumberOfTracks,
	}
}

// mapProfile converts the wire user record into the domain profile.
func mapProfile(u userResource) *models.UserProfile {
	return &models.UserProfile{
		ID:          string(u.ID),
		FullName:    u.FullName,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Nickname:    u.Nickname,
		Email:       u.Email,
		CountryCode: u.CountryCode,
	}
}

// mapTracks maps a page of wire tracks.
func mapTracks(items []trackResource) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, mapTrack(item))
	}
	return tracks
}

// mapPlaylists maps a page of wire playlists.
func mapPlaylists(items []playlistResource) []models.Playlist {
	playlists := make([]models.Playlist, 0, len(items))
	for _, item := range items {
		playlists = append(playlists, mapPlaylist(item))
	}
	return playlists
}
