// TIDAL API implementation of [Service]
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidaldj/internal/auth"
	"github.com/desertthunder/tidaldj/internal/models"
	"github.com/desertthunder/tidaldj/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const defaultPageSize = 50

// TidalService implements the [Service] interface for TIDAL API interactions.
//
// Every authorized call flows through doRequest, which borrows the access
// token from the lifecycle manager, rate-limits the attempt, and applies the
// single-retry-on-401 policy.
type TidalService struct {
	baseURL  string
	client   *http.Client
	manager  *auth.Manager
	store    *auth.Store
	limiter  *rate.Limiter
	logger   *log.Logger
	country  string
	pageSize int
}

// TidalOpts contains configuration options for creating a TidalService.
type TidalOpts struct {
	Config  *shared.Config
	Client  *http.Client
	Logger  *log.Logger
	Session auth.ConsentSession
}

// NewTidalService creates a TIDAL service from the provider configuration,
// wiring up the session controller and token lifecycle manager.
func NewTidalService(opts TidalOpts) (*TidalService, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: nil config", shared.ErrInvalidConfig)
	}

	creds := opts.Config.Credentials.Tidal
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: tidal client_id must be set", shared.ErrMissingCredentials)
	}
	if creds.AuthURL == "" || creds.TokenURL == "" || creds.APIURL == "" {
		return nil, fmt.Errorf("%w: tidal endpoint URLs must be set", shared.ErrInvalidConfig)
	}

	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Session == nil {
		opts.Session = auth.NewSessionController(opts.Config.Server.Host, opts.Config.Server.Port, opts.Logger)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       creds.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  creds.AuthURL,
			TokenURL: creds.TokenURL,
		},
	}

	manager := auth.NewManager(auth.ManagerOpts{
		Conf:      conf,
		RevokeURL: creds.RevokeURL,
		Session:   opts.Session,
		Client:    opts.Client,
		Logger:    opts.Logger,
	})

	pageSize := opts.Config.Library.PageSize
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}

	s := &TidalService{
		baseURL:  strings.TrimRight(creds.APIURL, "/"),
		client:   opts.Client,
		manager:  manager,
		store:    manager.Store(),
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
		logger:   opts.Logger,
		country:  opts.Config.Library.CountryCode,
		pageSize: pageSize,
	}
	manager.SetProfileFetcher(s)

	return s, nil
}

func (s *TidalService) Name() string {
	return "TIDAL"
}

// Manager exposes the token lifecycle manager (used by command actions that
// inspect auth state directly).
func (s *TidalService) Manager() *auth.Manager {
	return s.manager
}

// SignIn runs the consent flow and returns the signed-in user's profile.
func (s *TidalService) SignIn(ctx context.Context) (*models.UserProfile, error) {
	return s.manager.Authenticate(ctx)
}

// SignOut revokes and clears the credential.
func (s *TidalService) SignOut(ctx context.Context) error {
	return s.manager.SignOut(ctx)
}

// IsAuthenticated reports whether a token set is currently held.
func (s *TidalService) IsAuthenticated() bool {
	return s.manager.Authenticated()
}

// FetchProfile retrieves the current user's profile from the API.
//
// Satisfies [auth.ProfileFetcher] so the lifecycle manager can cache the
// profile right after a successful exchange.
func (s *TidalService) FetchProfile(ctx context.Context) (*models.UserProfile, error) {
	var user userResource
	if err := s.doRequest(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return mapProfile(user), nil
}

// Profile returns the cached profile, fetching and caching it when absent.
func (s *TidalService) Profile(ctx context.Context) (*models.UserProfile, error) {
	if cached := s.store.Profile(); cached != nil {
		return cached, nil
	}

	profile, err := s.FetchProfile(ctx)
	if err != nil {
		return nil, err
	}

	s.store.SetProfile(profile)
	return profile, nil
}

// Playlists retrieves all playlists for the authenticated user, walking the
// paged listing until exhausted.
func (s *TidalService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	offset := 0

	for {
		query := s.pageQuery(offset)

		var page playlistPage
		if err := s.doRequest(ctx, http.MethodGet, "/users/me/playlists", query, &page); err != nil {
			return nil, err
		}

		all = append(all, mapPlaylists(page.Items)...)

		offset += s.pageSize
		if len(page.Items) == 0 || offset >= page.TotalNumberOfItems {
			break
		}
	}

	return all, nil
}

// PlaylistTracks retrieves every track in the given playlist.
func (s *TidalService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	var all []models.Track
	offset := 0

	for {
		query := s.pageQuery(offset)

		var page trackPage
		path := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
		if err := s.doRequest(ctx, http.MethodGet, path, query, &page); err != nil {
			return nil, err
		}

		all = append(all, mapTracks(page.Items)...)

		offset += s.pageSize
		if len(page.Items) == 0 || offset >= page.TotalNumberOfItems {
			break
		}
	}

	return all, nil
}

// Search returns track and playlist hits for a query. Empty and
// whitespace-only queries short-circuit to empty results without touching
// the network.
func (s *TidalService) Search(ctx context.Context, query string) (*models.SearchResults, error) {
	if strings.TrimSpace(query) == "" {
		return &models.SearchResults{Tracks: []models.Track{}, Playlists: []models.Playlist{}}, nil
	}

	params := s.pageQuery(0)
	params.Set("query", query)

	var result searchResource
	if err := s.doRequest(ctx, http.MethodGet, "/search", params, &result); err != nil {
		return nil, err
	}

	return &models.SearchResults{
		Tracks:    mapTracks(result.Tracks.Items),
		Playlists: mapPlaylists(result.Playlists.Items),
	}, nil
}

// pageQuery builds the shared paging + country parameters.
func (s *TidalService) pageQuery(offset int) url.Values {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(s.pageSize))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("country_code", s.countryCode())
	return query
}

// countryCode prefers the cached profile's country, falling back to the
// configured default.
func (s *TidalService) countryCode() string {
	if profile := s.store.Profile(); profile != nil && profile.CountryCode != "" {
		return profile.CountryCode
	}
	if s.country != "" {
		return s.country
	}
	return "US"
}

// doRequest performs an authenticated request against the TIDAL API.
//
// A 401 triggers exactly one refresh-and-retry; a second 401 (or a failed
// refresh) clears the token set and fails with [shared.ErrNotAuthenticated].
// A successful recovery silently replaces the cached token set; no other
// state changes from a read-only call.
func (s *TidalService) doRequest(ctx context.Context, method, path string, query url.Values, result any) error {
	token, err := s.manager.AccessToken(ctx)
	if err != nil {
		return err
	}

	status, body, err := s.send(ctx, method, path, query, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		refreshed, refreshErr := s.manager.Refresh(ctx, token)
		if refreshErr != nil {
			s.store.Clear()
			return fmt.Errorf("%w: token refresh after 401 failed", shared.ErrNotAuthenticated)
		}

		status, body, err = s.send(ctx, method, path, query, refreshed)
		if err != nil {
			return err
		}

		if status == http.StatusUnauthorized {
			s.store.Clear()
			return fmt.Errorf("%w: request rejected twice", shared.ErrNotAuthenticated)
		}
	}

	if status < 200 || status >= 300 {
		return apiError(status, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
		}
	}

	return nil
}

// send executes one HTTP attempt and returns the status and body.
func (s *TidalService) send(ctx context.Context, method, path string, query url.Values, token string) (int, []byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}

	apiURL := s.baseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}

	return resp.StatusCode, body, nil
}

// apiError extracts the provider-supplied message from an error body; when
// none is present the bare status is surfaced.
func apiError(status int, body []byte) error {
	var payload struct {
		UserMessage      string `json:"user_message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
		Message          string `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		for _, msg := range []string{payload.UserMessage, payload.ErrorDescription, payload.Message, payload.Error} {
			if msg != "" {
				return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, status, msg)
			}
		}
	}

	return &shared.StatusError{Code: status}
}
