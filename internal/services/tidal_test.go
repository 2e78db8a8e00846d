package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tidaldj/internal/auth"
	"github.com/desertthunder/tidaldj/internal/models"
	"github.com/desertthunder/tidaldj/internal/shared"
)

// newTestService wires a TidalService against an httptest server that plays
// both the token endpoint and the resource API.
func newTestService(t *testing.T, mux *http.ServeMux) *TidalService {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := shared.DefaultConfig()
	cfg.Credentials.Tidal = shared.TidalConfig{
		ClientID:    "test_client_id",
		RedirectURI: "http://127.0.0.1:8977/callback",
		Scopes:      []string{"r_usr"},
		AuthURL:     srv.URL + "/authorize",
		TokenURL:    srv.URL + "/oauth2/token",
		APIURL:      srv.URL,
	}

	svc, err := NewTidalService(TidalOpts{Config: cfg, Logger: shared.NewLogger(io.Discard)})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func seedTokens(t *testing.T, s *TidalService, access string) {
	t.Helper()
	err := s.store.SetTokens(auth.TokenSet{
		AccessToken:  access,
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to seed tokens: %v", err)
	}
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) {
		return header[len(prefix):]
	}
	return ""
}

func TestTidalService(t *testing.T) {
	t.Run("NewTidalService", func(t *testing.T) {
		t.Run("Requires A Config", func(t *testing.T) {
			if _, err := NewTidalService(TidalOpts{}); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Requires A Client ID", func(t *testing.T) {
			cfg := shared.DefaultConfig()
			cfg.Credentials.Tidal.ClientID = ""

			if _, err := NewTidalService(TidalOpts{Config: cfg}); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Reports The Provider Name", func(t *testing.T) {
			svc := newTestService(t, http.NewServeMux())
			if svc.Name() != "TIDAL" {
				t.Errorf("expected TIDAL, got %s", svc.Name())
			}
		})
	})

	t.Run("Retry Policy", func(t *testing.T) {
		t.Run("One Refresh Then Retry On 401", func(t *testing.T) {
			var tokenCalls, apiCalls atomic.Int64

			mux := http.NewServeMux()
			mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
				tokenCalls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token":"fresh","refresh_token":"refresh-2","token_type":"Bearer","expires_in":3600}`)
			})
			mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
				apiCalls.Add(1)
				if bearer(r) != "fresh" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"id": 42, "nickname": "dj", "country_code": "NO"}`)
			})

			svc := newTestService(t, mux)
			seedTokens(t, svc, "stale")

			profile, err := svc.FetchProfile(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if profile.ID != "42" || profile.Nickname != "dj" {
				t.Errorf("unexpected profile: %+v", profile)
			}
			if tokenCalls.Load() != 1 {
				t.Errorf("expected exactly one refresh, got %d", tokenCalls.Load())
			}
			if apiCalls.Load() != 2 {
				t.Errorf("expected original call plus one retry, got %d", apiCalls.Load())
			}

			ts, ok := svc.store.Tokens()
			if !ok || ts.AccessToken != "fresh" {
				t.Errorf("expected refreshed token to replace the stale one, got %+v", ts)
			}
		})

		t.Run("Second 401 Clears The Credential", func(t *testing.T) {
			var apiCalls atomic.Int64

			mux := http.NewServeMux()
			mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token":"fresh","refresh_token":"refresh-2","token_type":"Bearer","expires_in":3600}`)
			})
			mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
				apiCalls.Add(1)
				w.WriteHeader(http.StatusUnauthorized)
			})

			svc := newTestService(t, mux)
			seedTokens(t, svc, "stale")

			_, err := svc.FetchProfile(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}

			if apiCalls.Load() != 2 {
				t.Errorf("expected exactly two attempts, got %d", apiCalls.Load())
			}
			if svc.IsAuthenticated() {
				t.Error("expected credential to be cleared after double 401")
			}
		})

		t.Run("Failed Refresh Clears The Credential", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			})
			mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			})

			svc := newTestService(t, mux)
			seedTokens(t, svc, "stale")

			_, err := svc.FetchProfile(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Fatalf("expected ErrNotAuthenticated, got %v", err)
			}
			if svc.IsAuthenticated() {
				t.Error("expected credential to be cleared after failed refresh")
			}
		})

		t.Run("Unauthenticated Without A Credential", func(t *testing.T) {
			svc := newTestService(t, http.NewServeMux())

			if _, err := svc.FetchProfile(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Error Extraction", func(t *testing.T) {
		t.Run("Provider Message Is Surfaced", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"user_message":"Resource not found"}`)
			})

			svc := newTestService(t, mux)
			seedTokens(t, svc, "access")

			_, err := svc.FetchProfile(context.Background())
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Fatalf("expected ErrAPIRequest, got %v", err)
			}
			if got := err.Error(); !strings.Contains(got, "Resource not found") {
				t.Errorf("expected provider message in error, got %s", got)
			}
		})

		t.Run("Bare Status Without A Body", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			})

			svc := newTestService(t, mux)
			seedTokens(t, svc, "access")

			_, err := svc.FetchProfile(context.Background())
			var statusErr *shared.StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if statusErr.Code != http.StatusServiceUnavailable {
				t.Errorf("expected status 503, got %d", statusErr.Code)
			}
		})
	})

	t.Run("Playlists", func(t *testing.T) {
		t.Run("Walks Every Page", func(t *testing.T) {
			var pages atomic.Int64

			mux := http.NewServeMux()
			mux.HandleFunc("/users/me/playlists", func(w http.ResponseWriter, r *http.Request) {
				pages.Add(1)
				w.Header().Set("Content-Type", "application/json")
				if r.URL.Query().Get("offset") == "0" {
					fmt.Fprint(w, `{"items":[{"uuid":"pl-1","title":"First","number_of_tracks":10}],"total_number_of_items":2,"limit":1,"offset":0}`)
					return
				}
				fmt.Fprint(w, `{"items":[{"uuid":"pl-2","title":"Second","number_of_tracks":5}],"total_number_of_items":2,"limit":1,"offset":1}`)
			})

			svc := newTestService(t, mux)
			svc.pageSize = 1
			seedTokens(t, svc, "access")

			playlists, err := svc.Playlists(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(playlists) != 2 {
				t.Fatalf("expected 2 playlists, got %d", len(playlists))
			}
			if playlists[0].Name != "First" || playlists[1].Name != "Second" {
				t.Errorf("unexpected playlists: %+v", playlists)
			}
			if pages.Load() != 2 {
				t.Errorf("expected 2 page fetches, got %d", pages.Load())
			}
		})
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		t.Run("Requires An ID", func(t *testing.T) {
			svc := newTestService(t, http.NewServeMux())
			seedTokens(t, svc, "access")

			if _, err := svc.PlaylistTracks(context.Background(), ""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})

		t.Run("Maps The Listing", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/playlists/pl-1/tracks", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"items":[{"id":101,"title":"Strobe","artist":{"id":7,"name":"deadmau5"},"bpm":128}],"total_number_of_items":1}`)
			})

			svc := newTestService(t, mux)
			seedTokens(t, svc, "access")

			tracks, err := svc.PlaylistTracks(context.Background(), "pl-1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(tracks) != 1 {
				t.Fatalf("expected 1 track, got %d", len(tracks))
			}
			if tracks[0].ID != "101" || tracks[0].Artist != "deadmau5" || tracks[0].BPM != 128 {
				t.Errorf("unexpected track: %+v", tracks[0])
			}
		})
	})

	t.Run("Search", func(t *testing.T) {
		t.Run("Empty Query Skips The Network", func(t *testing.T) {
			var apiCalls atomic.Int64
			mux := http.NewServeMux()
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				apiCalls.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
			})

			svc := newTestService(t, mux)
			seedTokens(t, svc, "access")

			for _, query := range []string{"", "   ", "\t\n"} {
				results, err := svc.Search(context.Background(), query)
				if err != nil {
					t.Fatalf("expected no error for query %q, got %v", query, err)
				}
				if len(results.Tracks) != 0 || len(results.Playlists) != 0 {
					t.Errorf("expected empty results for query %q", query)
				}
			}

			if apiCalls.Load() != 0 {
				t.Errorf("expected no network calls, got %d", apiCalls.Load())
			}
		})

		t.Run("Maps Both Result Kinds", func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("query") != "strobe" {
					t.Errorf("expected query parameter, got %s", r.URL.RawQuery)
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{
					"tracks":{"items":[{"id":"101","title":"Strobe"}],"total_number_of_items":1},
					"playlists":{"items":[{"uuid":"pl-1","title":"Progressive"}],"total_number_of_items":1}
				}`)
			})

			svc := newTestService(t, mux)
			seedTokens(t, svc, "access")

			results, err := svc.Search(context.Background(), "strobe")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(results.Tracks) != 1 || results.Tracks[0].Title != "Strobe" {
				t.Errorf("unexpected tracks: %+v", results.Tracks)
			}
			if len(results.Playlists) != 1 || results.Playlists[0].Name != "Progressive" {
				t.Errorf("unexpected playlists: %+v", results.Playlists)
			}
		})
	})

	t.Run("Profile", func(t *testing.T) {
		t.Run("Serves From Cache", func(t *testing.T) {
			var apiCalls atomic.Int64
			mux := http.NewServeMux()
			mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
				apiCalls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"id":"42","nickname":"dj"}`)
			})

			svc := newTestService(t, mux)
			seedTokens(t, svc, "access")

			first, err := svc.Profile(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			second, err := svc.Profile(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if first.ID != "42" || second.ID != "42" {
				t.Errorf("unexpected profiles: %+v, %+v", first, second)
			}
			if apiCalls.Load() != 1 {
				t.Errorf("expected a single fetch, got %d", apiCalls.Load())
			}
		})
	})

	t.Run("Country Code", func(t *testing.T) {
		svc := newTestService(t, http.NewServeMux())

		t.Run("Configured Default", func(t *testing.T) {
			svc.country = "DE"
			if got := svc.countryCode(); got != "DE" {
				t.Errorf("expected DE, got %s", got)
			}
		})

		t.Run("Profile Wins", func(t *testing.T) {
			svc.store.SetProfile(&models.UserProfile{ID: "42", CountryCode: "NO"})
			if got := svc.countryCode(); got != "NO" {
				t.Errorf("expected NO, got %s", got)
			}
			svc.store.SetProfile(nil)
		})

		t.Run("Hardcoded Fallback", func(t *testing.T) {
			svc.country = ""
			if got := svc.countryCode(); got != "US" {
				t.Errorf("expected US, got %s", got)
			}
		})
	})
}
