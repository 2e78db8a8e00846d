package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tidaldj/internal/shared"
	"golang.org/x/oauth2"
)

// echoSession fabricates the redirect callback without a browser: it reads
// the state out of the authorization URL and builds the callback from it.
type echoSession struct {
	build func(state string) *url.URL
	err   error
}

func (s *echoSession) Begin(ctx context.Context, authURL string) (*url.URL, error) {
	if s.err != nil {
		return nil, s.err
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		return nil, err
	}
	return s.build(parsed.Query().Get("state")), nil
}

func callbackURL(query string) *url.URL {
	u, _ := url.Parse("/callback?" + query)
	return u
}

// tokenEndpoint serves the OAuth2 token grant, counting calls and handing out
// a distinct access token each time.
func tokenEndpoint(t *testing.T, calls *atomic.Int64, refreshToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"access-%d","refresh_token":%q,"token_type":"Bearer","expires_in":3600,"scope":"r_usr w_usr"}`, n, refreshToken)
	}))
}

func newTestManager(tokenURL string, session ConsentSession, now func() time.Time) *Manager {
	return NewManager(ManagerOpts{
		Conf: &oauth2.Config{
			ClientID:    "test_client_id",
			RedirectURL: "http://127.0.0.1:8977/callback",
			Scopes:      []string{"r_usr", "w_usr"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://login.example.com/authorize",
				TokenURL: tokenURL,
			},
		},
		Session: session,
		Now:     now,
	})
}

func TestManager(t *testing.T) {
	t.Run("Authenticate", func(t *testing.T) {
		t.Run("Exchanges The Authorization Code", func(t *testing.T) {
			var calls atomic.Int64
			srv := tokenEndpoint(t, &calls, "refresh-1")
			defer srv.Close()

			session := &echoSession{build: func(state string) *url.URL {
				return callbackURL("code=abc&state=" + state)
			}}

			m := newTestManager(srv.URL, session, time.Now)

			if _, err := m.Authenticate(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if calls.Load() != 1 {
				t.Errorf("expected one token exchange, got %d", calls.Load())
			}

			ts, ok := m.Store().Tokens()
			if !ok {
				t.Fatal("expected tokens to be stored")
			}
			if ts.AccessToken != "access-1" || ts.RefreshToken != "refresh-1" {
				t.Errorf("unexpected token set: %+v", ts)
			}
			if ts.Scope != "r_usr w_usr" {
				t.Errorf("expected scope to be captured, got %q", ts.Scope)
			}
		})

		t.Run("Provider Error Wins", func(t *testing.T) {
			session := &echoSession{build: func(state string) *url.URL {
				// Even with a plausible state, the error parameter decides
				return callbackURL("error=access_denied&state=" + state)
			}}

			m := newTestManager("http://invalid.test/token", session, time.Now)

			_, err := m.Authenticate(context.Background())
			var denied *shared.DeniedError
			if !errors.As(err, &denied) {
				t.Fatalf("expected DeniedError, got %v", err)
			}
			if denied.Reason != "access_denied" {
				t.Errorf("expected reason access_denied, got %s", denied.Reason)
			}
		})

		t.Run("State Mismatch", func(t *testing.T) {
			session := &echoSession{build: func(string) *url.URL {
				return callbackURL("code=abc&state=forged")
			}}

			m := newTestManager("http://invalid.test/token", session, time.Now)

			if _, err := m.Authenticate(context.Background()); !errors.Is(err, shared.ErrStateMismatch) {
				t.Errorf("expected ErrStateMismatch, got %v", err)
			}
		})

		t.Run("Missing State", func(t *testing.T) {
			session := &echoSession{build: func(string) *url.URL {
				return callbackURL("code=abc")
			}}

			m := newTestManager("http://invalid.test/token", session, time.Now)

			if _, err := m.Authenticate(context.Background()); !errors.Is(err, shared.ErrStateMismatch) {
				t.Errorf("expected ErrStateMismatch, got %v", err)
			}
		})

		t.Run("Missing Code", func(t *testing.T) {
			session := &echoSession{build: func(state string) *url.URL {
				return callbackURL("state=" + state)
			}}

			m := newTestManager("http://invalid.test/token", session, time.Now)

			if _, err := m.Authenticate(context.Background()); !errors.Is(err, shared.ErrMissingCode) {
				t.Errorf("expected ErrMissingCode, got %v", err)
			}
		})

		t.Run("Session Cancelled", func(t *testing.T) {
			session := &echoSession{err: shared.ErrAuthCancelled}

			m := newTestManager("http://invalid.test/token", session, time.Now)

			if _, err := m.Authenticate(context.Background()); !errors.Is(err, shared.ErrAuthCancelled) {
				t.Errorf("expected ErrAuthCancelled, got %v", err)
			}
			if m.Authenticated() {
				t.Error("expected no credential after cancelled session")
			}
		})
	})

	t.Run("AccessToken", func(t *testing.T) {
		t.Run("Returns Cached Token While Valid", func(t *testing.T) {
			var calls atomic.Int64
			srv := tokenEndpoint(t, &calls, "refresh-next")
			defer srv.Close()

			m := newTestManager(srv.URL, nil, time.Now)
			m.Store().SetTokens(TokenSet{
				AccessToken:  "cached",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(time.Hour),
			})

			token, err := m.AccessToken(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "cached" {
				t.Errorf("expected cached token, got %s", token)
			}
			if calls.Load() != 0 {
				t.Errorf("expected no refresh for a valid token, got %d calls", calls.Load())
			}
		})

		t.Run("Refreshes An Expired Token Once", func(t *testing.T) {
			var calls atomic.Int64
			srv := tokenEndpoint(t, &calls, "refresh-next")
			defer srv.Close()

			m := newTestManager(srv.URL, nil, time.Now)
			m.Store().SetTokens(TokenSet{
				AccessToken:  "stale",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(-time.Minute),
			})

			token, err := m.AccessToken(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "access-1" {
				t.Errorf("expected refreshed token, got %s", token)
			}
			if calls.Load() != 1 {
				t.Errorf("expected exactly one refresh, got %d", calls.Load())
			}

			ts, _ := m.Store().Tokens()
			if ts.RefreshToken != "refresh-next" {
				t.Errorf("expected rotated refresh token, got %s", ts.RefreshToken)
			}
		})

		t.Run("Coalesces Concurrent Refreshes", func(t *testing.T) {
			var calls atomic.Int64
			srv := tokenEndpoint(t, &calls, "refresh-next")
			defer srv.Close()

			m := newTestManager(srv.URL, nil, time.Now)
			m.Store().SetTokens(TokenSet{
				AccessToken:  "stale",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(-time.Minute),
			})

			const callers = 8
			tokens := make([]string, callers)
			errs := make([]error, callers)

			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					tokens[i], errs[i] = m.AccessToken(context.Background())
				}(i)
			}
			wg.Wait()

			for i := 0; i < callers; i++ {
				if errs[i] != nil {
					t.Fatalf("caller %d: expected no error, got %v", i, errs[i])
				}
				if tokens[i] != "access-1" {
					t.Errorf("caller %d: expected the single refreshed token, got %s", i, tokens[i])
				}
			}
			if calls.Load() != 1 {
				t.Errorf("expected one coalesced refresh, got %d", calls.Load())
			}
		})

		t.Run("Preserves Refresh Token When Server Omits One", func(t *testing.T) {
			var calls atomic.Int64
			srv := tokenEndpoint(t, &calls, "")
			defer srv.Close()

			m := newTestManager(srv.URL, nil, time.Now)
			m.Store().SetTokens(TokenSet{
				AccessToken:  "stale",
				RefreshToken: "keep-me",
				ExpiresAt:    time.Now().Add(-time.Minute),
			})

			if _, err := m.AccessToken(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			ts, _ := m.Store().Tokens()
			if ts.RefreshToken != "keep-me" {
				t.Errorf("expected prior refresh token to survive, got %s", ts.RefreshToken)
			}
		})

		t.Run("Fails Without A Credential", func(t *testing.T) {
			m := newTestManager("http://invalid.test/token", nil, time.Now)

			if _, err := m.AccessToken(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("Wraps Refresh Failures", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			}))
			defer srv.Close()

			m := newTestManager(srv.URL, nil, time.Now)
			m.Store().SetTokens(TokenSet{
				AccessToken:  "stale",
				RefreshToken: "revoked",
				ExpiresAt:    time.Now().Add(-time.Minute),
			})

			if _, err := m.AccessToken(context.Background()); !errors.Is(err, shared.ErrRefreshFailed) {
				t.Errorf("expected ErrRefreshFailed, got %v", err)
			}
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Skips Exchange When Already Replaced", func(t *testing.T) {
			var calls atomic.Int64
			srv := tokenEndpoint(t, &calls, "refresh-next")
			defer srv.Close()

			m := newTestManager(srv.URL, nil, time.Now)
			m.Store().SetTokens(TokenSet{
				AccessToken:  "already-fresh",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(time.Hour),
			})

			token, err := m.Refresh(context.Background(), "stale")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "already-fresh" {
				t.Errorf("expected the replacement token, got %s", token)
			}
			if calls.Load() != 0 {
				t.Errorf("expected no exchange, got %d calls", calls.Load())
			}
		})

		t.Run("Exchanges When Token Is Still Stale", func(t *testing.T) {
			var calls atomic.Int64
			srv := tokenEndpoint(t, &calls, "refresh-next")
			defer srv.Close()

			m := newTestManager(srv.URL, nil, time.Now)
			m.Store().SetTokens(TokenSet{
				AccessToken:  "stale",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(time.Hour),
			})

			token, err := m.Refresh(context.Background(), "stale")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "access-1" {
				t.Errorf("expected a fresh token, got %s", token)
			}
			if calls.Load() != 1 {
				t.Errorf("expected one exchange, got %d", calls.Load())
			}
		})
	})

	t.Run("SignOut", func(t *testing.T) {
		m := newTestManager("http://invalid.test/token", nil, time.Now)
		m.Store().SetTokens(TokenSet{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
		})

		if err := m.SignOut(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if m.Authenticated() {
			t.Error("expected credential to be cleared")
		}
	})

	t.Run("Margined Expiry", func(t *testing.T) {
		fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		m := newTestManager("http://invalid.test/token", nil, func() time.Time { return fixed })

		t.Run("Discounts The Declared Lifetime", func(t *testing.T) {
			got := m.marginedExpiry(fixed.Add(time.Hour))
			want := fixed.Add(time.Hour - expiryMargin)
			if !got.Equal(want) {
				t.Errorf("expected %v, got %v", want, got)
			}
		})

		t.Run("Floors At Now", func(t *testing.T) {
			got := m.marginedExpiry(fixed.Add(10 * time.Second))
			if !got.Equal(fixed) {
				t.Errorf("expected floor at now, got %v", got)
			}
		})

		t.Run("Defaults When Expiry Is Omitted", func(t *testing.T) {
			got := m.marginedExpiry(time.Time{})
			want := fixed.Add(time.Hour - expiryMargin)
			if !got.Equal(want) {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	})
}
