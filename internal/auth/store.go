package auth

import (
	"sync"
	"time"

	"github.com/desertthunder/tidaldj/internal/models"
	"github.com/desertthunder/tidaldj/internal/shared"
)

// TokenSet is the credential pair issued by the token endpoint, with the
// expiry already discounted by the safety margin.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}

// Valid reports whether the access token still has headroom at the given
// instant.
func (t TokenSet) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// Store is the single authoritative holder of the current token set and the
// cached user profile. All mutation goes through its mutex, so concurrent API
// calls never observe a torn credential.
type Store struct {
	mu      sync.Mutex
	tokens  *TokenSet
	profile *models.UserProfile
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Tokens returns a copy of the current token set, and whether one exists.
func (s *Store) Tokens() (TokenSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokens == nil {
		return TokenSet{}, false
	}
	return *s.tokens, true
}

// SetTokens replaces the stored token set. A set without a refresh token is
// never persisted; callers must carry the previous refresh token forward when
// the server omits a new one.
func (s *Store) SetTokens(ts TokenSet) error {
	if ts.AccessToken == "" || ts.RefreshToken == "" {
		return shared.ErrMissingCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = &ts
	return nil
}

// Profile returns the cached user profile, or nil when none has been fetched.
func (s *Store) Profile() *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// SetProfile caches the user profile alongside the token set.
func (s *Store) SetProfile(p *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p == nil {
		s.profile = nil
		return
	}
	cp := *p
	s.profile = &cp
}

// Clear drops the token set and cached profile together.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	s.profile = nil
}

// Authenticated reports whether a token set is present.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens != nil
}
