package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidaldj/internal/models"
	"github.com/desertthunder/tidaldj/internal/shared"
	"golang.org/x/oauth2"
)

// expiryMargin is subtracted from the server-declared token lifetime so a
// token reported as valid still has headroom when the request lands.
const expiryMargin = 60 * time.Second

// ProfileFetcher loads the signed-in user's profile from the resource API.
// Implemented by the API client; injected after construction to keep the
// lifecycle layer free of endpoint knowledge.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context) (*models.UserProfile, error)
}

// Manager drives the token lifecycle: authorization-code exchange, cached
// access-token reuse, refresh, and sign-out. Exchange and refresh are
// serialized on a single mutex, so concurrent callers that each discover an
// expired token coalesce into one in-flight refresh.
type Manager struct {
	conf      *oauth2.Config
	revokeURL string
	store     *Store
	session   ConsentSession
	client    *http.Client
	logger    *log.Logger
	now       func() time.Time
	profiles  ProfileFetcher

	mu sync.Mutex // guards exchange and refresh

	cancelMu   sync.Mutex
	authCancel context.CancelFunc
}

// ManagerOpts contains dependencies for creating a Manager.
type ManagerOpts struct {
	Conf      *oauth2.Config
	RevokeURL string
	Store     *Store
	Session   ConsentSession
	Client    *http.Client
	Logger    *log.Logger
	Now       func() time.Time
}

// NewManager creates a Manager with the provided dependencies.
func NewManager(opts ManagerOpts) *Manager {
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Manager{
		conf:      opts.Conf,
		revokeURL: opts.RevokeURL,
		store:     opts.Store,
		session:   opts.Session,
		client:    opts.Client,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// SetProfileFetcher registers the API client used to load the profile after
// a successful exchange.
func (m *Manager) SetProfileFetcher(f ProfileFetcher) {
	m.profiles = f
}

// Store exposes the token store for callers that share it (the API client's
// profile cache).
func (m *Manager) Store() *Store {
	return m.store
}

// Authenticated reports whether a token set is currently held.
func (m *Manager) Authenticated() bool {
	return m.store.Authenticated()
}

// Authenticate runs the full consent flow: PKCE generation, browser session,
// callback validation, code exchange, then profile fetch. The returned
// profile is cached alongside the token set.
func (m *Manager) Authenticate(ctx context.Context) (*models.UserProfile, error) {
	pkce, err := NewPKCE()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE parameters: %w", err)
	}

	authURL := m.conf.AuthCodeURL(pkce.State, oauth2.S256ChallengeOption(pkce.Verifier))

	sessionCtx, cancel := context.WithCancel(ctx)
	m.setAuthCancel(cancel)
	defer func() {
		cancel()
		m.setAuthCancel(nil)
	}()

	callback, err := m.session.Begin(sessionCtx, authURL)
	if err != nil {
		return nil, err
	}

	code, err := parseCallback(callback, pkce.State)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	err = m.exchangeLocked(ctx, code, pkce.Verifier)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.logger.Info("authorization code exchanged")

	if m.profiles == nil {
		return m.store.Profile(), nil
	}

	profile, err := m.profiles.FetchProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticated but profile fetch failed: %w", err)
	}
	m.store.SetProfile(profile)

	return profile, nil
}

// AccessToken returns the cached access token while it has headroom, and
// otherwise performs exactly one refresh. Callers blocked on the mutex
// re-check the store after acquiring it, so a refresh completed by another
// caller is observed instead of repeated.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts, ok := m.store.Tokens()
	if !ok {
		return "", shared.ErrNotAuthenticated
	}

	if ts.Valid(m.now()) {
		return ts.AccessToken, nil
	}

	return m.refreshLocked(ctx, ts)
}

// Refresh forces a refresh-token exchange, used by the request pipeline after
// a 401. If another caller already replaced the stale token, the replacement
// is returned without a second exchange.
func (m *Manager) Refresh(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts, ok := m.store.Tokens()
	if !ok {
		return "", shared.ErrNotAuthenticated
	}

	if ts.AccessToken != stale && ts.Valid(m.now()) {
		return ts.AccessToken, nil
	}

	return m.refreshLocked(ctx, ts)
}

// SignOut cancels any open authorization session, fires a best-effort
// revocation call, and unconditionally clears the token set and profile.
func (m *Manager) SignOut(ctx context.Context) error {
	m.cancelMu.Lock()
	if m.authCancel != nil {
		m.authCancel()
		m.authCancel = nil
	}
	m.cancelMu.Unlock()

	if ts, ok := m.store.Tokens(); ok && m.revokeURL != "" {
		// Revocation must not block local teardown
		go m.revoke(ts.AccessToken)
	}

	m.store.Clear()
	return nil
}

func (m *Manager) setAuthCancel(cancel context.CancelFunc) {
	m.cancelMu.Lock()
	m.authCancel = cancel
	m.cancelMu.Unlock()
}

// parseCallback validates the redirect query string and extracts the
// authorization code. A provider error wins over everything else; the state
// check is mandatory and never skipped.
func parseCallback(callback *url.URL, state string) (string, error) {
	query := callback.Query()

	if reason := query.Get("error"); reason != "" {
		return "", &shared.DeniedError{Reason: reason}
	}

	if got := query.Get("state"); got == "" || got != state {
		return "", shared.ErrStateMismatch
	}

	code := query.Get("code")
	if code == "" {
		return "", shared.ErrMissingCode
	}

	return code, nil
}

// exchangeLocked trades the authorization code for a token set. Callers hold
// m.mu.
func (m *Manager) exchangeLocked(ctx context.Context, code, verifier string) error {
	tok, err := m.conf.Exchange(m.httpCtx(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	return m.storeTokenLocked(tok, "")
}

// refreshLocked performs a refresh-token exchange and replaces the stored
// token set, carrying the prior refresh token forward when the server omits a
// new one. Callers hold m.mu.
func (m *Manager) refreshLocked(ctx context.Context, ts TokenSet) (string, error) {
	src := m.conf.TokenSource(m.httpCtx(ctx), &oauth2.Token{RefreshToken: ts.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	// A sign-out that raced the exchange wins; never re-persist a cleared
	// credential.
	if _, ok := m.store.Tokens(); !ok {
		return "", shared.ErrNotAuthenticated
	}

	if err := m.storeTokenLocked(tok, ts.RefreshToken); err != nil {
		return "", err
	}

	m.logger.Debug("access token refreshed")
	return tok.AccessToken, nil
}

// storeTokenLocked converts a wire token into a TokenSet with the expiry
// margin applied and persists it.
func (m *Manager) storeTokenLocked(tok *oauth2.Token, priorRefresh string) error {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = priorRefresh
	}

	scope, _ := tok.Extra("scope").(string)

	ts := TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    m.marginedExpiry(tok.Expiry),
		Scope:        scope,
	}

	if err := m.store.SetTokens(ts); err != nil {
		return fmt.Errorf("%w: token response missing credential fields", shared.ErrInvalidResponse)
	}

	return nil
}

// marginedExpiry discounts the declared expiry by the safety margin, floored
// at the current instant so the remaining lifetime never goes negative.
func (m *Manager) marginedExpiry(expiry time.Time) time.Time {
	now := m.now()
	if expiry.IsZero() {
		// Server omitted expires_in; assume a conservative hour
		expiry = now.Add(time.Hour)
	}

	margined := expiry.Add(-expiryMargin)
	if margined.Before(now) {
		return now
	}
	return margined
}

// httpCtx routes oauth2's internal HTTP calls through the manager's client.
func (m *Manager) httpCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

// revoke posts the token to the provider's revocation endpoint. Failures are
// logged and otherwise ignored.
func (m *Manager) revoke(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", m.conf.ClientID)
	if m.conf.ClientSecret != "" {
		form.Set("client_secret", m.conf.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		m.logger.Warnf("failed to build revocation request %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		m.logger.Warnf("token revocation failed %v", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Warnf("token revocation returned status %d", resp.StatusCode)
	}
}
