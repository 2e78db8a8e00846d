// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/tidaldj/internal/models"
)

// MockService is a test double for [services.Service]
type MockService struct {
	Authed        bool
	ProfileValue  *models.UserProfile
	PlaylistsVal  []models.Playlist
	TracksVal     []models.Track
	SearchVal     *models.SearchResults
	Err           error
	SignInCalls   int
	SignOutCalls  int
	SearchQueries []string
}

func (m *MockService) SignIn(ctx context.Context) (*models.UserProfile, error) {
	m.SignInCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	m.Authed = true
	return m.ProfileValue, nil
}

func (m *MockService) SignOut(ctx context.Context) error {
	m.SignOutCalls++
	m.Authed = false
	return nil
}

func (m *MockService) Profile(ctx context.Context) (*models.UserProfile, error) {
	return m.ProfileValue, m.Err
}

func (m *MockService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	return m.PlaylistsVal, m.Err
}

func (m *MockService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	return m.TracksVal, m.Err
}

func (m *MockService) Search(ctx context.Context, query string) (*models.SearchResults, error) {
	m.SearchQueries = append(m.SearchQueries, query)
	if m.SearchVal != nil {
		return m.SearchVal, m.Err
	}
	return &models.SearchResults{}, m.Err
}

func (m *MockService) IsAuthenticated() bool { return m.Authed }
func (m *MockService) Name() string          { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	Calls    int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.Calls++
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
