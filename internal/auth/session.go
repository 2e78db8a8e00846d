package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidaldj/internal/server"
	"github.com/desertthunder/tidaldj/internal/shared"
)

// ConsentSession drives the user through one external browser consent step
// and recovers the raw redirect callback. Implementations suspend until the
// user completes or cancels, or the environment reports an error.
type ConsentSession interface {
	Begin(ctx context.Context, authURL string) (*url.URL, error)
}

// SessionController implements [ConsentSession] over a loopback HTTP server:
// the provider redirects the user's browser back to 127.0.0.1 and the
// controller hands the callback URL to the caller unparsed.
//
// At most one session may be active; a second Begin while one is in flight is
// a caller error. The callback server is shut down on every exit path.
type SessionController struct {
	addr        string
	timeout     time.Duration
	logger      *log.Logger
	openBrowser func(string) error

	mu     sync.Mutex
	active bool
}

// NewSessionController creates a controller listening on host:port.
func NewSessionController(host string, port int, logger *log.Logger) *SessionController {
	return &SessionController{
		addr:        fmt.Sprintf("%s:%d", host, port),
		timeout:     2 * time.Minute,
		logger:      logger,
		openBrowser: shared.OpenBrowser,
	}
}

// Begin opens the system browser at authURL and suspends until the redirect
// callback arrives, the context is cancelled (user- or sign-out-initiated,
// reported as [shared.ErrAuthCancelled]), or the wait times out.
func (c *SessionController) Begin(ctx context.Context, authURL string) (*url.URL, error) {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil, shared.ErrSessionActive
	}
	c.active = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
	}()

	handler := server.NewCallbackHandler()
	router := server.NewBasicRouter()
	router.Handler(handler)

	// Bind before opening the browser so the redirect target is live by the
	// time the provider sends the user back
	listener, err := net.Listen("tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback listener on %s: %w", c.addr, err)
	}

	httpServer := &http.Server{Handler: router}

	// Correlates this attempt's log lines when flows are retried
	sessionID := shared.GenerateID()

	serverErrors := make(chan error, 1)
	go func() {
		c.logger.Info("waiting for authorization callback", "session", sessionID, "addr", c.addr)
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	if err := c.openBrowser(authURL); err != nil {
		c.logger.Warnf("could not open browser automatically %v", err)
		c.logger.Infof("open this URL in your browser to continue:\n%s", authURL)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		if result.Error() != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCallback, result.Error())
		}
		return result.URL, nil
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-ctx.Done():
		return nil, shared.ErrAuthCancelled
	case <-timer.C:
		return nil, fmt.Errorf("%w: no authorization callback after %s", shared.ErrTimeout, c.timeout)
	}
}
