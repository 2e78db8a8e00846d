package server

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
)

// CallbackResult carries the raw redirect URL recovered from the provider, or
// a transport-level error. Query parsing and validation (state, code, error)
// belong to the token lifecycle layer, not here.
type CallbackResult struct {
	URL *url.URL
	err error
}

func (r CallbackResult) Error() error {
	return r.err
}

// CallbackHandler serves the OAuth redirect endpoint and hands the raw
// callback URL to the waiting authorization session.
// Implements the Handler interface for registration with a Router.
type CallbackHandler struct {
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a handler that delivers exactly one result.
func NewCallbackHandler() *CallbackHandler {
	return &CallbackHandler{
		resultChan: make(chan CallbackResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the redirect request.
//
// The first hit is delivered verbatim through the result channel; repeated
// hits are rejected so a replayed redirect cannot restart the flow.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	// Clone before the request goes out of scope
	cb := *r.URL
	h.Send(CallbackResult{URL: &cb})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)

	if r.URL.Query().Get("error") != "" {
		fmt.Fprint(w, callbackPage("✗ Authorization Failed", "You can close this window and return to the app."))
		return
	}
	fmt.Fprint(w, callbackPage("✓ Authorization Successful", "You can close this window and return to the app."))
}

// Send sends the callback result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

func callbackPage(heading, detail string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <title>tdj</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0e0e10; color: #eee; }
        .container { text-align: center; background: #1b1b1f; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.4); }
        h1 { color: #33ffee; margin: 0 0 1rem 0; }
        p { color: #999; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`, heading, detail)
}
