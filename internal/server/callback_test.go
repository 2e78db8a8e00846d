package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCallbackHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		h := NewCallbackHandler()
		routes := h.Routes()
		if len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("expected [/callback], got %v", routes)
		}
	})

	t.Run("Delivers The First Hit Verbatim", func(t *testing.T) {
		h := NewCallbackHandler()

		req := httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=xyz", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page")
		}

		select {
		case result := <-h.Result():
			if result.Error() != nil {
				t.Fatalf("expected no error, got %v", result.Error())
			}
			if result.URL.Query().Get("code") != "abc" {
				t.Errorf("expected code in delivered URL, got %s", result.URL.RawQuery)
			}
			if result.URL.Query().Get("state") != "xyz" {
				t.Errorf("expected state in delivered URL, got %s", result.URL.RawQuery)
			}
		default:
			t.Fatal("expected a result to be delivered")
		}
	})

	t.Run("Rejects Replayed Redirects", func(t *testing.T) {
		h := NewCallbackHandler()

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))

		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?code=def", nil))

		if second.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", second.Code)
		}

		result := <-h.Result()
		if result.URL.Query().Get("code") != "abc" {
			t.Errorf("expected the first hit to win, got %s", result.URL.RawQuery)
		}
	})

	t.Run("Renders The Failure Page On Provider Error", func(t *testing.T) {
		h := NewCallbackHandler()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil))

		if !strings.Contains(rec.Body.String(), "Authorization Failed") {
			t.Error("expected failure page")
		}

		// The raw URL is still delivered; interpretation happens upstream
		result := <-h.Result()
		if result.URL.Query().Get("error") != "access_denied" {
			t.Errorf("expected error param to be delivered, got %s", result.URL.RawQuery)
		}
	})

	t.Run("Send Is Idempotent", func(t *testing.T) {
		h := NewCallbackHandler()

		h.Send(CallbackResult{})
		h.Send(CallbackResult{})

		<-h.Result()
		if _, open := <-h.Result(); open {
			t.Error("expected result channel to be closed after delivery")
		}
	})
}
