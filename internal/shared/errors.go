package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthCancelled    = fmt.Errorf("authentication cancelled")
	ErrInvalidCallback  = fmt.Errorf("invalid callback")
	ErrStateMismatch    = fmt.Errorf("state mismatch")
	ErrMissingCode      = fmt.Errorf("missing authorization code")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrSessionActive    = fmt.Errorf("authorization session already active")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrInvalidResponse    = fmt.Errorf("invalid response")
	ErrNetwork            = fmt.Errorf("network failure")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// StatusError reports a non-2xx HTTP status that carried no usable error body.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// DeniedError is returned when the authorization provider rejects the consent
// request, carrying the provider-supplied reason (e.g. "access_denied").
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("authorization denied: %s", e.Reason)
}
