// Package services defines the [Service] interface for the music provider
// API and implements it for TIDAL.
//
// # Service Interface
//
// The presentation layer (CLI commands and the TUI) talks only to [Service];
// authentication, token custody, and wire decoding stay behind it.
//
// # TIDAL Implementation
//
// [TidalService] authenticates with OAuth2 Authorization-Code-with-PKCE via
// [auth.Manager] and keeps the credential in memory for the life of the
// process.
//
// Every authorized call flows through a single request pipeline that:
//   - borrows the current access token from the lifecycle manager (refreshing
//     it when the expiry margin has run out)
//   - rate-limits attempts with a client-side [rate.Limiter]
//   - retries exactly once on 401 after a forced refresh, then gives up and
//     clears the credential
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : no credential held, sign in again
//   - [shared.ErrInvalidResponse] : 2xx body failed to decode
//   - [shared.ErrNetwork] : transport-layer failure
//   - [shared.StatusError] : non-2xx status without a usable error body
//
// # API Mappings
//
// Wire payloads (snake_case, string-or-numeric identifiers) are normalized at
// the decode boundary and converted to models.Track / models.Playlist /
// models.UserProfile by pure mapper functions.
package services
