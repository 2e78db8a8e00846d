// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing a TIDAL library and
// prepping a two-deck set:
//  1. [AuthView] : Sign in with the device browser
//  2. [PlaylistListView] : Browse playlists
//  3. [TrackListView] : Preview tracks and load them onto a deck
//  4. [SearchView] : Free-text track search
//  5. [DeckView] : Transport, tempo sync, and crossfader control
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View
// pattern. Playback intent is forwarded to a [player.Mixer]; network fetches
// run as tea.Cmd functions so the event loop never blocks.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
