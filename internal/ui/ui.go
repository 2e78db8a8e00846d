package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tidaldj/internal/formatter"
	"github.com/desertthunder/tidaldj/internal/models"
	"github.com/desertthunder/tidaldj/internal/player"
	"github.com/desertthunder/tidaldj/internal/services"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	AuthView ViewState = iota
	PlaylistListView
	TrackListView
	SearchView
	DeckView
)

// fader step per keypress
const crossfaderStep = 0.05

// Model represents the TUI application state.
type Model struct {
	ctx              context.Context
	view             ViewState
	tidal            services.Service
	mixer            *player.Mixer
	width            int
	height           int
	profile          *models.UserProfile
	playlistList     list.Model
	playlists        []models.Playlist
	trackList        list.Model
	selectedPlaylist models.Playlist
	tracks           []models.Track
	searchInput      textinput.Model
	signingIn        bool
	deckErr          error
	err              error
	help             help.Model
	keys             keyMap
}

// NewModel creates a new TUI model with the provided dependencies. A nil
// mixer gets a fresh one backed by the [player.NopEngine].
func NewModel(ctx context.Context, tidal services.Service, mixer *player.Mixer) *Model {
	if mixer == nil {
		mixer = player.NewMixer(nil)
	}

	view := AuthView
	if tidal.IsAuthenticated() {
		view = PlaylistListView
	}

	input := textinput.New()
	input.Placeholder = "artist or track"
	input.CharLimit = 120

	return &Model{
		ctx:         ctx,
		view:        view,
		tidal:       tidal,
		mixer:       mixer,
		searchInput: input,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init fetches playlists when a session already exists; otherwise the auth
// view waits for the user to start the consent flow.
func (m *Model) Init() tea.Cmd {
	if m.view == PlaylistListView {
		return m.fetchPlaylists()
	}
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case AuthView:
			return m.handleAuthKeys(msg)
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		case DeckView:
			return m.handleDeckKeys(msg)
		}

	case signedInMsg:
		m.signingIn = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.profile = msg.profile
		m.view = PlaylistListView
		return m, m.fetchPlaylists()

	case playlistsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.playlists = msg.playlists
		items := make([]list.Item, len(msg.playlists))
		for i, pl := range msg.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "TIDAL Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		return m, nil

	case tracksFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, nil
		}
		m.selectedPlaylist = msg.playlist
		m.tracks = msg.tracks
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.playlist.Name)
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case searchResultsMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, nil
		}
		m.tracks = msg.results.Tracks
		items := make([]list.Item, len(msg.results.Tracks))
		for i, track := range msg.results.Tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Results for '%s'", msg.query)
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case deckUpdatedMsg:
		m.deckErr = msg.err
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != AuthView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case AuthView:
		return m.renderAuth()
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case SearchView:
		return m.renderSearch()
	case DeckView:
		return m.renderDecks()
	default:
		return ""
	}
}

func (m *Model) handleAuthKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		if m.signingIn {
			return m, nil
		}
		m.signingIn = true
		m.err = nil
		return m, m.signIn()
	}
	return m, nil
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "d":
		m.view = DeckView
		return m, nil
	case "/":
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		m.view = SearchView
		return m, textinput.Blink
	case "enter":
		selected := m.playlistList.SelectedItem()
		if selected != nil {
			if pl, ok := selected.(playlistItem); ok {
				return m, m.fetchTracks(pl.playlist)
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PlaylistListView
		return m, nil
	case "d":
		m.view = DeckView
		return m, nil
	case "a":
		return m, m.loadDeck(player.DeckA)
	case "b":
		return m, m.loadDeck(player.DeckB)
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.searchInput.Blur()
		m.view = PlaylistListView
		return m, nil
	case "enter":
		query := m.searchInput.Value()
		m.searchInput.Blur()
		return m, m.runSearch(query)
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) handleDeckKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PlaylistListView
		return m, nil
	case "1":
		return m, m.deckCmd(func() error { return m.mixer.DeckA.TogglePlay() })
	case "2":
		return m, m.deckCmd(func() error { return m.mixer.DeckB.TogglePlay() })
	case "s":
		return m, m.deckCmd(func() error { return m.mixer.Sync(player.DeckA) })
	case "S":
		return m, m.deckCmd(func() error { return m.mixer.Sync(player.DeckB) })
	case "left", "h":
		return m, m.deckCmd(func() error {
			return m.mixer.SetCrossfader(m.mixer.Crossfader() - crossfaderStep)
		})
	case "right", "l":
		return m, m.deckCmd(func() error {
			return m.mixer.SetCrossfader(m.mixer.Crossfader() + crossfaderStep)
		})
	case "r":
		return m, m.deckCmd(m.mixer.Reset)
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) signIn() tea.Cmd {
	return func() tea.Msg {
		profile, err := m.tidal.SignIn(m.ctx)
		return signedInMsg{profile: profile, err: err}
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.tidal.Playlists(m.ctx)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) fetchTracks(playlist models.Playlist) tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.tidal.PlaylistTracks(m.ctx, playlist.ID)
		return tracksFetchedMsg{playlist: playlist, tracks: tracks, err: err}
	}
}

func (m *Model) runSearch(query string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.tidal.Search(m.ctx, query)
		return searchResultsMsg{query: query, results: results, err: err}
	}
}

func (m *Model) loadDeck(id player.DeckID) tea.Cmd {
	selected := m.trackList.SelectedItem()
	item, ok := selected.(trackItem)
	if !ok {
		return nil
	}

	m.view = DeckView
	return m.deckCmd(func() error {
		return m.mixer.Deck(id).Load(item.track)
	})
}

func (m *Model) deckCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		return deckUpdatedMsg{err: fn()}
	}
}

func (m *Model) renderAuth() string {
	title := styles.title.Render("TIDAL dj")

	var body string
	switch {
	case m.signingIn:
		body = "Waiting for the browser consent flow to finish..."
	case m.err != nil:
		body = styles.err.Render(fmt.Sprintf("Sign in failed: %v", m.err)) + "\n\nPress enter to retry"
	default:
		body = "Press enter to sign in with your browser"
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.decks, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.loadA, m.keys.loadB, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderSearch() string {
	title := styles.title.Render("Search")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.searchInput.View(), helpView)
}

func (m *Model) renderDecks() string {
	title := styles.title.Render("Decks")

	body := fmt.Sprintf("%s\n%s\n\nCrossfader: %s",
		m.renderDeck(m.mixer.DeckA),
		m.renderDeck(m.mixer.DeckB),
		renderFader(m.mixer.Crossfader()),
	)

	if m.deckErr != nil {
		body += "\n" + styles.warn.Render(fmt.Sprintf("engine: %v", m.deckErr))
	}

	helpKeys := []key.Binding{m.keys.playA, m.keys.playB, m.keys.syncA, m.keys.fadeL, m.keys.fadeR, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderDeck(d *player.Deck) string {
	track := d.Track()
	if track == nil {
		return fmt.Sprintf("%s: %s", d.ID(), styles.help.Render("empty"))
	}

	transport := "paused"
	if d.Playing() {
		transport = styles.ok.Render("playing")
	}

	line := fmt.Sprintf("%s: %s - %s [%s]", d.ID(), track.Artist, track.Title, transport)
	if bpm := d.CurrentBPM(); bpm != 0 {
		line = fmt.Sprintf("%s %s BPM", line, formatter.FormatBPM(bpm))
	}
	return line
}

func renderFader(position float64) string {
	const width = 21
	idx := int(position*float64(width-1) + 0.5)

	fader := []rune("A ")
	for i := 0; i < width; i++ {
		if i == idx {
			fader = append(fader, '|')
		} else {
			fader = append(fader, '-')
		}
	}
	fader = append(fader, []rune(" B")...)
	return string(fader)
}
