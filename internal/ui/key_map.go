package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	enter  key.Binding
	back   key.Binding
	loadA  key.Binding
	loadB  key.Binding
	playA  key.Binding
	playB  key.Binding
	syncA  key.Binding
	syncB  key.Binding
	fadeL  key.Binding
	fadeR  key.Binding
	decks  key.Binding
	search key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		loadA:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "load deck A")),
		loadB:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "load deck B")),
		playA:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "play/pause A")),
		playB:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "play/pause B")),
		syncA:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync A to B")),
		syncB:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sync B to A")),
		fadeL:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "fade left")),
		fadeR:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "fade right")),
		decks:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "decks")),
		search: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.loadA, k.loadB, k.playA, k.playB},
		{k.syncA, k.syncB, k.fadeL, k.fadeR},
		{k.decks, k.search, k.quit},
	}
}
