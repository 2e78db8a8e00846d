// Package player models the two-deck performance surface.
//
// The audio subsystem itself lives behind the [Engine] interface; this
// package owns deck state (loaded track, transport, tempo) and the
// crossfader, and forwards intent to whatever engine is wired in. The
// bundled [NopEngine] stands in until a device audio backend exists.
package player

import (
	"fmt"
	"sync"

	"github.com/desertthunder/tidaldj/internal/models"
)

// DeckID identifies one of the two logical decks.
type DeckID int

const (
	DeckA DeckID = iota
	DeckB
)

func (d DeckID) String() string {
	switch d {
	case DeckA:
		return "Deck A"
	case DeckB:
		return "Deck B"
	default:
		return fmt.Sprintf("Deck(%d)", int(d))
	}
}

// Tempo adjustment bounds, ±8% like hardware pitch faders.
const (
	MinTempo = 0.92
	MaxTempo = 1.08
)

// Engine is the playback subsystem consumed per logical deck. Implementations
// accept a loaded track and perform mixing, tempo-shift, and transport
// control.
type Engine interface {
	Load(deck DeckID, track models.Track) error
	Play(deck DeckID) error
	Pause(deck DeckID) error
	SetTempo(deck DeckID, rate float64) error
	SetCrossfader(position float64) error
}

// NopEngine is a placeholder [Engine] that accepts every command and plays
// nothing.
type NopEngine struct{}

func (NopEngine) Load(DeckID, models.Track) error      { return nil }
func (NopEngine) Play(DeckID) error                    { return nil }
func (NopEngine) Pause(DeckID) error                   { return nil }
func (NopEngine) SetTempo(DeckID, float64) error       { return nil }
func (NopEngine) SetCrossfader(position float64) error { return nil }

// Deck tracks the loaded track and transport state for one deck.
type Deck struct {
	id     DeckID
	engine Engine

	mu      sync.Mutex
	track   *models.Track
	playing bool
	tempo   float64
}

// NewDeck creates an empty deck bound to the engine.
func NewDeck(id DeckID, engine Engine) *Deck {
	return &Deck{id: id, engine: engine, tempo: 1.0}
}

// ID returns the deck identifier.
func (d *Deck) ID() DeckID { return d.id }

// Track returns the loaded track, or nil when the deck is empty.
func (d *Deck) Track() *models.Track {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.track == nil {
		return nil
	}
	t := *d.track
	return &t
}

// Playing reports whether the deck is currently playing.
func (d *Deck) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// Load puts a track on the deck, resetting tempo and transport.
func (d *Deck) Load(track models.Track) error {
	d.mu.Lock()
	d.track = &track
	d.tempo = 1.0
	d.playing = false
	d.mu.Unlock()

	return d.engine.Load(d.id, track)
}

// TogglePlay flips transport state; a no-op on an empty deck.
func (d *Deck) TogglePlay() error {
	d.mu.Lock()
	if d.track == nil {
		d.mu.Unlock()
		return nil
	}
	d.playing = !d.playing
	playing := d.playing
	d.mu.Unlock()

	if playing {
		return d.engine.Play(d.id)
	}
	return d.engine.Pause(d.id)
}

// SetTempo adjusts the playback rate, clamped to the fader range.
func (d *Deck) SetTempo(rate float64) error {
	if rate < MinTempo {
		rate = MinTempo
	}
	if rate > MaxTempo {
		rate = MaxTempo
	}

	d.mu.Lock()
	d.tempo = rate
	d.mu.Unlock()

	return d.engine.SetTempo(d.id, rate)
}

// CurrentBPM returns the effective tempo-adjusted BPM, zero when the loaded
// track carries no tempo hint (or the deck is empty).
func (d *Deck) CurrentBPM() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.track == nil || d.track.BPM == 0 {
		return 0
	}
	return d.track.BPM * d.tempo
}

// Sync nudges this deck's tempo so its BPM matches the master BPM. Decks
// without a tempo hint on either side stay untouched.
func (d *Deck) Sync(masterBPM float64) error {
	d.mu.Lock()
	if d.track == nil || d.track.BPM == 0 || masterBPM == 0 {
		d.mu.Unlock()
		return nil
	}
	original := d.track.BPM
	d.mu.Unlock()

	return d.SetTempo(masterBPM / original)
}

// Reset empties the deck and stops playback.
func (d *Deck) Reset() error {
	d.mu.Lock()
	d.track = nil
	d.playing = false
	d.tempo = 1.0
	d.mu.Unlock()

	return d.engine.Pause(d.id)
}

// Mixer holds both decks and the crossfader.
type Mixer struct {
	engine Engine
	DeckA  *Deck
	DeckB  *Deck

	mu         sync.Mutex
	crossfader float64
}

// NewMixer creates a mixer with two empty decks. A nil engine gets the
// [NopEngine].
func NewMixer(engine Engine) *Mixer {
	if engine == nil {
		engine = NopEngine{}
	}

	return &Mixer{
		engine:     engine,
		DeckA:      NewDeck(DeckA, engine),
		DeckB:      NewDeck(DeckB, engine),
		crossfader: 0.5,
	}
}

// Deck returns the deck for the given id.
func (m *Mixer) Deck(id DeckID) *Deck {
	if id == DeckB {
		return m.DeckB
	}
	return m.DeckA
}

// Crossfader returns the current crossfader position in [0, 1].
func (m *Mixer) Crossfader() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.crossfader
}

// SetCrossfader moves the crossfader, clamped to [0, 1].
func (m *Mixer) SetCrossfader(position float64) error {
	if position < 0 {
		position = 0
	}
	if position > 1 {
		position = 1
	}

	m.mu.Lock()
	m.crossfader = position
	m.mu.Unlock()

	return m.engine.SetCrossfader(position)
}

// Sync matches the given deck's tempo to the other deck's current BPM.
func (m *Mixer) Sync(id DeckID) error {
	target := m.Deck(id)
	master := m.DeckA
	if id == DeckA {
		master = m.DeckB
	}

	return target.Sync(master.CurrentBPM())
}

// Reset empties both decks and recenters the crossfader.
func (m *Mixer) Reset() error {
	if err := m.DeckA.Reset(); err != nil {
		return err
	}
	if err := m.DeckB.Reset(); err != nil {
		return err
	}
	return m.SetCrossfader(0.5)
}
