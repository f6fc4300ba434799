package backend

import (
	"github.com/valerio/go-tempo/tempo"
	"github.com/valerio/go-tempo/tempo/audio"
	"github.com/valerio/go-tempo/tempo/video"
)

// Backend consumes the output of a running system (frames, audio, state).
// Backends are responsible for:
// - Presenting or persisting what they receive (terminal, PNG files, WAV)
// - Translating host events to session controls via Callbacks
type Backend interface {
	// Init configures the backend. This is a required step before calling Update.
	Init(config Config) error

	// Update handles one completed frame. Backends that cannot keep up miss
	// frames rather than stall the session, unless they implement Lossless.
	Update(frame Frame) error

	// Cleanup resources when shutting down
	Cleanup() error
}

// Lossless is implemented by backends that must see every frame, such as
// recorders. The session waits for them instead of dropping frames.
type Lossless interface {
	Lossless() bool
}

// Frame is everything a backend sees for one completed frame. The same
// Frame is handed to every backend, which must treat it as read-only.
type Frame struct {
	Number uint64
	Video  *video.FrameBuffer
	Audio  []int16
	Status tempo.Status
}

// Config holds configuration for backends
type Config struct {
	Title      string
	SampleRate int
	Audio      audio.Provider // optional, enables channel toggles
	Callbacks  Callbacks
}

// Callbacks allows backends to drive the session. Any of them may be nil.
type Callbacks struct {
	OnQuit        func()
	OnTogglePause func()
	OnStep        func()
	OnReset       func()
}

func (c Callbacks) Quit() {
	if c.OnQuit != nil {
		c.OnQuit()
	}
}

func (c Callbacks) TogglePause() {
	if c.OnTogglePause != nil {
		c.OnTogglePause()
	}
}

func (c Callbacks) Step() {
	if c.OnStep != nil {
		c.OnStep()
	}
}

func (c Callbacks) Reset() {
	if c.OnReset != nil {
		c.OnReset()
	}
}
