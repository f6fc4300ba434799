// Package timing holds the clock constants the scheduler is built from and
// the wall-clock pacing used by interactive sessions.
package timing

import (
	"errors"
	"fmt"
	"time"
)

// Base clock constants at normal speed.
const (
	CPUFrequency    = 4194304
	CyclesPerFrame  = 70224
	SequencerCycles = 8192
)

// Constants are the clock figures injected into the scheduler and the APU.
type Constants struct {
	// CyclesPerFrame is the frame budget in CPU cycles.
	CyclesPerFrame int
	// SequencerCycles is the frame sequencer period in APU cycles.
	SequencerCycles int
	// Frequency is the CPU clock in Hz.
	Frequency int
}

// ForSpeed returns the constants for normal or double speed. In double
// speed the CPU runs twice as many cycles per frame while the display and
// APU keep their own rate.
func ForSpeed(double bool) Constants {
	c := Constants{
		CyclesPerFrame:  CyclesPerFrame,
		SequencerCycles: SequencerCycles,
		Frequency:       CPUFrequency,
	}
	if double {
		c.CyclesPerFrame *= 2
		c.Frequency *= 2
	}
	return c
}

// FPS returns the frame rate implied by the constants.
func (c Constants) FPS() float64 {
	return float64(c.Frequency) / float64(c.CyclesPerFrame)
}

// FrameDuration returns the wall-clock length of one frame.
func (c Constants) FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / c.FPS())
}

// Limiter paces the emulation loop to real time.
type Limiter interface {
	// WaitForNextFrame blocks until the next frame is due. It returns
	// immediately when running behind.
	WaitForNextFrame()

	// Reset restarts pacing, e.g. after a pause.
	Reset()
}

// Limiter kinds accepted by New.
const (
	KindAdaptive = "adaptive"
	KindTicker   = "ticker"
	KindNone     = "none"
)

// ErrUnknownLimiter is returned by New for an unrecognized kind.
var ErrUnknownLimiter = errors.New("unknown limiter")

// New builds a limiter of the given kind pacing frames of length frame.
func New(kind string, frame time.Duration) (Limiter, error) {
	switch kind {
	case KindAdaptive:
		return NewAdaptiveLimiter(frame), nil
	case KindTicker:
		return NewTickerLimiter(frame), nil
	case KindNone, "":
		return NewNoOpLimiter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLimiter, kind)
	}
}

// NewNoOpLimiter returns a limiter that never waits, for headless runs.
func NewNoOpLimiter() Limiter {
	return noOpLimiter{}
}

type noOpLimiter struct{}

func (noOpLimiter) WaitForNextFrame() {}
func (noOpLimiter) Reset() {}
