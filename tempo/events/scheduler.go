// Package events drives the peripherals in lockstep with an external
// instruction core. The core is never allowed to run past the nearest
// event that could raise an enabled interrupt.
package events

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/valerio/go-tempo/tempo/addr"
)

// NoEvent is returned by NextEventBound when no enabled source has an
// upcoming event.
const NoEvent = math.MaxInt32

// TimerBank is the timer block as the scheduler sees it.
type TimerBank interface {
	Tick(cycles int)
	NextEvent(id int) int
}

// Display is the display controller as the scheduler sees it.
type Display interface {
	Update(cycles int)
	NextEvent() int
}

// Audio is the APU as the scheduler sees it.
type Audio interface {
	Tick(cycles int)
}

// InterruptEnables reports which interrupt sources the program listens to.
type InterruptEnables interface {
	Enabled(i addr.Interrupt) bool
}

// Core is the external instruction core. Execute runs for at most
// maxCycles cycles and returns how many it consumed.
type Core interface {
	Execute(maxCycles int) int
}

// Config carries the clock constants the scheduler is built with.
type Config struct {
	CyclesPerFrame int
}

// Scheduler ticks the peripherals in a fixed order and tracks the per-frame
// cycle budget.
type Scheduler struct {
	config  Config
	timers  TimerBank
	display Display
	audio   Audio
	enables InterruptEnables

	carry  int
	target int
	frames uint64
	cycles uint64
}

// New builds a scheduler. Every collaborator is required.
func New(config Config, timers TimerBank, display Display, audio Audio, enables InterruptEnables) *Scheduler {
	if config.CyclesPerFrame <= 0 {
		panic(fmt.Sprintf("events: invalid cycles per frame %d", config.CyclesPerFrame))
	}
	if timers == nil || display == nil || audio == nil || enables == nil {
		panic("events: scheduler needs timers, display, audio and interrupt enables")
	}

	return &Scheduler{
		config:  config,
		timers:  timers,
		display: display,
		audio:   audio,
		enables: enables,
	}
}

// Config returns the constants the scheduler was built with.
func (s *Scheduler) Config() Config {
	return s.config
}

// NextEventBound returns how many cycles the core may run before some
// peripheral with an enabled interrupt source changes observably.
func (s *Scheduler) NextEventBound() int {
	bound := NoEvent

	for id := range addr.TimerCount {
		if !s.enables.Enabled(addr.TimerInterrupt(id)) {
			continue
		}
		if n := s.timers.NextEvent(id); n != 0 && n < bound {
			bound = n
		}
	}

	if s.enables.Enabled(addr.VBlankInterrupt) || s.enables.Enabled(addr.LCDSTATInterrupt) {
		if n := s.display.NextEvent(); n > 0 && n < bound {
			bound = n
		}
	}

	return bound
}

// Advance ticks every peripheral by exactly cycles: timers, then the
// display, then audio.
func (s *Scheduler) Advance(cycles int) {
	if cycles <= 0 {
		return
	}
	s.timers.Tick(cycles)
	s.display.Update(cycles)
	s.audio.Tick(cycles)
	s.cycles += uint64(cycles)
}

// BeginFrame starts a frame and returns its cycle budget: the nominal frame
// length corrected by whatever the previous frame over- or under-ran.
func (s *Scheduler) BeginFrame() int {
	s.target = s.config.CyclesPerFrame + s.carry
	return s.target
}

// EndFrame closes a frame that executed the given number of cycles.
func (s *Scheduler) EndFrame(executed int) {
	s.carry = s.target - executed
	s.frames++
}

// Reset drops the cycle carry so the next frame gets the nominal budget.
// Frame and cycle totals keep counting.
func (s *Scheduler) Reset() {
	s.carry = 0
	s.target = 0
}

// Carry returns the signed cycle correction applied to the next frame.
func (s *Scheduler) Carry() int {
	return s.carry
}

// Frames returns how many frames have completed.
func (s *Scheduler) Frames() uint64 {
	return s.frames
}

// Cycles returns the total cycles advanced.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles
}

// RunFrame runs core and the peripherals for one frame budget and returns
// the cycles executed. A core that stops consuming cycles is a programming
// error and panics.
func (s *Scheduler) RunFrame(core Core) int {
	budget := s.BeginFrame()
	executed := 0

	for executed < budget {
		bound := min(s.NextEventBound(), budget-executed)
		consumed := core.Execute(bound)
		if consumed <= 0 {
			panic(fmt.Sprintf("events: core made no progress (bound %d)", bound))
		}
		s.Advance(consumed)
		executed += consumed
	}

	s.EndFrame(executed)
	if s.carry != 0 {
		slog.Debug("frame overran budget", "frame", s.frames, "carry", s.carry)
	}
	return executed
}
