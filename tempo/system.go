// Package tempo wires the peripheral timing core together: interrupt
// controller, timers, display, audio and the scheduler that drives them in
// lockstep with an external instruction core.
package tempo

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/audio"
	"github.com/valerio/go-tempo/tempo/config"
	"github.com/valerio/go-tempo/tempo/events"
	"github.com/valerio/go-tempo/tempo/hw"
	"github.com/valerio/go-tempo/tempo/irq"
	"github.com/valerio/go-tempo/tempo/timer"
	"github.com/valerio/go-tempo/tempo/timing"
	"github.com/valerio/go-tempo/tempo/video"
)

// System is a complete set of peripherals behind one bus and scheduler.
type System struct {
	revision    hw.Revision
	doubleSpeed bool

	bus       *Bus
	irq       *irq.Controller
	timers    *timer.Set
	gpu       *video.GPU
	apu       *audio.APU
	mixer     *audio.Mixer
	scheduler *events.Scheduler
}

// New builds a system from a validated configuration.
func New(cfg config.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mixer, err := audio.NewMixer(cfg.Audio.SampleRate, cfg.Audio.MixInterval)
	if err != nil {
		return nil, fmt.Errorf("creating mixer: %w", err)
	}

	rev := cfg.Revision()
	constants := timing.ForSpeed(cfg.Hardware.DoubleSpeed)

	s := &System{
		revision:    rev,
		doubleSpeed: cfg.Hardware.DoubleSpeed,
		bus:         NewBus(),
		irq:         irq.New(),
		mixer:       mixer,
	}
	s.timers = timer.NewSet(s.irq)
	s.gpu = video.NewGpu(s.bus, s.irq, rev)
	s.apu = audio.New(rev, constants.SequencerCycles)
	s.apu.AttachMixer(mixer)

	s.bus.IRQ = s.irq
	s.bus.Timers = s.timers
	s.bus.GPU = s.gpu
	s.bus.APU = s.apu

	if s.doubleSpeed {
		s.gpu.SetDoubleSpeed(true)
		s.apu.SetDoubleSpeed(true)
	}
	for _, ch := range cfg.Audio.Muted {
		s.apu.MuteChannel(ch, true)
	}

	s.scheduler = events.New(events.Config{
		CyclesPerFrame: constants.CyclesPerFrame,
	}, s.timers, s.gpu, s.apu, s.irq)

	slog.Info("System ready",
		"revision", rev.String(),
		"double_speed", s.doubleSpeed,
		"sample_rate", mixer.SampleRate(),
		"cycles_per_frame", constants.CyclesPerFrame)
	return s, nil
}

// RunFrame runs core and the peripherals for one frame and returns the
// cycles executed.
func (s *System) RunFrame(core events.Core) int {
	return s.scheduler.RunFrame(core)
}

// Reset puts every peripheral back in its power-on state and clears the
// frame carry. VRAM, OAM and the configured speed and mutes are kept.
func (s *System) Reset() {
	s.irq.Reset()
	s.timers.Reset()
	s.gpu.Reset()
	s.apu.Reset()
	s.mixer.Reset()
	if s.doubleSpeed {
		s.gpu.SetDoubleSpeed(true)
	}
	s.scheduler.Reset()
	slog.Info("System reset", "revision", s.revision.String())
}

// Frame returns the last completed frame.
func (s *System) Frame() *video.FrameBuffer {
	return s.gpu.Frame()
}

// Audio flushes the mixer and returns the interleaved stereo samples
// produced since the last call.
func (s *System) Audio() []int16 {
	return s.apu.EndFrame()
}

func (s *System) Bus() *Bus { return s.bus }
func (s *System) GPU() *video.GPU { return s.gpu }
func (s *System) APU() *audio.APU { return s.apu }
func (s *System) Timers() *timer.Set { return s.timers }
func (s *System) IRQ() *irq.Controller { return s.irq }
func (s *System) Scheduler() *events.Scheduler { return s.scheduler }
func (s *System) SampleRate() int { return s.mixer.SampleRate() }
func (s *System) Revision() hw.Revision { return s.revision }

// Status is a snapshot of every peripheral for debug output.
type Status struct {
	Revision hw.Revision
	Frames   uint64
	Cycles   uint64
	Carry    int
	IE       uint8
	IF       uint8
	Timers   [timer.Count]timer.Status
	Video    video.Status
	Audio    audio.Status
}

func (s *System) Status() Status {
	return Status{
		Revision: s.revision,
		Frames:   s.scheduler.Frames(),
		Cycles:   s.scheduler.Cycles(),
		Carry:    s.scheduler.Carry(),
		IE:       s.irq.Read(addr.IE),
		IF:       s.irq.Read(addr.IF),
		Timers:   s.timers.Status(),
		Video:    s.gpu.Status(),
		Audio:    s.apu.Status(),
	}
}
