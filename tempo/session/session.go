// Package session drives a System one frame at a time against an
// instruction core and hands every completed frame to the host backends.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/valerio/go-tempo/tempo"
	"github.com/valerio/go-tempo/tempo/backend"
	"github.com/valerio/go-tempo/tempo/events"
	"github.com/valerio/go-tempo/tempo/timing"
)

// DefaultQueueSize is the per-backend frame buffer.
const DefaultQueueSize = 2

// ErrClosed is returned by Run on a session that has already run.
var ErrClosed = errors.New("session closed")

// Core is the external instruction core.
type Core = events.Core

// HaltedCore stands in for a core that is halted: it consumes every cycle
// it is offered.
type HaltedCore struct{}

func (HaltedCore) Execute(maxCycles int) int {
	return maxCycles
}

// Options tune a session. The zero value runs forever, unpaced.
type Options struct {
	Title     string
	MaxFrames int            // stop after this many frames, 0 for no limit
	Limiter   timing.Limiter // nil means no pacing
	QueueSize int            // frames buffered per backend, 0 for the default
}

// Session owns the emulation loop. Controls may be called from any
// goroutine and take effect at the next frame boundary.
type Session struct {
	system   *tempo.System
	core     Core
	backends []backend.Backend
	opts     Options

	mu      sync.Mutex
	paused  bool
	steps   int
	reset   bool
	resets  int
	quit    bool
	started bool
	frames  uint64
	wake    chan struct{}
}

func New(system *tempo.System, core Core, opts Options, backends ...backend.Backend) *Session {
	if system == nil || core == nil {
		panic("session: system and core are required")
	}
	if opts.Limiter == nil {
		opts.Limiter = timing.NewNoOpLimiter()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Session{
		system:   system,
		core:     core,
		backends: backends,
		opts:     opts,
		wake:     make(chan struct{}, 1),
	}
}

// Pause stops the loop at the next frame boundary.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		s.paused = true
		slog.Info("Session paused", "frame", s.frames)
	}
}

// Resume continues a paused session.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.paused = false
		s.steps = 0
		slog.Info("Session resumed", "frame", s.frames)
	}
	s.signal()
}

func (s *Session) TogglePause() {
	if s.Paused() {
		s.Resume()
	} else {
		s.Pause()
	}
}

// StepFrame runs exactly one more frame while paused. It does nothing on a
// running session.
func (s *Session) StepFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		s.steps++
		s.signal()
	}
}

// Reset puts the system back in its power-on state at the next frame
// boundary, paused or not.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset = true
	s.signal()
}

// Resets returns how many resets have been applied.
func (s *Session) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Quit stops the loop at the next frame boundary.
func (s *Session) Quit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quit = true
	s.signal()
}

func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Frames returns how many frames this session has run.
func (s *Session) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Callbacks wires backend controls to this session.
func (s *Session) Callbacks() backend.Callbacks {
	return backend.Callbacks{
		OnQuit:        s.Quit,
		OnTogglePause: s.TogglePause,
		OnStep:        s.StepFrame,
		OnReset:       s.Reset,
	}
}

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run initializes the backends, runs frames until Quit, MaxFrames, a backend
// error or ctx cancellation, then cleans the backends up. Cancellation is
// only observed between frames.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrClosed
	}
	s.started = true
	s.mu.Unlock()

	if err := s.initBackends(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	queues := make([]chan backend.Frame, len(s.backends))
	for i, b := range s.backends {
		queue := make(chan backend.Frame, s.opts.QueueSize)
		queues[i] = queue
		g.Go(func() error {
			for frame := range queue {
				if err := b.Update(frame); err != nil {
					return fmt.Errorf("backend %T: %w", b, err)
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer func() {
			for _, q := range queues {
				close(q)
			}
		}()
		return s.loop(gctx, queues)
	})

	err := g.Wait()
	if cleanupErr := s.cleanupBackends(s.backends); cleanupErr != nil {
		err = errors.Join(err, cleanupErr)
	}

	slog.Info("Session finished", "frames", s.Frames(), "error", err)
	return err
}

func (s *Session) initBackends() error {
	config := backend.Config{
		Title:      s.opts.Title,
		SampleRate: s.system.SampleRate(),
		Audio:      s.system.APU(),
		Callbacks:  s.Callbacks(),
	}
	for i, b := range s.backends {
		if err := b.Init(config); err != nil {
			err = fmt.Errorf("failed to initialize backend %T: %w", b, err)
			if cleanupErr := s.cleanupBackends(s.backends[:i]); cleanupErr != nil {
				err = errors.Join(err, cleanupErr)
			}
			return err
		}
	}
	return nil
}

func (s *Session) cleanupBackends(backends []backend.Backend) error {
	var errs []error
	for _, b := range backends {
		if err := b.Cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("failed to clean up backend %T: %w", b, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) loop(ctx context.Context, queues []chan backend.Frame) error {
	s.opts.Limiter.Reset()

	for {
		run, err := s.next(ctx)
		if !run {
			return err
		}

		s.system.RunFrame(s.core)
		frame := backend.Frame{
			Video:  s.system.Frame().Clone(),
			Audio:  s.system.Audio(),
			Status: s.system.Status(),
		}

		s.mu.Lock()
		s.frames++
		frame.Number = s.frames
		s.mu.Unlock()

		for i, q := range queues {
			if l, ok := s.backends[i].(backend.Lossless); ok && l.Lossless() {
				select {
				case q <- frame:
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
			offer(q, frame)
		}

		if s.opts.MaxFrames > 0 && frame.Number >= uint64(s.opts.MaxFrames) {
			slog.Info("Frame limit reached", "frames", frame.Number)
			return nil
		}
		s.opts.Limiter.WaitForNextFrame()
	}
}

// next blocks until another frame may run. It reports false once the
// session should stop, with ctx's error if that was the cause.
func (s *Session) next(ctx context.Context) (bool, error) {
	waited := false
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		s.applyReset()

		s.mu.Lock()
		switch {
		case s.quit:
			s.mu.Unlock()
			return false, nil
		case !s.paused:
			s.mu.Unlock()
			if waited {
				s.opts.Limiter.Reset()
			}
			return true, nil
		case s.steps > 0:
			s.steps--
			s.mu.Unlock()
			return true, nil
		}
		s.mu.Unlock()

		waited = true
		select {
		case <-ctx.Done():
		case <-s.wake:
		}
	}
}

// applyReset runs a pending reset on the loop goroutine, which owns the
// system.
func (s *Session) applyReset() {
	s.mu.Lock()
	pending := s.reset
	s.reset = false
	s.mu.Unlock()
	if !pending {
		return
	}

	s.system.Reset()

	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

// offer hands frame to a backend without blocking, dropping the oldest
// queued frame when it has fallen behind.
func offer(q chan backend.Frame, frame backend.Frame) {
	for {
		select {
		case q <- frame:
			return
		default:
		}
		select {
		case old := <-q:
			slog.Debug("Backend behind, dropping frame", "frame", old.Number)
		default:
		}
	}
}
