package timing

import (
	"log/slog"
	"time"
)

const (
	spinThreshold  = 2 * time.Millisecond
	behindSchedule = 5 * time.Millisecond
	driftTolerance = 10 * time.Millisecond
	driftWindow    = 60
)

// AdaptiveLimiter sleeps for most of the wait and spins for the last
// stretch, correcting accumulated drift once per window of frames.
type AdaptiveLimiter struct {
	frame   time.Duration
	next    time.Time
	started time.Time
	frames  int64

	now func() time.Time
}

func NewAdaptiveLimiter(frame time.Duration) *AdaptiveLimiter {
	a := &AdaptiveLimiter{frame: frame, now: time.Now}
	a.Reset()
	return a
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := a.now()
	wait := a.next.Sub(now)

	switch {
	case wait > spinThreshold:
		time.Sleep(wait - time.Millisecond)
		a.spin()
	case wait > 0:
		a.spin()
	case wait < -behindSchedule:
		// too far behind to catch up; restart the schedule from here
		a.next = now
	}

	a.next = a.next.Add(a.frame)
	a.frames++

	if a.frames%driftWindow == 0 {
		a.correctDrift()
	}
}

func (a *AdaptiveLimiter) spin() {
	for a.now().Before(a.next) {
	}
}

func (a *AdaptiveLimiter) correctDrift() {
	expected := a.started.Add(time.Duration(a.frames) * a.frame)
	drift := a.now().Sub(expected)
	if drift.Abs() <= driftTolerance {
		return
	}

	a.next = a.next.Add(drift / 10)
	slog.Debug("frame pacing drift",
		"drift_ms", drift.Milliseconds(),
		"frames", a.frames)
}

func (a *AdaptiveLimiter) Reset() {
	a.next = a.now()
	a.started = a.next
	a.frames = 0
}
