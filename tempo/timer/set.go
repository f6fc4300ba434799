package timer

import (
	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/irq"
)

// Count is the number of timers in the block.
const Count = 4

// Set groups the four timers and wires each one's overflow into the next.
type Set struct {
	timers [Count]*Timer
}

func NewSet(requester irq.Requester) *Set {
	s := &Set{}
	for i := range s.timers {
		s.timers[i] = New(i, requester)
	}
	for i := 0; i < Count-1; i++ {
		s.timers[i].next = s.timers[i+1]
	}
	return s
}

// Timer returns timer id.
func (s *Set) Timer(id int) *Timer {
	return s.timers[id]
}

// Tick advances every timer by cycles. Work is split at the nearest timer
// event so a cascade increment lands on the exact cycle it happens. Within
// a chunk timers run from the last to the first, so an increment cascaded
// into a timer arrives after that timer has already consumed the chunk.
func (s *Set) Tick(cycles int) {
	for cycles > 0 {
		step := cycles
		for _, t := range s.timers {
			if n := t.NextEvent(); n > 0 && n < step {
				step = n
			}
		}

		for i := Count - 1; i >= 0; i-- {
			s.timers[i].Tick(step)
		}
		cycles -= step
	}
}

// NextEvent returns the distance to timer id's next event, or 0 if nothing
// can change it. A cascade-driven timer has no clock of its own, so it
// reports the next event of the first self-clocked timer feeding it.
func (s *Set) NextEvent(id int) int {
	for ; id >= 0; id-- {
		t := s.timers[id]
		if n := t.NextEvent(); n > 0 {
			return n
		}
		if !t.running() || !t.CascadeEnabled() {
			return 0
		}
	}
	return 0
}

// Read returns a 16-bit timer register. The counter/reload slot reads the
// live counter; the reload value itself is write-only.
func (s *Set) Read(address uint16) uint16 {
	id, control, ok := decode(address)
	if !ok {
		return 0
	}
	if control {
		return s.timers[id].Control()
	}
	return s.timers[id].Counter()
}

// Write stores a 16-bit timer register.
func (s *Set) Write(address uint16, value uint16) {
	id, control, ok := decode(address)
	if !ok {
		return
	}
	if control {
		s.timers[id].WriteControl(value)
		return
	}
	s.timers[id].WriteReload(value)
}

// Reset returns all timers to power-on state.
func (s *Set) Reset() {
	for _, t := range s.timers {
		t.Reset()
	}
}

func decode(address uint16) (id int, control bool, ok bool) {
	if address < addr.TimerStart || address > addr.TimerEnd || address&1 != 0 {
		return 0, false, false
	}
	offset := address - addr.TimerStart
	return int(offset / 4), offset%4 == 2, true
}

// Status returns a snapshot of every timer.
func (s *Set) Status() [Count]Status {
	var out [Count]Status
	for i, t := range s.timers {
		out[i] = t.Status()
	}
	return out
}
