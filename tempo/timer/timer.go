package timer

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/bit"
	"github.com/valerio/go-tempo/tempo/irq"
	"github.com/valerio/go-tempo/tempo/register"
)

// Control register bits.
const (
	cascadeBit   = 2
	interruptBit = 6
	runningBit   = 7

	prescalerMask = 0x0003
)

// prescalers maps the control's low two bits to cycles per increment.
var prescalers = [4]int{2, 4, 16, 64}

// reloadDelay is how long an overflowed counter reads zero before it is
// loaded from the reload register.
const reloadDelay = 1

// Timer is a 16-bit prescaled counter with an optional cascade input from
// the previous timer.
type Timer struct {
	id int

	counter register.Register[uint16] // read-only to the bus
	reload  register.Register[uint16] // write-only to the bus
	control register.Register[uint16]

	clock int // cycles since the last increment

	// delay counts down a pending reload; 0 means none is pending.
	delay        int
	reloadIRQ    bool
	fromOverflow bool

	next *Timer
	irq  irq.Requester
}

// New creates timer id. Cascade wiring is done by Set.
func New(id int, requester irq.Requester) *Timer {
	return &Timer{
		id: id,
		counter: register.New(register.Template[uint16]{
			Name: fmt.Sprintf("TM%dCNT_L", id), ReadMask: 0xFFFF,
		}),
		reload: register.New(register.Template[uint16]{
			Name: fmt.Sprintf("TM%dCNT_L", id), WriteMask: 0xFFFF,
		}),
		control: register.New(register.Template[uint16]{
			Name: fmt.Sprintf("TM%dCNT_H", id), WriteMask: 0x00C7, ReadMask: 0x00C7,
		}),
		irq: requester,
	}
}

// ID returns the timer's index.
func (t *Timer) ID() int {
	return t.id
}

func (t *Timer) running() bool {
	return bit.IsSet(runningBit, t.control.Value())
}

func (t *Timer) interruptEnabled() bool {
	return bit.IsSet(interruptBit, t.control.Value())
}

// CascadeEnabled reports whether the timer counts overflows of the previous
// timer instead of cycles. Timer 0 has nothing to cascade from.
func (t *Timer) CascadeEnabled() bool {
	return t.id > 0 && bit.IsSet(cascadeBit, t.control.Value())
}

// CyclesPerTick returns the selected prescaler.
func (t *Timer) CyclesPerTick() int {
	return prescalers[t.control.Value()&prescalerMask]
}

// Counter returns the current counter value as the bus would read it.
func (t *Timer) Counter() uint16 {
	return t.counter.Read()
}

// Reload returns the value that will be loaded on the next overflow.
func (t *Timer) Reload() uint16 {
	return t.reload.Value()
}

// Control returns the control register as the bus would read it.
func (t *Timer) Control() uint16 {
	return t.control.Read()
}

// ReloadPending reports whether the counter is waiting out the reload delay.
func (t *Timer) ReloadPending() bool {
	return t.delay > 0
}

// Tick advances the timer by cycles. A cascade-driven timer only moves
// through its pending reload here; its increments come from the previous
// timer's overflows.
func (t *Timer) Tick(cycles int) {
	for cycles > 0 {
		if t.delay > 0 {
			if cycles < t.delay {
				t.delay -= cycles
				return
			}
			cycles -= t.delay
			t.delay = 0
			t.completeReload()
			continue
		}

		if !t.running() || t.CascadeEnabled() {
			return
		}

		remaining := t.CyclesPerTick() - t.clock
		if cycles < remaining {
			t.clock += cycles
			return
		}
		cycles -= remaining
		t.clock = 0
		t.CounterTick()
	}
}

// CounterTick increments the counter once. On overflow the counter reads
// zero until the reload delay has elapsed.
func (t *Timer) CounterTick() {
	value := t.counter.Value()
	if value != 0xFFFF {
		t.counter.Set(value + 1)
		return
	}

	t.counter.Set(0)
	t.delay = reloadDelay
	t.reloadIRQ = t.interruptEnabled()
	t.fromOverflow = true
	slog.Debug("Timer overflow", "timer", t.id, "reload", fmt.Sprintf("0x%04X", t.reload.Value()))
}

func (t *Timer) completeReload() {
	t.counter.Set(t.reload.Value())

	if !t.fromOverflow {
		return
	}
	t.fromOverflow = false

	if t.reloadIRQ {
		t.irq.RequestInterrupt(addr.TimerInterrupt(t.id))
	}
	if t.next != nil && t.next.running() && t.next.CascadeEnabled() {
		t.next.CounterTick()
	}
}

// WriteReload stores the value loaded on the next overflow or start.
func (t *Timer) WriteReload(value uint16) {
	t.reload.Write(value)
}

// WriteControl updates the control register. Starting a stopped timer
// loads the counter through the same delayed path an overflow takes, so a
// start that lands on a pending reload is indistinguishable from one. A
// reload that is already pending always completes as it was scheduled.
func (t *Timer) WriteControl(value uint16) {
	wasRunning := t.running()
	t.control.Write(value)

	if !wasRunning && t.running() {
		t.clock = 0
		if t.delay == 0 {
			t.delay = reloadDelay
			t.reloadIRQ = false
			t.fromOverflow = false
		}
		slog.Debug("Timer started", "timer", t.id, "control", fmt.Sprintf("0x%04X", t.control.Value()))
	}
}

// NextEvent returns the number of cycles until the counter next changes:
// the end of a pending reload or the next prescaled increment. It returns 0
// when nothing will happen on this timer's own clock.
func (t *Timer) NextEvent() int {
	if t.delay > 0 {
		return t.delay
	}
	if !t.running() || t.CascadeEnabled() {
		return 0
	}
	return t.CyclesPerTick() - t.clock
}

// Reset returns the timer to its power-on state.
func (t *Timer) Reset() {
	t.counter.Reset()
	t.reload.Reset()
	t.control.Reset()
	t.clock = 0
	t.delay = 0
	t.reloadIRQ = false
	t.fromOverflow = false
}

// Status is a read-only view of a timer for debug output.
type Status struct {
	ID            int
	Counter       uint16
	Reload        uint16
	Control       uint16
	ReloadPending bool
	NextEvent     int
}

func (t *Timer) Status() Status {
	return Status{
		ID:            t.id,
		Counter:       t.Counter(),
		Reload:        t.Reload(),
		Control:       t.Control(),
		ReloadPending: t.ReloadPending(),
		NextEvent:     t.NextEvent(),
	}
}
