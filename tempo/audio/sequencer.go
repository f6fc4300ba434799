package audio

// DefaultSequencerCycles is the frame sequencer period at the base clock
// (512 Hz).
const DefaultSequencerCycles = 8192

// FrameSequencer divides the APU clock into eight steps that clock length
// counters (even steps), sweep (steps 2 and 6) and envelopes (step 7).
type FrameSequencer struct {
	period int
	cycles int
	step   int
}

// NewFrameSequencer returns a sequencer stepping every period cycles. It
// starts as if freshly powered on.
func NewFrameSequencer(period int) *FrameSequencer {
	if period <= 0 {
		period = DefaultSequencerCycles
	}
	return &FrameSequencer{period: period, step: -1}
}

// Step returns the last step executed, or -1 before the first one.
func (s *FrameSequencer) Step() int {
	return s.step
}

// Restart puts the sequencer back in its power-on state.
func (s *FrameSequencer) Restart() {
	s.cycles = 0
	s.step = -1
}

func (s *FrameSequencer) remaining() int {
	return s.period - s.cycles
}

// advance moves the sequencer forward and reports whether a step was
// executed. Callers never pass more than remaining() cycles.
func (s *FrameSequencer) advance(cycles int) bool {
	s.cycles += cycles
	if s.cycles < s.period {
		return false
	}
	s.cycles -= s.period
	s.step = (s.step + 1) & 0x07
	return true
}
