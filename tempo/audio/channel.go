package audio

import (
	"fmt"

	"github.com/valerio/go-tempo/tempo/bit"
	"github.com/valerio/go-tempo/tempo/hw"
	"github.com/valerio/go-tempo/tempo/register"
)

// Kind tags a channel's generator. The values double as the channel's bit
// in NR52 and NR51.
type Kind uint8

const (
	Pulse1 Kind = 0x01
	Pulse2 Kind = 0x02
	Wave   Kind = 0x04
	Noise  Kind = 0x08
)

func (k Kind) String() string {
	switch k {
	case Pulse1:
		return "pulse1"
	case Pulse2:
		return "pulse2"
	case Wave:
		return "wave"
	case Noise:
		return "noise"
	default:
		return fmt.Sprintf("Kind(0x%02X)", uint8(k))
	}
}

// Register slots within a channel (NRx0 through NRx4).
const (
	nrx0 = iota
	nrx1
	nrx2
	nrx3
	nrx4
)

const (
	lengthEnableBit = 6
	triggerBit      = 7

	maxFrequency = 2047
)

var dutyPatterns = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1}, // 12.5%
	{1, 0, 0, 0, 0, 0, 0, 1}, // 25%
	{1, 0, 0, 0, 0, 1, 1, 1}, // 50%
	{0, 1, 1, 1, 1, 1, 1, 0}, // 75%
}

// waveVolumeShift maps NR32 bits 5-6 to a right shift; a shift of 4 turns
// any nibble into silence.
var waveVolumeShift = [4]uint8{4, 0, 1, 2}

var noiseDivisors = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

func tmpl(name string, reset, write, read, fixed uint8) register.Template[uint8] {
	return register.Template[uint8]{Name: name, Reset: reset, WriteMask: write, ReadMask: read, Fixed: fixed}
}

// registerLayouts gives every channel's registers their power-on value and
// masks. Bits that do not read back are fixed high.
var registerLayouts = map[Kind][5]register.Template[uint8]{
	Pulse1: {
		tmpl("NR10", 0x80, 0x7F, 0x7F, 0x80),
		tmpl("NR11", 0xBF, 0xFF, 0xC0, 0x3F),
		tmpl("NR12", 0xF3, 0xFF, 0xFF, 0x00),
		tmpl("NR13", 0xFF, 0xFF, 0x00, 0xFF),
		tmpl("NR14", 0xBF, 0xC7, 0x40, 0xBF),
	},
	Pulse2: {
		tmpl("NR20", 0xFF, 0x00, 0x00, 0xFF),
		tmpl("NR21", 0x3F, 0xFF, 0xC0, 0x3F),
		tmpl("NR22", 0x00, 0xFF, 0xFF, 0x00),
		tmpl("NR23", 0xFF, 0xFF, 0x00, 0xFF),
		tmpl("NR24", 0xBF, 0xC7, 0x40, 0xBF),
	},
	Wave: {
		tmpl("NR30", 0x7F, 0x80, 0x80, 0x7F),
		tmpl("NR31", 0xFF, 0xFF, 0x00, 0xFF),
		tmpl("NR32", 0x9F, 0x60, 0x60, 0x9F),
		tmpl("NR33", 0xFF, 0xFF, 0x00, 0xFF),
		tmpl("NR34", 0xBF, 0xC7, 0x40, 0xBF),
	},
	Noise: {
		tmpl("NR40", 0xFF, 0x00, 0x00, 0xFF),
		tmpl("NR41", 0xFF, 0x3F, 0x00, 0xFF),
		tmpl("NR42", 0x00, 0xFF, 0xFF, 0x00),
		tmpl("NR43", 0x00, 0xFF, 0xFF, 0x00),
		tmpl("NR44", 0xBF, 0xC0, 0x40, 0xBF),
	},
}

// Channel is one sound generator. Length, envelope and sweep logic is
// shared; what differs per kind is how the period is derived and how a
// sample is produced.
type Channel struct {
	kind     Kind
	revision hw.Revision
	regs     [5]register.Register[uint8]
	wave     *WaveTable
	seq      *FrameSequencer

	enabled bool
	phase   int // duty step (0-7) or wave position (0-31)
	period  int // cycles until the next phase step
	sample  uint8
	lfsr    uint16

	// readingSample is true on the cycle the wave channel fetched a nibble.
	readingSample bool

	length        int
	prevLengthDec bool

	volume          uint8
	envelopeCounter int
	envelopeRunning bool
	prevEnvelopeInc bool

	sweepShadow       uint16
	sweepCounter      int
	sweepEnabled      bool
	performedNegative bool
	prevSweepInc      bool
}

// NewChannel builds a channel of the given kind. The wave channel reads
// from table, which the APU owns; seq is the shared frame sequencer.
func NewChannel(kind Kind, table *WaveTable, seq *FrameSequencer, revision hw.Revision) *Channel {
	layout, ok := registerLayouts[kind]
	if !ok {
		panic(fmt.Sprintf("audio: unrecognized generator kind 0x%02X", uint8(kind)))
	}
	if kind == Wave && table == nil {
		panic("audio: wave channel needs a wave table")
	}

	c := &Channel{
		kind:     kind,
		revision: revision,
		wave:     table,
		seq:      seq,
		enabled:  kind == Pulse1,
		lfsr:     0x7FFF,
	}
	for i, t := range layout {
		c.regs[i] = register.New(t)
	}
	return c
}

func (c *Channel) Kind() Kind { return c.kind }
func (c *Channel) Enabled() bool { return c.enabled }
func (c *Channel) Length() int { return c.length }
func (c *Channel) Volume() uint8 { return c.volume }
func (c *Channel) Phase() int { return c.phase }
func (c *Channel) Period() int { return c.period }
func (c *Channel) ReadingSample() bool { return c.readingSample }
func (c *Channel) SweepShadow() uint16 { return c.sweepShadow }
func (c *Channel) Frequency() uint16 { return c.frequency() }
func (c *Channel) Register(slot int) uint8 { return c.regs[slot].Value() }

// EnabledFlag returns the channel's NR52 status bit, or 0 when disabled.
func (c *Channel) EnabledFlag() uint8 {
	if c.enabled {
		return uint8(c.kind)
	}
	return 0
}

// EnabledLeft gates the channel into the left output using NR51.
func (c *Channel) EnabledLeft(soundSelect uint8) bool {
	return c.enabled && soundSelect&(uint8(c.kind)<<4) != 0
}

// EnabledRight gates the channel into the right output using NR51.
func (c *Channel) EnabledRight(soundSelect uint8) bool {
	return c.enabled && soundSelect&uint8(c.kind) != 0
}

func (c *Channel) frequency() uint16 {
	return uint16(c.regs[nrx3].Value()) | uint16(c.regs[nrx4].Value()&0x07)<<8
}

func (c *Channel) setFrequency(f uint16) {
	c.regs[nrx3].Set(uint8(f))
	c.regs[nrx4].Set(c.regs[nrx4].Value()&^0x07 | uint8(f>>8)&0x07)
}

func (c *Channel) lengthEnabled() bool {
	return bit.IsSet(lengthEnableBit, c.regs[nrx4].Value())
}

func (c *Channel) maxLength() int {
	if c.kind == Wave {
		return 256
	}
	return 64
}

// dacEnabled reports whether the channel's DAC is powered. A channel with
// its DAC off can never be enabled.
func (c *Channel) dacEnabled() bool {
	if c.kind == Wave {
		return bit.IsSet(7, c.regs[nrx0].Value())
	}
	return c.regs[nrx2].Value()&0xF8 != 0
}

func (c *Channel) envelopePeriod() int { return int(c.regs[nrx2].Value() & 0x07) }
func (c *Channel) envelopeIncrease() bool { return bit.IsSet(3, c.regs[nrx2].Value()) }
func (c *Channel) envelopeInitial() uint8 { return c.regs[nrx2].Value() >> 4 }

func (c *Channel) sweepPeriod() int { return int(c.regs[nrx0].Value()>>4) & 0x07 }
func (c *Channel) sweepNegate() bool { return bit.IsSet(3, c.regs[nrx0].Value()) }
func (c *Channel) sweepShift() uint8 { return c.regs[nrx0].Value() & 0x07 }
func (c *Channel) waveVolumeCode() uint8 { return (c.regs[nrx2].Value() >> 5) & 0x03 }

// periodOr8 maps a zero envelope or sweep period to 8, as the hardware
// counters do.
func periodOr8(p int) int {
	if p == 0 {
		return 8
	}
	return p
}

// clocksLength reports whether sequencer step clocks length counters.
func clocksLength(step int) bool {
	return step >= 0 && step%2 == 0
}

// Read returns register slot as the bus sees it.
func (c *Channel) Read(slot int) uint8 {
	return c.regs[slot].Read()
}

// Write stores a bus write to register slot and applies its side effects.
func (c *Channel) Write(slot int, value uint8) {
	switch slot {
	case nrx0:
		c.regs[nrx0].Write(value)
		if c.kind == Pulse1 {
			c.sweepWritten()
		}
		if c.kind == Wave && !c.dacEnabled() {
			c.enabled = false
		}
	case nrx1:
		c.regs[nrx1].Write(value)
		c.loadLength(value)
	case nrx2:
		c.regs[nrx2].Write(value)
		if !c.dacEnabled() {
			c.enabled = false
		}
	case nrx3:
		c.regs[nrx3].Write(value)
	case nrx4:
		c.regs[nrx4].Write(value)
		c.LengthCounterTick(c.seq.Step())
		if bit.IsSet(triggerBit, value) {
			c.CheckTrigger()
		}
	}
}

// WriteLengthWhileOff handles an NRx1 write while the APU is powered
// down, which only reaches the length counter.
func (c *Channel) WriteLengthWhileOff(value uint8) {
	c.loadLength(value)
}

func (c *Channel) loadLength(value uint8) {
	if c.kind == Wave {
		c.length = c.maxLength() - int(value)
		return
	}
	c.length = c.maxLength() - int(value&0x3F)
}

// sweepWritten disables the channel when the sweep is switched from
// subtraction to addition after a subtraction has already been computed.
func (c *Channel) sweepWritten() {
	if c.performedNegative && !c.sweepNegate() {
		c.enabled = false
	}
}

func (c *Channel) reloadPeriod() {
	switch c.kind {
	case Wave:
		c.period = (2048 - int(c.frequency())) * 2
	case Noise:
		nr43 := c.regs[nrx3].Value()
		c.period = noiseDivisors[nr43&0x07] << (nr43 >> 4)
	default:
		c.period = (2048 - int(c.frequency())) * 4
	}
}

// CheckTrigger restarts the channel after a write with the NRx4 trigger
// bit set.
func (c *Channel) CheckTrigger() {
	if c.kind == Wave && c.enabled && c.readingSample && c.revision.CorruptsWaveOnRetrigger() {
		c.wave.corrupt(c.phase)
	}

	step := c.seq.Step()
	if c.length == 0 {
		c.length = c.maxLength()
		if c.lengthEnabled() && clocksLength(step) {
			c.length--
		}
	}

	c.enabled = c.dacEnabled()
	c.reloadPeriod()
	c.readingSample = false

	switch c.kind {
	case Wave:
		c.phase = 0
	case Noise:
		c.lfsr = 0x7FFF
	}

	c.volume = c.envelopeInitial()
	c.envelopeCounter = periodOr8(c.envelopePeriod())
	c.envelopeRunning = c.kind != Wave

	if c.kind == Pulse1 {
		c.sweepShadow = c.frequency()
		c.sweepCounter = periodOr8(c.sweepPeriod())
		c.sweepEnabled = c.sweepPeriod() != 0 || c.sweepShift() != 0
		c.performedNegative = false
		if c.sweepShift() != 0 {
			c.calculateSweep()
		}
	}

	c.EnvelopeTick(step)
	c.SweepTick(step)
}

// TimerTick runs the period countdown for one cycle. When it expires the
// period is reloaded and the waveform advances one step.
func (c *Channel) TimerTick() {
	if c.period > 0 {
		c.period--
	}
	if c.period > 0 {
		c.readingSample = false
		return
	}

	c.reloadPeriod()
	c.readingSample = false

	switch c.kind {
	case Pulse1, Pulse2:
		c.phase = (c.phase + 1) & 0x07
	case Wave:
		c.phase = (c.phase + 1) & 0x1F
		c.sample = c.wave.nibble(c.phase)
		c.readingSample = true
	case Noise:
		c.clockLFSR()
	}
}

// Advance runs TimerTick for cycles, skipping over the cycles in which the
// countdown only decrements.
func (c *Channel) Advance(cycles int) {
	for cycles > 0 {
		if skip := min(cycles, c.period-1); skip > 0 {
			c.period -= skip
			cycles -= skip
			c.readingSample = false
			if cycles == 0 {
				return
			}
		}
		c.TimerTick()
		cycles--
	}
}

func (c *Channel) clockLFSR() {
	nr43 := c.regs[nrx3].Value()
	if nr43>>4 >= 14 {
		return
	}

	feedback := (c.lfsr ^ c.lfsr>>1) & 0x01
	c.lfsr = c.lfsr>>1 | feedback<<14
	if bit.IsSet(3, nr43) {
		c.lfsr = c.lfsr&^(1<<6) | feedback<<6
	}
}

// LengthCounterTick decrements the length counter on the rising edge of
// "this step clocks length and length is enabled". Enabling length right
// after a clocking step therefore costs one extra decrement.
func (c *Channel) LengthCounterTick(step int) {
	dec := clocksLength(step) && c.lengthEnabled()
	if dec && !c.prevLengthDec && c.length > 0 {
		c.length--
		if c.length == 0 {
			c.enabled = false
		}
	}
	c.prevLengthDec = dec
}

// EnvelopeTick clocks the volume envelope on step 7.
func (c *Channel) EnvelopeTick(step int) {
	inc := step == 7 && c.envelopeRunning
	if inc && !c.prevEnvelopeInc {
		c.envelopeCounter--
		if c.envelopeCounter <= 0 {
			c.envelopeCounter = periodOr8(c.envelopePeriod())
			if c.envelopePeriod() != 0 {
				c.stepEnvelope()
			}
		}
	}
	c.prevEnvelopeInc = inc
}

func (c *Channel) stepEnvelope() {
	switch {
	case c.envelopeIncrease() && c.volume < 15:
		c.volume++
	case !c.envelopeIncrease() && c.volume > 0:
		c.volume--
	default:
		c.envelopeRunning = false
	}
}

// SweepTick clocks the frequency sweep on steps 2 and 6.
func (c *Channel) SweepTick(step int) {
	inc := (step == 2 || step == 6) && c.sweepEnabled
	if inc && !c.prevSweepInc {
		c.sweepCounter--
		if c.sweepCounter <= 0 {
			c.sweepCounter = periodOr8(c.sweepPeriod())
			if c.sweepPeriod() != 0 {
				if f, ok := c.calculateSweep(); ok && c.sweepShift() != 0 {
					c.sweepShadow = f
					c.setFrequency(f)
					c.calculateSweep()
				}
			}
		}
	}
	c.prevSweepInc = inc
}

// calculateSweep computes the next sweep frequency from the shadow
// register. A result past the 11-bit range disables the channel and is
// reported as not usable.
func (c *Channel) calculateSweep() (uint16, bool) {
	delta := c.sweepShadow >> c.sweepShift()

	var f uint16
	if c.sweepNegate() {
		c.performedNegative = true
		f = c.sweepShadow - delta
	} else {
		f = c.sweepShadow + delta
	}

	if f > maxFrequency {
		c.enabled = false
		return f, false
	}
	return f, true
}

// GenSample returns the channel's current 4-bit amplitude.
func (c *Channel) GenSample() uint8 {
	switch c.kind {
	case Wave:
		return c.sample >> waveVolumeShift[c.waveVolumeCode()]
	case Noise:
		return uint8(^c.lfsr&0x01) * c.volume
	default:
		duty := c.regs[nrx1].Value() >> 6
		return dutyPatterns[duty][c.phase] * c.volume
	}
}

// Reset returns the channel to the state it was built in, power-on register
// values included.
func (c *Channel) Reset() {
	*c = *NewChannel(c.kind, c.wave, c.seq, c.revision)
}

// PowerOn resets the waveform position when the APU is switched on, and
// clears the sequencer latches along with the sequencer restart.
func (c *Channel) PowerOn() {
	c.phase = 0
	c.sample = 0
	c.readingSample = false
	c.prevLengthDec = false
	c.prevEnvelopeInc = false
	c.prevSweepInc = false
}

// ClearRegisters zeroes the channel when the APU is switched off. On the
// pre-color revision length counters survive.
func (c *Channel) ClearRegisters() {
	for i := range c.regs {
		c.regs[i].Set(0)
	}
	c.enabled = false
	c.volume = 0
	c.envelopeCounter = 0
	c.envelopeRunning = false
	c.sweepShadow = 0
	c.sweepCounter = 0
	c.sweepEnabled = false
	c.performedNegative = false
	c.readingSample = false
	if !c.revision.KeepsLengthWhenOff() {
		c.length = 0
	}
}
