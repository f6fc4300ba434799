package audio

import (
	"log/slog"
	"sync"

	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/bit"
	"github.com/valerio/go-tempo/tempo/hw"
	"github.com/valerio/go-tempo/tempo/register"
)

const powerBit = 7

// APU owns the four channels, the wave table and the frame sequencer, and
// routes the 0xFF10-0xFF3F register window to them.
// Reference: https://gbdev.io/pandocs/Audio_Registers.html
type APU struct {
	revision hw.Revision
	channels [4]*Channel
	wave     WaveTable
	seq      *FrameSequencer

	nr50 register.Register[uint8]
	nr51 register.Register[uint8]
	nr52 register.Register[uint8]

	powered     bool
	doubleSpeed bool
	halfCycle   int

	mixer *Mixer

	// mu guards the debug mute state, which is driven from the UI goroutine.
	mu    sync.Mutex
	muted [4]bool
}

// New builds an APU in its power-on state. sequencerCycles sets the frame
// sequencer period; zero selects DefaultSequencerCycles.
func New(revision hw.Revision, sequencerCycles int) *APU {
	a := &APU{
		revision: revision,
		seq:      NewFrameSequencer(sequencerCycles),
	}
	for i, kind := range []Kind{Pulse1, Pulse2, Wave, Noise} {
		a.channels[i] = NewChannel(kind, &a.wave, a.seq, revision)
	}
	a.nr50 = register.New(register.Template[uint8]{Name: "NR50", Reset: 0x77, WriteMask: 0xFF, ReadMask: 0xFF})
	a.nr51 = register.New(register.Template[uint8]{Name: "NR51", Reset: 0xF3, WriteMask: 0xFF, ReadMask: 0xFF})
	a.nr52 = register.New(register.Template[uint8]{Name: "NR52", Reset: 0x80, WriteMask: 0x80, ReadMask: 0x80, Fixed: 0x70})
	a.powered = true
	return a
}

// Reset returns the APU to its power-on state: NR50-NR52, every channel,
// the wave table and the frame sequencer. The speed mode, the attached mixer
// and debug mutes are kept.
func (a *APU) Reset() {
	a.nr50.Reset()
	a.nr51.Reset()
	a.nr52.Reset()
	a.wave = WaveTable{}
	a.seq.Restart()
	for _, c := range a.channels {
		c.Reset()
	}
	a.powered = true
	a.halfCycle = 0
	slog.Debug("apu reset")
}

// Channel returns channel i (0-3).
func (a *APU) Channel(i int) *Channel {
	return a.channels[i]
}

// Sequencer exposes the frame sequencer shared by the channels.
func (a *APU) Sequencer() *FrameSequencer {
	return a.seq
}

// Powered reports the NR52 master enable.
func (a *APU) Powered() bool {
	return a.powered
}

// AttachMixer connects a mixer that samples the channels as the APU runs.
func (a *APU) AttachMixer(m *Mixer) {
	a.mixer = m
}

// Mixer returns the attached mixer, if any.
func (a *APU) Mixer() *Mixer {
	return a.mixer
}

// SetDoubleSpeed switches the APU to count every other CPU cycle, keeping
// its own rate constant when the CPU runs at twice the speed.
func (a *APU) SetDoubleSpeed(enabled bool) {
	if enabled && !a.revision.SupportsDoubleSpeed() {
		slog.Warn("double speed not supported, ignoring", "revision", a.revision)
		return
	}
	a.doubleSpeed = enabled
	a.halfCycle = 0
}

// Tick advances the APU by cycles CPU cycles.
func (a *APU) Tick(cycles int) {
	if a.doubleSpeed {
		cycles += a.halfCycle
		a.halfCycle = cycles & 1
		cycles >>= 1
	}

	for cycles > 0 {
		step := cycles
		if a.powered {
			step = min(step, a.seq.remaining())
		}
		if a.mixer != nil {
			step = min(step, a.mixer.untilSample())
		}

		if a.powered {
			for _, c := range a.channels {
				if c.enabled {
					c.Advance(step)
				}
			}
		}
		if a.mixer != nil {
			a.mixer.advance(step, a)
		}
		if a.powered && a.seq.advance(step) {
			a.clockSequencer()
		}
		cycles -= step
	}
}

func (a *APU) clockSequencer() {
	step := a.seq.Step()
	for _, c := range a.channels {
		c.LengthCounterTick(step)
		c.EnvelopeTick(step)
		c.SweepTick(step)
	}
}

// channelRegister maps an address in 0xFF10-0xFF23 to a channel and slot.
func channelRegister(address uint16) (int, int, bool) {
	if address < addr.NR10 || address > addr.NR44 {
		return 0, 0, false
	}
	offset := int(address - addr.NR10)
	return offset / 5, offset % 5, true
}

// Read returns the value of an APU register as the bus sees it.
func (a *APU) Read(address uint16) uint8 {
	if ch, slot, ok := channelRegister(address); ok {
		return a.channels[ch].Read(slot)
	}

	switch {
	case address == addr.NR50:
		return a.nr50.Read()
	case address == addr.NR51:
		return a.nr51.Read()
	case address == addr.NR52:
		return a.status()
	case address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		return a.readWave(address)
	}

	return 0xFF
}

func (a *APU) status() uint8 {
	v := a.nr52.Read()
	for _, c := range a.channels {
		v |= c.EnabledFlag()
	}
	return v
}

// Write stores a bus write to an APU register.
func (a *APU) Write(address uint16, value uint8) {
	switch {
	case address == addr.NR52:
		a.writePower(value)
		return
	case address >= addr.WaveRAMStart && address <= addr.WaveRAMEnd:
		a.writeWave(address, value)
		return
	}

	ch, slot, isChannel := channelRegister(address)
	if !a.powered {
		if isChannel && slot == nrx1 && a.revision.KeepsLengthWhenOff() {
			a.channels[ch].WriteLengthWhileOff(value)
		}
		return
	}

	switch {
	case isChannel:
		a.channels[ch].Write(slot, value)
	case address == addr.NR50:
		a.nr50.Write(value)
	case address == addr.NR51:
		a.nr51.Write(value)
	}
}

func (a *APU) writePower(value uint8) {
	was := a.powered
	a.nr52.Write(value)
	a.powered = bit.IsSet(powerBit, value)

	switch {
	case was && !a.powered:
		for _, c := range a.channels {
			c.ClearRegisters()
		}
		a.nr50.Set(0)
		a.nr51.Set(0)
		slog.Debug("apu powered off")
	case !was && a.powered:
		a.seq.Restart()
		for _, c := range a.channels {
			c.PowerOn()
		}
		slog.Debug("apu powered on")
	}
}

// waveIndex returns the wave table byte a CPU access at address reaches.
// While the wave channel plays, accesses are redirected to the byte it is
// reading; on the pre-color revision they only land on the fetch cycle.
func (a *APU) waveIndex(address uint16) (int, bool) {
	wave := a.channels[2]
	if !wave.enabled {
		return int(address - addr.WaveRAMStart), true
	}
	if a.revision == hw.DMG && !wave.readingSample {
		return 0, false
	}
	return wave.phase >> 1, true
}

func (a *APU) readWave(address uint16) uint8 {
	i, ok := a.waveIndex(address)
	if !ok {
		return 0xFF
	}
	return a.wave[i]
}

func (a *APU) writeWave(address uint16, value uint8) {
	if i, ok := a.waveIndex(address); ok {
		a.wave[i] = value
	}
}

// ChannelStatus describes one channel for debugging views.
type ChannelStatus struct {
	Kind      Kind
	Enabled   bool
	Muted     bool
	Volume    uint8
	Length    int
	Frequency uint16
	Phase     int
}

// Status is a snapshot of the APU's observable state.
type Status struct {
	Powered  bool
	NR50     uint8
	NR51     uint8
	NR52     uint8
	Step     int
	Channels [4]ChannelStatus
	Wave     WaveTable
}

// Status returns a snapshot of the APU for debug output.
func (a *APU) Status() Status {
	muted := a.mutedChannels()
	s := Status{
		Powered: a.powered,
		NR50:    a.nr50.Value(),
		NR51:    a.nr51.Value(),
		NR52:    a.status(),
		Step:    a.seq.Step(),
		Wave:    a.wave,
	}
	for i, c := range a.channels {
		s.Channels[i] = ChannelStatus{
			Kind:      c.kind,
			Enabled:   c.enabled,
			Muted:     muted[i],
			Volume:    c.volume,
			Length:    c.length,
			Frequency: c.frequency(),
			Phase:     c.phase,
		}
	}
	return s
}

func (a *APU) mutedChannels() [4]bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.muted
}

// MuteChannel mutes or unmutes a channel (1-4) in the mixed output.
func (a *APU) MuteChannel(channel int, muted bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if channel >= 1 && channel <= 4 {
		a.muted[channel-1] = muted
	}
}

// ToggleChannel flips the mute state of a channel (1-4).
func (a *APU) ToggleChannel(channel int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if channel >= 1 && channel <= 4 {
		a.muted[channel-1] = !a.muted[channel-1]
	}
}

// SoloChannel mutes every channel except the given one.
func (a *APU) SoloChannel(channel int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.muted {
		a.muted[i] = i != channel-1
	}
}

// UnmuteAll unmutes all channels.
func (a *APU) UnmuteAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.muted {
		a.muted[i] = false
	}
}

// GetChannelStatus reports, per channel, whether it is audible: enabled
// and not muted.
func (a *APU) GetChannelStatus() (ch1, ch2, ch3, ch4 bool) {
	muted := a.mutedChannels()
	audible := func(i int) bool { return a.channels[i].enabled && !muted[i] }
	return audible(0), audible(1), audible(2), audible(3)
}
