package audio

import (
	"errors"
	"fmt"

	"github.com/arl/blip"
)

// ClockRate is the base clock the mixer timestamps deltas against.
const ClockRate = 4194304

const (
	// DefaultMixInterval is how many APU cycles pass between two mixer
	// samples of the channels.
	DefaultMixInterval = 16

	maxSampleRate      = 48000
	maxSamplesPerFrame = maxSampleRate / 60 * 4 * 2

	// flushClocks bounds how long the band-limited buffers run between two
	// frame ends, so callers that never flush cannot overflow them.
	flushClocks = 4 * 70224

	// sampleScale maps the summed 4-bit channel outputs, at most
	// 4 * 15 * 8 = 480 per side, into the int16 range.
	sampleScale = 64
)

// ErrUnsupportedSampleRate is returned for output rates other than 44100
// and 48000 Hz.
var ErrUnsupportedSampleRate = errors.New("unsupported sample rate")

// Mixer samples the channel outputs on a fixed cycle interval and turns
// them into band-limited stereo PCM.
type Mixer struct {
	left  *blip.Buffer
	right *blip.Buffer
	out   [2 * maxSamplesPerFrame]int16

	sampleRate int
	interval   int
	elapsed    int
	clock      uint64

	prevLeft  int32
	prevRight int32

	pending []int16
}

// NewMixer returns a mixer producing sampleRate Hz output, sampling the
// channels every interval cycles (DefaultMixInterval when zero).
func NewMixer(sampleRate, interval int) (*Mixer, error) {
	if sampleRate != 44100 && sampleRate != 48000 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSampleRate, sampleRate)
	}
	if interval <= 0 {
		interval = DefaultMixInterval
	}

	m := &Mixer{
		left:       blip.NewBuffer(maxSamplesPerFrame),
		right:      blip.NewBuffer(maxSamplesPerFrame),
		sampleRate: sampleRate,
		interval:   interval,
	}
	m.left.SetRates(ClockRate, float64(sampleRate))
	m.right.SetRates(ClockRate, float64(sampleRate))
	return m, nil
}

// SampleRate returns the output rate in Hz.
func (m *Mixer) SampleRate() int {
	return m.sampleRate
}

// Reset drops all buffered audio.
func (m *Mixer) Reset() {
	m.left.Clear()
	m.right.Clear()
	m.elapsed = 0
	m.clock = 0
	m.prevLeft = 0
	m.prevRight = 0
	m.pending = m.pending[:0]
}

func (m *Mixer) untilSample() int {
	return m.interval - m.elapsed
}

func (m *Mixer) advance(cycles int, a *APU) {
	m.elapsed += cycles
	m.clock += uint64(cycles)
	if m.elapsed >= m.interval {
		m.elapsed = 0
		m.mix(a)
	}
	if m.clock >= flushClocks {
		m.flush()
	}
}

func (m *Mixer) mix(a *APU) {
	muted := a.mutedChannels()
	soundSelect := a.nr51.Value()
	volume := a.nr50.Value()

	var left, right int32
	for i, c := range a.channels {
		if muted[i] {
			continue
		}
		s := int32(c.GenSample())
		if c.EnabledLeft(soundSelect) {
			left += s
		}
		if c.EnabledRight(soundSelect) {
			right += s
		}
	}
	left *= (int32(volume>>4&0x07) + 1) * sampleScale
	right *= (int32(volume&0x07) + 1) * sampleScale

	if d := left - m.prevLeft; d != 0 {
		m.left.AddDelta(m.clock, d)
		m.prevLeft = left
	}
	if d := right - m.prevRight; d != 0 {
		m.right.AddDelta(m.clock, d)
		m.prevRight = right
	}
}

func (m *Mixer) flush() {
	m.left.EndFrame(int(m.clock))
	m.right.EndFrame(int(m.clock))
	m.clock = 0

	n := m.left.ReadSamples(m.out[:], maxSamplesPerFrame, blip.Stereo)
	m.right.ReadSamples(m.out[1:], maxSamplesPerFrame, blip.Stereo)
	if room := 2*maxSamplesPerFrame - len(m.pending); 2*n > room {
		// keep the newest audio when nobody is draining the mixer
		m.pending = m.pending[:copy(m.pending, m.pending[2*n-room:])]
	}
	m.pending = append(m.pending, m.out[:2*n]...)
}

// EndFrame closes the current frame and returns every interleaved stereo
// sample produced since the previous call.
func (m *Mixer) EndFrame() []int16 {
	if m.clock > 0 {
		m.flush()
	}
	samples := make([]int16, len(m.pending))
	copy(samples, m.pending)
	m.pending = m.pending[:0]
	return samples
}
