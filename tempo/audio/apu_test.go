package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/hw"
)

func TestAPU_RegisterReadback(t *testing.T) {
	tests := []struct {
		name     string
		register uint16
		value    uint8
		expected uint8
	}{
		{"NR10 top bit reads high", addr.NR10, 0x00, 0x80},
		{"NR11 length is write-only", addr.NR11, 0x00, 0x3F},
		{"NR11 duty reads back", addr.NR11, 0xC0, 0xFF},
		{"NR12 fully readable", addr.NR12, 0x5A, 0x5A},
		{"NR13 write-only", addr.NR13, 0x12, 0xFF},
		{"NR14 only length enable reads", addr.NR14, 0x47, 0xFF},
		{"NR14 cleared", addr.NR14, 0x00, 0xBF},
		{"NR20 unused", addr.NR20, 0x00, 0xFF},
		{"NR30 DAC bit", addr.NR30, 0x00, 0x7F},
		{"NR31 write-only", addr.NR31, 0x00, 0xFF},
		{"NR32 volume bits", addr.NR32, 0x40, 0xDF},
		{"NR40 unused", addr.NR40, 0x00, 0xFF},
		{"NR41 write-only", addr.NR41, 0x00, 0xFF},
		{"NR43 fully readable", addr.NR43, 0x3C, 0x3C},
		{"NR44 cleared", addr.NR44, 0x00, 0xBF},
		{"NR50", addr.NR50, 0x12, 0x12},
		{"NR51", addr.NR51, 0x81, 0x81},
		{"unused gap", 0xFF27, 0x00, 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPU(hw.DMG)
			a.Write(tt.register, tt.value)
			assert.Equal(t, tt.expected, a.Read(tt.register))
		})
	}
}

func TestAPU_PowerOnState(t *testing.T) {
	a := newTestAPU(hw.DMG)
	assert.True(t, a.Powered())
	assert.Equal(t, uint8(0xF1), a.Read(addr.NR52))
	assert.Equal(t, uint8(0x77), a.Read(addr.NR50))
	assert.Equal(t, uint8(0xF3), a.Read(addr.NR51))
	assert.Equal(t, uint8(0xF3), a.Read(addr.NR12))
	assert.Equal(t, -1, a.Sequencer().Step())
}

func TestAPU_NR52(t *testing.T) {
	a := newTestAPU(hw.DMG)

	a.Write(addr.NR52, 0x8F)
	assert.Equal(t, uint8(0xF1), a.Read(addr.NR52), "status bits are read-only")

	a.Write(addr.NR42, 0xF0)
	a.Write(addr.NR44, 0x80)
	assert.Equal(t, uint8(0xF9), a.Read(addr.NR52))

	a.Write(addr.NR52, 0x00)
	assert.False(t, a.Powered())
	assert.Equal(t, uint8(0x70), a.Read(addr.NR52))
}

func TestAPU_PowerOff(t *testing.T) {
	a := newTestAPU(hw.DMG)
	a.Write(addr.NR52, 0x00)

	assert.Equal(t, uint8(0x00), a.Read(addr.NR50))
	assert.Equal(t, uint8(0x00), a.Read(addr.NR12))

	a.Write(addr.NR12, 0xF0)
	a.Write(addr.NR51, 0xFF)
	assert.Equal(t, uint8(0x00), a.Read(addr.NR12), "writes are ignored while off")
	assert.Equal(t, uint8(0x00), a.Read(addr.NR51))

	a.Write(addr.WaveRAMStart, 0xAB)
	assert.Equal(t, uint8(0xAB), a.Read(addr.WaveRAMStart), "wave RAM stays accessible")

	a.Tick(4 * step)
	assert.Equal(t, -1, a.Sequencer().Step(), "the sequencer does not run while off")

	a.Write(addr.NR52, 0x80)
	assert.True(t, a.Powered())
	assert.Equal(t, -1, a.Sequencer().Step())
	a.Write(addr.NR12, 0xF0)
	assert.Equal(t, uint8(0xF0), a.Read(addr.NR12))
}

func TestAPU_LengthWritesWhilePoweredOff(t *testing.T) {
	tests := []struct {
		rev      hw.Revision
		expected int
	}{
		{hw.DMG, 1},
		{hw.CGB, 0},
	}

	for _, tt := range tests {
		t.Run(tt.rev.String(), func(t *testing.T) {
			a := newTestAPU(tt.rev)
			a.Write(addr.NR52, 0x00)
			a.Write(addr.NR11, 0x3F)
			assert.Equal(t, tt.expected, a.Channel(0).Length())
			assert.Equal(t, uint8(0x3F), a.Read(addr.NR11), "the register itself stays cleared")
		})
	}
}

func TestAPU_LengthSurvivesPowerCycle(t *testing.T) {
	tests := []struct {
		rev      hw.Revision
		expected int
	}{
		{hw.DMG, 20},
		{hw.CGB, 0},
	}

	for _, tt := range tests {
		t.Run(tt.rev.String(), func(t *testing.T) {
			a := newTestAPU(tt.rev)
			a.Write(addr.NR21, 44)
			a.Write(addr.NR52, 0x00)
			a.Write(addr.NR52, 0x80)
			assert.Equal(t, tt.expected, a.Channel(1).Length())
		})
	}
}

// playWave fills wave RAM with a recognizable pattern and starts the wave
// channel with a two cycle period.
func playWave(a *APU) {
	for i := range 16 {
		a.Write(addr.WaveRAMStart+uint16(i), uint8(i*0x11))
	}
	a.Write(addr.NR30, 0x80)
	a.Write(addr.NR33, 0xFF)
	a.Write(addr.NR34, 0x87)
}

func TestAPU_WaveRetriggerCorruption(t *testing.T) {
	tests := []struct {
		name     string
		rev      hw.Revision
		cycles   int
		expected [4]byte
	}{
		{"first block copies one byte", hw.DMG, 4, [4]byte{0x11, 0x11, 0x22, 0x33}},
		{"later block copies four bytes", hw.DMG, 16, [4]byte{0x44, 0x55, 0x66, 0x77}},
		{"last block", hw.DMG, 60, [4]byte{0xCC, 0xDD, 0xEE, 0xFF}},
		{"not on a fetch cycle", hw.DMG, 17, [4]byte{0x00, 0x11, 0x22, 0x33}},
		{"color revision", hw.CGB, 16, [4]byte{0x00, 0x11, 0x22, 0x33}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPU(tt.rev)
			playWave(a)
			a.Tick(tt.cycles)

			a.Write(addr.NR34, 0x87)
			assert.Equal(t, tt.expected, [4]byte(a.wave[0:4]))
			assert.Equal(t, 0, a.Channel(2).Phase(), "retrigger restarts at the first sample")
		})
	}
}

func TestAPU_WaveAccessWhilePlaying(t *testing.T) {
	tests := []struct {
		name     string
		rev      hw.Revision
		cycles   int
		expected uint8
	}{
		{"fetch cycle reaches the current byte", hw.DMG, 16, 0x44},
		{"other cycles are blocked", hw.DMG, 17, 0xFF},
		{"color revision always reaches the current byte", hw.CGB, 17, 0x44},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPU(tt.rev)
			playWave(a)
			a.Tick(tt.cycles)
			assert.Equal(t, tt.expected, a.Read(addr.WaveRAMStart+0x0F))
		})
	}
}

func TestAPU_DoubleSpeed(t *testing.T) {
	tests := []struct {
		rev      hw.Revision
		expected int
	}{
		{hw.CGB, 0},
		{hw.DMG, 1},
	}

	for _, tt := range tests {
		t.Run(tt.rev.String(), func(t *testing.T) {
			a := newTestAPU(tt.rev)
			a.SetDoubleSpeed(true)
			a.Tick(step)
			a.Tick(step - 1)
			a.Tick(1)
			assert.Equal(t, tt.expected, a.Sequencer().Step())
		})
	}
}

func TestAPU_SequencerPeriodIsConfigurable(t *testing.T) {
	a := New(hw.DMG, 100)
	a.Tick(250)
	assert.Equal(t, 1, a.Sequencer().Step())
}

func TestAPU_MuteControls(t *testing.T) {
	a := newTestAPU(hw.DMG)
	a.Write(addr.NR22, 0xF0)
	a.Write(addr.NR24, 0x80)

	ch1, ch2, ch3, ch4 := a.GetChannelStatus()
	assert.Equal(t, []bool{true, true, false, false}, []bool{ch1, ch2, ch3, ch4})

	a.SoloChannel(2)
	ch1, ch2, _, _ = a.GetChannelStatus()
	assert.False(t, ch1)
	assert.True(t, ch2)

	a.ToggleChannel(2)
	_, ch2, _, _ = a.GetChannelStatus()
	assert.False(t, ch2)

	a.UnmuteAll()
	ch1, ch2, _, _ = a.GetChannelStatus()
	assert.True(t, ch1)
	assert.True(t, ch2)

	a.MuteChannel(1, true)
	a.MuteChannel(9, true)
	status := a.Status()
	assert.True(t, status.Channels[0].Muted)
	assert.False(t, status.Channels[1].Muted)
}

func TestAPU_Status(t *testing.T) {
	a := newTestAPU(hw.DMG)
	a.Write(addr.WaveRAMStart, 0x9A)
	a.Tick(step)

	s := a.Status()
	require.True(t, s.Powered)
	assert.Equal(t, uint8(0xF1), s.NR52)
	assert.Equal(t, 0, s.Step)
	assert.Equal(t, byte(0x9A), s.Wave[0])
	assert.Equal(t, Pulse1, s.Channels[0].Kind)
	assert.Equal(t, Noise, s.Channels[3].Kind)
}

func TestAPU_ResetRestoresPowerOnState(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(a *APU)
	}{
		{"modified registers", func(a *APU) {
			a.Write(addr.NR50, 0x12)
			a.Write(addr.NR51, 0x34)
			a.Write(addr.NR12, 0x00)
			a.Write(addr.NR42, 0xF0)
			a.Write(addr.NR44, 0x80)
			a.Write(addr.WaveRAMStart, 0xAB)
			a.Tick(3 * DefaultSequencerCycles)
		}},
		{"powered off", func(a *APU) {
			a.Write(addr.WaveRAMStart+1, 0xCD)
			a.Write(addr.NR52, 0x00)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAPU(hw.DMG)
			noise := a.Channel(3)
			tt.prepare(a)

			a.Reset()

			fresh := newTestAPU(hw.DMG)
			for address := addr.NR10; address <= addr.WaveRAMEnd; address++ {
				assert.Equal(t, fresh.Read(address), a.Read(address), "register 0x%04X", address)
			}
			assert.True(t, a.Powered())
			assert.Equal(t, -1, a.Sequencer().Step())
			assert.Same(t, noise, a.Channel(3), "channels are reset in place")
			assert.False(t, noise.Enabled())
		})
	}
}
