package video

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/hw"
)

type testMemory [0x10000]byte

func (m *testMemory) Read(address uint16) byte {
	return m[address]
}

type recorder struct {
	raised []addr.Interrupt
}

func (r *recorder) RequestInterrupt(i addr.Interrupt) {
	r.raised = append(r.raised, i)
}

func (r *recorder) count(i addr.Interrupt) int {
	n := 0
	for _, got := range r.raised {
		if got == i {
			n++
		}
	}
	return n
}

func newTestGPU(rev hw.Revision) (*GPU, *testMemory, *recorder) {
	mem := &testMemory{}
	rec := &recorder{}
	return NewGpu(mem, rec, rev), mem, rec
}

func TestFrameVisitsEveryLineOnce(t *testing.T) {
	g, _, _ := newTestGPU(hw.DMG)
	require.Equal(t, uint8(0), g.LY())

	var seen []uint8
	last := g.LY()
	total := 0
	for total < FrameCycles {
		n := g.NextEvent()
		g.Update(n)
		total += n
		if ly := g.LY(); ly != last {
			seen = append(seen, ly)
			last = ly
		}
	}

	var want []uint8
	for ly := 1; ly < totalLines; ly++ {
		want = append(want, uint8(ly))
	}
	want = append(want, 0)

	assert.Equal(t, 70224, total)
	assert.Empty(t, cmp.Diff(want, seen))
	assert.Equal(t, uint64(1), g.Frames())
}

func TestModeSequence(t *testing.T) {
	g, _, rec := newTestGPU(hw.DMG)

	steps := []struct {
		cycles int
		mode   Mode
		ly     uint8
	}{
		{79, OAMSearch, 0},
		{1, Transfer, 0},
		{172, HBlank, 0},
		{204, OAMSearch, 1},
	}
	for _, s := range steps {
		g.Update(s.cycles)
		assert.Equal(t, s.mode, g.Mode())
		assert.Equal(t, s.ly, g.LY())
		assert.Equal(t, uint8(s.mode), g.Read(addr.STAT)&0x03)
	}

	g.Update(scanlineCycles * 143)
	assert.Equal(t, uint8(144), g.LY())
	assert.Equal(t, VBlank, g.Mode())
	assert.Equal(t, 1, rec.count(addr.VBlankInterrupt))

	g.Update(scanlineCycles * 9)
	assert.Equal(t, uint8(153), g.LY())
	assert.Equal(t, VBlank, g.Mode())
	assert.Equal(t, 1, rec.count(addr.VBlankInterrupt))
}

func TestNextEventLandsOnBoundaries(t *testing.T) {
	g, _, _ := newTestGPU(hw.DMG)

	assert.Equal(t, 80, g.NextEvent())
	g.Update(30)
	assert.Equal(t, 50, g.NextEvent())
	g.Update(50)
	assert.Equal(t, 172, g.NextEvent())
	g.Update(172)
	assert.Equal(t, 204, g.NextEvent())
	g.Update(204)
	assert.Equal(t, 1, g.NextEvent(), "first cycle of a line ends the LY=LYC blackout")
	g.Update(1)
	assert.Equal(t, 79, g.NextEvent())
}

func TestSTATInterruptFiresOnRisingEdgeOnly(t *testing.T) {
	g, _, rec := newTestGPU(hw.CGB)
	g.Write(addr.STAT, 0x08) // h-blank check

	g.Update(80 + 172)
	require.Equal(t, HBlank, g.Mode())
	assert.Equal(t, 1, rec.count(addr.LCDSTATInterrupt))

	for range 203 {
		g.Update(1)
	}
	assert.Equal(t, HBlank, g.Mode())
	assert.Equal(t, 1, rec.count(addr.LCDSTATInterrupt), "signal held high must not re-fire")

	g.Update(1 + 80 + 172)
	assert.Equal(t, 2, rec.count(addr.LCDSTATInterrupt))
}

func TestSTATCompositeSignalBlocksBackToBackSources(t *testing.T) {
	g, _, rec := newTestGPU(hw.DMG)
	g.Write(addr.LYC, 200)
	g.Write(addr.STAT, 0x28) // h-blank and OAM checks
	require.Equal(t, 1, rec.count(addr.LCDSTATInterrupt))

	// every h-blank is an edge out of transfer, but the OAM search that
	// follows it never is: the line stays high across the hand-over
	g.Update(scanlineCycles * 10)
	assert.Equal(t, 1+10, rec.count(addr.LCDSTATInterrupt))

	// v-blank has no check enabled, so OAM search on the next frame's
	// line 0 is an edge again
	g.Update(FrameCycles - scanlineCycles*10)
	assert.Equal(t, uint8(0), g.LY())
	assert.Equal(t, 1+visibleLines+1, rec.count(addr.LCDSTATInterrupt))
}

func TestLYCCompareForcedUnequalForOneCycle(t *testing.T) {
	g, _, rec := newTestGPU(hw.CGB)
	g.Write(addr.LYC, 1)
	g.Write(addr.STAT, 0x40)
	require.Equal(t, 0, rec.count(addr.LCDSTATInterrupt))

	g.Update(scanlineCycles)
	require.Equal(t, uint8(1), g.LY())
	assert.Equal(t, uint8(0), g.Read(addr.STAT)&0x04)
	assert.Equal(t, 0, rec.count(addr.LCDSTATInterrupt))

	g.Update(1)
	assert.Equal(t, uint8(0x04), g.Read(addr.STAT)&0x04)
	assert.Equal(t, 1, rec.count(addr.LCDSTATInterrupt))

	g.Update(scanlineCycles - 1)
	assert.Equal(t, uint8(0), g.Read(addr.STAT)&0x04)
	assert.Equal(t, 1, rec.count(addr.LCDSTATInterrupt))
}

func TestLYCWriteComparesImmediately(t *testing.T) {
	g, _, rec := newTestGPU(hw.CGB)
	g.Write(addr.LYC, 5)
	g.Write(addr.STAT, 0x40)
	g.Update(10)

	g.Write(addr.LYC, 0)
	assert.Equal(t, uint8(0x04), g.Read(addr.STAT)&0x04)
	assert.Equal(t, 1, rec.count(addr.LCDSTATInterrupt))
}

func TestSTATWriteGlitch(t *testing.T) {
	tests := []struct {
		rev  hw.Revision
		want int
	}{
		{hw.DMG, 1},
		{hw.CGB, 0},
	}

	for _, tt := range tests {
		t.Run(tt.rev.String(), func(t *testing.T) {
			g, _, rec := newTestGPU(tt.rev)
			g.Write(addr.LYC, 200)
			g.Update(80 + 172)
			require.Equal(t, HBlank, g.Mode())

			g.Write(addr.STAT, 0x00)
			assert.Equal(t, tt.want, rec.count(addr.LCDSTATInterrupt))
		})
	}
}

func TestRegisterMasks(t *testing.T) {
	g, _, _ := newTestGPU(hw.DMG)

	g.Write(addr.STAT, 0xFF)
	assert.Equal(t, uint8(0x80|0x78|0x04|uint8(OAMSearch)), g.Read(addr.STAT))

	g.Write(addr.LY, 0x42)
	assert.Equal(t, uint8(0), g.Read(addr.LY))

	g.Write(addr.SCX, 0x12)
	assert.Equal(t, uint8(0x12), g.Read(addr.SCX))
	assert.Equal(t, uint8(0xFC), g.Read(addr.BGP))
	assert.Equal(t, uint8(0xFF), g.Read(0xFF46))
}

func TestLCDOff(t *testing.T) {
	g, _, rec := newTestGPU(hw.DMG)
	g.Update(scanlineCycles*3 + 100)
	require.Equal(t, uint8(3), g.LY())

	g.Write(addr.LCDC, 0x11)
	assert.Equal(t, uint8(0), g.LY())
	assert.Equal(t, HBlank, g.Mode())
	assert.Equal(t, NoEvent, g.NextEvent())

	g.Update(FrameCycles * 2)
	assert.Equal(t, uint8(0), g.LY())
	assert.Empty(t, rec.raised)

	g.Write(addr.LCDC, 0x91)
	assert.Equal(t, OAMSearch, g.Mode())
	assert.Equal(t, 80, g.NextEvent())
}

func TestDoubleSpeedDoublesFrameLength(t *testing.T) {
	g, _, _ := newTestGPU(hw.CGB)
	g.SetDoubleSpeed(true)

	g.Update(FrameCycles)
	assert.Equal(t, uint8(77), g.LY())

	g.Update(FrameCycles)
	assert.Equal(t, uint8(0), g.LY())
	assert.Equal(t, uint64(1), g.Frames())
}

func TestDoubleSpeedIgnoredOnDMG(t *testing.T) {
	g, _, _ := newTestGPU(hw.DMG)
	g.SetDoubleSpeed(true)

	g.Update(FrameCycles)
	assert.Equal(t, uint8(0), g.LY())
	assert.Equal(t, uint64(1), g.Frames())
}

func TestFramePublishedOnVBlank(t *testing.T) {
	g, mem, _ := newTestGPU(hw.DMG)
	// tile 0 fully black, map already points every entry at tile 0
	for i := range 16 {
		mem[0x8000+i] = 0xFF
	}
	g.Write(addr.BGP, 0xE4)

	before := g.Frame()
	assert.Equal(t, uint32(WhiteColor), before.GetPixel(0, 0))

	g.Update(scanlineCycles * visibleLines)
	frame := g.Frame()
	assert.Equal(t, uint32(BlackColor), frame.GetPixel(0, 0))
	assert.Equal(t, uint32(BlackColor), frame.GetPixel(159, 143))
}
