package video

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/bit"
	"github.com/valerio/go-tempo/tempo/hw"
	"github.com/valerio/go-tempo/tempo/irq"
	"github.com/valerio/go-tempo/tempo/register"
)

// Mode is the display's current scanline phase, as reported in STAT bits 0-1.
type Mode uint8

const (
	HBlank Mode = iota
	VBlank
	OAMSearch
	Transfer
)

func (m Mode) String() string {
	switch m {
	case HBlank:
		return "hblank"
	case VBlank:
		return "vblank"
	case OAMSearch:
		return "oam"
	case Transfer:
		return "transfer"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

const (
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	hblankCycles       = 204
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles

	visibleLines = 144
	totalLines   = 154

	// FrameCycles is the length of one frame at normal speed.
	FrameCycles = scanlineCycles * totalLines
)

// NoEvent is what NextEvent returns while the display is switched off.
const NoEvent = math.MaxInt32

// LCDC (LCD Control) Register bit values
// Bit 7 - LCD Display Enable (0=Off, 1=On)
// Bit 6 - Window Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 5 - Window Display Enable (0=Off, 1=On)
// Bit 4 - BG & Window Tile Data Select (0=8800-97FF, 1=8000-8FFF)
// Bit 3 - BG Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 2 - OBJ (Sprite) Size (0=8x8, 1=8x16)
// Bit 1 - OBJ (Sprite) Display Enable (0=Off, 1=On)
// Bit 0 - BG Display (0=Off, 1=On)
const (
	lcdDisplayEnable       = 7
	windowTileMapSelect    = 6
	windowDisplayEnable    = 5
	bgWindowTileDataSelect = 4
	bgTileMapDisplaySelect = 3
	spriteSize             = 2
	spriteDisplayEnable    = 1
	bgDisplay              = 0
)

// STAT bits. 0-2 are driven by the hardware, 3-6 select which conditions
// feed the LCDSTAT interrupt line.
const (
	statCoincidence = 2
	statHBlankCheck = 3
	statVBlankCheck = 4
	statOAMCheck    = 5
	statLYCCheck    = 6

	statModeMask = 0x03
)

// GPU is the display controller: scanline counter, mode sequencer, the
// edge-triggered STAT interrupt line and the per-line compositor.
type GPU struct {
	memory   MemoryReader
	irq      irq.Requester
	oam      *OAM
	revision hw.Revision

	lcdc register.Register[uint8]
	stat register.Register[uint8]
	scy  register.Register[uint8]
	scx  register.Register[uint8]
	ly   register.Register[uint8]
	lyc  register.Register[uint8]
	bgp  register.Register[uint8]
	obp0 register.Register[uint8]
	obp1 register.Register[uint8]
	wy   register.Register[uint8]
	wx   register.Register[uint8]

	mode      Mode
	countdown int
	speed     int

	// lyForced is the number of cycles left during which LY=LYC compares
	// unequal because LY just changed.
	lyForced   int
	statSignal bool

	windowLine      int
	windowTriggered bool

	bgIndex     [FramebufferWidth]int
	back, front *FrameBuffer
	frames      uint64
}

func rw(name string, reset uint8) register.Register[uint8] {
	return register.New(register.Template[uint8]{Name: name, Reset: reset, WriteMask: 0xFF, ReadMask: 0xFF})
}

func NewGpu(memory MemoryReader, requester irq.Requester, revision hw.Revision) *GPU {
	g := &GPU{
		memory:   memory,
		irq:      requester,
		oam:      NewOAM(memory),
		revision: revision,
		lcdc:     rw("LCDC", 0x91),
		stat:     register.New(register.Template[uint8]{Name: "STAT", WriteMask: 0x78, ReadMask: 0x7F, Fixed: 0x80}),
		scy:      rw("SCY", 0x00),
		scx:      rw("SCX", 0x00),
		ly:       register.New(register.Template[uint8]{Name: "LY", ReadMask: 0xFF}),
		lyc:      rw("LYC", 0x00),
		bgp:      rw("BGP", 0xFC),
		obp0:     rw("OBP0", 0xFF),
		obp1:     rw("OBP1", 0xFF),
		wy:       rw("WY", 0x00),
		wx:       rw("WX", 0x00),
		back:     NewFrameBuffer(),
		front:    NewFrameBuffer(),
		speed:    1,
	}
	g.PowerOn()
	return g
}

// PowerOn restores registers and timing to their boot values.
func (g *GPU) PowerOn() {
	for _, r := range g.registers() {
		r.Reset()
	}
	g.speed = 1
	g.mode = OAMSearch
	g.countdown = scanlineCycles
	g.lyForced = 0
	g.windowLine = 0
	g.windowTriggered = false
	g.frames = 0
	g.back.Fill(WhiteColor)
	g.front.Fill(WhiteColor)

	g.statSignal = false
	g.updateStatus()
}

// Reset is PowerOn; the display has no state that survives a reset.
func (g *GPU) Reset() {
	g.PowerOn()
}

func (g *GPU) registers() []*register.Register[uint8] {
	return []*register.Register[uint8]{
		&g.lcdc, &g.stat, &g.scy, &g.scx, &g.ly, &g.lyc,
		&g.bgp, &g.obp0, &g.obp1, &g.wy, &g.wx,
	}
}

func (g *GPU) enabled() bool {
	return bit.IsSet(lcdDisplayEnable, g.lcdc.Value())
}

func (g *GPU) line() int {
	return int(g.ly.Value())
}

func (g *GPU) elapsed() int {
	return scanlineCycles*g.speed - g.countdown
}

// Update advances the display by cycles, stopping at every mode or line
// boundary so that each transition sees the exact cycle it happens on.
func (g *GPU) Update(cycles int) {
	if !g.enabled() {
		return
	}

	for cycles > 0 {
		step := min(cycles, g.NextEvent())
		cycles -= step
		g.advance(step)
	}
}

// NextEvent returns the cycles until the next mode change, line change or
// the end of the LY=LYC blackout, whichever is first.
func (g *GPU) NextEvent() int {
	if !g.enabled() {
		return NoEvent
	}

	next := g.countdown
	if g.line() < visibleLines {
		elapsed := g.elapsed()
		if b := oamScanlineCycles * g.speed; elapsed < b {
			next = b - elapsed
		} else if b := (oamScanlineCycles + vramScanlineCycles) * g.speed; elapsed < b {
			next = b - elapsed
		}
	}
	if g.lyForced > 0 && g.lyForced < next {
		next = g.lyForced
	}
	return next
}

func (g *GPU) advance(cycles int) {
	g.countdown -= cycles

	if g.lyForced > 0 {
		g.lyForced -= cycles
		if g.lyForced <= 0 {
			g.lyForced = 0
			g.updateStatus()
		}
	}

	if g.countdown == 0 {
		g.nextLine()
		return
	}

	if g.line() >= visibleLines {
		return
	}

	switch g.elapsed() {
	case oamScanlineCycles * g.speed:
		g.mode = Transfer
		g.updateStatus()
		g.renderLine()
	case (oamScanlineCycles + vramScanlineCycles) * g.speed:
		g.mode = HBlank
		g.updateStatus()
	}
}

func (g *GPU) nextLine() {
	g.countdown = scanlineCycles * g.speed

	line := (g.line() + 1) % totalLines
	g.ly.Set(uint8(line))
	g.lyForced = 1

	switch {
	case line == visibleLines:
		g.mode = VBlank
		g.irq.RequestInterrupt(addr.VBlankInterrupt)
		g.publishFrame()
	case line == 0:
		g.windowLine = 0
		g.windowTriggered = false
		g.mode = OAMSearch
	case line < visibleLines:
		g.mode = OAMSearch
	}

	g.updateStatus()
}

func (g *GPU) publishFrame() {
	g.front, g.back = g.back, g.front
	g.frames++
}

func (g *GPU) coincident() bool {
	return g.lyForced == 0 && g.ly.Value() == g.lyc.Value()
}

// updateStatus refreshes the hardware-driven STAT bits and feeds the
// composite interrupt line through the edge detector.
func (g *GPU) updateStatus() {
	stat := g.stat.Value()&^(statModeMask|1<<statCoincidence) | uint8(g.mode)
	if g.coincident() {
		stat = bit.Set(statCoincidence, stat)
	}
	g.stat.Set(stat)
	g.raiseOnEdge(g.statLine(stat))
}

// statLine is the OR of the four masked STAT conditions.
func (g *GPU) statLine(stat uint8) bool {
	switch {
	case g.mode == HBlank && bit.IsSet(statHBlankCheck, stat):
		return true
	case g.mode == VBlank && bit.IsSet(statVBlankCheck, stat):
		return true
	case g.mode == OAMSearch && bit.IsSet(statOAMCheck, stat):
		return true
	}
	return bit.IsSet(statLYCCheck, stat) && bit.IsSet(statCoincidence, stat)
}

// raiseOnEdge requests LCDSTAT only on a false to true transition.
func (g *GPU) raiseOnEdge(signal bool) {
	if signal && !g.statSignal {
		g.irq.RequestInterrupt(addr.LCDSTATInterrupt)
	}
	g.statSignal = signal
}

func (g *GPU) Read(address uint16) uint8 {
	switch address {
	case addr.LCDC:
		return g.lcdc.Read()
	case addr.STAT:
		return g.stat.Read()
	case addr.SCY:
		return g.scy.Read()
	case addr.SCX:
		return g.scx.Read()
	case addr.LY:
		return g.ly.Read()
	case addr.LYC:
		return g.lyc.Read()
	case addr.BGP:
		return g.bgp.Read()
	case addr.OBP0:
		return g.obp0.Read()
	case addr.OBP1:
		return g.obp1.Read()
	case addr.WY:
		return g.wy.Read()
	case addr.WX:
		return g.wx.Read()
	default:
		return 0xFF
	}
}

func (g *GPU) Write(address uint16, value uint8) {
	switch address {
	case addr.LCDC:
		g.writeLCDC(value)
	case addr.STAT:
		g.writeSTAT(value)
	case addr.SCY:
		g.scy.Write(value)
	case addr.SCX:
		g.scx.Write(value)
	case addr.LY:
		// read-only
	case addr.LYC:
		g.lyc.Write(value)
		if g.enabled() {
			g.updateStatus()
		}
	case addr.BGP:
		g.bgp.Write(value)
	case addr.OBP0:
		g.obp0.Write(value)
	case addr.OBP1:
		g.obp1.Write(value)
	case addr.WY:
		g.wy.Write(value)
	case addr.WX:
		g.wx.Write(value)
	}
}

// writeSTAT applies the pre-color write glitch: for the cycle of the write
// every condition counts as enabled, which can fire a spurious interrupt
// during h-blank, v-blank or while LY=LYC.
func (g *GPU) writeSTAT(value uint8) {
	if g.revision.HasSTATWriteGlitch() && g.enabled() {
		if g.mode == HBlank || g.mode == VBlank || g.coincident() {
			g.raiseOnEdge(true)
		}
	}

	g.stat.Write(value)
	if g.enabled() {
		g.updateStatus()
	}
}

func (g *GPU) writeLCDC(value uint8) {
	wasOn := g.enabled()
	g.lcdc.Write(value)

	switch {
	case wasOn && !g.enabled():
		g.turnOff()
	case !wasOn && g.enabled():
		g.turnOn()
	}
}

func (g *GPU) turnOff() {
	g.ly.Set(0)
	g.mode = HBlank
	g.countdown = scanlineCycles * g.speed
	g.lyForced = 0
	g.statSignal = false
	g.stat.Set(g.stat.Value() &^ statModeMask)
	g.front.Fill(WhiteColor)
	slog.Debug("LCD off")
}

func (g *GPU) turnOn() {
	g.ly.Set(0)
	g.mode = OAMSearch
	g.countdown = scanlineCycles * g.speed
	g.lyForced = 0
	g.windowLine = 0
	g.windowTriggered = false
	g.updateStatus()
	slog.Debug("LCD on", "lcdc", fmt.Sprintf("0x%02X", g.lcdc.Value()))
}

// SetDoubleSpeed switches the scanline countdown between normal and double
// speed CPU cycles, keeping the position within the current line.
func (g *GPU) SetDoubleSpeed(on bool) {
	if on && !g.revision.SupportsDoubleSpeed() {
		slog.Warn("Double speed is not available on this revision", "revision", g.revision.String())
		return
	}

	speed := 1
	if on {
		speed = 2
	}
	if speed == g.speed {
		return
	}
	g.countdown = g.countdown * speed / g.speed
	g.speed = speed
}

// Frame returns the last completed frame. The host may copy it once per
// frame; it is replaced when the display next enters v-blank.
func (g *GPU) Frame() *FrameBuffer {
	return g.front
}

// Frames returns the number of frames completed since power on.
func (g *GPU) Frames() uint64 {
	return g.frames
}

// Mode returns the current scanline phase.
func (g *GPU) Mode() Mode {
	return g.mode
}

// LY returns the current scanline.
func (g *GPU) LY() uint8 {
	return g.ly.Value()
}

// Status is a read-only view of the controller for debug output.
type Status struct {
	LCDC, STAT, SCY, SCX, LY, LYC uint8
	BGP, OBP0, OBP1, WY, WX       uint8

	Mode       Mode
	Countdown  int
	WindowLine int
	Frames     uint64
}

func (g *GPU) Status() Status {
	return Status{
		LCDC: g.lcdc.Read(), STAT: g.stat.Read(), SCY: g.scy.Read(), SCX: g.scx.Read(),
		LY: g.ly.Read(), LYC: g.lyc.Read(), BGP: g.bgp.Read(), OBP0: g.obp0.Read(),
		OBP1: g.obp1.Read(), WY: g.wy.Read(), WX: g.wx.Read(),
		Mode:       g.mode,
		Countdown:  g.countdown,
		WindowLine: g.windowLine,
		Frames:     g.frames,
	}
}
