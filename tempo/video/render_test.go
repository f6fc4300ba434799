package video

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/hw"
)

func repeatRow(pattern []GBColor) []uint32 {
	row := make([]uint32, FramebufferWidth)
	for x := range row {
		row[x] = uint32(pattern[x%len(pattern)])
	}
	return row
}

// renderFirstLine runs the display to the start of transfer on line 0.
func renderFirstLine(g *GPU) []uint32 {
	g.Update(oamScanlineCycles)
	return g.back.Row(0)
}

func TestTileDataAddress(t *testing.T) {
	tests := []struct {
		name   string
		tile   uint8
		lcdc   uint8
		expect uint16
	}{
		{"unsigned tile 0", 0x00, 0x10, 0x8000},
		{"unsigned tile 255", 0xFF, 0x10, 0x8FF0},
		{"signed tile 0", 0x00, 0x00, 0x9000},
		{"signed tile 127", 0x7F, 0x00, 0x97F0},
		{"signed tile -128", 0x80, 0x00, 0x8800},
		{"signed tile -1", 0xFF, 0x00, 0x8FF0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tileDataAddress(tt.tile, tt.lcdc))
		})
	}
}

func TestBackgroundLine(t *testing.T) {
	g, mem, _ := newTestGPU(hw.DMG)
	mem[0x8010] = 0x3C
	mem[0x8011] = 0x7E
	for i := range 32 {
		mem[int(addr.TileMap0)+i] = 1
	}
	g.Write(addr.BGP, 0xE4)

	want := repeatRow([]GBColor{
		WhiteColor, DarkGreyColor, BlackColor, BlackColor,
		BlackColor, BlackColor, DarkGreyColor, WhiteColor,
	})
	assert.Empty(t, cmp.Diff(want, renderFirstLine(g)))
}

func TestBackgroundScroll(t *testing.T) {
	g, mem, _ := newTestGPU(hw.DMG)
	// tile 1 row 3 is solid color 1
	mem[0x8010+3*2] = 0xFF
	// map row 1 column 1 uses tile 1
	mem[int(addr.TileMap0)+32+1] = 1
	g.Write(addr.BGP, 0xE4)
	g.Write(addr.SCY, 8+3)
	g.Write(addr.SCX, 4)

	row := renderFirstLine(g)
	assert.Equal(t, uint32(WhiteColor), row[3])
	for x := 4; x < 12; x++ {
		assert.Equal(t, uint32(LightGreyColor), row[x], "pixel %d", x)
	}
	assert.Equal(t, uint32(WhiteColor), row[12])
}

func TestSignedTileData(t *testing.T) {
	g, mem, _ := newTestGPU(hw.DMG)
	// tile -1 lives just below 0x9000
	mem[0x8FF0] = 0xFF
	mem[0x8FF1] = 0xFF
	for i := range 32 {
		mem[int(addr.TileMap0)+i] = 0xFF
	}
	g.Write(addr.BGP, 0xE4)
	g.Write(addr.LCDC, 0x81)

	assert.Empty(t, cmp.Diff(repeatRow([]GBColor{BlackColor}), renderFirstLine(g)))
}

func TestBackgroundDisabled(t *testing.T) {
	g, mem, _ := newTestGPU(hw.DMG)
	mem[0x8000] = 0xFF
	mem[0x8001] = 0xFF
	g.Write(addr.LCDC, 0x90)

	assert.Empty(t, cmp.Diff(repeatRow([]GBColor{WhiteColor}), renderFirstLine(g)))
}

func setupWindow(mem *testMemory) {
	// tile 2 solid black, window map (0x9C00) all tile 2, bg map all tile 0
	for i := range 16 {
		mem[0x8020+i] = 0xFF
	}
	for i := range 32 * 32 {
		mem[int(addr.TileMap1)+i] = 2
	}
}

func TestWindowOverlaysBackground(t *testing.T) {
	tests := []struct {
		name  string
		wx    uint8
		wy    uint8
		lcdc  uint8
		first int // first black pixel, -1 for none
	}{
		{"window at x 80", 87, 0, 0xF1, 80},
		{"window from left edge", 7, 0, 0xF1, 0},
		{"partially off-screen left", 3, 0, 0xF1, 0},
		{"window disabled", 87, 0, 0xD1, -1},
		{"wx past right edge", 167, 0, 0xF1, -1},
		{"wy below line", 87, 10, 0xF1, -1},
		{"bg off hides window", 87, 0, 0xF0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, mem, _ := newTestGPU(hw.DMG)
			setupWindow(mem)
			g.Write(addr.BGP, 0xE4)
			g.Write(addr.WX, tt.wx)
			g.Write(addr.WY, tt.wy)
			g.Write(addr.LCDC, tt.lcdc)

			row := renderFirstLine(g)
			want := make([]uint32, FramebufferWidth)
			for x := range want {
				want[x] = uint32(WhiteColor)
				if tt.first >= 0 && x >= tt.first {
					want[x] = uint32(BlackColor)
				}
			}
			assert.Empty(t, cmp.Diff(want, row))
		})
	}
}

func TestWindowUsesItsOwnLineCounter(t *testing.T) {
	g, mem, _ := newTestGPU(hw.DMG)
	// window tile 2 has only its first row set
	mem[0x8020] = 0xFF
	mem[0x8021] = 0xFF
	for i := range 32 * 32 {
		mem[int(addr.TileMap1)+i] = 2
	}
	g.Write(addr.BGP, 0xE4)
	g.Write(addr.WX, 7)
	g.Write(addr.WY, 5)
	g.Write(addr.LCDC, 0xF1)

	g.Update(scanlineCycles*5 + oamScanlineCycles)
	assert.Equal(t, uint32(BlackColor), g.back.GetPixel(0, 5), "first window line draws window row 0")

	g.Update(scanlineCycles)
	assert.Equal(t, uint32(WhiteColor), g.back.GetPixel(0, 6))
	assert.Equal(t, 2, g.windowLine)
}

func writeSprite(mem *testMemory, index int, y, x, tile, flags uint8) {
	base := int(addr.OAMStart) + index*4
	mem[base] = y
	mem[base+1] = x
	mem[base+2] = tile
	mem[base+3] = flags
}

func TestSpriteDrawing(t *testing.T) {
	tests := []struct {
		name   string
		bgTile bool
		flags  uint8
		want   GBColor
	}{
		{"sprite over blank bg", false, 0x00, LightGreyColor},
		{"sprite over bg", true, 0x00, LightGreyColor},
		{"behind bg over blank bg", false, 0x80, LightGreyColor},
		{"behind bg hidden by bg", true, 0x80, BlackColor},
		{"obp1 palette", false, 0x10, DarkGreyColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, mem, _ := newTestGPU(hw.DMG)
			if tt.bgTile {
				mem[0x8000] = 0xFF
				mem[0x8001] = 0xFF
			}
			// sprite tile 3, row 0 color 1
			mem[0x8030] = 0xFF
			writeSprite(mem, 0, 16, 8+10, 3, tt.flags)

			g.Write(addr.BGP, 0xE4)
			g.Write(addr.OBP0, 0xE4)
			g.Write(addr.OBP1, 0xE8)
			g.Write(addr.LCDC, 0x93)

			row := renderFirstLine(g)
			assert.Equal(t, uint32(tt.want), row[10])
			assert.Equal(t, uint32(tt.want), row[17])
		})
	}
}

func TestSpriteTransparencyAndFlip(t *testing.T) {
	g, mem, _ := newTestGPU(hw.DMG)
	// sprite tile 1 row 0: only leftmost pixel set (color 3)
	mem[0x8010] = 0x80
	mem[0x8011] = 0x80
	writeSprite(mem, 0, 16, 8, 1, 0x00)
	writeSprite(mem, 1, 16, 8+20, 1, 0x20)

	g.Write(addr.OBP0, 0xE4)
	g.Write(addr.LCDC, 0x93)

	row := renderFirstLine(g)
	assert.Equal(t, uint32(BlackColor), row[0])
	assert.Equal(t, uint32(WhiteColor), row[1], "color 0 is transparent")
	assert.Equal(t, uint32(WhiteColor), row[20])
	assert.Equal(t, uint32(BlackColor), row[27], "flipped sprite draws its first pixel last")
}

func TestSpritePriorityLowerXWins(t *testing.T) {
	g, mem, _ := newTestGPU(hw.DMG)
	mem[0x8010] = 0xFF // tile 1: color 1
	mem[0x8021] = 0xFF // tile 2: color 2
	writeSprite(mem, 0, 16, 8+14, 2, 0x00)
	writeSprite(mem, 1, 16, 8+10, 1, 0x00)

	g.Write(addr.OBP0, 0xE4)
	g.Write(addr.LCDC, 0x93)

	row := renderFirstLine(g)
	assert.Equal(t, uint32(LightGreyColor), row[10])
	assert.Equal(t, uint32(LightGreyColor), row[17], "overlap goes to the lower X")
	assert.Equal(t, uint32(DarkGreyColor), row[18])
	assert.Equal(t, uint32(DarkGreyColor), row[21])
}

func TestTallSprites(t *testing.T) {
	g, mem, _ := newTestGPU(hw.DMG)
	// tile 4 is the top half, tile 5 the bottom; row 1 of tile 5 is color 3
	mem[0x8050+2] = 0xFF
	mem[0x8050+3] = 0xFF
	// tile index 5 is rounded down to 4 in 8x16 mode; sprite top at line -9
	writeSprite(mem, 0, 16-9, 8, 5, 0x00)

	g.Write(addr.OBP0, 0xE4)
	g.Write(addr.LCDC, 0x97)

	row := renderFirstLine(g)
	assert.Equal(t, uint32(BlackColor), row[0])
	assert.Equal(t, uint32(BlackColor), row[7])
	assert.Equal(t, uint32(WhiteColor), row[8])
}
