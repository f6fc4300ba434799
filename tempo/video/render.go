package video

import (
	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/bit"
)

var shades = [4]GBColor{WhiteColor, LightGreyColor, DarkGreyColor, BlackColor}

// PaletteColor maps a 2-bit color index through a palette register.
func PaletteColor(palette uint8, index int) GBColor {
	return shades[(palette>>(uint(index)*2))&0x03]
}

// renderLine composites background, window and sprites for the current
// scanline into the back buffer.
func (g *GPU) renderLine() {
	line := g.line()
	lcdc := g.lcdc.Value()

	g.drawBackground(line, lcdc)
	g.drawWindow(line, lcdc)
	g.drawSprites(line, lcdc)
}

// tileDataAddress returns the address of a tile's first byte. With LCDC
// bit 4 clear the tile number is signed and relative to 0x9000.
func tileDataAddress(tileNumber uint8, lcdc uint8) uint16 {
	if bit.IsSet(bgWindowTileDataSelect, lcdc) {
		return addr.TileData0 + uint16(tileNumber)*16
	}
	return uint16(int32(addr.TileData2) + int32(int8(tileNumber))*16)
}

func tileMapAddress(lcdc uint8, selectBit uint8) uint16 {
	if bit.IsSet(selectBit, lcdc) {
		return addr.TileMap1
	}
	return addr.TileMap0
}

// fetchTileRow reads the two bit planes of row y (0-7) of the tile at
// column tx, row ty of a 32x32 tile map.
func (g *GPU) fetchTileRow(mapBase uint16, tx, ty, y int, lcdc uint8) TileRow {
	tileNumber := g.memory.Read(mapBase + uint16(ty*32+tx))
	rowAddr := tileDataAddress(tileNumber, lcdc) + uint16(y*2)
	return TileRow{
		Low:  g.memory.Read(rowAddr),
		High: g.memory.Read(rowAddr + 1),
	}
}

func (g *GPU) drawBackground(line int, lcdc uint8) {
	if !bit.IsSet(bgDisplay, lcdc) {
		for x := range FramebufferWidth {
			g.bgIndex[x] = 0
			g.back.SetPixel(x, line, WhiteColor)
		}
		return
	}

	mapBase := tileMapAddress(lcdc, bgTileMapDisplaySelect)
	y := (line + int(g.scy.Value())) & 0xFF
	palette := g.bgp.Value()

	var row TileRow
	lastTile := -1
	for x := range FramebufferWidth {
		px := (x + int(g.scx.Value())) & 0xFF
		if tile := px / 8; tile != lastTile {
			row = g.fetchTileRow(mapBase, tile, y/8, y%8, lcdc)
			lastTile = tile
		}

		index := row.GetPixel(px % 8)
		g.bgIndex[x] = index
		g.back.SetPixel(x, line, PaletteColor(palette, index))
	}
}

// windowVisible latches the window's vertical trigger for this frame and
// reports whether it covers any of the current line.
func (g *GPU) windowVisible(line int, lcdc uint8) bool {
	if line == int(g.wy.Value()) {
		g.windowTriggered = true
	}

	return bit.IsSet(bgDisplay, lcdc) &&
		bit.IsSet(windowDisplayEnable, lcdc) &&
		g.windowTriggered &&
		g.wx.Value() < 167 &&
		g.wy.Value() < visibleLines
}

func (g *GPU) drawWindow(line int, lcdc uint8) {
	if !g.windowVisible(line, lcdc) {
		return
	}

	mapBase := tileMapAddress(lcdc, windowTileMapSelect)
	start := int(g.wx.Value()) - 7
	y := g.windowLine
	palette := g.bgp.Value()

	var row TileRow
	lastTile := -1
	for x := max(start, 0); x < FramebufferWidth; x++ {
		wx := x - start
		if tile := wx / 8; tile != lastTile {
			row = g.fetchTileRow(mapBase, tile, y/8, y%8, lcdc)
			lastTile = tile
		}

		index := row.GetPixel(wx % 8)
		g.bgIndex[x] = index
		g.back.SetPixel(x, line, PaletteColor(palette, index))
	}

	g.windowLine++
}

func (g *GPU) drawSprites(line int, lcdc uint8) {
	if !bit.IsSet(spriteDisplayEnable, lcdc) {
		return
	}

	height := 8
	if bit.IsSet(spriteSize, lcdc) {
		height = 16
	}

	for _, sprite := range g.oam.SpritesForScanline(line, height) {
		if !sprite.HasPriorityForAnyPixel() {
			continue
		}

		row := line - sprite.Y
		if sprite.FlipY {
			row = height - 1 - row
		}
		tile := sprite.TileIndex
		if height == 16 {
			tile &^= 0x01
		}
		rowAddr := addr.TileData0 + uint16(tile)*16 + uint16(row*2)
		pattern := TileRow{Low: g.memory.Read(rowAddr), High: g.memory.Read(rowAddr + 1)}

		palette := g.obp0.Value()
		if sprite.PaletteOBP1 {
			palette = g.obp1.Value()
		}

		for px := range 8 {
			x := sprite.X + px
			if x < 0 || x >= FramebufferWidth || !sprite.HasPriorityForPixel(px) {
				continue
			}

			var index int
			if sprite.FlipX {
				index = pattern.GetPixelFlipped(px)
			} else {
				index = pattern.GetPixel(px)
			}
			if index == 0 {
				continue
			}
			if sprite.BehindBG && g.bgIndex[x] != 0 {
				continue
			}
			g.back.SetPixel(x, line, PaletteColor(palette, index))
		}
	}
}
