package video

import "github.com/valerio/go-tempo/tempo/bit"

// TileRow represents one row of a tile pattern (8 pixels).
//
// Tiles are 8x8 pixels, 2 bits per pixel. Each row is two bytes in
// bit-plane format: the first byte holds bit 0 of every pixel's color, the
// second byte bit 1. Bit 7 is the leftmost pixel.
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// Reference: https://gbdev.io/pandocs/Tile_Data.html
type TileRow struct {
	Low  byte
	High byte
}

func (t TileRow) pixelAt(bitIndex uint8) int {
	return int(bit.Value(bitIndex, t.Low) | bit.Value(bitIndex, t.High)<<1)
}

// GetPixel extracts a pixel color index (0-3). pixelX 0 is the leftmost.
func (t TileRow) GetPixel(pixelX int) int {
	return t.pixelAt(uint8(7 - pixelX))
}

// GetPixelFlipped extracts a pixel with the row mirrored horizontally.
func (t TileRow) GetPixelFlipped(pixelX int) int {
	return t.pixelAt(uint8(pixelX))
}

// MemoryReader is how the display reaches VRAM and OAM.
type MemoryReader interface {
	Read(addr uint16) byte
}
