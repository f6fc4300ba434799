package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/video"
)

const (
	TileDataSize     = 16
	TilePixelWidth   = 8
	TilePixelHeight  = 8
	TilePatternCount = 384
	TilesPerRow      = 16
	TileRows         = TilePatternCount / TilesPerRow

	TileSheetWidth  = TilesPerRow * TilePixelWidth
	TileSheetHeight = TileRows * TilePixelHeight
)

// Tile is one decoded 8x8 pattern from VRAM.
type Tile struct {
	Index int
	Rows  [TilePixelHeight]video.TileRow
}

// FetchTile reads pattern index (0-383) from VRAM. Indices are linear from
// 0x8000, independent of the LCDC addressing mode.
func FetchTile(reader video.MemoryReader, index int) Tile {
	tile := Tile{Index: index}
	base := addr.TileData0 + uint16(index*TileDataSize)
	for row := range TilePixelHeight {
		rowAddr := base + uint16(row*2)
		tile.Rows[row] = video.TileRow{
			Low:  reader.Read(rowAddr),
			High: reader.Read(rowAddr + 1),
		}
	}
	return tile
}

// TileSheet renders every pattern in VRAM as a 16x24 grid, shaded through
// palette.
func TileSheet(reader video.MemoryReader, palette uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, TileSheetWidth, TileSheetHeight))
	for i := range TilePatternCount {
		tile := FetchTile(reader, i)
		originX := (i % TilesPerRow) * TilePixelWidth
		originY := (i / TilesPerRow) * TilePixelHeight

		for y, row := range tile.Rows {
			for x := range TilePixelWidth {
				color := video.PaletteColor(palette, row.GetPixel(x))
				offset := img.PixOffset(originX+x, originY+y)
				img.Pix[offset] = byte(color >> 24)
				img.Pix[offset+1] = byte(color >> 16)
				img.Pix[offset+2] = byte(color >> 8)
				img.Pix[offset+3] = byte(color)
			}
		}
	}
	return img
}

// SaveTileSheet writes the tile sheet to path as a PNG.
func SaveTileSheet(path string, reader video.MemoryReader, palette uint8) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, TileSheet(reader, palette)); err != nil {
		return fmt.Errorf("failed to encode tile sheet: %w", err)
	}
	return nil
}
