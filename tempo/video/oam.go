package video

import (
	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/bit"
)

const (
	spriteCount       = 40
	maxSpritesPerLine = 10
)

// Sprite is one OAM entry with its position already converted to screen
// coordinates.
type Sprite struct {
	Y         int
	X         int
	TileIndex uint8
	Flags     uint8
	OAMIndex  int

	PaletteOBP1 bool
	FlipX       bool
	FlipY       bool
	BehindBG    bool

	// PixelMask has a bit set for every pixel this sprite wins after
	// sprite-to-sprite priority. Bit 7 is the leftmost pixel.
	PixelMask uint8
}

func (s *Sprite) parseFlags() {
	s.PaletteOBP1 = bit.IsSet(4, s.Flags)
	s.FlipX = bit.IsSet(5, s.Flags)
	s.FlipY = bit.IsSet(6, s.Flags)
	s.BehindBG = bit.IsSet(7, s.Flags)
}

func (s *Sprite) HasPriorityForAnyPixel() bool {
	return s.PixelMask != 0
}

// HasPriorityForPixel reports whether the sprite owns pixel pixelX (0-7).
func (s *Sprite) HasPriorityForPixel(pixelX int) bool {
	if pixelX < 0 || pixelX > 7 {
		return false
	}
	return s.PixelMask&(1<<(7-pixelX)) != 0
}

// OAM selects the sprites drawn on each scanline.
type OAM struct {
	memory   MemoryReader
	priority SpritePriorityBuffer
	selected [maxSpritesPerLine]Sprite
}

func NewOAM(memory MemoryReader) *OAM {
	return &OAM{memory: memory}
}

// Sprite decodes OAM entry index.
func (o *OAM) Sprite(index int) Sprite {
	base := addr.OAMStart + uint16(index*4)
	s := Sprite{
		Y:         int(o.memory.Read(base)) - 16,
		X:         int(o.memory.Read(base+1)) - 8,
		TileIndex: o.memory.Read(base + 2),
		Flags:     o.memory.Read(base + 3),
		OAMIndex:  index,
	}
	s.parseFlags()
	return s
}

// SpritesForScanline returns up to 10 sprites overlapping line, in OAM
// order, each with its pixel priority resolved (lower X wins, then lower
// OAM index). The returned slice is reused by the next call.
func (o *OAM) SpritesForScanline(line, height int) []Sprite {
	sprites := o.selected[:0]
	o.priority.Clear()

	for i := range spriteCount {
		s := o.Sprite(i)
		if line < s.Y || line >= s.Y+height {
			continue
		}

		for px := range 8 {
			o.priority.TryClaimPixel(s.X+px, s.OAMIndex, s.X)
		}
		sprites = append(sprites, s)
		if len(sprites) == maxSpritesPerLine {
			break
		}
	}

	for i := range sprites {
		var mask uint8
		for px := range 8 {
			if o.priority.GetOwner(sprites[i].X+px) == sprites[i].OAMIndex {
				mask |= 1 << (7 - px)
			}
		}
		sprites[i].PixelMask = mask
	}

	return sprites
}
