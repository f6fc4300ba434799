package video

// SpritePriorityBuffer resolves which sprite owns each pixel of a line
// under pre-color priority rules: the sprite with the lower X wins, and on
// equal X the lower OAM index wins.
// See https://gbdev.io/pandocs/OAM.html#drawing-priority.
//
//	Pixels:     0  1  2  3  4  5  6  7  8  9 10 11 12 13 14 15 16 17
//	Sprite 0:                  [-----A-----]                    (X=5, OAM=0)
//	Sprite 1:                           [-----B-----]           (X=10, OAM=1)
//	Result:                    [-----A-----]--B-----]
//
// Ownership is claimed while sprites are selected, so drawing needs no sort.
type SpritePriorityBuffer struct {
	ownerIndex [FramebufferWidth]int
	ownerX     [FramebufferWidth]int
}

// Clear marks every pixel unowned.
func (s *SpritePriorityBuffer) Clear() {
	for i := range FramebufferWidth {
		s.ownerIndex[i] = -1
		s.ownerX[i] = 0xFF
	}
}

// TryClaimPixel gives pixelX to the sprite if it beats the current owner.
func (s *SpritePriorityBuffer) TryClaimPixel(pixelX, spriteIndex, spriteX int) bool {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return false
	}

	owner := s.ownerIndex[pixelX]
	wins := owner == -1 ||
		spriteX < s.ownerX[pixelX] ||
		(spriteX == s.ownerX[pixelX] && spriteIndex < owner)
	if !wins {
		return false
	}

	s.ownerIndex[pixelX] = spriteIndex
	s.ownerX[pixelX] = spriteX
	return true
}

// GetOwner returns the OAM index owning pixelX, or -1.
func (s *SpritePriorityBuffer) GetOwner(pixelX int) int {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return -1
	}
	return s.ownerIndex[pixelX]
}
