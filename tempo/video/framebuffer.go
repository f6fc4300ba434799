package video

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
)

// GBColor is an RGBA pixel, 8 bits per component, red in the top byte.
type GBColor uint32

const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor GBColor = 0x989898FF
	DarkGreyColor  GBColor = 0x4C4C4CFF
	BlackColor     GBColor = 0x000000FF
)

// FrameBuffer is a flat row-major 160x144 pixel array.
type FrameBuffer struct {
	buffer []uint32
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{buffer: make([]uint32, FramebufferWidth*FramebufferHeight)}
}

func (fb *FrameBuffer) GetPixel(x, y int) uint32 {
	return fb.buffer[y*FramebufferWidth+x]
}

func (fb *FrameBuffer) SetPixel(x, y int, color GBColor) {
	fb.buffer[y*FramebufferWidth+x] = uint32(color)
}

// Fill paints every pixel with color.
func (fb *FrameBuffer) Fill(color GBColor) {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(color)
	}
}

// Row returns a view of scanline y.
func (fb *FrameBuffer) Row(y int) []uint32 {
	return fb.buffer[y*FramebufferWidth : (y+1)*FramebufferWidth]
}

// ToSlice returns the backing pixel slice. Callers must not modify it.
func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// Clone returns an independent copy, which is what gets handed to the host.
func (fb *FrameBuffer) Clone() *FrameBuffer {
	c := NewFrameBuffer()
	copy(c.buffer, fb.buffer)
	return c
}
