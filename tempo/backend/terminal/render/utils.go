package render

import "github.com/valerio/go-tempo/tempo/video"

// PixelToShade converts a pixel value to a shade level, 0 black to 3 white.
func PixelToShade(pixel uint32) int {
	switch video.GBColor(pixel) {
	case video.BlackColor:
		return 0
	case video.DarkGreyColor:
		return 1
	case video.LightGreyColor:
		return 2
	case video.WhiteColor:
		return 3
	default:
		return 0
	}
}

// GetHalfBlockChar returns the character that renders two vertically
// stacked pixels in one terminal cell.
func GetHalfBlockChar(topShade, bottomShade int) rune {
	switch {
	case topShade == bottomShade:
		return '█'
	case topShade == 3:
		return '▄'
	default:
		return '▀'
	}
}

// Truncate cuts s to width runes, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(runes) <= width {
		return s
	}
	if width > 3 {
		return string(runes[:width-3]) + "..."
	}
	return string(runes[:width])
}
