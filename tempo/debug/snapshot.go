package debug

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/valerio/go-tempo/tempo/video"
)

// FrameImage converts a framebuffer into an RGBA image.
func FrameImage(frame *video.FrameBuffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight))
	for i, pixel := range frame.ToSlice() {
		idx := i * 4
		img.Pix[idx] = byte(pixel >> 24)
		img.Pix[idx+1] = byte(pixel >> 16)
		img.Pix[idx+2] = byte(pixel >> 8)
		img.Pix[idx+3] = byte(pixel)
	}
	return img
}

// EncodeFramePNG writes frame to w as a PNG.
func EncodeFramePNG(w io.Writer, frame *video.FrameBuffer) error {
	if err := png.Encode(w, FrameImage(frame)); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// SaveFramePNG saves frame as <dir>/<baseName>_<frame number>.png and
// returns the path written. The directory is created if missing.
func SaveFramePNG(frame *video.FrameBuffer, dir, baseName string, number uint64) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%06d.png", baseName, number))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if err := EncodeFramePNG(file, frame); err != nil {
		return "", err
	}

	slog.Debug("Snapshot saved", "path", path, "size", fmt.Sprintf("%dx%d", video.FramebufferWidth, video.FramebufferHeight))
	return path, nil
}
