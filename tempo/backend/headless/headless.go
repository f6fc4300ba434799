package headless

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/valerio/go-tempo/tempo/backend"
	"github.com/valerio/go-tempo/tempo/debug"
	"github.com/valerio/go-tempo/tempo/video"
)

// progressInterval is how often, in frames, progress gets logged.
const progressInterval = 60

// Backend runs without any output device, optionally saving PNG snapshots.
type Backend struct {
	config         backend.Config
	frameCount     int
	maxFrames      int
	snapshotConfig SnapshotConfig
	saved          []string
	last           *video.FrameBuffer
	lastNumber     uint64
}

// SnapshotConfig holds configuration for frame snapshots
type SnapshotConfig struct {
	Enabled   bool
	Interval  int    // Save snapshot every N frames
	Directory string // Directory to save snapshots
	BaseName  string // Prefix for snapshot filenames
}

// New creates a headless backend. It requests a quit after maxFrames
// frames; zero runs until the session stops on its own.
func New(maxFrames int, snapshotConfig SnapshotConfig) *Backend {
	if snapshotConfig.BaseName == "" {
		snapshotConfig.BaseName = "frame"
	}
	return &Backend{
		maxFrames:      maxFrames,
		snapshotConfig: snapshotConfig,
	}
}

func (h *Backend) Init(config backend.Config) error {
	h.config = config

	slog.Info("Running headless mode",
		"frames", h.maxFrames,
		"snapshot_interval", h.snapshotConfig.Interval,
		"snapshot_dir", h.snapshotConfig.Directory)
	return nil
}

// Update counts the frame and handles snapshots
func (h *Backend) Update(frame backend.Frame) error {
	h.frameCount++
	h.last = frame.Video
	h.lastNumber = frame.Number

	if h.snapshotConfig.Enabled && h.frameCount%h.snapshotConfig.Interval == 0 {
		h.saveSnapshot(frame.Video, frame.Number)
	}

	if h.frameCount%progressInterval == 0 {
		slog.Info("Frame progress", "completed", h.frameCount, "total", h.maxFrames)
	}

	if h.maxFrames > 0 && h.frameCount == h.maxFrames {
		slog.Info("Headless execution completed", "frames", h.frameCount)
		h.config.Callbacks.Quit()
	}
	return nil
}

// Cleanup saves the final frame if it was not already captured.
func (h *Backend) Cleanup() error {
	if h.snapshotConfig.Enabled && h.last != nil && h.frameCount%h.snapshotConfig.Interval != 0 {
		h.saveSnapshot(h.last, h.lastNumber)
	}
	if h.snapshotConfig.Enabled {
		slog.Info("Snapshots written", "count", len(h.saved), "dir", h.snapshotConfig.Directory)
	}
	return nil
}

// Frames returns how many frames the backend has seen.
func (h *Backend) Frames() int {
	return h.frameCount
}

// Snapshots returns the paths written so far.
func (h *Backend) Snapshots() []string {
	return h.saved
}

// CreateSnapshotConfig creates a snapshot configuration from CLI parameters.
// An empty directory means a fresh temporary one.
func CreateSnapshotConfig(interval int, directory, baseName string) (SnapshotConfig, error) {
	config := SnapshotConfig{
		Enabled:  interval > 0,
		Interval: interval,
		BaseName: baseName,
	}

	if !config.Enabled {
		return config, nil
	}

	if directory == "" {
		tempDir, err := os.MkdirTemp("", "tempo-snapshots-*")
		if err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = tempDir
	} else {
		if err := os.MkdirAll(directory, 0755); err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = directory
	}

	return config, nil
}

func (h *Backend) saveSnapshot(frame *video.FrameBuffer, number uint64) {
	path, err := debug.SaveFramePNG(frame, h.snapshotConfig.Directory, h.snapshotConfig.BaseName, number)
	if err != nil {
		slog.Error("Failed to save PNG snapshot", "frame", number, "error", err)
		return
	}
	h.saved = append(h.saved, path)
}

// Lossless reports true: snapshot numbering must not skip frames.
func (h *Backend) Lossless() bool { return true }
