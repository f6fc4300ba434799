package headless

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/valerio/go-tempo/tempo/backend"
)

const (
	wavBitDepth = 16
	wavChannels = 2
	wavPCM      = 1
)

var ErrNotInitialized = errors.New("wav recorder not initialized")

// Recorder streams interleaved stereo samples into a 16-bit PCM WAV file.
type Recorder struct {
	path    string
	file    *os.File
	enc     *wav.Encoder
	buf     *goaudio.IntBuffer
	samples int
}

func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

func (r *Recorder) Init(config backend.Config) error {
	if config.SampleRate <= 0 {
		return fmt.Errorf("wav recorder: invalid sample rate %d", config.SampleRate)
	}

	file, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("failed to create wav file %s: %w", r.path, err)
	}

	r.file = file
	r.enc = wav.NewEncoder(file, config.SampleRate, wavBitDepth, wavChannels, wavPCM)
	r.buf = &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: wavChannels, SampleRate: config.SampleRate},
		SourceBitDepth: wavBitDepth,
	}

	slog.Info("Recording audio", "path", r.path, "rate", config.SampleRate)
	return nil
}

func (r *Recorder) Update(frame backend.Frame) error {
	if r.enc == nil {
		return ErrNotInitialized
	}
	if len(frame.Audio) == 0 {
		return nil
	}

	data := r.buf.Data[:0]
	for _, s := range frame.Audio {
		data = append(data, int(s))
	}
	r.buf.Data = data

	if err := r.enc.Write(r.buf); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	r.samples += len(frame.Audio)
	return nil
}

// Cleanup finalizes the header and closes the file.
func (r *Recorder) Cleanup() error {
	if r.enc == nil {
		return nil
	}

	encErr := r.enc.Close()
	fileErr := r.file.Close()
	r.enc = nil

	if encErr != nil {
		return fmt.Errorf("failed to finalize wav file %s: %w", r.path, encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("failed to close wav file %s: %w", r.path, fileErr)
	}

	slog.Info("Audio recording saved", "path", r.path, "samples", r.samples/wavChannels)
	return nil
}

// Samples returns how many interleaved values have been written.
func (r *Recorder) Samples() int {
	return r.samples
}

// Lossless reports true: a dropped frame would be an audible gap.
func (r *Recorder) Lossless() bool { return true }
