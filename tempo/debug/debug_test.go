package debug

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/jx"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-tempo/tempo"
	"github.com/valerio/go-tempo/tempo/audio"
	"github.com/valerio/go-tempo/tempo/hw"
	"github.com/valerio/go-tempo/tempo/timer"
	"github.com/valerio/go-tempo/tempo/video"
)

func testStatus() tempo.Status {
	s := tempo.Status{
		Revision: hw.CGB,
		Frames:   3,
		Cycles:   210672,
		Carry:    -2,
		IE:       0x05,
		IF:       0xE1,
		Video: video.Status{
			LCDC: 0x91, STAT: 0x85, LY: 0x90, BGP: 0xFC,
			Mode: video.VBlank, Countdown: 100, Frames: 3,
		},
		Audio: audio.Status{
			Powered: true, NR50: 0x77, NR51: 0xF3, NR52: 0xF1, Step: 5,
		},
	}
	for i := range s.Timers {
		s.Timers[i] = timer.Status{ID: i}
	}
	s.Timers[0].Counter = 0xFF10
	s.Timers[0].Control = 0x00C0
	s.Timers[0].NextEvent = 2
	for i, kind := range []audio.Kind{audio.Pulse1, audio.Pulse2, audio.Wave, audio.Noise} {
		s.Audio.Channels[i].Kind = kind
	}
	s.Audio.Channels[0].Enabled = true
	s.Audio.Channels[0].Volume = 12
	s.Audio.Wave[0] = 0xAB
	return s
}

type dump struct {
	Revision string `json:"revision"`
	Frames   int    `json:"frames"`
	Carry    int    `json:"carry"`
	IE       string `json:"ie"`
	IF       string `json:"if"`
	Timers   []struct {
		ID        int    `json:"id"`
		Counter   string `json:"counter"`
		Control   string `json:"control"`
		NextEvent int    `json:"next_event"`
	} `json:"timers"`
	Video struct {
		LCDC string `json:"lcdc"`
		LY   string `json:"ly"`
		Mode string `json:"mode"`
	} `json:"video"`
	Audio struct {
		Powered  bool   `json:"powered"`
		NR52     string `json:"nr52"`
		Step     int    `json:"sequencer_step"`
		Wave     string `json:"wave"`
		Channels []struct {
			Kind    string `json:"kind"`
			Enabled bool   `json:"enabled"`
			Volume  int    `json:"volume"`
		} `json:"channels"`
	} `json:"audio"`
}

func TestEncodeStatus(t *testing.T) {
	data := EncodeStatus(testStatus())
	require.NoError(t, jx.DecodeBytes(data).Validate())

	var got dump
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "cgb", got.Revision)
	assert.Equal(t, 3, got.Frames)
	assert.Equal(t, -2, got.Carry)
	assert.Equal(t, "0x05", got.IE)
	assert.Equal(t, "0xE1", got.IF)

	require.Len(t, got.Timers, timer.Count)
	assert.Equal(t, "0xFF10", got.Timers[0].Counter)
	assert.Equal(t, "0x00C0", got.Timers[0].Control)
	assert.Equal(t, 2, got.Timers[0].NextEvent)
	assert.Equal(t, 3, got.Timers[3].ID)

	assert.Equal(t, "0x91", got.Video.LCDC)
	assert.Equal(t, "0x90", got.Video.LY)
	assert.Equal(t, "vblank", got.Video.Mode)

	assert.True(t, got.Audio.Powered)
	assert.Equal(t, "0xF1", got.Audio.NR52)
	assert.Equal(t, 5, got.Audio.Step)
	assert.Equal(t, "AB000000000000000000000000000000", got.Audio.Wave)

	var kinds []string
	for _, ch := range got.Audio.Channels {
		kinds = append(kinds, ch.Kind)
	}
	if diff := cmp.Diff([]string{"pulse1", "pulse2", "wave", "noise"}, kinds); diff != "" {
		t.Errorf("channel kinds (-want +got):\n%s", diff)
	}
	assert.True(t, got.Audio.Channels[0].Enabled)
	assert.Equal(t, 12, got.Audio.Channels[0].Volume)
}

func TestSaveStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, SaveStatus(path, testStatus()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, EncodeStatus(testStatus()), data)

	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, testStatus()))
	assert.Equal(t, data, buf.Bytes())

	assert.Error(t, SaveStatus(filepath.Join(t.TempDir(), "missing", "state.json"), testStatus()))
}

func TestFrameImage(t *testing.T) {
	frame := video.NewFrameBuffer()
	frame.Fill(video.WhiteColor)
	frame.SetPixel(1, 2, video.DarkGreyColor)

	img := FrameImage(frame)
	r, g, b, a := img.At(1, 2).RGBA()
	assert.Equal(t, []uint32{0x4C4C, 0x4C4C, 0x4C4C, 0xFFFF}, []uint32{r, g, b, a})
	r, _, _, _ = img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xFFFF), r)
}

func TestSaveFramePNG(t *testing.T) {
	frame := video.NewFrameBuffer()
	frame.Fill(video.BlackColor)

	dir := filepath.Join(t.TempDir(), "shots")
	path, err := SaveFramePNG(frame, dir, "frame", 42)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "frame_000042.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, video.FramebufferWidth, img.Bounds().Dx())
	assert.Equal(t, video.FramebufferHeight, img.Bounds().Dy())
	r, g, b, _ := img.At(10, 10).RGBA()
	assert.Zero(t, r+g+b)
}
