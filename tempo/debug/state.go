// Package debug turns peripheral state into artifacts a person can inspect:
// JSON state dumps and PNG frame captures.
package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/go-faster/jx"

	"github.com/valerio/go-tempo/tempo"
	"github.com/valerio/go-tempo/tempo/audio"
	"github.com/valerio/go-tempo/tempo/timer"
	"github.com/valerio/go-tempo/tempo/video"
)

func hex8(v uint8) string   { return fmt.Sprintf("0x%02X", v) }
func hex16(v uint16) string { return fmt.Sprintf("0x%04X", v) }

func field(e *jx.Encoder, name string, write func()) {
	e.FieldStart(name)
	write()
}

// EncodeStatus renders a system snapshot as a JSON document. Register
// values are hex strings; counters and cycle figures are numbers.
func EncodeStatus(s tempo.Status) []byte {
	var e jx.Encoder
	e.ObjStart()
	field(&e, "revision", func() { e.Str(s.Revision.String()) })
	field(&e, "frames", func() { e.Int(int(s.Frames)) })
	field(&e, "cycles", func() { e.Int(int(s.Cycles)) })
	field(&e, "carry", func() { e.Int(s.Carry) })
	field(&e, "ie", func() { e.Str(hex8(s.IE)) })
	field(&e, "if", func() { e.Str(hex8(s.IF)) })
	field(&e, "timers", func() { encodeTimers(&e, s.Timers) })
	field(&e, "video", func() { encodeVideo(&e, s.Video) })
	field(&e, "audio", func() { encodeAudio(&e, s.Audio) })
	e.ObjEnd()
	return e.Bytes()
}

func encodeTimers(e *jx.Encoder, timers [timer.Count]timer.Status) {
	e.ArrStart()
	for _, t := range timers {
		e.ObjStart()
		field(e, "id", func() { e.Int(t.ID) })
		field(e, "counter", func() { e.Str(hex16(t.Counter)) })
		field(e, "reload", func() { e.Str(hex16(t.Reload)) })
		field(e, "control", func() { e.Str(hex16(t.Control)) })
		field(e, "reload_pending", func() { e.Bool(t.ReloadPending) })
		field(e, "next_event", func() { e.Int(t.NextEvent) })
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeVideo(e *jx.Encoder, v video.Status) {
	e.ObjStart()
	registers := []struct {
		name  string
		value uint8
	}{
		{"lcdc", v.LCDC}, {"stat", v.STAT}, {"scy", v.SCY}, {"scx", v.SCX},
		{"ly", v.LY}, {"lyc", v.LYC}, {"bgp", v.BGP}, {"obp0", v.OBP0},
		{"obp1", v.OBP1}, {"wy", v.WY}, {"wx", v.WX},
	}
	for _, r := range registers {
		field(e, r.name, func() { e.Str(hex8(r.value)) })
	}
	field(e, "mode", func() { e.Str(v.Mode.String()) })
	field(e, "countdown", func() { e.Int(v.Countdown) })
	field(e, "window_line", func() { e.Int(v.WindowLine) })
	field(e, "frames", func() { e.Int(int(v.Frames)) })
	e.ObjEnd()
}

func encodeAudio(e *jx.Encoder, a audio.Status) {
	e.ObjStart()
	field(e, "powered", func() { e.Bool(a.Powered) })
	field(e, "nr50", func() { e.Str(hex8(a.NR50)) })
	field(e, "nr51", func() { e.Str(hex8(a.NR51)) })
	field(e, "nr52", func() { e.Str(hex8(a.NR52)) })
	field(e, "sequencer_step", func() { e.Int(a.Step) })
	field(e, "channels", func() {
		e.ArrStart()
		for _, ch := range a.Channels {
			e.ObjStart()
			field(e, "kind", func() { e.Str(ch.Kind.String()) })
			field(e, "enabled", func() { e.Bool(ch.Enabled) })
			field(e, "muted", func() { e.Bool(ch.Muted) })
			field(e, "volume", func() { e.Int(int(ch.Volume)) })
			field(e, "length", func() { e.Int(ch.Length) })
			field(e, "frequency", func() { e.Int(int(ch.Frequency)) })
			field(e, "phase", func() { e.Int(ch.Phase) })
			e.ObjEnd()
		}
		e.ArrEnd()
	})
	field(e, "wave", func() { e.Str(fmt.Sprintf("%X", a.Wave[:])) })
	e.ObjEnd()
}

// WriteStatus writes the JSON snapshot to w.
func WriteStatus(w io.Writer, s tempo.Status) error {
	if _, err := w.Write(EncodeStatus(s)); err != nil {
		return fmt.Errorf("writing state dump: %w", err)
	}
	return nil
}

// SaveStatus writes the JSON snapshot to path.
func SaveStatus(path string, s tempo.Status) error {
	if err := os.WriteFile(path, EncodeStatus(s), 0644); err != nil {
		return fmt.Errorf("saving state dump %s: %w", path, err)
	}
	return nil
}
