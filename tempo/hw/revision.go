package hw

import (
	"fmt"
	"strings"
)

// Revision selects which hardware generation the peripherals model.
// Only the behaviors that differ between the two are keyed on it.
type Revision int

const (
	// DMG is the original monochrome handheld.
	DMG Revision = iota
	// CGB is the color revision, which adds double-speed mode.
	CGB
)

func (r Revision) String() string {
	switch r {
	case DMG:
		return "dmg"
	case CGB:
		return "cgb"
	default:
		return fmt.Sprintf("Revision(%d)", int(r))
	}
}

// ParseRevision accepts the short names used by the config file and CLI.
func ParseRevision(name string) (Revision, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dmg", "gb":
		return DMG, nil
	case "cgb", "gbc":
		return CGB, nil
	default:
		return DMG, fmt.Errorf("unknown hardware revision %q", name)
	}
}

// SupportsDoubleSpeed reports whether the CPU can switch to double speed.
func (r Revision) SupportsDoubleSpeed() bool {
	return r == CGB
}

// CorruptsWaveOnRetrigger reports whether retriggering the wave channel
// mid-read damages the sample table.
func (r Revision) CorruptsWaveOnRetrigger() bool {
	return r == DMG
}

// HasSTATWriteGlitch reports whether writing STAT briefly behaves as if
// every interrupt source were enabled.
func (r Revision) HasSTATWriteGlitch() bool {
	return r == DMG
}

// KeepsLengthWhenOff reports whether length counters survive the master
// audio switch being turned off (and stay writable while it is).
func (r Revision) KeepsLengthWhenOff() bool {
	return r == DMG
}
