package audio

// WaveTable is the 32-nibble sample memory played by the wave channel. The
// first sample of each byte lives in the high nibble.
type WaveTable [16]byte

func (w *WaveTable) nibble(pos int) uint8 {
	b := w[(pos>>1)&0x0F]
	if pos&1 == 0 {
		return b >> 4
	}
	return b & 0x0F
}

// corrupt reproduces the pre-color glitch where retriggering the wave
// channel on the cycle it fetches a sample overwrites the start of the
// table. The byte being read is copied to byte 0 when it lies in the first
// four bytes; otherwise its aligned 4-byte block replaces bytes 0-3.
func (w *WaveTable) corrupt(pos int) {
	index := (pos >> 1) & 0x0F
	if index < 4 {
		w[0] = w[index]
		return
	}
	base := index &^ 0x03
	copy(w[0:4], w[base:base+4])
}
