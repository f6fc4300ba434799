package addr

// lcd registers
const (
	// LCD Control register.
	LCDC uint16 = 0xFF40
	// LCDC Status register.
	STAT uint16 = 0xFF41
	// Scroll Y (SCY) register.
	SCY uint16 = 0xFF42
	// Scroll X (SCX) register.
	SCX uint16 = 0xFF43
	// LCDC Y-Coordinate (readonly) register.
	LY uint16 = 0xFF44
	// LY Compare register.
	LYC uint16 = 0xFF45
	// BG Palette register.
	BGP uint16 = 0xFF47
	// Object Palette 0 register.
	OBP0 uint16 = 0xFF48
	// Object Palette 1 register.
	OBP1 uint16 = 0xFF49
	// Window Y Position register.
	WY uint16 = 0xFF4A
	// Window X Position register.
	WX uint16 = 0xFF4B
)

// Audio registers.
// Reference: https://gbdev.io/pandocs/Audio_Registers.html
const (
	AudioStart uint16 = 0xFF10
	AudioEnd   uint16 = 0xFF3F

	NR10 uint16 = 0xFF10 // Pulse 1 sweep
	NR11 uint16 = 0xFF11 // Pulse 1 length timer & duty cycle
	NR12 uint16 = 0xFF12 // Pulse 1 volume & envelope
	NR13 uint16 = 0xFF13 // Pulse 1 period low
	NR14 uint16 = 0xFF14 // Pulse 1 period high & control

	NR20 uint16 = 0xFF15 // unused
	NR21 uint16 = 0xFF16 // Pulse 2 length timer & duty cycle
	NR22 uint16 = 0xFF17 // Pulse 2 volume & envelope
	NR23 uint16 = 0xFF18 // Pulse 2 period low
	NR24 uint16 = 0xFF19 // Pulse 2 period high & control

	NR30 uint16 = 0xFF1A // Wave DAC enable
	NR31 uint16 = 0xFF1B // Wave length timer
	NR32 uint16 = 0xFF1C // Wave output level
	NR33 uint16 = 0xFF1D // Wave period low
	NR34 uint16 = 0xFF1E // Wave period high & control

	NR40 uint16 = 0xFF1F // unused
	NR41 uint16 = 0xFF20 // Noise length timer
	NR42 uint16 = 0xFF21 // Noise volume & envelope
	NR43 uint16 = 0xFF22 // Noise frequency & randomness
	NR44 uint16 = 0xFF23 // Noise control

	NR50 uint16 = 0xFF24 // Master volume & VIN panning
	NR51 uint16 = 0xFF25 // Sound panning
	NR52 uint16 = 0xFF26 // Sound on/off and channel status

	// Wave pattern RAM (32 samples, 4-bit each)
	WaveRAMStart uint16 = 0xFF30
	WaveRAMEnd   uint16 = 0xFF3F
)

// video memory
const (
	VRAMStart uint16 = 0x8000
	VRAMEnd   uint16 = 0x9FFF

	// OAMStart is the start of OAM memory (40 sprites * 4 bytes each)
	OAMStart uint16 = 0xFE00
	// OAMEnd is the end of OAM memory
	OAMEnd uint16 = 0xFE9F

	// TileData0 is the start of unsigned tile data (tiles 0-255)
	TileData0 uint16 = 0x8000
	// TileData2 is the base of signed tile data (tiles -128 to 127)
	TileData2 uint16 = 0x9000

	// TileMap0 is background/window tile map 0
	TileMap0 uint16 = 0x9800
	// TileMap1 is background/window tile map 1
	TileMap1 uint16 = 0x9C00
)

// interrupts
const (
	// IF is the address for the Interrupt Flags register.
	IF uint16 = 0xFF0F
	// IE is the address for the Interrupt Enable register.
	IE uint16 = 0xFFFF
)

// Timer registers live in a separate 16-bit register block. Addresses are
// offsets into that block: four timers, 4 bytes apart, each a counter/reload
// halfword followed by a control halfword.
const (
	TimerStart uint16 = 0x0100
	TimerEnd   uint16 = 0x010F

	TM0CNTL uint16 = 0x0100
	TM0CNTH uint16 = 0x0102
	TM1CNTL uint16 = 0x0104
	TM1CNTH uint16 = 0x0106
	TM2CNTL uint16 = 0x0108
	TM2CNTH uint16 = 0x010A
	TM3CNTL uint16 = 0x010C
	TM3CNTH uint16 = 0x010E
)

// TimerCounter returns the counter/reload address for timer id.
func TimerCounter(id int) uint16 {
	return TimerStart + uint16(id)*4
}

// TimerControl returns the control address for timer id.
func TimerControl(id int) uint16 {
	return TimerCounter(id) + 2
}

// Interrupt is an enum that represents one of the possible interrupts.
type Interrupt uint8

const (
	// VBlankInterrupt is fired when the display enters line 144.
	VBlankInterrupt Interrupt = 1
	// LCDSTATInterrupt is fired on a rising edge of the composite STAT signal.
	LCDSTATInterrupt Interrupt = 1 << 1
	// Timer0Interrupt is fired when timer 0 completes an overflow reload.
	Timer0Interrupt Interrupt = 1 << 2
	// SerialInterrupt is fired when a serial transfer has completed.
	SerialInterrupt Interrupt = 1 << 3
	// JoypadInterrupt is fired when any of the keypad inputs goes from high to low.
	JoypadInterrupt Interrupt = 1 << 4
	// Timer1Interrupt through Timer3Interrupt take the bits left over on
	// the single-timer hardware.
	Timer1Interrupt Interrupt = 1 << 5
	Timer2Interrupt Interrupt = 1 << 6
	Timer3Interrupt Interrupt = 1 << 7
)

var timerInterrupts = [4]Interrupt{Timer0Interrupt, Timer1Interrupt, Timer2Interrupt, Timer3Interrupt}

// TimerCount is the number of timers in the timer block.
const TimerCount = len(timerInterrupts)

// TimerInterrupt maps a timer id (0-3) to its interrupt line.
func TimerInterrupt(id int) Interrupt {
	return timerInterrupts[id]
}

func (i Interrupt) String() string {
	switch i {
	case VBlankInterrupt:
		return "vblank"
	case LCDSTATInterrupt:
		return "lcdstat"
	case Timer0Interrupt:
		return "timer0"
	case Timer1Interrupt:
		return "timer1"
	case Timer2Interrupt:
		return "timer2"
	case Timer3Interrupt:
		return "timer3"
	case SerialInterrupt:
		return "serial"
	case JoypadInterrupt:
		return "joypad"
	default:
		return "mixed"
	}
}
