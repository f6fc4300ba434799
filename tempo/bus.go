package tempo

import (
	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/audio"
	"github.com/valerio/go-tempo/tempo/irq"
	"github.com/valerio/go-tempo/tempo/timer"
	"github.com/valerio/go-tempo/tempo/video"
)

// BusInterface is the surface an instruction core drives: the 8-bit IO
// page plus video memory, and the 16-bit timer block.
type BusInterface interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	Read16(address uint16) uint16
	Write16(address uint16, value uint16)
	RequestInterrupt(interrupt addr.Interrupt)
}

var _ BusInterface = (*Bus)(nil)

// Bus routes register and memory accesses to the peripherals. It also
// backs the display's reads of VRAM and OAM.
type Bus struct {
	VRAM [addr.VRAMEnd - addr.VRAMStart + 1]byte
	OAM  [addr.OAMEnd - addr.OAMStart + 1]byte

	IRQ    *irq.Controller
	Timers *timer.Set
	GPU    *video.GPU
	APU    *audio.APU
}

func NewBus() *Bus {
	return &Bus{}
}

func isLCDRegister(address uint16) bool {
	return address >= addr.LCDC && address <= addr.WX
}

func isAudioRegister(address uint16) bool {
	return address >= addr.NR10 && address <= addr.WaveRAMEnd
}

func (b *Bus) Read(address uint16) byte {
	switch {
	case address >= addr.VRAMStart && address <= addr.VRAMEnd:
		return b.VRAM[address-addr.VRAMStart]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		return b.OAM[address-addr.OAMStart]
	case address == addr.IF || address == addr.IE:
		return b.IRQ.Read(address)
	case isLCDRegister(address):
		return b.GPU.Read(address)
	case isAudioRegister(address):
		return b.APU.Read(address)
	}
	return 0xFF
}

func (b *Bus) Write(address uint16, value byte) {
	switch {
	case address >= addr.VRAMStart && address <= addr.VRAMEnd:
		b.VRAM[address-addr.VRAMStart] = value
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		b.OAM[address-addr.OAMStart] = value
	case address == addr.IF || address == addr.IE:
		b.IRQ.Write(address, value)
	case isLCDRegister(address):
		b.GPU.Write(address, value)
	case isAudioRegister(address):
		b.APU.Write(address, value)
	}
}

// Read16 reads a halfword from the timer block. Other addresses read as
// open bus.
func (b *Bus) Read16(address uint16) uint16 {
	if address >= addr.TimerStart && address <= addr.TimerEnd {
		return b.Timers.Read(address)
	}
	return 0xFFFF
}

// Write16 writes a halfword to the timer block.
func (b *Bus) Write16(address uint16, value uint16) {
	if address >= addr.TimerStart && address <= addr.TimerEnd {
		b.Timers.Write(address, value)
	}
}

func (b *Bus) RequestInterrupt(interrupt addr.Interrupt) {
	b.IRQ.RequestInterrupt(interrupt)
}
