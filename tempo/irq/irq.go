package irq

import (
	"fmt"
	"log/slog"

	"github.com/valerio/go-tempo/tempo/addr"
	"github.com/valerio/go-tempo/tempo/register"
)

// Requester is what peripherals use to raise an interrupt line. Each call
// raises exactly one line once; nothing is queued.
type Requester interface {
	RequestInterrupt(i addr.Interrupt)
}

// Controller holds the interrupt enable (IE) and flag (IF) registers.
type Controller struct {
	enable register.Register[uint8]
	flags  register.Register[uint8]

	raised [8]uint64
}

func New() *Controller {
	return &Controller{
		enable: register.New(register.Template[uint8]{Name: "IE", WriteMask: 0xFF, ReadMask: 0xFF}),
		flags:  register.New(register.Template[uint8]{Name: "IF", WriteMask: 0xFF, ReadMask: 0xFF}),
	}
}

// RequestInterrupt sets the IF bit for i.
func (c *Controller) RequestInterrupt(i addr.Interrupt) {
	c.flags.Set(c.flags.Value() | uint8(i))
	for n := range c.raised {
		if uint8(i)&(1<<n) != 0 {
			c.raised[n]++
		}
	}
	slog.Debug("Interrupt requested", "line", i.String(), "if", fmt.Sprintf("0x%02X", c.flags.Value()))
}

// Enabled reports whether IE has the line for i set.
func (c *Controller) Enabled(i addr.Interrupt) bool {
	return c.enable.Value()&uint8(i) != 0
}

// Pending returns lines that are both requested and enabled.
func (c *Controller) Pending() addr.Interrupt {
	return addr.Interrupt(c.enable.Value() & c.flags.Value())
}

// Acknowledge clears a serviced line from IF.
func (c *Controller) Acknowledge(i addr.Interrupt) {
	c.flags.Set(c.flags.Value() &^ uint8(i))
}

// Raised returns how many times the line for i has been raised since power on.
func (c *Controller) Raised(i addr.Interrupt) uint64 {
	var total uint64
	for n := range c.raised {
		if uint8(i)&(1<<n) != 0 {
			total += c.raised[n]
		}
	}
	return total
}

func (c *Controller) Read(address uint16) uint8 {
	switch address {
	case addr.IE:
		return c.enable.Read()
	case addr.IF:
		return c.flags.Read()
	default:
		return 0xFF
	}
}

func (c *Controller) Write(address uint16, value uint8) {
	switch address {
	case addr.IE:
		c.enable.Write(value)
	case addr.IF:
		c.flags.Write(value)
	}
}

// Reset clears both registers and the raise counters.
func (c *Controller) Reset() {
	c.enable.Reset()
	c.flags.Reset()
	c.raised = [8]uint64{}
}
