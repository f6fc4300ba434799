// Package register models the memory-mapped storage cells shared by every
// peripheral: a raw value guarded by a write mask, with a read mask and the
// fixed content returned for bits that cannot be read back.
package register

import "fmt"

// Width is the set of register sizes on the two buses.
type Width interface {
	~uint8 | ~uint16
}

// Template describes a register's layout. Bits outside ReadMask read back as
// the matching bits of Fixed; bits outside WriteMask are never changed by a
// bus write.
type Template[T Width] struct {
	Name      string
	Reset     T
	WriteMask T
	ReadMask  T
	Fixed     T
}

// Register is a fixed-width cell. The zero value is an unusable register
// with no readable or writable bits; build one with New.
type Register[T Width] struct {
	name      string
	value     T
	reset     T
	writeMask T
	readMask  T
	fixed     T
}

// New builds a register from a template. A template whose fixed content
// overlaps its readable bits cannot describe real hardware and panics.
func New[T Width](t Template[T]) Register[T] {
	if t.Fixed&t.ReadMask != 0 {
		panic(fmt.Sprintf("register %s: fixed bits 0x%X overlap read mask 0x%X", t.Name, t.Fixed, t.ReadMask))
	}

	r := Register[T]{
		name:      t.Name,
		writeMask: t.WriteMask,
		readMask:  t.ReadMask,
		fixed:     t.Fixed,
	}
	r.reset = t.Reset & r.legal()
	r.value = r.reset
	return r
}

func (r *Register[T]) legal() T {
	return r.readMask | r.writeMask
}

// Name returns the register's mnemonic.
func (r *Register[T]) Name() string {
	return r.name
}

// Write stores a bus write. Only write-masked bits change.
func (r *Register[T]) Write(v T) {
	r.value = r.value&^r.writeMask | v&r.writeMask
}

// Read returns what the bus sees: readable bits from the stored value,
// everything else from the fixed content.
func (r *Register[T]) Read() T {
	return r.value&r.readMask | r.fixed&^r.readMask
}

// Value returns the raw stored value, including write-only bits.
func (r *Register[T]) Value() T {
	return r.value
}

// Set stores a value from the hardware side, ignoring the write mask.
// Bits that are neither readable nor writable are dropped.
func (r *Register[T]) Set(v T) {
	r.value = v & r.legal()
}

// Reset restores the power-on value.
func (r *Register[T]) Reset() {
	r.value = r.reset
}

func (r Register[T]) String() string {
	return fmt.Sprintf("%s{%X}", r.name, r.value)
}
