package bit

// Unsigned covers the register widths used by the peripherals.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32
}

// IsSet will check if the bit at the specified index is set to 1 or not.
func IsSet[T Unsigned](index uint8, value T) bool {
	return (value>>index)&1 == 1
}

// Set returns value with the bit at index set to 1.
func Set[T Unsigned](index uint8, value T) T {
	return value | (1 << index)
}

// Clear returns value with the bit at index set to 0.
func Clear[T Unsigned](index uint8, value T) T {
	return value &^ (1 << index)
}

// SetTo sets or clears the bit at index depending on on.
func SetTo[T Unsigned](index uint8, value T, on bool) T {
	if on {
		return Set(index, value)
	}
	return Clear(index, value)
}

// Value returns 1 if the bit at index is set, 0 otherwise.
func Value[T Unsigned](index uint8, value T) T {
	return (value >> index) & 1
}

// ExtractBits extracts bits from highBit to lowBit (inclusive)
// Example: ExtractBits(0b11010110, 6, 4) -> 0b101 (extracts bits 6, 5, 4)
func ExtractBits(value uint8, highBit, lowBit uint8) uint8 {
	width := highBit - lowBit + 1
	mask := uint8((1 << width) - 1)
	return (value >> lowBit) & mask
}

// Combine combines two 8 bit values into a single 16 bit value.
func Combine(high, low uint8) uint16 {
	return uint16(high)<<8 | uint16(low)
}

// Low returns the low (LSB) part of a 16 bit number.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the high (MSB) part of a 16 bit number.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}
