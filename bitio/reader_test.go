package bitio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReaderReadUint(t *testing.T) {
	// S1 of spec.md §8: 0000010 0000100 read as two 7-bit fields.
	r := NewReader([]byte{0b00000100, 0b00010000})
	assert.Equal(t, uint64(2), r.ReadUint(7))
	assert.Equal(t, uint64(4), r.ReadUint(7))
}

func TestReaderCrossesByteBoundary(t *testing.T) {
	r := NewReader([]byte{0xFF, 0x00})
	assert.Equal(t, uint64(0x3FC), r.ReadUint(10))
	assert.Equal(t, uint64(0x0), r.ReadUint(6))
}

func TestReaderReadIntSignMagnitude(t *testing.T) {
	// 5 bits: sign bit + 4-bit magnitude.
	r := NewReader([]byte{0b10101000, 0})
	assert.Equal(t, int64(-5), r.ReadInt(5))
}

func TestReaderReadIntPositive(t *testing.T) {
	r := NewReader([]byte{0b00101000, 0})
	assert.Equal(t, int64(5), r.ReadInt(5))
}

func TestReaderMissingValue(t *testing.T) {
	r := NewReader([]byte{0xFF})
	assert.True(t, r.PeekAllOnes(7))
	assert.Equal(t, uint64(0x7F), r.ReadUint(7))
}

func TestReaderUnderrunPanics(t *testing.T) {
	r := NewReader([]byte{0x00})
	assert.Panics(t, func() { r.ReadUint(9) })
}

func TestReaderSkipPad(t *testing.T) {
	r := NewReader([]byte{0b11110000})
	r.ReadUint(4)
	assert.Equal(t, uint64(0), r.SkipPad())
	assert.True(t, r.AtByteBoundary())
}

func TestReaderSkipPadNonZero(t *testing.T) {
	r := NewReader([]byte{0b00000001})
	r.ReadUint(4)
	assert.Equal(t, uint64(1), r.SkipPad())
}

func TestReaderReadString(t *testing.T) {
	r := NewReader([]byte("AB  "))
	assert.Equal(t, "AB", r.ReadString(4))
}

func TestIsMissingString(t *testing.T) {
	assert.True(t, IsMissingString([]byte{0xFF, 0xFF}))
	assert.False(t, IsMissingString([]byte{0xFF, 0x00}))
}

func TestReaderOffset(t *testing.T) {
	r := NewReader([]byte{0, 0, 0})
	r.ReadUint(10)
	b, bit := r.Offset()
	assert.Equal(t, int64(1), b)
	assert.Equal(t, 2, bit)
}
