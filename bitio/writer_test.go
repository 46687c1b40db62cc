package bitio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriterReadRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteUint(2, 7)
	w.WriteUint(4, 7)
	w.Pad()

	r := NewReader(w.Bytes())
	assert.Equal(t, uint64(2), r.ReadUint(7))
	assert.Equal(t, uint64(4), r.ReadUint(7))
}

func TestWriterWriteIntRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 5, -5, 63, -63} {
		w := NewWriter()
		w.WriteInt(v, 7)
		w.Pad()
		r := NewReader(w.Bytes())
		assert.Equal(t, v, r.ReadInt(7), "value %d", v)
	}
}

func TestWriterWriteUintOverflowPanics(t *testing.T) {
	w := NewWriter()
	assert.Panics(t, func() { w.WriteUint(1<<8, 7) })
}

func TestWriterWriteAllOnes(t *testing.T) {
	w := NewWriter()
	w.WriteAllOnes(7)
	w.Pad()
	r := NewReader(w.Bytes())
	assert.True(t, r.PeekAllOnes(7))
}

func TestWriterPadAlreadyAligned(t *testing.T) {
	w := NewWriter()
	w.WriteUint(0xFF, 8)
	assert.Equal(t, 0, w.Pad())
}

func TestWriterWriteString(t *testing.T) {
	w := NewWriter()
	w.WriteString("AB", 4)
	r := NewReader(w.Bytes())
	assert.Equal(t, "AB", r.ReadString(4))
}

func TestWriterWriteStringTruncates(t *testing.T) {
	w := NewWriter()
	w.WriteString("ABCDEF", 3)
	assert.Equal(t, []byte("ABC"), w.Bytes())
}

func TestWriterOffset(t *testing.T) {
	w := NewWriter()
	w.WriteUint(1, 10)
	b, bit := w.Offset()
	assert.Equal(t, int64(1), b)
	assert.Equal(t, 2, bit)
}
