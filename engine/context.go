// Package engine implements the Template Processing Engine (component
// E) and Template Compilation (component H): the driver that walks a
// descriptor sequence against a bit stream (or a data tree) while
// maintaining Coder State, producing (or consuming) a tree.Node. The
// engine shares one control flow between decode and encode via the
// Policy abstraction (spec.md DESIGN NOTES §9).
package engine

import (
	"github.com/dsnet/bufr/bitio"
	"github.com/dsnet/bufr/coder"
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tables"
)

// Context carries everything one template walk needs: the table
// snapshot, the live coder state, the bit cursor (reader xor writer
// depending on direction), and bookkeeping for error reporting.
type Context struct {
	Snapshot   *tables.Snapshot
	State      *coder.State
	NSubsets   int
	Compressed bool

	Reader *bitio.Reader // set when decoding
	Writer *bitio.Writer // set when encoding

	trail []descriptor.ID
}

// NewDecodeContext builds a Context for reading buf.
func NewDecodeContext(snap *tables.Snapshot, nSubsets int, compressed bool, buf []byte) *Context {
	return &Context{
		Snapshot:   snap,
		State:      coder.New(compressed),
		NSubsets:   nSubsets,
		Compressed: compressed,
		Reader:     bitio.NewReader(buf),
	}
}

// NewEncodeContext builds a Context for writing into w.
func NewEncodeContext(snap *tables.Snapshot, nSubsets int, compressed bool, w *bitio.Writer) *Context {
	return &Context{
		Snapshot:   snap,
		State:      coder.New(compressed),
		NSubsets:   nSubsets,
		Compressed: compressed,
		Writer:     w,
	}
}

// Offset reports the current stream position for error annotation.
func (c *Context) Offset() (byteOff int64, bitOff int) {
	if c.Reader != nil {
		return c.Reader.Offset()
	}
	return c.Writer.Offset()
}

// PushTrail/PopTrail maintain the descriptor trail reported on error
// (§7: "the engine surfaces the first error with a stream byte+bit
// offset and the descriptor trail").
func (c *Context) PushTrail(id descriptor.ID) { c.trail = append(c.trail, id) }
func (c *Context) PopTrail()                  { c.trail = c.trail[:len(c.trail)-1] }

// Trail returns a copy of the current descriptor trail.
func (c *Context) Trail() []descriptor.ID {
	out := make([]descriptor.ID, len(c.trail))
	copy(out, c.trail)
	return out
}
