package engine

import (
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

// AllSubsets is the subsetIdx sentinel meaning "handle every subset at
// once", used for compressed leaves (§4.3).
const AllSubsets = -1

// LeafSpec describes one leaf occurrence with its coder-state-resolved
// parameters, computed once by the walker and handed to the active
// Policy so decode/encode/record share the exact same derivation.
type LeafSpec struct {
	ID        descriptor.ID
	Kind      descriptor.Kind
	Elem      *descriptor.Element // nil for Associated/SkippedLocal/InlineChar
	NBits     int
	Scale     int
	Reference int64
}

// Policy is the shared leaf hook set (spec.md §4.4, DESIGN NOTES §9):
// the engine's control flow is pure, and only these methods differ
// between decode, encode, and record.
type Policy interface {
	// Leaf processes one leaf occurrence. subsetIdx selects a single
	// subset (uncompressed) or AllSubsets (compressed, filling every
	// subset's value in one call). existing is nil when building a
	// node for the first time (decode, or first uncompressed subset
	// pass); non-nil when a node already exists at this tree position
	// and should be filled in (encode; later uncompressed subset
	// passes).
	Leaf(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (*tree.Node, error)

	// ReplicationCount resolves a delayed replication's repeat count
	// by walking the mandatory following class-31 count element.
	// spec is that count element's LeafSpec. existing is the
	// previously built count node (nil on first pass).
	ReplicationCount(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (count int, node *tree.Node, err error)

	// BitmapBits resolves the n boolean presence bits of a class-31
	// bitmap-definition replication group. existingBits is non-nil on
	// an encode or later-subset pass and must be reproduced verbatim.
	BitmapBits(ctx *Context, n int, existingBits []bool) ([]bool, error)
}
