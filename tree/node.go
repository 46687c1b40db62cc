package tree

import "github.com/dsnet/bufr/descriptor"

// AttrKind is the closed enum of attribute kinds a Node.Attributes map
// can carry, replacing the dynamic-attribute-injection pattern named
// in spec.md DESIGN NOTES §9 (§4.6).
type AttrKind int

const (
	AttrAssociatedField AttrKind = iota
	AttrQualityInfo
	AttrSubstitution
	AttrFirstOrderStat
	AttrDifferenceStat
	AttrReplacement
)

func (k AttrKind) String() string {
	switch k {
	case AttrAssociatedField:
		return "associated"
	case AttrQualityInfo:
		return "q_info"
	case AttrSubstitution:
		return "substitution"
	case AttrFirstOrderStat:
		return "first_order"
	case AttrDifferenceStat:
		return "difference"
	case AttrReplacement:
		return "replacement"
	default:
		return "unknown"
	}
}

// MarshalText lets AttrKind serve as a readable encoding/json map key
// (component M's JSON rendering) instead of a bare integer.
func (k AttrKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Node is one visited descriptor: a leaf with per-subset values, or a
// replication/sequence node owning child groups (§3.2).
type Node struct {
	DescriptorID descriptor.ID
	Kind         descriptor.Kind

	// Elem is set for leaf nodes resolved against an Element table
	// entry (nil for operator/replication/sequence/skipped nodes).
	Elem *descriptor.Element

	// Values holds one entry per subset for leaf nodes. For
	// compressed messages this is the fully expanded per-subset view
	// (component E folds the compressed min+delta encoding back into
	// one Value per subset); §4.3 layout details are load-bearing only
	// during the walk, not in the resulting tree.
	Values []Value

	// EffectiveNBits/EffectiveScale/EffectiveReference record the
	// coder-state-adjusted parameters this leaf was actually read
	// with. Encode does not read them; it re-derives each leaf's
	// parameters from operator state as it walks.
	EffectiveNBits      int
	EffectiveScale      int
	EffectiveReference  int64
	AssociatedFieldBits int // width of AttrAssociatedField, if present

	// Children holds the ordered child nodes of a KindSequence node.
	Children []*Node

	// Groups holds the repetition groups of a KindReplication node.
	// len(Groups) is the decoded repeat count (the delayed count for
	// delayed replication); each inner slice is one repetition of the
	// replicated descriptors, in template order.
	Groups [][]*Node

	// Attributes holds attribute nodes wired onto this node by
	// component G, keyed by the closed AttrKind enum.
	Attributes map[AttrKind]*Node

	// Meaning carries free-form metadata text resolved from a 031021
	// value for AttrAssociatedField nodes (§4.6 rule 1).
	Meaning string
}

// NewLeaf constructs a leaf node for an element descriptor.
func NewLeaf(id descriptor.ID, kind descriptor.Kind, elem *descriptor.Element, nSubsets int) *Node {
	return &Node{
		DescriptorID: id,
		Kind:         kind,
		Elem:         elem,
		Values:       make([]Value, nSubsets),
	}
}

// NewBranch constructs a replication or sequence node.
func NewBranch(id descriptor.ID, kind descriptor.Kind) *Node {
	return &Node{DescriptorID: id, Kind: kind}
}

// SetAttribute attaches an attribute node under kind, allocating the
// map lazily (most nodes carry none).
func (n *Node) SetAttribute(kind AttrKind, attr *Node) {
	if n.Attributes == nil {
		n.Attributes = make(map[AttrKind]*Node)
	}
	n.Attributes[kind] = attr
}

// Leaves walks n and its descendants in template order, invoking fn on
// every leaf node (element, inline-character, skipped-local, or
// marker). Nodes held only in Attributes, such as associated fields,
// are not visited, so the walk follows the stream's bit sequence
// except for associated-field bits.
func (n *Node) Leaves(fn func(*Node)) {
	switch n.Kind {
	case descriptor.KindReplication:
		for _, group := range n.Groups {
			for _, child := range group {
				child.Leaves(fn)
			}
		}
	case descriptor.KindSequence:
		for _, child := range n.Children {
			child.Leaves(fn)
		}
	default:
		fn(n)
	}
}
