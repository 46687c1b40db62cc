package tree

import "github.com/dsnet/bufr/descriptor"

// Message is the full decoded (or to-be-encoded) representation of one
// BUFR message: section 0/1/2/3 metadata plus the section 4 data tree.
// The engine builds Root's children directly in the hierarchical,
// attribute-annotated form described in §4.6 (children folded under
// Sequence/Replication owners, attributes wired onto their owners
// during the walk); there is no separate flat form.
type Message struct {
	Edition   int
	MasterTable   int
	OriginatingCentre int
	OriginatingSubCentre int
	UpdateSequence int
	OptionalSection bool
	DataCategory int
	DataSubCategory int
	LocalSubCategory int
	MasterTableVersion int
	LocalTableVersion int
	Year, Month, Day, Hour, Minute, Second int

	NSubsets    int
	Observed    bool
	Compressed  bool

	// Descriptors is the unexpanded section-3 descriptor list, as read
	// from the wire (§6.1), preserved verbatim so encode can re-emit
	// section 3 byte-identically.
	Descriptors []descriptor.ID

	// Root holds one child per top-level element, replication or
	// sequence descriptor in Descriptors (operators other than 205YYY
	// add none; a delayed replication's count descriptor is folded into
	// its replication node), produced by the Template Processing Engine.
	Root *Node
}

// NewMessage allocates a Message with an empty synthetic root node.
func NewMessage() *Message {
	return &Message{Root: &Node{Kind: descriptor.KindSequence}}
}
