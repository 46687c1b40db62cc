// Package coder implements the mutable Coder State (component D):
// the bit-level overrides that accumulate while a template is walked
// against one subset, per spec.md §3.3.
package coder

import (
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

// AssocFrame is one entry of the associated-field stack pushed by
// 204YYY and popped by 204000 (§3.3, §4.2).
type AssocFrame struct {
	NBits      int
	Active     bool
	Meaning    string // set by the required following 031021
	HasMeaning bool
}

// MarkerMode identifies which marker family the next class-31 bitmap
// walk will emit descriptors for (§3.3, §4.2).
type MarkerMode int

const (
	MarkerNone MarkerMode = iota
	MarkerSubstitution
	MarkerQualityInfo
	MarkerFirstOrder
	MarkerDifference
	MarkerReplacement
)

// AttrKind maps a MarkerMode to the tree.AttrKind it produces.
func (m MarkerMode) AttrKind() tree.AttrKind {
	switch m {
	case MarkerSubstitution:
		return tree.AttrSubstitution
	case MarkerQualityInfo:
		return tree.AttrQualityInfo
	case MarkerFirstOrder:
		return tree.AttrFirstOrderStat
	case MarkerDifference:
		return tree.AttrDifferenceStat
	case MarkerReplacement:
		return tree.AttrReplacement
	default:
		return tree.AttrQualityInfo
	}
}

// DescriptorKind maps a MarkerMode to the synthetic descriptor.Kind and
// ID prefix §3.1 assigns to a consumed marker value (substitution,
// first-order stat, difference stat, replacement). Quality-info
// markers (222000) have no synthetic kind in §3.1's four-kind list and
// keep their native element identity; ok is false for that case.
func (m MarkerMode) DescriptorKind() (kind descriptor.Kind, prefix string, ok bool) {
	switch m {
	case MarkerSubstitution:
		kind = descriptor.KindMarkerSubstitution
	case MarkerFirstOrder:
		kind = descriptor.KindMarkerFirstOrder
	case MarkerDifference:
		kind = descriptor.KindMarkerDifference
	case MarkerReplacement:
		kind = descriptor.KindMarkerReplacement
	default:
		return descriptor.KindElement, "", false
	}
	return kind, descriptor.MarkerPrefix(kind), true
}

// Bitmap is one resolved bitmap: an ordered list of presence bits over
// the candidate list captured at definition time (§4.5). Bit false
// ("0") means present/selected; true ("1") means NOT present, matching
// §3.3's "bit 0 = present, 1 = NOT present".
type Bitmap struct {
	Bits       []bool
	Candidates []*tree.Node // back-referenceable class-0 nodes in emission order, captured at definition time
}

// NotPresentCount returns how many candidates this bitmap marks absent
// (popcount of true bits).
func (b *Bitmap) NotPresentCount() int {
	n := 0
	for _, bit := range b.Bits {
		if bit {
			n++
		}
	}
	return n
}

// PresentCount returns how many candidates this bitmap marks present
// (popcount of "0" bits) — the §8 invariant 5 cardinality, i.e. the
// number of marker/attribute values expected to follow.
func (b *Bitmap) PresentCount() int {
	return len(b.Bits) - b.NotPresentCount()
}

// PresentCandidates returns, in order, the candidate nodes selected by
// this bitmap's "0" bits (§4.5: "in order of candidate appearance with
// bitmap bit 0").
func (b *Bitmap) PresentCandidates() []*tree.Node {
	var out []*tree.Node
	for i, bit := range b.Bits {
		if !bit {
			out = append(out, b.Candidates[i])
		}
	}
	return out
}

// State is the per-subset mutable coder state of §3.3. A fresh State
// is used for each subset being walked (mirroring the teacher's
// per-block state reset idiom, see DESIGN.md).
type State struct {
	NBitsOffset int
	ScaleOffset int

	HasScaleOverride bool
	ScaleOverride    int

	NewRefVals    map[descriptor.ID]int64 // active while 203 capture/replay is in effect
	inCapture203  bool
	CaptureWidth  int // YYY of the active 203YYY, the bit width of each captured raw reference value

	AssocStack []AssocFrame

	HasLocalSkip   bool
	LocalSkipNBits int

	HasStringOverride   bool
	StringOverrideNBits int

	DataNotPresentCount int

	BitmapStack []*Bitmap
	MarkerMode  MarkerMode

	// Candidates is the ordered list of back-referenceable class-0
	// nodes emitted so far in the current subset; it resets on 235000
	// (§4.5).
	Candidates []*tree.Node

	// pendingBitmap/pendingRemaining implement marker-value
	// consumption: once a bitmap is resolved and its marker kind is
	// known, the next PresentCount leaf nodes emitted by the walker
	// (of any descriptor, per the template that follows the bitmap
	// definition) are marker values rather than ordinary top-level
	// data, and get attached to the corresponding PresentCandidates
	// entry instead of left in the flat list. This is an
	// implementation decision resolving how the abstract bitmap
	// ("record resulting bits... switch marker_mode to emit marker
	// descriptors on the next walk over its target set", §4.4 rule 3)
	// maps onto concrete template descriptors; see DESIGN.md.
	pendingBitmap    *Bitmap
	pendingKind      MarkerMode
	pendingRemaining int

	// DefinedBitmap holds a bitmap captured by 236000 for later reuse
	// by 237000 (§4.2).
	DefinedBitmap *Bitmap

	Compression bool
}

// New returns a freshly reset coder state for one subset.
func New(compressed bool) *State {
	return &State{Compression: compressed}
}

// Reset clears all operator-derived overrides, used between subsets in
// uncompressed messages where each subset starts from a clean state
// (§3.3's state is scoped "while decoding one subset").
func (s *State) Reset() {
	compression := s.Compression
	defined := s.DefinedBitmap
	*s = State{Compression: compression, DefinedBitmap: defined}
}

// EffectiveNBits computes an element's effective bit width per §4.4
// rule 3, given the table-declared width and any active width bump
// (from 207YYY).
func (s *State) EffectiveNBits(elem *descriptor.Element, widthBump int) int {
	if s.HasStringOverride && elem.Type == descriptor.TypeString {
		return s.StringOverrideNBits
	}
	return elem.NBits + s.NBitsOffset + widthBump
}

// EffectiveScale computes an element's effective scale per §3.3: a
// 207YYY scale_override adds Y to the table scale (same as 202YYY's
// additive offset, just a distinct, width/reference-coupled source).
func (s *State) EffectiveScale(elem *descriptor.Element) int {
	if s.HasScaleOverride {
		return elem.Scale + s.ScaleOverride
	}
	return elem.Scale + s.ScaleOffset
}

// EffectiveReference computes an element's effective reference value,
// honoring an active 203YYY-captured override first, else applying
// 207YYY's reference-multiplier rule (reference × 10^Y) when active
// (§3.3: "when active also modifies reference by known rule").
func (s *State) EffectiveReference(elem *descriptor.Element) int64 {
	if s.NewRefVals != nil {
		if v, ok := s.NewRefVals[elem.ID]; ok {
			return v
		}
	}
	if s.HasScaleOverride && elem.Type == descriptor.TypeNumeric {
		mult := int64(1)
		for i := 0; i < s.ScaleOverride; i++ {
			mult *= 10
		}
		return elem.Reference * mult
	}
	return elem.Reference
}

// ScaleOverrideWidthBump implements 207YYY's width side effect: each
// extra decimal digit of scale needs roughly 3.32 extra bits, per the
// standard BUFR rule width += (10*Y + 2) / 3.
func ScaleOverrideWidthBump(y int) int {
	if y <= 0 {
		return 0
	}
	return (10*y + 2) / 3
}

// PushAssoc implements 204YYY (§4.2).
func (s *State) PushAssoc(nbits int) {
	s.AssocStack = append(s.AssocStack, AssocFrame{NBits: nbits, Active: true})
}

// PopAssoc implements 204000. It returns ok=false when the stack is
// empty, which callers turn into ErrUnbalancedOperator (§3.4
// invariant, §7).
func (s *State) PopAssoc() (AssocFrame, bool) {
	if len(s.AssocStack) == 0 {
		return AssocFrame{}, false
	}
	top := s.AssocStack[len(s.AssocStack)-1]
	s.AssocStack = s.AssocStack[:len(s.AssocStack)-1]
	return top, true
}

// TopAssoc returns the active associated-field frame, if any.
func (s *State) TopAssoc() (*AssocFrame, bool) {
	if len(s.AssocStack) == 0 {
		return nil, false
	}
	return &s.AssocStack[len(s.AssocStack)-1], true
}

// BeginRefCapture implements the entry into 203YYY capture mode, width
// being the YYY argument (the bit width of each raw new-reference value
// that follows, one per class 0-9 element, until 203000 or 203255).
func (s *State) BeginRefCapture(width int) {
	if s.NewRefVals == nil {
		s.NewRefVals = make(map[descriptor.ID]int64)
	}
	s.inCapture203 = true
	s.CaptureWidth = width
}

// InRefCapture reports whether a 203YYY element is actively capturing
// new reference values (vs. merely having a previously captured table
// active after 203255).
func (s *State) InRefCapture() bool { return s.inCapture203 }

// EndRefCaptureKeepTable implements 203255: stop capturing, but keep
// replaying the already-captured table.
func (s *State) EndRefCaptureKeepTable() { s.inCapture203 = false }

// CancelRefCapture implements 203000: stop capturing and discard the
// table entirely.
func (s *State) CancelRefCapture() {
	s.inCapture203 = false
	s.NewRefVals = nil
}

// CaptureRef records a new reference value read while in 203YYY mode.
func (s *State) CaptureRef(elem descriptor.ID, v int64) {
	s.NewRefVals[elem] = v
}

// ResolveBitmap finalizes a bitmap captured from a class-31 replication
// group against the current MarkerMode, pushes it, and arms marker-
// value consumption for the PresentCount leaves that follow (§4.4 rule
// 3 last bullet, §4.5).
func (s *State) ResolveBitmap(bits []bool) *Bitmap {
	bm := &Bitmap{Bits: bits, Candidates: append([]*tree.Node(nil), s.Candidates...)}
	s.BitmapStack = append(s.BitmapStack, bm)
	if s.MarkerMode != MarkerNone {
		s.pendingBitmap = bm
		s.pendingKind = s.MarkerMode
		s.pendingRemaining = bm.PresentCount()
		s.MarkerMode = MarkerNone
	}
	return bm
}

// TopBitmap returns the most recently defined/used bitmap.
func (s *State) TopBitmap() (*Bitmap, bool) {
	if len(s.BitmapStack) == 0 {
		return nil, false
	}
	return s.BitmapStack[len(s.BitmapStack)-1], true
}

// ConsumeMarkerSlot reports whether the leaf about to be emitted is a
// pending marker value, and if so returns its target candidate node,
// attribute kind, and marker family, decrementing the remaining count.
func (s *State) ConsumeMarkerSlot() (target *tree.Node, kind tree.AttrKind, mode MarkerMode, ok bool) {
	if s.pendingRemaining <= 0 {
		return nil, 0, MarkerNone, false
	}
	idx := s.pendingBitmap.PresentCount() - s.pendingRemaining
	targets := s.pendingBitmap.PresentCandidates()
	target = targets[idx]
	kind = s.pendingKind.AttrKind()
	mode = s.pendingKind
	s.pendingRemaining--
	if s.pendingRemaining == 0 {
		s.pendingBitmap = nil
	}
	return target, kind, mode, true
}

// PendingMarkerCount reports how many marker values a resolved bitmap
// is still owed, used by the wiring package's closing-invariant check.
func (s *State) PendingMarkerCount() int {
	return s.pendingRemaining
}

// CancelAll implements 235000: flush all bitmap and marker state
// (§3.4 invariant: "Every 235000 flushes all bitmap and marker
// state"), and resets the back-reference candidate list.
func (s *State) CancelAll() {
	s.BitmapStack = nil
	s.MarkerMode = MarkerNone
	s.Candidates = nil
	s.pendingBitmap = nil
	s.pendingRemaining = 0
	s.DefinedBitmap = nil
}

// RecordCandidate appends a back-referenceable class-0 node to the
// candidate list, in emission order (§4.5).
func (s *State) RecordCandidate(n *tree.Node) {
	s.Candidates = append(s.Candidates, n)
}
