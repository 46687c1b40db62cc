package engine

import (
	"github.com/dsnet/bufr/coder"
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

const maxWalkDepth = 64

// bitmapElement is the class-31 "data present indicator" descriptor a
// bitmap-definition replication always replicates exactly once (§4.5).
var bitmapElement = descriptor.Native(0, 31, 31)

// Walk drives one template over ctx using policy, processing ids in
// order and returning one output node per element/replication/sequence
// descriptor (operators mutate ctx.State and contribute no node of
// their own, except 205YYY, which emits its inline character data as a
// node). subsetIdx selects a single subset, or AllSubsets to
// process every subset of a compressed message in one pass. existing
// mirrors the node this same call produced on a prior pass (nil when
// building fresh); its length need not match ids, only the number of
// nodes this call will itself produce.
func Walk(ctx *Context, policy Policy, ids []descriptor.ID, subsetIdx int, existing []*tree.Node) ([]*tree.Node, error) {
	return walkList(ctx, policy, ids, subsetIdx, existing, 0)
}

func walkList(ctx *Context, policy Policy, ids []descriptor.ID, subsetIdx int, existing []*tree.Node, depth int) ([]*tree.Node, error) {
	if depth > maxWalkDepth {
		return nil, ErrUnbalancedOperator
	}
	state := ctx.State
	var out []*tree.Node
	exIdx := 0
	existingAt := func() *tree.Node {
		if existing == nil || exIdx >= len(existing) {
			return nil
		}
		return existing[exIdx]
	}

	awaitingAssocMeaning := false

	var defineBitmapNext, reuseBitmapNext bool

	for i := 0; i < len(ids); i++ {
		id := ids[i]
		ctx.PushTrail(id)

		switch {
		case id.F == 2: // operator
			op := descriptor.ParseOperator(id)
			switch op.Family {
			case descriptor.OpChangeDataWidth:
				if op.Arg == 0 {
					state.NBitsOffset = 0
				} else {
					state.NBitsOffset = op.Arg - 128
				}
			case descriptor.OpChangeScale:
				if op.Arg == 0 {
					state.ScaleOffset = 0
				} else {
					state.ScaleOffset = op.Arg - 128
				}
			case descriptor.OpChangeReference:
				switch op.Arg {
				case 0:
					state.CancelRefCapture()
				case 255:
					state.EndRefCaptureKeepTable()
				default:
					state.BeginRefCapture(op.Arg)
				}
			case descriptor.OpAssociatedField:
				if op.Arg == 0 {
					if _, ok := state.PopAssoc(); !ok {
						ctx.PopTrail()
						return nil, ErrUnbalancedOperator
					}
				} else {
					state.PushAssoc(op.Arg)
					if i+1 >= len(ids) || ids[i+1] != descriptor.Native(0, 31, 21) {
						ctx.PopTrail()
						return nil, ErrMissingAssocMeaning
					}
					awaitingAssocMeaning = true
				}
			case descriptor.OpInlineCharacter:
				spec := LeafSpec{ID: id, Kind: descriptor.KindInlineChar, NBits: op.Arg * 8}
				n, err := policy.Leaf(ctx, spec, subsetIdx, existingAt())
				if err != nil {
					ctx.PopTrail()
					return nil, err
				}
				out = append(out, n)
				exIdx++
			case descriptor.OpSkipLocal:
				state.HasLocalSkip = true
				state.LocalSkipNBits = op.Arg
			case descriptor.OpChangeRefAndWidth:
				if op.Arg == 0 {
					state.HasScaleOverride = false
					state.ScaleOverride = 0
				} else {
					state.HasScaleOverride = true
					state.ScaleOverride = op.Arg
				}
			case descriptor.OpChangeStringWidth:
				if op.Arg == 0 {
					state.HasStringOverride = false
				} else {
					state.HasStringOverride = true
					state.StringOverrideNBits = op.Arg * 8
				}
			case descriptor.OpDataNotPresent:
				state.DataNotPresentCount = op.Arg
			case descriptor.OpQualityInfoBitmap:
				state.MarkerMode = coder.MarkerQualityInfo
			case descriptor.OpSubstitutionBitmap:
				state.MarkerMode = coder.MarkerSubstitution
			case descriptor.OpFirstOrderBitmap:
				state.MarkerMode = coder.MarkerFirstOrder
			case descriptor.OpDifferenceBitmap:
				state.MarkerMode = coder.MarkerDifference
			case descriptor.OpReplacementBitmap:
				state.MarkerMode = coder.MarkerReplacement
			case descriptor.OpCancelBackref:
				state.CancelAll()
			case descriptor.OpDefineBitmap:
				defineBitmapNext = true
			case descriptor.OpReuseBitmap:
				if op.Arg == 255 {
					reuseBitmapNext = false
				} else {
					reuseBitmapNext = true
				}
			}
			ctx.PopTrail()
			continue

		case id.F == 3: // sequence
			seq, err := ctx.Snapshot.LookupSequence(id)
			if err != nil {
				ctx.PopTrail()
				return nil, err
			}
			var existingChildren []*tree.Node
			if n := existingAt(); n != nil {
				existingChildren = n.Children
			}
			children, err := walkList(ctx, policy, seq.Children, subsetIdx, existingChildren, depth+1)
			if err != nil {
				ctx.PopTrail()
				return nil, err
			}
			node := tree.NewBranch(id, descriptor.KindSequence)
			node.Children = children
			out = append(out, node)
			exIdx++

		case id.F == 1: // replication
			rep := descriptor.ParseReplication(id)
			consumed := i + 1
			var count int
			if rep.Delayed {
				countID := ids[consumed]
				countElem, err := ctx.Snapshot.LookupElement(countID)
				if err != nil {
					ctx.PopTrail()
					return nil, err
				}
				countSpec := elementSpec(state, countID, countElem)
				var countExisting *tree.Node
				priorCount, hasPrior := -1, false
				if n := existingAt(); n != nil {
					priorCount, hasPrior = len(n.Groups), true
					countExisting = syntheticCountNode(countID, priorCount, ctx.NSubsets)
				}
				c, _, err := policy.ReplicationCount(ctx, countSpec, subsetIdx, countExisting)
				if err != nil {
					ctx.PopTrail()
					return nil, err
				}
				if hasPrior && c != priorCount {
					ctx.PopTrail()
					return nil, ErrStructureMismatch
				}
				count = c
				consumed++
			} else {
				count = rep.Times
			}
			repeated := ids[consumed : consumed+rep.Count]
			i = consumed + rep.Count - 1

			node := tree.NewBranch(id, descriptor.KindReplication)

			if len(repeated) == 1 && repeated[0] == bitmapElement {
				var existingBits []bool
				if n := existingAt(); n != nil {
					existingBits = bitsFromGroups(n.Groups)
				}
				var bits []bool
				var err error
				if reuseBitmapNext {
					if state.DefinedBitmap == nil {
						ctx.PopTrail()
						return nil, ErrBitmapMismatch
					}
					bits = state.DefinedBitmap.Bits
					reuseBitmapNext = false
				} else {
					bits, err = policy.BitmapBits(ctx, count, existingBits)
					if err != nil {
						ctx.PopTrail()
						return nil, err
					}
				}
				node.Groups = groupsFromBits(bitmapElement, bits, ctx.NSubsets)
				bm := state.ResolveBitmap(bits)
				if defineBitmapNext {
					state.DefinedBitmap = bm
					defineBitmapNext = false
				}
			} else {
				groups := make([][]*tree.Node, count)
				for g := 0; g < count; g++ {
					var existingGroup []*tree.Node
					if n := existingAt(); n != nil && g < len(n.Groups) {
						existingGroup = n.Groups[g]
					}
					grp, err := walkList(ctx, policy, repeated, subsetIdx, existingGroup, depth+1)
					if err != nil {
						ctx.PopTrail()
						return nil, err
					}
					groups[g] = grp
				}
				node.Groups = groups
			}
			out = append(out, node)
			exIdx++

		case state.DataNotPresentCount > 0 && id.EligibleForDataNotPresent():
			state.DataNotPresentCount--
			n := existingAt()
			if n == nil {
				n = tree.NewLeaf(id, descriptor.KindElement, nil, ctx.NSubsets)
				for k := range n.Values {
					n.Values[k] = tree.Missing
				}
			}
			out = append(out, n)
			exIdx++

		case state.InRefCapture() && id.Class() <= 9:
			existingMain := existingAt()

			assocNode, assocBits, err := readAssocField(ctx, policy, state, id, subsetIdx, existingMain)
			if err != nil {
				ctx.PopTrail()
				return nil, err
			}

			n, err := captureRefValue(ctx, id, state.CaptureWidth, subsetIdx, existingMain, state)
			if err != nil {
				ctx.PopTrail()
				return nil, err
			}
			if assocNode != nil {
				n.SetAttribute(tree.AttrAssociatedField, assocNode)
				n.AssociatedFieldBits = assocBits
			}
			out = append(out, n)
			exIdx++

		case state.HasLocalSkip:
			nbits := state.LocalSkipNBits
			state.HasLocalSkip = false
			spec := LeafSpec{ID: id, Kind: descriptor.KindSkippedLocal, NBits: nbits}
			n, err := policy.Leaf(ctx, spec, subsetIdx, existingAt())
			if err != nil {
				ctx.PopTrail()
				return nil, err
			}
			out = append(out, n)
			exIdx++

		default: // ordinary element
			existingMain := existingAt()

			assocNode, assocBits, err := readAssocField(ctx, policy, state, id, subsetIdx, existingMain)
			if err != nil {
				ctx.PopTrail()
				return nil, err
			}

			elem, err := ctx.Snapshot.LookupElement(id)
			if err != nil {
				ctx.PopTrail()
				return nil, err
			}
			spec := elementSpec(state, id, elem)
			node, err := policy.Leaf(ctx, spec, subsetIdx, existingMain)
			if err != nil {
				ctx.PopTrail()
				return nil, err
			}
			if assocNode != nil {
				node.SetAttribute(tree.AttrAssociatedField, assocNode)
				node.AssociatedFieldBits = assocBits
			}

			if awaitingAssocMeaning && id == descriptor.Native(0, 31, 21) {
				if frame, ok := state.TopAssoc(); ok {
					v := valueAt(node, subsetIdx)
					if text, ok2 := ctx.Snapshot.LookupCode(id, v); ok2 {
						frame.Meaning = text
					}
					frame.HasMeaning = true
				}
				awaitingAssocMeaning = false
			}

			if id.IsClassZero() {
				state.RecordCandidate(node)
			}
			if target, kind, mode, ok := state.ConsumeMarkerSlot(); ok {
				if markerKind, prefix, isMarkerKind := mode.DescriptorKind(); isMarkerKind {
					node.Kind = markerKind
					node.DescriptorID = descriptor.Synthetic5(prefix, id)
				}
				target.SetAttribute(kind, node)
			}

			out = append(out, node)
			exIdx++
		}
		ctx.PopTrail()
	}
	return out, nil
}

// readAssocField reads the active 204YYY associated field attached
// ahead of id, if any, per §4.4 (read before the element's own value,
// whether that value comes from the ordinary element branch or a
// 203YYY reference-capture branch).
func readAssocField(ctx *Context, policy Policy, state *coder.State, id descriptor.ID, subsetIdx int, existingMain *tree.Node) (*tree.Node, int, error) {
	assoc, ok := state.TopAssoc()
	if !ok || !assoc.Active || id.Class() == 31 {
		return nil, 0, nil
	}
	var existingAssoc *tree.Node
	if existingMain != nil {
		existingAssoc = existingMain.Attributes[tree.AttrAssociatedField]
	}
	aSpec := LeafSpec{ID: descriptor.Synthetic5("A", id), Kind: descriptor.KindAssociated, NBits: assoc.NBits}
	assocNode, err := policy.Leaf(ctx, aSpec, subsetIdx, existingAssoc)
	if err != nil {
		return nil, 0, err
	}
	assocNode.Meaning = assoc.Meaning
	return assocNode, assoc.NBits, nil
}

func elementSpec(state *coder.State, id descriptor.ID, elem *descriptor.Element) LeafSpec {
	widthBump := 0
	if state.HasScaleOverride && elem.Type == descriptor.TypeNumeric {
		widthBump = coder.ScaleOverrideWidthBump(state.ScaleOverride)
	}
	return LeafSpec{
		ID:        id,
		Kind:      descriptor.KindElement,
		Elem:      elem,
		NBits:     state.EffectiveNBits(elem, widthBump),
		Scale:     state.EffectiveScale(elem),
		Reference: state.EffectiveReference(elem),
	}
}

func valueAt(n *tree.Node, subsetIdx int) int64 {
	idx := subsetIdx
	if idx == AllSubsets {
		idx = 0
	}
	if idx < 0 || idx >= len(n.Values) {
		return 0
	}
	return n.Values[idx].Int
}

func captureRefValue(ctx *Context, id descriptor.ID, width int, subsetIdx int, existing *tree.Node, state *coder.State) (*tree.Node, error) {
	n := existing
	if n == nil {
		n = tree.NewLeaf(id, descriptor.KindElement, nil, ctx.NSubsets)
		n.EffectiveNBits = width
	}
	readOne := func(idx int) error {
		if ctx.Reader != nil {
			v := ctx.Reader.ReadInt(uint(width))
			n.Values[idx] = tree.IntValue(v)
			state.CaptureRef(id, v)
		} else {
			v := n.Values[idx].Int
			ctx.Writer.WriteInt(v, uint(width))
			state.CaptureRef(id, v)
		}
		return nil
	}
	if subsetIdx == AllSubsets {
		if err := readOne(0); err != nil {
			return nil, err
		}
		for i := 1; i < len(n.Values); i++ {
			n.Values[i] = n.Values[0]
		}
		return n, nil
	}
	if err := readOne(subsetIdx); err != nil {
		return nil, err
	}
	return n, nil
}

func syntheticCountNode(id descriptor.ID, count, nSubsets int) *tree.Node {
	n := tree.NewLeaf(id, descriptor.KindElement, nil, nSubsets)
	for i := range n.Values {
		n.Values[i] = tree.IntValue(int64(count))
	}
	return n
}

func bitsFromGroups(groups [][]*tree.Node) []bool {
	bits := make([]bool, len(groups))
	for i, g := range groups {
		if len(g) == 1 {
			bits[i] = g[0].Values[0].Int != 0
		}
	}
	return bits
}

func groupsFromBits(id descriptor.ID, bits []bool, nSubsets int) [][]*tree.Node {
	groups := make([][]*tree.Node, len(bits))
	for i, b := range bits {
		n := tree.NewLeaf(id, descriptor.KindElement, nil, nSubsets)
		v := int64(0)
		if b {
			v = 1
		}
		for k := range n.Values {
			n.Values[k] = tree.IntValue(v)
		}
		groups[i] = []*tree.Node{n}
	}
	return groups
}
