package engine

import (
	"math"

	"github.com/dsnet/bufr/bitio"
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

// decodePolicy reads values from the bit stream, building new nodes.
type decodePolicy struct{}

var _ Policy = decodePolicy{}

func (decodePolicy) Leaf(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (*tree.Node, error) {
	n := existing
	if n == nil {
		n = tree.NewLeaf(spec.ID, spec.Kind, spec.Elem, ctx.NSubsets)
		n.EffectiveNBits, n.EffectiveScale, n.EffectiveReference = spec.NBits, spec.Scale, spec.Reference
	}
	if subsetIdx == AllSubsets {
		return n, decodeCompressedLeaf(ctx, spec, n)
	}
	v, err := decodeOneValue(ctx, spec)
	if err != nil {
		return nil, err
	}
	n.Values[subsetIdx] = v
	return n, nil
}

func decodeOneValue(ctx *Context, spec LeafSpec) (tree.Value, error) {
	switch spec.Kind {
	case descriptor.KindElement:
		switch spec.Elem.Type {
		case descriptor.TypeString:
			return decodeString(ctx.Reader, spec.NBits), nil
		default:
			return decodeNumericOrCodeFlag(ctx.Reader, spec), nil
		}
	case descriptor.KindInlineChar:
		return decodeString(ctx.Reader, spec.NBits), nil
	case descriptor.KindAssociated, descriptor.KindSkippedLocal:
		return decodeRawBits(ctx.Reader, spec.NBits), nil
	default:
		return tree.Value{}, Error("decode policy: unsupported leaf kind")
	}
}

func decodeString(r *bitio.Reader, nbits int) tree.Value {
	nbytes := (nbits + 7) / 8
	raw := r.ReadStringRaw(nbytes)
	return bytesToStringValue(raw)
}

func bytesToStringValue(raw []byte) tree.Value {
	allFF := true
	for _, b := range raw {
		if b != 0xFF {
			allFF = false
			break
		}
	}
	if allFF {
		return tree.Missing
	}
	end := len(raw)
	for end > 0 && (raw[end-1] == 0x00 || raw[end-1] == ' ') {
		end--
	}
	return tree.StringValue(string(raw[:end]))
}

func decodeNumericOrCodeFlag(r *bitio.Reader, spec LeafSpec) tree.Value {
	raw := r.ReadUint(uint(spec.NBits))
	if raw == (uint64(1)<<uint(spec.NBits))-1 {
		return tree.Missing
	}
	switch spec.Elem.Type {
	case descriptor.TypeCode, descriptor.TypeFlag:
		return tree.IntValue(int64(raw))
	default:
		v := int64(raw) + spec.Reference
		if spec.Scale == 0 {
			return tree.IntValue(v)
		}
		return tree.FloatValue(float64(v) / math.Pow(10, float64(spec.Scale)))
	}
}

func decodeRawBits(r *bitio.Reader, nbits int) tree.Value {
	if nbits <= 64 {
		return tree.IntValue(int64(r.ReadUint(uint(nbits))))
	}
	return tree.BytesValue(r.ReadBytes((nbits + 7) / 8))
}

// decodeCompressedLeaf implements §4.3's compressed leaf realisation,
// filling every subset's value in n.Values from one minimum+delta (or
// common-string+per-subset) read.
func decodeCompressedLeaf(ctx *Context, spec LeafSpec, n *tree.Node) error {
	r := ctx.Reader
	switch {
	case spec.Kind == descriptor.KindElement && spec.Elem.Type == descriptor.TypeString:
		return decodeCompressedString(r, spec, n)
	default:
		return decodeCompressedNumeric(r, spec, n)
	}
}

func decodeCompressedNumeric(r *bitio.Reader, spec LeafSpec, n *tree.Node) error {
	allOnes := r.PeekAllOnes(uint(spec.NBits))
	minRaw := r.ReadUint(uint(spec.NBits))
	deltaBits := int(r.ReadUint(6))
	if allOnes {
		for i := range n.Values {
			n.Values[i] = tree.Missing
		}
		return nil
	}
	for i := range n.Values {
		var raw uint64
		if deltaBits == 0 {
			raw = minRaw
		} else {
			delta := r.ReadUint(uint(deltaBits))
			if delta == (uint64(1)<<uint(deltaBits))-1 && isAllOnesWidth(spec.NBits, minRaw, deltaBits) {
				n.Values[i] = tree.Missing
				continue
			}
			raw = minRaw + delta
		}
		switch spec.Elem.Type {
		case descriptor.TypeCode, descriptor.TypeFlag:
			n.Values[i] = tree.IntValue(int64(raw))
		default:
			v := int64(raw) + spec.Reference
			if spec.Scale == 0 {
				n.Values[i] = tree.IntValue(v)
			} else {
				n.Values[i] = tree.FloatValue(float64(v) / math.Pow(10, float64(spec.Scale)))
			}
		}
	}
	return nil
}

// isAllOnesWidth reports whether min+delta reconstructs the effective
// width's all-ones missing pattern, the per-subset missing case inside
// an otherwise-present compressed leaf.
func isAllOnesWidth(nbits int, minRaw uint64, deltaBits int) bool {
	full := (uint64(1) << uint(nbits)) - 1
	return minRaw == full
}

func decodeCompressedString(r *bitio.Reader, spec LeafSpec, n *tree.Node) error {
	nbytes := (spec.NBits + 7) / 8
	common := r.ReadStringRaw(nbytes)
	deltaBytes := int(r.ReadUint(6))
	if deltaBytes == 0 {
		v := bytesToStringValue(common)
		for i := range n.Values {
			n.Values[i] = v
		}
		return nil
	}
	for i := range n.Values {
		raw := r.ReadStringRaw(deltaBytes)
		n.Values[i] = bytesToStringValue(raw)
	}
	return nil
}

func (decodePolicy) ReplicationCount(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (int, *tree.Node, error) {
	n, err := decodePolicy{}.Leaf(ctx, spec, subsetIdx, existing)
	if err != nil {
		return 0, nil, err
	}
	idx := subsetIdx
	if idx == AllSubsets {
		idx = 0
	}
	v := n.Values[idx]
	if v.IsMissing() {
		return 0, n, Error("delayed replication count element decoded to missing value")
	}
	return int(v.Int), n, nil
}

func (decodePolicy) BitmapBits(ctx *Context, n int, existingBits []bool) ([]bool, error) {
	bits := make([]bool, n)
	for i := range bits {
		bits[i] = ctx.Reader.ReadUint(1) != 0
	}
	return bits, nil
}
