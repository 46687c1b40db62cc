package engine

import (
	"math"

	"github.com/dsnet/bufr/bitio"
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

// EncodePolicy writes an existing tree's values to the bit stream.
type EncodePolicy struct{}

var _ Policy = EncodePolicy{}

func (EncodePolicy) Leaf(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (*tree.Node, error) {
	if existing == nil {
		return nil, Error("encode policy: missing tree node for " + spec.ID.String())
	}
	if subsetIdx == AllSubsets {
		if err := encodeCompressedLeaf(ctx.Writer, spec, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err := encodeOneValue(ctx.Writer, spec, existing.Values[subsetIdx]); err != nil {
		return nil, err
	}
	return existing, nil
}

func encodeOneValue(w *bitio.Writer, spec LeafSpec, v tree.Value) error {
	switch spec.Kind {
	case descriptor.KindElement:
		switch spec.Elem.Type {
		case descriptor.TypeString:
			return encodeString(w, spec.NBits, v)
		default:
			return encodeNumericOrCodeFlag(w, spec, v)
		}
	case descriptor.KindInlineChar:
		return encodeString(w, spec.NBits, v)
	case descriptor.KindAssociated, descriptor.KindSkippedLocal:
		return encodeRawBits(w, spec.NBits, v)
	default:
		return Error("encode policy: unsupported leaf kind")
	}
}

func encodeString(w *bitio.Writer, nbits int, v tree.Value) error {
	nbytes := (nbits + 7) / 8
	if v.IsMissing() {
		w.WriteAllOnes(uint(8 * nbytes))
		return nil
	}
	if v.Kind != tree.KindString {
		return ErrEncodeTypeMismatch
	}
	w.WriteString(v.Str, nbytes)
	return nil
}

func encodeNumericOrCodeFlag(w *bitio.Writer, spec LeafSpec, v tree.Value) error {
	if v.IsMissing() {
		w.WriteAllOnes(uint(spec.NBits))
		return nil
	}
	switch spec.Elem.Type {
	case descriptor.TypeCode, descriptor.TypeFlag:
		if v.Kind != tree.KindInt {
			return ErrEncodeTypeMismatch
		}
		w.WriteUint(uint64(v.Int), uint(spec.NBits))
		return nil
	default:
		var scaled int64
		switch v.Kind {
		case tree.KindInt:
			scaled = v.Int
		case tree.KindFloat:
			scaled = int64(math.Round(v.Float * math.Pow(10, float64(spec.Scale))))
		default:
			return ErrEncodeTypeMismatch
		}
		raw := scaled - spec.Reference
		w.WriteUint(uint64(raw), uint(spec.NBits))
		return nil
	}
}

func encodeRawBits(w *bitio.Writer, nbits int, v tree.Value) error {
	if nbits <= 64 {
		if v.Kind != tree.KindInt {
			return ErrEncodeTypeMismatch
		}
		w.WriteUint(uint64(v.Int), uint(nbits))
		return nil
	}
	if v.Kind != tree.KindBytes {
		return ErrEncodeTypeMismatch
	}
	w.WriteBytes(v.Bytes)
	return nil
}

func encodeCompressedLeaf(w *bitio.Writer, spec LeafSpec, n *tree.Node) error {
	if spec.Kind == descriptor.KindElement && spec.Elem.Type == descriptor.TypeString {
		return encodeCompressedString(w, spec, n)
	}
	return encodeCompressedNumeric(w, spec, n)
}

func encodeCompressedNumeric(w *bitio.Writer, spec LeafSpec, n *tree.Node) error {
	allMissing := true
	var minRaw uint64
	first := true
	raws := make([]uint64, len(n.Values))
	for i, v := range n.Values {
		if v.IsMissing() {
			continue
		}
		allMissing = false
		var scaled int64
		switch v.Kind {
		case tree.KindInt:
			scaled = v.Int
		case tree.KindFloat:
			scaled = int64(math.Round(v.Float * math.Pow(10, float64(spec.Scale))))
		default:
			return ErrEncodeTypeMismatch
		}
		raw := uint64(scaled - spec.Reference)
		if spec.Elem.Type == descriptor.TypeCode || spec.Elem.Type == descriptor.TypeFlag {
			raw = uint64(v.Int)
		}
		raws[i] = raw
		if first || raw < minRaw {
			minRaw = raw
			first = false
		}
	}
	if allMissing {
		w.WriteAllOnes(uint(spec.NBits))
		w.WriteUint(0, 6)
		return nil
	}
	w.WriteUint(minRaw, uint(spec.NBits))
	deltaBits := bitWidthForDeltas(n.Values, raws, minRaw)
	w.WriteUint(uint64(deltaBits), 6)
	if deltaBits == 0 {
		return nil
	}
	for i, v := range n.Values {
		if v.IsMissing() {
			w.WriteAllOnes(uint(deltaBits))
			continue
		}
		w.WriteUint(raws[i]-minRaw, uint(deltaBits))
	}
	return nil
}

func bitWidthForDeltas(values []tree.Value, raws []uint64, min uint64) int {
	var maxDelta uint64
	for i, v := range values {
		if v.IsMissing() {
			continue
		}
		if d := raws[i] - min; d > maxDelta {
			maxDelta = d
		}
	}
	if maxDelta == 0 {
		return 0
	}
	bits := 0
	for (uint64(1)<<uint(bits))-1 < maxDelta {
		bits++
	}
	return bits
}

func encodeCompressedString(w *bitio.Writer, spec LeafSpec, n *tree.Node) error {
	nbytes := (spec.NBits + 7) / 8
	allSame := true
	for _, v := range n.Values[1:] {
		if v.Kind != n.Values[0].Kind || v.Str != n.Values[0].Str {
			allSame = false
			break
		}
	}
	if allSame {
		if err := encodeString(w, spec.NBits, n.Values[0]); err != nil {
			return err
		}
		w.WriteUint(0, 6)
		return nil
	}
	w.WriteString("", nbytes)
	w.WriteUint(uint64(nbytes), 6)
	for _, v := range n.Values {
		if err := encodeString(w, spec.NBits, v); err != nil {
			return err
		}
	}
	return nil
}

func (EncodePolicy) ReplicationCount(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (int, *tree.Node, error) {
	if existing == nil {
		return 0, nil, Error("encode policy: missing replication count node")
	}
	idx := subsetIdx
	if idx == AllSubsets {
		idx = 0
	}
	n, err := EncodePolicy{}.Leaf(ctx, spec, subsetIdx, existing)
	if err != nil {
		return 0, nil, err
	}
	return int(existing.Values[idx].Int), n, nil
}

func (EncodePolicy) BitmapBits(ctx *Context, n int, existingBits []bool) ([]bool, error) {
	if existingBits == nil {
		return nil, Error("encode policy: missing bitmap bits")
	}
	for _, b := range existingBits {
		var v uint64
		if b {
			v = 1
		}
		ctx.Writer.WriteUint(v, 1)
	}
	return existingBits, nil
}
