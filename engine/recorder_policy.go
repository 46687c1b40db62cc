package engine

import (
	"github.com/dsnet/bufr/tables"
	"github.com/dsnet/bufr/tree"
)

// RecorderPolicy implements component H's trace recording: it behaves
// exactly like decodePolicy but additionally appends one TraceAction
// per leaf/replication-count resolution to Trace, so a later decode of
// the same template can replay the resolved (nbits, scale, reference)
// tuples without re-deriving them from operator state, per §4.7.
type RecorderPolicy struct {
	Trace *tables.Trace
}

var _ Policy = (*RecorderPolicy)(nil)

func (p *RecorderPolicy) Leaf(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (*tree.Node, error) {
	n, err := decodePolicy{}.Leaf(ctx, spec, subsetIdx, existing)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		p.Trace.Actions = append(p.Trace.Actions, tables.TraceAction{
			ElemID:             spec.ID,
			Kind:               spec.Kind,
			EffectiveNBits:     spec.NBits,
			EffectiveScale:     spec.Scale,
			EffectiveReference: spec.Reference,
		})
	}
	return n, nil
}

func (p *RecorderPolicy) ReplicationCount(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (int, *tree.Node, error) {
	count, n, err := decodePolicy{}.ReplicationCount(ctx, spec, subsetIdx, existing)
	if err != nil {
		return 0, nil, err
	}
	if existing == nil {
		p.Trace.Actions = append(p.Trace.Actions, tables.TraceAction{
			ElemID:             spec.ID,
			Kind:               spec.Kind,
			EffectiveNBits:     spec.NBits,
			EffectiveScale:     spec.Scale,
			EffectiveReference: spec.Reference,
			Branch:             true,
		})
	}
	return count, n, nil
}

func (p *RecorderPolicy) BitmapBits(ctx *Context, n int, existingBits []bool) ([]bool, error) {
	bits, err := decodePolicy{}.BitmapBits(ctx, n, existingBits)
	if err != nil {
		return nil, err
	}
	p.Trace.Actions = append(p.Trace.Actions, tables.TraceAction{Branch: true})
	return bits, nil
}

// ReplayPolicy replays a previously recorded Trace: it trusts the
// recorded (nbits, scale, reference) tuple for every non-branch action
// instead of re-deriving it from coder state. It falls back to a live
// decodePolicy call the moment the trace is exhausted, a branch point
// is reached, or a recorded action names a different descriptor or kind
// than the leaf being read; from that divergence on, every leaf is
// resolved live.
type ReplayPolicy struct {
	Trace    *tables.Trace
	pos      int
	diverged bool
}

var _ Policy = (*ReplayPolicy)(nil)

func (p *ReplayPolicy) next() (tables.TraceAction, bool) {
	if p.pos >= len(p.Trace.Actions) {
		return tables.TraceAction{}, false
	}
	a := p.Trace.Actions[p.pos]
	p.pos++
	return a, true
}

func (p *ReplayPolicy) Leaf(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (*tree.Node, error) {
	if existing == nil && !p.diverged {
		if a, ok := p.next(); ok && !a.Branch && a.ElemID == spec.ID && a.Kind == spec.Kind {
			spec.NBits, spec.Scale, spec.Reference = a.EffectiveNBits, a.EffectiveScale, a.EffectiveReference
		} else {
			p.diverged = true
		}
	}
	return decodePolicy{}.Leaf(ctx, spec, subsetIdx, existing)
}

func (p *ReplayPolicy) ReplicationCount(ctx *Context, spec LeafSpec, subsetIdx int, existing *tree.Node) (int, *tree.Node, error) {
	if existing == nil {
		p.next() // replication counts are always live-resolved branch points
	}
	return decodePolicy{}.ReplicationCount(ctx, spec, subsetIdx, existing)
}

func (p *ReplayPolicy) BitmapBits(ctx *Context, n int, existingBits []bool) ([]bool, error) {
	p.next()
	return decodePolicy{}.BitmapBits(ctx, n, existingBits)
}
