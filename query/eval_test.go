package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

func leaf(id descriptor.ID, vals ...tree.Value) *tree.Node {
	n := tree.NewLeaf(id, descriptor.KindElement, nil, len(vals))
	copy(n.Values, vals)
	return n
}

func seq(id descriptor.ID, children ...*tree.Node) *tree.Node {
	n := tree.NewBranch(id, descriptor.KindSequence)
	n.Children = children
	return n
}

func rep(id descriptor.ID, groups ...[]*tree.Node) *tree.Node {
	n := tree.NewBranch(id, descriptor.KindReplication)
	n.Groups = groups
	return n
}

func TestPathEvalChild(t *testing.T) {
	root := []*tree.Node{
		leaf(descriptor.Native(0, 1, 1), tree.IntValue(1)),
		leaf(descriptor.Native(0, 1, 2), tree.IntValue(2)),
	}
	p, err := ParsePath("/001002")
	assert.NoError(t, err)
	got := p.Eval(root)
	assert.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Values[0].Int)
}

func TestPathEvalSequenceChild(t *testing.T) {
	inner := leaf(descriptor.Native(0, 12, 101), tree.FloatValue(273.15))
	root := []*tree.Node{seq(descriptor.Native(3, 1, 4), inner)}

	p, err := ParsePath("/301004/012101")
	assert.NoError(t, err)
	got := p.Eval(root)
	assert.Len(t, got, 1)
	assert.Equal(t, inner, got[0])
}

func TestPathEvalReplicationDescendant(t *testing.T) {
	id := descriptor.Native(0, 12, 101)
	g1 := []*tree.Node{leaf(id, tree.FloatValue(1))}
	g2 := []*tree.Node{leaf(id, tree.FloatValue(2))}
	root := []*tree.Node{rep(descriptor.Native(1, 1, 0), g1, g2)}

	p, err := ParsePath(">012101")
	assert.NoError(t, err)
	got := p.Eval(root)
	assert.Len(t, got, 2)
}

func TestPathEvalAttribute(t *testing.T) {
	n := leaf(descriptor.Native(0, 12, 101), tree.FloatValue(273.15))
	q := leaf(descriptor.Native(0, 33, 7), tree.IntValue(2))
	n.SetAttribute(tree.AttrQualityInfo, q)
	root := []*tree.Node{n}

	p, err := ParsePath("/012101.q_info")
	assert.NoError(t, err)
	got := p.Eval(root)
	assert.Len(t, got, 1)
	assert.Equal(t, q, got[0])
}

func TestPathEvalSlice(t *testing.T) {
	id := descriptor.Native(0, 11, 0)
	wrap := func() *tree.Node { return seq(descriptor.Native(3, 1, 0), leaf(id, tree.IntValue(1))) }
	root := []*tree.Node{wrap(), wrap(), wrap()}

	p, err := ParsePath("@1:3/301000/011000")
	assert.NoError(t, err)
	got := p.Eval(root)
	assert.Len(t, got, 2)
}
