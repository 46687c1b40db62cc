package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

func TestFilterExprNumeric(t *testing.T) {
	f, err := CompileFilter("value > 270 && value < 280")
	assert.NoError(t, err)

	hit := leaf(descriptor.Native(0, 12, 101), tree.FloatValue(273.15))
	miss := leaf(descriptor.Native(0, 12, 101), tree.FloatValue(310))

	ok, err := f.Match(hit)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Match(miss)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFilterExprMissing(t *testing.T) {
	f, err := CompileFilter("missing")
	assert.NoError(t, err)

	ok, err := f.Match(leaf(descriptor.Native(0, 1, 1), tree.Missing))
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestFilterExprFilter(t *testing.T) {
	f, err := CompileFilter("value >= 2")
	assert.NoError(t, err)

	nodes := []*tree.Node{
		leaf(descriptor.Native(0, 1, 1), tree.IntValue(1)),
		leaf(descriptor.Native(0, 1, 1), tree.IntValue(2)),
		leaf(descriptor.Native(0, 1, 1), tree.IntValue(3)),
	}
	got, err := f.Filter(nodes)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCompileFilterInvalid(t *testing.T) {
	_, err := CompileFilter("value >>> 2")
	assert.Error(t, err)
}
