package wiring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dsnet/bufr/coder"
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tree"
)

func TestVerifyOkWhenNoPendingMarkers(t *testing.T) {
	s := coder.New(false)
	assert.NoError(t, Verify(s))
}

func TestVerifyFailsOnUnresolvedMarkers(t *testing.T) {
	s := coder.New(false)
	s.RecordCandidate(tree.NewLeaf(descriptor.Native(0, 1, 1), descriptor.KindElement, nil, 1))
	s.RecordCandidate(tree.NewLeaf(descriptor.Native(0, 1, 2), descriptor.KindElement, nil, 1))
	s.MarkerMode = coder.MarkerQualityInfo
	s.ResolveBitmap([]bool{false, false})

	// Only one of the two expected marker values arrives.
	s.ConsumeMarkerSlot()

	assert.ErrorIs(t, Verify(s), ErrUnresolvedMarkers)
}

func TestVerifyOkAfterAllMarkersConsumed(t *testing.T) {
	s := coder.New(false)
	s.RecordCandidate(tree.NewLeaf(descriptor.Native(0, 1, 1), descriptor.KindElement, nil, 1))
	s.MarkerMode = coder.MarkerSubstitution
	s.ResolveBitmap([]bool{false})
	s.ConsumeMarkerSlot()

	assert.NoError(t, Verify(s))
}
