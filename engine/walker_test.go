package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsnet/bufr/bitio"
	"github.com/dsnet/bufr/coder"
	"github.com/dsnet/bufr/descriptor"
	"github.com/dsnet/bufr/tables"
	"github.com/dsnet/bufr/tree"
	"github.com/dsnet/bufr/wiring"
)

func newTestSnapshot() *tables.Snapshot {
	snap := tables.NewSnapshot(tables.Version{})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 1, 1), NBits: 7, Type: descriptor.TypeNumeric})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 1, 2), NBits: 7, Type: descriptor.TypeNumeric})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 12, 1), NBits: 12, Type: descriptor.TypeNumeric})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 31, 21), NBits: 6, Type: descriptor.TypeCode})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 31, 1), NBits: 8, Type: descriptor.TypeNumeric})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 8, 42), NBits: 7, Type: descriptor.TypeNumeric})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 0, 1), NBits: 4, Type: descriptor.TypeNumeric})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 0, 2), NBits: 4, Type: descriptor.TypeNumeric})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 0, 3), NBits: 4, Type: descriptor.TypeNumeric})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 33, 2), NBits: 4, Type: descriptor.TypeNumeric})
	snap.AddElement(&descriptor.Element{ID: descriptor.Native(0, 33, 3), NBits: 4, Type: descriptor.TypeNumeric})
	snap.AddCode(descriptor.Native(0, 31, 21), 0, "1-bit indicator")
	return snap
}

// TestWalkAssociatedField is scenario S2: 204008 031021=0 012001
// decodes an 8-bit associated field attached to 012001.
func TestWalkAssociatedField(t *testing.T) {
	snap := newTestSnapshot()
	w := bitio.NewWriter()
	w.WriteUint(0, 6)   // 031021 = 0
	w.WriteUint(5, 8)   // associated field value
	w.WriteUint(100, 12) // 012001 value
	w.Pad()

	ctx := NewDecodeContext(snap, 1, false, w.Bytes())
	ids := []descriptor.ID{
		descriptor.Native(2, 4, 8),
		descriptor.Native(0, 31, 21),
		descriptor.Native(0, 12, 1),
	}
	out, err := Walk(ctx, decodePolicy{}, ids, 0, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, tree.IntValue(0), out[0].Values[0])
	assert.Equal(t, tree.IntValue(100), out[1].Values[0])

	attr, ok := out[1].Attributes[tree.AttrAssociatedField]
	require.True(t, ok)
	assert.Equal(t, tree.IntValue(5), attr.Values[0])
	assert.Equal(t, 8, out[1].AssociatedFieldBits)

	frame, ok := ctx.State.PopAssoc()
	require.True(t, ok)
	assert.True(t, frame.HasMeaning)
	assert.Equal(t, "1-bit indicator", frame.Meaning)
}

// TestWalkDelayedReplication is scenario S3: 101000 031001 008042,
// where 031001 reads 3 and 008042 repeats three times.
func TestWalkDelayedReplication(t *testing.T) {
	snap := newTestSnapshot()
	w := bitio.NewWriter()
	w.WriteUint(3, 8)    // 031001 delayed count = 3
	w.WriteUint(10, 7)   // first 008042
	w.WriteUint(20, 7)   // second 008042
	w.WriteUint(30, 7)   // third 008042
	w.Pad()

	ctx := NewDecodeContext(snap, 1, false, w.Bytes())
	ids := []descriptor.ID{
		descriptor.Native(1, 1, 0), // delayed replication, 1 descriptor
		descriptor.Native(0, 31, 1),
		descriptor.Native(0, 8, 42),
	}
	out, err := Walk(ctx, decodePolicy{}, ids, 0, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, descriptor.KindReplication, out[0].Kind)
	require.Len(t, out[0].Groups, 3)

	want := []int64{10, 20, 30}
	for i, val := range want {
		require.Len(t, out[0].Groups[i], 1)
		assert.Equal(t, tree.IntValue(val), out[0].Groups[i][0].Values[0])
	}
}

// TestWalkBitmapMarkerAttachment is scenario S5: 222000 then a class-31
// bitmap "0 1 0" against three candidates, then two marker values
// attaching to candidates 1 and 3.
func TestWalkBitmapMarkerAttachment(t *testing.T) {
	snap := newTestSnapshot()
	w := bitio.NewWriter()
	w.WriteUint(1, 4) // candidate 000001
	w.WriteUint(2, 4) // candidate 000002
	w.WriteUint(3, 4) // candidate 000003
	w.WriteUint(0, 1) // bitmap bit 0: present
	w.WriteUint(1, 1) // bitmap bit 1: not present
	w.WriteUint(0, 1) // bitmap bit 2: present
	w.WriteUint(7, 4) // marker value for candidate 1
	w.WriteUint(9, 4) // marker value for candidate 3
	w.Pad()

	ctx := NewDecodeContext(snap, 1, false, w.Bytes())
	ids := []descriptor.ID{
		descriptor.Native(0, 0, 1),
		descriptor.Native(0, 0, 2),
		descriptor.Native(0, 0, 3),
		descriptor.Native(2, 22, 0),
		descriptor.Native(1, 1, 3),
		descriptor.Native(0, 31, 31),
		descriptor.Native(0, 33, 2),
		descriptor.Native(0, 33, 3),
	}
	out, err := Walk(ctx, decodePolicy{}, ids, 0, nil)
	require.NoError(t, err)
	require.Len(t, out, 6)

	cand1, cand3 := out[0], out[2]
	marker1, marker2 := out[4], out[5]

	attr1, ok := cand1.Attributes[tree.AttrQualityInfo]
	require.True(t, ok)
	assert.Same(t, marker1, attr1)

	attr3, ok := cand3.Attributes[tree.AttrQualityInfo]
	require.True(t, ok)
	assert.Same(t, marker2, attr3)

	assert.NoError(t, wiring.Verify(ctx.State))
}

// TestWalkBitmapMismatchTooFewMarkers covers the BitmapMismatch half of
// S5: only one marker value follows a bitmap that selected two
// candidates, leaving wiring.Verify unsatisfied.
func TestWalkBitmapMismatchTooFewMarkers(t *testing.T) {
	snap := newTestSnapshot()
	w := bitio.NewWriter()
	w.WriteUint(1, 4)
	w.WriteUint(2, 4)
	w.WriteUint(3, 4)
	w.WriteUint(0, 1)
	w.WriteUint(1, 1)
	w.WriteUint(0, 1)
	w.WriteUint(7, 4) // only one marker value follows
	w.Pad()

	ctx := NewDecodeContext(snap, 1, false, w.Bytes())
	ids := []descriptor.ID{
		descriptor.Native(0, 0, 1),
		descriptor.Native(0, 0, 2),
		descriptor.Native(0, 0, 3),
		descriptor.Native(2, 22, 0),
		descriptor.Native(1, 1, 3),
		descriptor.Native(0, 31, 31),
		descriptor.Native(0, 33, 2),
	}
	_, err := Walk(ctx, decodePolicy{}, ids, 0, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, wiring.Verify(ctx.State), wiring.ErrUnresolvedMarkers)
}

// TestWalkDelayedReplicationShapeMismatch covers §3 NEW: an
// uncompressed message's second subset reading a different delayed
// replication count than the first subset established is a structural
// error, not a silently-rebuilt tree.
func TestWalkDelayedReplicationShapeMismatch(t *testing.T) {
	snap := newTestSnapshot()
	w := bitio.NewWriter()
	w.WriteUint(3, 8)  // subset 0: delayed count = 3
	w.WriteUint(10, 7)
	w.WriteUint(20, 7)
	w.WriteUint(30, 7)
	w.WriteUint(2, 8) // subset 1: delayed count = 2, disagrees
	w.WriteUint(40, 7)
	w.WriteUint(50, 7)
	w.Pad()

	ctx := NewDecodeContext(snap, 2, false, w.Bytes())
	ids := []descriptor.ID{
		descriptor.Native(1, 1, 0),
		descriptor.Native(0, 31, 1),
		descriptor.Native(0, 8, 42),
	}

	ctx.State = coder.New(false)
	out0, err := Walk(ctx, decodePolicy{}, ids, 0, nil)
	require.NoError(t, err)

	ctx.State = coder.New(false)
	_, err = Walk(ctx, decodePolicy{}, ids, 1, out0)
	assert.ErrorIs(t, err, ErrStructureMismatch)
}

// TestWalkDataNotPresentTakesPrecedenceOverRefCapture covers spec.md
// §4.2/§4.4: 221YYY's data-not-present count must win over an active
// 203YYY reference-capture session for the same descriptor, per
// precedence over every other operator state. 001001 is both
// class<=9 (ref-capture eligible) and data-not-present eligible; if
// the capture branch wins instead, it wrongly consumes the 7 bits
// meant for the following 001002.
func TestWalkDataNotPresentTakesPrecedenceOverRefCapture(t *testing.T) {
	snap := newTestSnapshot()
	w := bitio.NewWriter()
	w.WriteUint(42, 7) // the only bits on the wire: 001002's value
	w.Pad()

	ctx := NewDecodeContext(snap, 1, false, w.Bytes())
	ids := []descriptor.ID{
		descriptor.Native(2, 3, 7),  // 203007: begin reference capture, width 7
		descriptor.Native(2, 21, 1), // 221001: next 1 descriptor is not present
		descriptor.Native(0, 1, 1),
		descriptor.Native(0, 1, 2),
	}
	out, err := Walk(ctx, decodePolicy{}, ids, 0, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, out[0].Values[0].IsMissing())
	assert.Equal(t, tree.IntValue(42), out[1].Values[0])
	assert.Equal(t, 0, ctx.State.DataNotPresentCount)
}

// TestWalkAssociatedFieldReadBeforeRefCapture covers spec.md §4.4: when
// both 204YYY associated-field and 203YYY reference-capture are active
// on the same element, the associated field is read first, then the
// new reference bits.
func TestWalkAssociatedFieldReadBeforeRefCapture(t *testing.T) {
	snap := newTestSnapshot()
	w := bitio.NewWriter()
	w.WriteUint(0, 6)  // 031021 = 0
	w.WriteUint(9, 8)  // 001001's associated field
	w.WriteUint(55, 7) // 001001's captured reference value
	w.Pad()

	ctx := NewDecodeContext(snap, 1, false, w.Bytes())
	ids := []descriptor.ID{
		descriptor.Native(2, 4, 8),
		descriptor.Native(0, 31, 21),
		descriptor.Native(2, 3, 7),
		descriptor.Native(0, 1, 1),
	}
	out, err := Walk(ctx, decodePolicy{}, ids, 0, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, tree.IntValue(0), out[0].Values[0])
	assert.Equal(t, tree.IntValue(55), out[1].Values[0])

	attr, ok := out[1].Attributes[tree.AttrAssociatedField]
	require.True(t, ok)
	assert.Equal(t, tree.IntValue(9), attr.Values[0])
	assert.Equal(t, 8, out[1].AssociatedFieldBits)
}

// TestWalkMarkerValueGetsSyntheticKindAndID covers §3.1: a consumed
// first-order-stat marker value is built under the synthetic
// KindMarkerFirstOrder descriptor kind and an "F"-prefixed ID, not its
// own native element identity.
func TestWalkMarkerValueGetsSyntheticKindAndID(t *testing.T) {
	snap := newTestSnapshot()
	w := bitio.NewWriter()
	w.WriteUint(1, 4) // candidate 000001
	w.WriteUint(2, 4) // candidate 000002
	w.WriteUint(3, 4) // candidate 000003
	w.WriteUint(0, 1) // bitmap bit 0: present
	w.WriteUint(1, 1) // bitmap bit 1: not present
	w.WriteUint(0, 1) // bitmap bit 2: present
	w.WriteUint(7, 4) // marker value for candidate 1
	w.WriteUint(9, 4) // marker value for candidate 3
	w.Pad()

	ctx := NewDecodeContext(snap, 1, false, w.Bytes())
	ids := []descriptor.ID{
		descriptor.Native(0, 0, 1),
		descriptor.Native(0, 0, 2),
		descriptor.Native(0, 0, 3),
		descriptor.Native(2, 24, 0), // 224000: first-order statistics bitmap
		descriptor.Native(1, 1, 3),
		descriptor.Native(0, 31, 31),
		descriptor.Native(0, 33, 2),
		descriptor.Native(0, 33, 3),
	}
	out, err := Walk(ctx, decodePolicy{}, ids, 0, nil)
	require.NoError(t, err)
	require.Len(t, out, 6)

	marker1, marker2 := out[4], out[5]
	assert.Equal(t, descriptor.KindMarkerFirstOrder, marker1.Kind)
	assert.Equal(t, descriptor.Synthetic5("F", descriptor.Native(0, 33, 2)), marker1.DescriptorID)
	assert.Equal(t, descriptor.KindMarkerFirstOrder, marker2.Kind)
	assert.Equal(t, descriptor.Synthetic5("F", descriptor.Native(0, 33, 3)), marker2.DescriptorID)

	assert.NoError(t, wiring.Verify(ctx.State))
}
