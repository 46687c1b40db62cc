package tables

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsnet/bufr/descriptor"
)

func TestMemStoreLoadElements(t *testing.T) {
	m := NewMemStore()
	v := Version{MasterTable: 0, MasterVersion: 28}
	err := m.LoadElements(v, strings.NewReader(`
# comment lines and blanks are ignored

0,1,1,7,0,0,WMO BLOCK NUMBER,numeric
0,1,194,256,0,0,STATION ID,string
`))
	require.NoError(t, err)

	snap, err := m.Snapshot(v)
	require.NoError(t, err)

	elem, err := snap.LookupElement(descriptor.Native(0, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 7, elem.NBits)
	assert.Equal(t, descriptor.TypeNumeric, elem.Type)

	elem2, err := snap.LookupElement(descriptor.Native(0, 1, 194))
	require.NoError(t, err)
	assert.Equal(t, descriptor.TypeString, elem2.Type)

	assert.Equal(t, 1, m.VersionCount())
}

func TestMemStoreLoadElementsMalformedRow(t *testing.T) {
	m := NewMemStore()
	err := m.LoadElements(Version{}, strings.NewReader("0,1,1,7,0,0,ONLY_SIX_COLS\n"))
	assert.Error(t, err)
}

func TestMemStoreLoadSequences(t *testing.T) {
	m := NewMemStore()
	v := Version{}
	err := m.LoadSequences(v, strings.NewReader("3,0,1,0.1.1;0.1.2\n"))
	require.NoError(t, err)

	snap, err := m.Snapshot(v)
	require.NoError(t, err)
	seq, err := snap.LookupSequence(descriptor.Native(3, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, []descriptor.ID{descriptor.Native(0, 1, 1), descriptor.Native(0, 1, 2)}, seq.Children)
}

func TestMemStoreLoadCodes(t *testing.T) {
	m := NewMemStore()
	v := Version{}
	err := m.LoadCodes(v, strings.NewReader("0,2,1,4,fourth-order closure\n"))
	require.NoError(t, err)

	snap, err := m.Snapshot(v)
	require.NoError(t, err)
	meaning, ok := snap.LookupCode(descriptor.Native(0, 2, 1), 4)
	require.True(t, ok)
	assert.Equal(t, "fourth-order closure", meaning)
}

func TestSnapshotUnknownVersion(t *testing.T) {
	m := NewMemStore()
	_, err := m.Snapshot(Version{MasterVersion: 99})
	assert.Error(t, err)
}

func TestSnapshotTraceCache(t *testing.T) {
	snap := NewSnapshot(Version{})
	_, ok := snap.Trace("key")
	assert.False(t, ok)

	tr := &Trace{}
	snap.StoreTrace("key", tr)
	got, ok := snap.Trace("key")
	require.True(t, ok)
	assert.Same(t, tr, got)
}
