package descriptor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDStringNative(t *testing.T) {
	assert.Equal(t, "001001", Native(0, 1, 1).String())
	assert.Equal(t, "301001", Native(3, 1, 1).String())
}

func TestIDStringSynthetic(t *testing.T) {
	d := Synthetic5("A", Native(0, 12, 101))
	assert.Equal(t, "A12101", d.String())
	assert.False(t, d.IsNative())
}

func TestIDUint16RoundTrip(t *testing.T) {
	d := Native(1, 20, 133)
	assert.Equal(t, d, FromUint16(d.Uint16()))
}

func TestIDMarshalJSONNative(t *testing.T) {
	b, err := json.Marshal(Native(0, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, `"001002"`, string(b))
}

func TestIDMarshalJSONSynthetic(t *testing.T) {
	b, err := json.Marshal(Synthetic5("A", Native(0, 12, 101)))
	require.NoError(t, err)
	assert.Equal(t, `"A12101"`, string(b))
}

func TestIDUnmarshalJSONRoundTrip(t *testing.T) {
	for _, want := range []ID{
		Native(0, 1, 1),
		Native(3, 12, 1),
		Synthetic5("A", Native(0, 12, 101)),
		Synthetic5("S", Native(0, 1, 31)),
	} {
		b, err := json.Marshal(want)
		require.NoError(t, err)
		var got ID
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, want, got)
	}
}

func TestIDUnmarshalJSONMalformed(t *testing.T) {
	var d ID
	assert.Error(t, d.UnmarshalJSON([]byte(`"12345"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`"1234XY"`)))
}

func TestIDClassHelpers(t *testing.T) {
	assert.True(t, Native(0, 0, 1).IsClassZero())
	assert.False(t, Native(0, 1, 1).IsClassZero())
	assert.True(t, Native(0, 31, 1).IsClassThirtyOne())
}

func TestEligibleForDataNotPresent(t *testing.T) {
	assert.True(t, Native(0, 1, 1).EligibleForDataNotPresent())
	assert.False(t, Native(0, 10, 1).EligibleForDataNotPresent())
	assert.True(t, Native(0, 11, 1).EligibleForDataNotPresent())
	assert.False(t, Synthetic5("A", Native(0, 1, 1)).EligibleForDataNotPresent())
}

func TestParseReplicationDelayed(t *testing.T) {
	r := ParseReplication(Native(1, 3, 0))
	assert.Equal(t, 3, r.Count)
	assert.True(t, r.Delayed)
}

func TestParseOperator(t *testing.T) {
	o := ParseOperator(Native(2, 22, 0))
	assert.Equal(t, OpQualityInfoBitmap, o.Family)
	assert.Equal(t, 0, o.Arg)
}
