package samplecodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madpsy/usrpsync/internal/errormodel"
)

func TestRoundTrip(t *testing.T) {
	x := []complex128{1 + 2i, -0.5 - 0.25i, 0, 3.3}
	p := EncodeFlat(x)
	got, err := Decode(p)
	require.NoError(t, err)
	assert.Equal(t, x, got)
}

func TestRoundTripPureReal(t *testing.T) {
	x := []complex128{1, 2, 3}
	p := EncodeFlat(x)
	assert.Equal(t, []float64{0, 0, 0}, p.Imags)
	got, err := Decode(p)
	require.NoError(t, err)
	assert.Equal(t, x, got)
}

func TestEncodeRejectsTwoDimensional(t *testing.T) {
	_, err := Encode([][]complex128{{1, 2}, {3, 4}})
	require.Error(t, err)
	kind, ok := errormodel.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errormodel.KindShapeError, kind)
}

func TestEncodeSqueezesSingleRow(t *testing.T) {
	p, err := Encode([][]complex128{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, p.Reals)
}

func TestEncodeSqueezesSingleColumn(t *testing.T) {
	p, err := Encode([][]complex128{{1}, {2}, {3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, p.Reals)
}

func TestDecodeLengthMismatch(t *testing.T) {
	_, err := Decode(Pair{Reals: []float64{1, 2}, Imags: []float64{1}})
	require.Error(t, err)
	kind, ok := errormodel.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errormodel.KindLengthMismatch, kind)
}
