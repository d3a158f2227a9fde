package errormodel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfMatchesConstructedKind(t *testing.T) {
	err := New(KindSyncFailed, "fpga times diverged by %v", 1.2)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindSyncFailed, kind)
}

func TestKindOfFalseForPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("boom"))
	assert.False(t, ok)
}

func TestPerDeviceErrorUnwrapsCause(t *testing.T) {
	cause := New(KindDeviceUnreachable, "timeout")
	pe := NewPerDevice("north", cause)

	assert.Contains(t, pe.Error(), "north")
	var ke *KindError
	require.True(t, errors.As(pe, &ke))
	assert.Equal(t, KindDeviceUnreachable, ke.Kind)
}

func TestNewAggregatedNilWhenEmpty(t *testing.T) {
	assert.Nil(t, NewAggregated(nil))
}

func TestNewAggregatedPreservesOrderAndCount(t *testing.T) {
	errs := []*PerDeviceError{
		NewPerDevice("a", errors.New("one")),
		NewPerDevice("b", errors.New("two")),
	}
	err := NewAggregated(errs)
	require.Error(t, err)

	var agg *AggregatedError
	require.True(t, As(err, &agg))
	require.Len(t, agg.Errors, 2)
	assert.Equal(t, "a", agg.Errors[0].DeviceName)
	assert.Equal(t, "b", agg.Errors[1].DeviceName)
}

func TestErrorKindSurfacesStringForm(t *testing.T) {
	err := New(KindShapeError, "bad shape")
	var ke interface{ ErrorKind() string }
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, string(KindShapeError), ke.ErrorKind())
}
