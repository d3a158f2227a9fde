package devicestub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madpsy/usrpsync/internal/wire"
)

// fakeChannel is a minimal in-memory Channel for exercising Stub
// without a real websocket round trip.
type fakeChannel struct {
	version        string
	numAntennas    int
	masterClockRate float64
	sampleRates    []float64
	armed          []float64
	configured     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		version:         "1.0.0",
		numAntennas:     2,
		masterClockRate: 200e6,
		sampleRates:     []float64{200e6, 100e6, 50e6},
	}
}

func (f *fakeChannel) Call(ctx context.Context, method wire.Method, params any, out any) error {
	switch method {
	case wire.MethodGetVersion:
		*(out.(*string)) = f.version
	case wire.MethodGetNumAntennas:
		*(out.(*int)) = f.numAntennas
	case wire.MethodGetMasterClockRate:
		*(out.(*float64)) = f.masterClockRate
	case wire.MethodGetSupportedSampleRates:
		*(out.(*[]float64)) = f.sampleRates
	case wire.MethodConfigureRfConfig:
		f.configured = true
	case wire.MethodExecute:
		f.armed = append(f.armed, params.(wire.ExecuteParams).BaseTimeSec)
	case wire.MethodResetStreamingConfigs, wire.MethodSetTimeToZeroNextPps, wire.MethodSetSyncSource:
		// no-op
	}
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func newStub(t *testing.T) (*Stub, *fakeChannel) {
	t.Helper()
	ch := newFakeChannel()
	s, err := New(context.Background(), "127.0.0.1", 5600, ch)
	require.NoError(t, err)
	return s, ch
}

func TestNewLoadsIdentity(t *testing.T) {
	s, _ := newStub(t)
	assert.Equal(t, 2, s.NumAntennas())
	assert.Equal(t, 200e6, s.MasterClockRate())
	assert.Equal(t, []float64{200e6, 100e6, 50e6}, s.SupportedSampleRates())
}

func TestNewRejectsOldProtocolVersion(t *testing.T) {
	ch := newFakeChannel()
	ch.version = "0.9.0"
	_, err := New(context.Background(), "127.0.0.1", 5600, ch)
	require.Error(t, err)
}

func TestResolveSampleRateAbsolutePassesThrough(t *testing.T) {
	s, _ := newStub(t)
	got, err := s.ResolveSampleRate(123.0)
	require.NoError(t, err)
	assert.Equal(t, 123.0, got)
}

func TestResolveSampleRateFractionResolvesAgainstMasterClock(t *testing.T) {
	s, _ := newStub(t)
	got, err := s.ResolveSampleRate(0.5) // 1/2 of 200e6
	require.NoError(t, err)
	assert.Equal(t, 100e6, got)
}

func TestResolveSampleRateRejectsNonFraction(t *testing.T) {
	s, _ := newStub(t)
	_, err := s.ResolveSampleRate(0.47) // not close to any 1/N
	require.Error(t, err)
}

func TestResolveSampleRateWithinTolerancePasses(t *testing.T) {
	s, _ := newStub(t)
	// 1/3 of the way, off by well under 1%
	got, err := s.ResolveSampleRate(1.0 / 3.0 * 1.001)
	require.NoError(t, err)
	assert.InDelta(t, 200e6/3.0, got, 1)
}

func TestArmBeforeConfigureIsRejected(t *testing.T) {
	s, _ := newStub(t)
	err := s.Arm(context.Background(), -1)
	require.Error(t, err)
}

func TestArmImmediatelyUsesNegativeOne(t *testing.T) {
	s, ch := newStub(t)
	s.rfConfiguredOnce = true
	require.NoError(t, s.ArmImmediately(context.Background()))
	require.Len(t, ch.armed, 1)
	assert.Equal(t, -1.0, ch.armed[0])
}
