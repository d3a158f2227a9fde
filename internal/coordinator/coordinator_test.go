package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madpsy/usrpsync/internal/configmodel"
	"github.com/madpsy/usrpsync/internal/devicestub"
	"github.com/madpsy/usrpsync/internal/errormodel"
	"github.com/madpsy/usrpsync/internal/samplecodec"
)

// fleet builds a Coordinator wired to n fakeChannels and returns both
// the coordinator and the channels in add order, for assertions.
func fleet(t *testing.T, n int, opts ...Option) (*Coordinator, []*fakeChannel) {
	t.Helper()
	channels := make([]*fakeChannel, n)
	idx := 0
	dialer := func(ctx context.Context, address string, port int) (devicestub.Channel, error) {
		ch := channels[idx]
		idx++
		return ch, nil
	}
	for i := range channels {
		channels[i] = newFakeChannel()
	}
	c := New(append([]Option{WithDialer(dialer)}, opts...)...)
	for i := 0; i < n; i++ {
		name := string(rune('a' + i))
		require.NoError(t, c.NewUsrp(context.Background(), "10.0.0."+name, 5600+i, name))
	}
	return c, channels
}

// configureAll RF-configures every device, which Arm requires.
func configureAll(t *testing.T, c *Coordinator) {
	t.Helper()
	cfg := configmodel.RfConfig{TxSamplingRateHz: 100e6, RxSamplingRateHz: 100e6, NoTxStreams: 1, NoRxStreams: 1}
	for _, name := range c.DeviceNames() {
		require.NoError(t, c.ConfigureRfConfig(context.Background(), name, cfg))
	}
}

func TestAddUsrpRejectsDuplicateName(t *testing.T) {
	c, _ := fleet(t, 1)
	stub, err := devicestub.New(context.Background(), "10.0.0.a", 5600, newFakeChannel())
	require.NoError(t, err)

	err = c.AddUsrp(context.Background(), "a", stub)
	require.Error(t, err)
	kind, ok := errormodel.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errormodel.KindDuplicateDevice, kind)
}

func TestAddUsrpRejectsDuplicateAddressPort(t *testing.T) {
	channels := []*fakeChannel{newFakeChannel(), newFakeChannel()}
	idx := 0
	dialer := func(ctx context.Context, address string, port int) (devicestub.Channel, error) {
		ch := channels[idx]
		idx++
		return ch, nil
	}
	c := New(WithDialer(dialer))
	require.NoError(t, c.NewUsrp(context.Background(), "10.0.0.1", 5600, "a"))
	err := c.NewUsrp(context.Background(), "10.0.0.1", 5600, "b")
	require.Error(t, err)
	kind, ok := errormodel.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errormodel.KindDuplicateDevice, kind)
}

func TestSyncSourceElectionSingleDeviceIsInternal(t *testing.T) {
	c, channels := fleet(t, 1)
	require.NoError(t, c.SynchronizeUsrps(context.Background()))
	require.Len(t, *channels[0].syncSourceCalls, 1)
	assert.Equal(t, "internal", (*channels[0].syncSourceCalls)[0])
}

func TestSyncSourceElectionMultiDeviceIsExternal(t *testing.T) {
	c, channels := fleet(t, 3)
	require.NoError(t, c.SynchronizeUsrps(context.Background()))
	for _, ch := range channels {
		require.Len(t, *ch.syncSourceCalls, 1)
		assert.Equal(t, "external", (*ch.syncSourceCalls)[0])
	}
}

func TestSyncSourceInternalPolicyRejectsMultiDevice(t *testing.T) {
	c, _ := fleet(t, 2, WithSyncSourcePolicy(SyncSourceInternal))
	err := c.SynchronizeUsrps(context.Background())
	require.Error(t, err)
	kind, ok := errormodel.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errormodel.KindSyncUnsupported, kind)
}

func TestSynchronizeMemoizesWithinInterval(t *testing.T) {
	c, channels := fleet(t, 2) // fpgaTime defaults to 0 on every device: already converged

	require.NoError(t, c.SynchronizeUsrps(context.Background()))
	assert.Zero(t, *channels[0].ppsResetCalls)

	// A second call within the resync interval must not re-trigger
	// setTimeToZeroNextPps at all (spec.md §8 "sync memoization").
	require.NoError(t, c.SynchronizeUsrps(context.Background()))
	assert.Zero(t, *channels[0].ppsResetCalls)
}

func TestSyncFailureExhaustsAttempts(t *testing.T) {
	c, channels := fleet(t, 2, WithSyncSettleDelay(time.Millisecond))
	channels[0].fpgaTime = func() float64 { return 0 }
	channels[1].fpgaTime = func() float64 { return 10 } // always far apart

	err := c.SynchronizeUsrps(context.Background())
	require.Error(t, err)
	kind, ok := errormodel.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errormodel.KindSyncFailed, kind)
	assert.Equal(t, defaultSyncAttempts, *channels[0].ppsResetCalls)
	assert.Equal(t, defaultSyncAttempts, *channels[1].ppsResetCalls)
}

func TestExecuteAggregatesPerDeviceErrors(t *testing.T) {
	c, channels := fleet(t, 3)
	configureAll(t, c)
	channels[1].armErr = assertionError("boom")

	err := c.Execute(context.Background())
	require.Error(t, err)
	var agg *errormodel.AggregatedError
	require.True(t, errormodel.As(err, &agg))
	require.Len(t, agg.Errors, 1)
	assert.Equal(t, "b", agg.Errors[0].DeviceName)
}

func TestExecuteBaseTimeIsMaxFpgaTimePlusOffset(t *testing.T) {
	c, channels := fleet(t, 2)
	configureAll(t, c)
	// 0.1 s apart: within the sync threshold, so Execute proceeds to arm.
	channels[0].fpgaTime = func() float64 { return 6.9 }
	channels[1].fpgaTime = func() float64 { return 7.0 }

	require.NoError(t, c.Execute(context.Background()))
	for _, ch := range channels {
		require.Len(t, *ch.armCalls, 1)
		assert.InDelta(t, 7.0+defaultBaseTimeOffsetSec, (*ch.armCalls)[0], 1e-9)
	}
}

func TestCollectDetectsRxClipping(t *testing.T) {
	c, channels := fleet(t, 1)
	channels[0].collectResult = []samplecodec.Pair{{Reals: []float64{1.5}, Imags: []float64{0}}}

	_, err := c.Collect(context.Background())
	require.Error(t, err)
	kind, ok := errormodel.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errormodel.KindRxClippingDetected, kind)
}

type assertionError string

func (e assertionError) Error() string { return string(e) }
