package configmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRfConfigSerializeRoundTrip(t *testing.T) {
	c := RfConfig{
		TxAnalogFilterBandwidthHz: 200e6,
		RxAnalogFilterBandwidthHz: 100e6,
		TxSamplingRateHz:          20e6,
		RxSamplingRateHz:          30e6,
		TxGainDb:                  30,
		RxGainDb:                  40,
		TxCarrierFrequencyHz:      2e9,
		RxCarrierFrequencyHz:      2.5e9,
		NoTxStreams:               1,
		NoRxStreams:               2,
		RxAntennaMapping:          []int{0, 1},
	}
	text, err := c.Serialize()
	require.NoError(t, err)

	got, err := DeserializeRfConfig(text)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestRfConfigDeserializeForwardCompatible(t *testing.T) {
	text := "noTxStreams: 1\nnoRxStreams: 1\nsomeFutureField: 42\n"
	got, err := DeserializeRfConfig(text)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NoTxStreams)
}

func TestRfConfigValidateStreamCount(t *testing.T) {
	c := RfConfig{NoTxStreams: 3, NoRxStreams: 1}
	err := c.Validate(2)
	require.Error(t, err)
}

func TestRfConfigValidateMappingLength(t *testing.T) {
	c := RfConfig{NoTxStreams: 2, NoRxStreams: 1, TxAntennaMapping: []int{0}}
	err := c.Validate(4)
	require.Error(t, err)
}

func TestTxClippingNonStrict(t *testing.T) {
	exact := MimoSignal{Signals: [][]complex128{{1.0 + 0.5i}}}
	assert.False(t, TxClipped(exact))

	over := MimoSignal{Signals: [][]complex128{{1.5 + 0.5i}}}
	assert.True(t, TxClipped(over))
}

func TestRxClippingStrict(t *testing.T) {
	exact := MimoSignal{Signals: [][]complex128{{1.0 + 0.1i}}}
	assert.True(t, RxClipped(exact))

	under := MimoSignal{Signals: [][]complex128{{0.999 + 0.1i}}}
	assert.False(t, RxClipped(under))
}

func TestRxStreamingConfigValidate(t *testing.T) {
	ok := RxStreamingConfig{NumSamples: 100, NumRepetitions: 3, RepetitionPeriod: 100}
	require.NoError(t, ok.Validate())

	bad := RxStreamingConfig{NumSamples: 100, NumRepetitions: 3, RepetitionPeriod: 50}
	require.Error(t, bad.Validate())
}

func TestMimoSignalValidateEqualLength(t *testing.T) {
	m := MimoSignal{Signals: [][]complex128{{1, 2}, {1, 2, 3}}}
	require.Error(t, m.Validate())
}
