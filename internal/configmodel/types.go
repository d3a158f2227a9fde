// Package configmodel holds the typed configuration records of
// spec.md §3 and their self-describing text serialization (§4.2).
package configmodel

// RfConfig is the analog/streaming front-end configuration applied
// once per device before it can be armed (spec.md §3, §4.5.5).
type RfConfig struct {
	TxAnalogFilterBandwidthHz float64 `yaml:"txAnalogFilterBandwidthHz"`
	RxAnalogFilterBandwidthHz float64 `yaml:"rxAnalogFilterBandwidthHz"`
	TxSamplingRateHz          float64 `yaml:"txSamplingRateHz"`
	RxSamplingRateHz          float64 `yaml:"rxSamplingRateHz"`
	TxGainDb                  float64 `yaml:"txGainDb"`
	RxGainDb                  float64 `yaml:"rxGainDb"`
	TxCarrierFrequencyHz      float64 `yaml:"txCarrierFrequencyHz"`
	RxCarrierFrequencyHz      float64 `yaml:"rxCarrierFrequencyHz"`
	NoTxStreams               int     `yaml:"noTxStreams"`
	NoRxStreams               int     `yaml:"noRxStreams"`
	// TxAntennaMapping/RxAntennaMapping map stream index -> antenna
	// index. An empty mapping means the identity mapping.
	TxAntennaMapping []int `yaml:"txAntennaMapping,omitempty"`
	RxAntennaMapping []int `yaml:"rxAntennaMapping,omitempty"`
}

// Validate checks the invariants of spec.md §3 against a device's
// antenna count. It does not know the device's antenna count by
// itself; callers (DeviceStub) supply it.
func (c RfConfig) Validate(numAntennas int) error {
	if err := validateStreamCount(c.NoTxStreams, c.TxAntennaMapping, numAntennas); err != nil {
		return err
	}
	return validateStreamCount(c.NoRxStreams, c.RxAntennaMapping, numAntennas)
}

func validateStreamCount(streams int, mapping []int, numAntennas int) error {
	if streams <= 0 {
		return errShape("stream count must be positive, got %d", streams)
	}
	if streams > numAntennas {
		return errShape("stream count %d exceeds device antenna count %d", streams, numAntennas)
	}
	if len(mapping) == 0 {
		return nil
	}
	if len(mapping) != streams {
		return errShape("antenna mapping length %d does not match stream count %d", len(mapping), streams)
	}
	for _, a := range mapping {
		if a < 0 || a >= numAntennas {
			return errShape("antenna mapping entry %d out of range [0,%d)", a, numAntennas)
		}
	}
	return nil
}

// MimoSignal is an ordered collection of equal-length complex sample
// sequences, one per stream/antenna (spec.md §3, GLOSSARY).
type MimoSignal struct {
	Signals [][]complex128
}

// Validate checks that every inner sequence has equal length.
func (m MimoSignal) Validate() error {
	if len(m.Signals) == 0 {
		return nil
	}
	n := len(m.Signals[0])
	for i, s := range m.Signals {
		if len(s) != n {
			return errShape("stream %d has length %d, expected %d", i, len(s), n)
		}
	}
	return nil
}

// TxStreamingConfig is one queued transmission (spec.md §3).
type TxStreamingConfig struct {
	SendTimeOffsetSec float64
	Samples           MimoSignal
	NumRepetitions    int
}

// RxStreamingConfig is one queued reception (spec.md §3).
type RxStreamingConfig struct {
	ReceiveTimeOffsetSec float64
	NumSamples           int
	NumRepetitions       int
	RepetitionPeriod     int
	AntennaPort          string
}

// Validate checks the RxStreamingConfig invariant: if NumRepetitions>1,
// RepetitionPeriod must be >= NumSamples.
func (c RxStreamingConfig) Validate() error {
	if c.NumRepetitions > 1 && c.RepetitionPeriod < c.NumSamples {
		return errShape("repetitionPeriod (%d) must be >= numSamples (%d) when numRepetitions > 1",
			c.RepetitionPeriod, c.NumSamples)
	}
	return nil
}

func errShape(format string, args ...any) error {
	return newShapeError(format, args...)
}
