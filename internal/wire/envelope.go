// Package wire implements the remote-call channel of spec.md §6: a
// request/response protocol with exception propagation, carried over
// a persistent websocket connection between a DeviceStub and a
// deviceserver. Exceptions cross the boundary as a typed error payload
// rather than a language-native exception (spec.md §9's
// re-architecture of "exception propagation across the remote
// channel").
package wire

import "encoding/json"

// Method names the remote-call surface of spec.md §6. Values match
// the method names verbatim for interoperability.
type Method string

const (
	MethodConfigureTx               Method = "configureTx"
	MethodConfigureRx               Method = "configureRx"
	MethodConfigureRfConfig         Method = "configureRfConfig"
	MethodExecute                   Method = "execute"
	MethodSetTimeToZeroNextPps      Method = "setTimeToZeroNextPps"
	MethodCollect                   Method = "collect"
	MethodGetCurrentFpgaTime        Method = "getCurrentFpgaTime"
	MethodGetCurrentSystemTime      Method = "getCurrentSystemTime"
	MethodGetRfConfig               Method = "getRfConfig"
	MethodGetMasterClockRate        Method = "getMasterClockRate"
	MethodGetSupportedSampleRates   Method = "getSupportedSampleRates"
	MethodResetStreamingConfigs     Method = "resetStreamingConfigs"
	MethodSetSyncSource             Method = "setSyncSource"
	MethodGetNumAntennas            Method = "getNumAntennas"
	MethodGetVersion                Method = "getVersion"
)

// Request is one outstanding remote call. ID correlates it with its
// Response on a single shared connection (mirrors the session-ID
// correlation in the teacher's radio_client.go, generated with
// google/uuid).
type Request struct {
	ID     string          `json:"id"`
	Method Method          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ErrorPayload is the wire form of a failure: a typed result variant
// instead of a language exception (spec.md §9).
type ErrorPayload struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// Response answers exactly one Request by ID. Exactly one of Result
// or Err is populated on success/failure respectively.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Err    *ErrorPayload   `json:"error,omitempty"`
}

// ComplexPair is the serialized form of samplecodec.Pair, matching
// spec.md §6's `[reals, imags]` wire shape exactly.
type ComplexPair struct {
	Reals []float64 `json:"reals"`
	Imags []float64 `json:"imags"`
}

// ConfigureTxParams is the wire form of configureTx's arguments.
type ConfigureTxParams struct {
	SendTimeOffsetSec float64       `json:"sendTimeOffset"`
	Samples           []ComplexPair `json:"samples"`
	NumRepetitions    int           `json:"numRepetitions"`
}

// ConfigureRxParams is the wire form of configureRx's arguments.
type ConfigureRxParams struct {
	ReceiveTimeOffsetSec float64 `json:"receiveTimeOffset"`
	NumSamples           int     `json:"numSamples"`
	AntennaPort          string  `json:"antennaPort"`
	NumRepetitions       int     `json:"numRepetitions"`
	RepetitionPeriod     int     `json:"repetitionPeriod"`
}

// ConfigureRfConfigParams carries the self-describing serialized
// RfConfig text (spec.md §6).
type ConfigureRfConfigParams struct {
	Serialized string `json:"rfConfig"`
}

// ExecuteParams carries the arming base time; -1 (or any negative
// value, per spec.md §9's Open Question resolution) means "arm
// immediately".
type ExecuteParams struct {
	BaseTimeSec float64 `json:"baseTime"`
}

// SetSyncSourceParams carries "internal" or "external".
type SetSyncSourceParams struct {
	Source string `json:"source"`
}

// CollectResult is the wire form of collect()'s return value: one
// entry per received rx block, in enqueue order (an rx config with
// NumRepetitions > 1 yields one entry per repetition), each a
// MimoSignal serialized stream-by-stream.
type CollectResult struct {
	Streams [][]ComplexPair `json:"streams"`
}
