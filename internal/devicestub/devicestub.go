// Package devicestub implements the one-to-one client of a single
// remote device (spec.md §4.3): it adapts every remote-call method to
// typed inputs/outputs using samplecodec/configmodel, enforces local
// preconditions, and caches the device's identity.
package devicestub

import (
	"context"
	"fmt"
	"math"

	"github.com/hashicorp/go-version"

	"github.com/madpsy/usrpsync/internal/configmodel"
	"github.com/madpsy/usrpsync/internal/errormodel"
	"github.com/madpsy/usrpsync/internal/samplecodec"
	"github.com/madpsy/usrpsync/internal/wire"
)

// MinSupportedProtocolVersion is the lowest deviceserver protocol
// version this stub will talk to. Resolved from original_source's
// version-handshake behavior, which the distilled spec dropped (see
// SPEC_FULL.md §4).
const MinSupportedProtocolVersion = "1.0.0"

// rateTolerance bounds how close a 1/N fraction must land for the
// relative sample-rate resolution of spec.md §4.3 to accept it.
const rateTolerance = 0.01

// Channel is the subset of *wire.Conn a DeviceStub needs; it exists so
// tests can substitute an in-memory fake.
type Channel interface {
	Call(ctx context.Context, method wire.Method, params any, out any) error
	Close() error
}

// Stub is the typed client of one remote device.
type Stub struct {
	Address string
	Port    int

	ch Channel

	masterClockRate      float64
	numAntennas          int
	supportedSampleRates []float64

	rfConfiguredOnce bool
	lastRfConfig     configmodel.RfConfig
	identityLoaded   bool
}

// New wraps an already-open Channel (typically a *wire.Conn from
// wire.Dial) as a typed device stub, loading static identity
// (antenna count, clock rate, supported rates, protocol version) once.
func New(ctx context.Context, address string, port int, ch Channel) (*Stub, error) {
	s := &Stub{Address: address, Port: port, ch: ch}
	if err := s.loadIdentity(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Stub) loadIdentity(ctx context.Context) error {
	var verText string
	if err := s.ch.Call(ctx, wire.MethodGetVersion, nil, &verText); err != nil {
		return fmt.Errorf("getVersion: %w", err)
	}
	if err := checkProtocolVersion(verText); err != nil {
		return err
	}

	var numAnt int
	if err := s.ch.Call(ctx, wire.MethodGetNumAntennas, nil, &numAnt); err != nil {
		return fmt.Errorf("getNumAntennas: %w", err)
	}
	s.numAntennas = numAnt

	var mcr float64
	if err := s.ch.Call(ctx, wire.MethodGetMasterClockRate, nil, &mcr); err != nil {
		return fmt.Errorf("getMasterClockRate: %w", err)
	}
	s.masterClockRate = mcr

	var rates []float64
	if err := s.ch.Call(ctx, wire.MethodGetSupportedSampleRates, nil, &rates); err != nil {
		return fmt.Errorf("getSupportedSampleRates: %w", err)
	}
	s.supportedSampleRates = rates
	s.identityLoaded = true
	return nil
}

func checkProtocolVersion(reported string) error {
	min, err := version.NewVersion(MinSupportedProtocolVersion)
	if err != nil {
		return err
	}
	got, err := version.NewVersion(reported)
	if err != nil {
		return errormodel.New(errormodel.KindDeviceUnreachable, "device reported unparseable version %q", reported)
	}
	if got.LessThan(min) {
		return errormodel.New(errormodel.KindDeviceUnreachable,
			"device protocol version %s is older than the minimum supported %s", got, min)
	}
	return nil
}

// NumAntennas returns the device's antenna count, loaded once at
// construction.
func (s *Stub) NumAntennas() int { return s.numAntennas }

// MasterClockRate returns the device's reference rate in Hz.
func (s *Stub) MasterClockRate() float64 { return s.masterClockRate }

// SupportedSampleRates returns the device's admissible absolute rates.
func (s *Stub) SupportedSampleRates() []float64 { return s.supportedSampleRates }

// ResolveSampleRate implements spec.md §4.3's relative sample-rate
// resolution: a caller-supplied rate <= 1 is interpreted as a fraction
// 1/N of the master clock, rejected if it isn't within 1% of such a
// fraction. Rates > 1 pass through unchanged.
func (s *Stub) ResolveSampleRate(rate float64) (float64, error) {
	if rate > 1 {
		return rate, nil
	}
	if rate <= 0 {
		return 0, errormodel.New(errormodel.KindShapeError, "sample rate fraction must be positive, got %v", rate)
	}
	n := math.Round(1 / rate)
	if n < 1 {
		n = 1
	}
	approxFraction := 1 / n
	if math.Abs(approxFraction-rate)/rate > rateTolerance {
		return 0, errormodel.New(errormodel.KindShapeError,
			"sample rate %v is not a 1/N fraction of the master clock within %.0f%% tolerance", rate, rateTolerance*100)
	}
	return s.masterClockRate / n, nil
}

// ConfigureRfConfig applies the front-end configuration, resolving any
// relative sample rates first (spec.md §4.3) and validating stream
// counts/antenna mappings against the device's antenna count
// (spec.md §3) before sending.
func (s *Stub) ConfigureRfConfig(ctx context.Context, cfg configmodel.RfConfig) error {
	resolvedTx, err := s.ResolveSampleRate(cfg.TxSamplingRateHz)
	if err != nil {
		return err
	}
	resolvedRx, err := s.ResolveSampleRate(cfg.RxSamplingRateHz)
	if err != nil {
		return err
	}
	cfg.TxSamplingRateHz = resolvedTx
	cfg.RxSamplingRateHz = resolvedRx

	if err := cfg.Validate(s.numAntennas); err != nil {
		return err
	}

	serialized, err := cfg.Serialize()
	if err != nil {
		return err
	}
	if err := s.ch.Call(ctx, wire.MethodConfigureRfConfig, wire.ConfigureRfConfigParams{Serialized: serialized}, nil); err != nil {
		return err
	}
	s.rfConfiguredOnce = true
	s.lastRfConfig = cfg
	return nil
}

// GetRfConfig returns the device's reported RfConfig, including any
// resolved absolute sample rate (spec.md §4.3).
func (s *Stub) GetRfConfig(ctx context.Context) (configmodel.RfConfig, error) {
	var text string
	if err := s.ch.Call(ctx, wire.MethodGetRfConfig, nil, &text); err != nil {
		return configmodel.RfConfig{}, err
	}
	return configmodel.DeserializeRfConfig(text)
}

// ConfigureTx enqueues a transmission. It does not arm (spec.md §4.3).
func (s *Stub) ConfigureTx(ctx context.Context, cfg configmodel.TxStreamingConfig) error {
	if err := cfg.Samples.Validate(); err != nil {
		return err
	}
	params := wire.ConfigureTxParams{
		SendTimeOffsetSec: cfg.SendTimeOffsetSec,
		NumRepetitions:    cfg.NumRepetitions,
	}
	for _, stream := range cfg.Samples.Signals {
		pair := samplecodec.EncodeFlat(stream)
		params.Samples = append(params.Samples, wire.ComplexPair{Reals: pair.Reals, Imags: pair.Imags})
	}
	return s.ch.Call(ctx, wire.MethodConfigureTx, params, nil)
}

// ConfigureRx enqueues a reception. It does not arm (spec.md §4.3).
func (s *Stub) ConfigureRx(ctx context.Context, cfg configmodel.RxStreamingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	params := wire.ConfigureRxParams{
		ReceiveTimeOffsetSec: cfg.ReceiveTimeOffsetSec,
		NumSamples:           cfg.NumSamples,
		AntennaPort:          cfg.AntennaPort,
		NumRepetitions:       cfg.NumRepetitions,
		RepetitionPeriod:     cfg.RepetitionPeriod,
	}
	return s.ch.Call(ctx, wire.MethodConfigureRx, params, nil)
}

// ResetStreamingConfigs drops all enqueued tx/rx configs at the
// device.
func (s *Stub) ResetStreamingConfigs(ctx context.Context) error {
	return s.ch.Call(ctx, wire.MethodResetStreamingConfigs, nil, nil)
}

// Arm arms the device at baseTime (device-clock seconds). Any negative
// value means "arm immediately" (spec.md §9's Open Question
// resolution: treat any negative baseTime the same as -1).
func (s *Stub) Arm(ctx context.Context, baseTimeSec float64) error {
	if !s.rfConfiguredOnce {
		return errormodel.New(errormodel.KindNotConfigured, "device at %s:%d has not been RF-configured", s.Address, s.Port)
	}
	return s.ch.Call(ctx, wire.MethodExecute, wire.ExecuteParams{BaseTimeSec: baseTimeSec}, nil)
}

// ArmImmediately is equivalent to Arm(ctx, -1).
func (s *Stub) ArmImmediately(ctx context.Context) error {
	return s.Arm(ctx, -1)
}

// Collect blocks until the device has produced every enqueued rx
// block, returning them in enqueue order.
func (s *Stub) Collect(ctx context.Context) ([]configmodel.MimoSignal, error) {
	var result wire.CollectResult
	if err := s.ch.Call(ctx, wire.MethodCollect, nil, &result); err != nil {
		return nil, err
	}
	signals := make([]configmodel.MimoSignal, len(result.Streams))
	for i, streams := range result.Streams {
		m := configmodel.MimoSignal{Signals: make([][]complex128, len(streams))}
		for j, pair := range streams {
			decoded, err := samplecodec.Decode(samplecodec.Pair{Reals: pair.Reals, Imags: pair.Imags})
			if err != nil {
				return nil, err
			}
			m.Signals[j] = decoded
		}
		signals[i] = m
	}
	return signals, nil
}

// SetTimeToZeroNextPps asks the device to zero its clock at the next
// PPS rising edge. Blocking until that edge has passed is the
// caller's responsibility (spec.md §4.3).
func (s *Stub) SetTimeToZeroNextPps(ctx context.Context) error {
	return s.ch.Call(ctx, wire.MethodSetTimeToZeroNextPps, nil, nil)
}

// CurrentFpgaTime returns the device's local monotonic clock, in
// seconds.
func (s *Stub) CurrentFpgaTime(ctx context.Context) (float64, error) {
	var t float64
	err := s.ch.Call(ctx, wire.MethodGetCurrentFpgaTime, nil, &t)
	return t, err
}

// CurrentSystemTime returns the device's wall-clock time, in seconds.
func (s *Stub) CurrentSystemTime(ctx context.Context) (float64, error) {
	var t float64
	err := s.ch.Call(ctx, wire.MethodGetCurrentSystemTime, nil, &t)
	return t, err
}

// SetSyncSource selects "internal" or "external" as the device's PPS
// reference.
func (s *Stub) SetSyncSource(ctx context.Context, src string) error {
	return s.ch.Call(ctx, wire.MethodSetSyncSource, wire.SetSyncSourceParams{Source: src}, nil)
}

// Close releases the underlying channel.
func (s *Stub) Close() error { return s.ch.Close() }
