// Package simdevice is a loopback stand-in for the native radio
// driver, which spec.md §1 places out of scope. It satisfies
// deviceserver.NativeDevice entirely in memory: armed tx samples are
// written into a per-antenna medium buffer and enqueued rx configs
// read back out of it, which is enough to drive the single-device and
// two-device end-to-end scenarios of spec.md §8 without real
// hardware.
package simdevice

import (
	"sync"
	"time"

	"github.com/madpsy/usrpsync/internal/configmodel"
	"github.com/madpsy/usrpsync/internal/errormodel"
)

// Device is an in-memory loopback device.
type Device struct {
	numAntennas     int
	masterClockRate float64
	sampleRates     []float64
	version         string

	mu               sync.Mutex
	rfConfig         configmodel.RfConfig
	rfConfiguredOnce bool
	syncSource       string
	startTime        time.Time

	txQueue []configmodel.TxStreamingConfig
	rxQueue []configmodel.RxStreamingConfig

	medium [][]complex128 // per antenna, grows as needed

	collected []configmodel.MimoSignal
}

// New builds a loopback Device with numAntennas antennas clocked at
// masterClockRate Hz.
func New(numAntennas int, masterClockRate float64, sampleRates []float64, version string) *Device {
	return &Device{
		numAntennas:     numAntennas,
		masterClockRate: masterClockRate,
		sampleRates:     sampleRates,
		version:         version,
		startTime:       time.Now(),
		medium:          make([][]complex128, numAntennas),
	}
}

func (d *Device) Version() string                 { return d.version }
func (d *Device) NumAntennas() int                { return d.numAntennas }
func (d *Device) MasterClockRate() float64        { return d.masterClockRate }
func (d *Device) SupportedSampleRates() []float64 { return d.sampleRates }

func (d *Device) CurrentFpgaTime() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Since(d.startTime).Seconds(), nil
}

func (d *Device) CurrentSystemTime() (float64, error) {
	return float64(time.Now().UnixNano()) / 1e9, nil
}

func (d *Device) SetTimeToZeroNextPps() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Real hardware waits for the next physical PPS edge; the
	// simulator has none, so it zeros immediately. Good enough for the
	// coordinator's synchronization protocol, which only cares that
	// every device's FPGA clock converges.
	d.startTime = time.Now()
	return nil
}

func (d *Device) SetSyncSource(source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.syncSource = source
	return nil
}

func (d *Device) ConfigureRfConfig(cfg configmodel.RfConfig) error {
	if err := cfg.Validate(d.numAntennas); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rfConfig = cfg
	d.rfConfiguredOnce = true
	return nil
}

func (d *Device) GetRfConfig() (configmodel.RfConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rfConfig, nil
}

func (d *Device) ConfigureTx(cfg configmodel.TxStreamingConfig) error {
	if err := cfg.Samples.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txQueue = append(d.txQueue, cfg)
	return nil
}

func (d *Device) ConfigureRx(cfg configmodel.RxStreamingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rxQueue = append(d.rxQueue, cfg)
	return nil
}

func (d *Device) ResetStreamingConfigs() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txQueue = nil
	d.rxQueue = nil
	d.collected = nil
	return nil
}

// Arm writes every enqueued tx config into the medium and then
// satisfies every enqueued rx config from it. Tx and rx offsets are
// converted to sample positions at the tx sampling rate and measured
// from the start of the medium. baseTimeSec is not read: every call,
// whatever its base time, does this work at once.
func (d *Device) Arm(baseTimeSec float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.rfConfiguredOnce {
		return errormodel.New(errormodel.KindNotConfigured, "RF front end has not been configured")
	}

	rate := d.rfConfig.TxSamplingRateHz
	if rate <= 0 {
		rate = d.masterClockRate
	}

	for _, tx := range d.txQueue {
		reps := tx.NumRepetitions
		if reps < 1 {
			reps = 1
		}
		for ant, stream := range tx.Samples.Signals {
			if ant >= len(d.medium) {
				continue
			}
			offsetSamples := int(tx.SendTimeOffsetSec * rate)
			pos := offsetSamples
			for r := 0; r < reps; r++ {
				d.writeAt(ant, pos, stream)
				pos += len(stream)
			}
		}
	}

	signals := make([]configmodel.MimoSignal, 0, len(d.rxQueue))
	for _, rx := range d.rxQueue {
		reps := rx.NumRepetitions
		if reps < 1 {
			reps = 1
		}
		period := rx.RepetitionPeriod
		if period < rx.NumSamples {
			period = rx.NumSamples
		}
		for r := 0; r < reps; r++ {
			offsetSamples := int(rx.ReceiveTimeOffsetSec*rate) + r*period
			streams := make([][]complex128, d.numAntennas)
			for ant := range streams {
				streams[ant] = d.readAt(ant, offsetSamples, rx.NumSamples)
			}
			signals = append(signals, configmodel.MimoSignal{Signals: streams})
		}
	}
	d.collected = signals
	return nil
}

func (d *Device) writeAt(ant, pos int, samples []complex128) {
	need := pos + len(samples)
	if need > len(d.medium[ant]) {
		grown := make([]complex128, need)
		copy(grown, d.medium[ant])
		d.medium[ant] = grown
	}
	copy(d.medium[ant][pos:], samples)
}

func (d *Device) readAt(ant, pos, n int) []complex128 {
	out := make([]complex128, n)
	if ant >= len(d.medium) || pos >= len(d.medium[ant]) {
		return out
	}
	avail := len(d.medium[ant]) - pos
	if avail > n {
		avail = n
	}
	copy(out, d.medium[ant][pos:pos+avail])
	return out
}

// Collect returns whatever the most recent Arm produced. The spec's
// blocking contract is trivially satisfied here because Arm runs
// synchronously under the simulator; a real device's driver thread
// does the equivalent work asynchronously and Collect would block on
// it.
func (d *Device) Collect() ([]configmodel.MimoSignal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.collected
	d.collected = nil
	d.txQueue = nil
	d.rxQueue = nil
	return out, nil
}
