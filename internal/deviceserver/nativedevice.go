// Package deviceserver implements the device-side boundary shim of
// spec.md §2 item 7: it receives remote calls over the wire protocol,
// decodes arguments via samplecodec/configmodel, and delegates to the
// native driver. The native radio driver itself (FPGA access, DMA,
// analog front-end configuration) is out of scope per spec.md §1;
// NativeDevice is the typed interface the coordinator's protocol
// assumes on the other side of that boundary, replacing the dynamic
// attribute forwarding spec.md §9 flags for re-architecture with an
// explicit, statically checkable contract.
package deviceserver

import "github.com/madpsy/usrpsync/internal/configmodel"

// NativeDevice is implemented by the native driver adapter. Every
// method here corresponds 1:1 to a remote-call method of spec.md §6.
type NativeDevice interface {
	ConfigureRfConfig(cfg configmodel.RfConfig) error
	GetRfConfig() (configmodel.RfConfig, error)
	ConfigureTx(cfg configmodel.TxStreamingConfig) error
	ConfigureRx(cfg configmodel.RxStreamingConfig) error
	ResetStreamingConfigs() error
	Arm(baseTimeSec float64) error
	Collect() ([]configmodel.MimoSignal, error)
	SetTimeToZeroNextPps() error
	CurrentFpgaTime() (float64, error)
	CurrentSystemTime() (float64, error)
	MasterClockRate() float64
	SupportedSampleRates() []float64
	NumAntennas() int
	SetSyncSource(source string) error
	Version() string
}
