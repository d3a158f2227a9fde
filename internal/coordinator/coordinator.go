// Package coordinator implements spec.md §4.5: the central object that
// presents a named set of DeviceStubs as one synchronized instrument.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/madpsy/usrpsync/internal/configmodel"
	"github.com/madpsy/usrpsync/internal/devicestub"
	"github.com/madpsy/usrpsync/internal/errormodel"
	"github.com/madpsy/usrpsync/internal/metrics"
	"github.com/madpsy/usrpsync/internal/resyncflag"
	"github.com/madpsy/usrpsync/internal/wire"
)

// SyncSourcePolicy selects how Coordinator elects internal vs external
// PPS reference (spec.md §4.5.2).
type SyncSourcePolicy string

const (
	SyncSourceAuto     SyncSourcePolicy = "auto"
	SyncSourceInternal SyncSourcePolicy = "internal"
	SyncSourceExternal SyncSourcePolicy = "external"
)

const (
	defaultSyncAttempts      = 3
	defaultSyncThresholdSec  = 0.2
	defaultBaseTimeOffsetSec = 0.5
	defaultResyncInterval    = 20 * time.Minute
	ppsSettleDelay           = 1100 * time.Millisecond
)

// DeviceDialer opens the remote-call channel to one device. The
// default is wire.Dial; tests substitute a fake.
type DeviceDialer func(ctx context.Context, address string, port int) (devicestub.Channel, error)

func defaultDialer(ctx context.Context, address string, port int) (devicestub.Channel, error) {
	return wire.Dial(address, port)
}

type deviceHandle struct {
	Name    string
	Address string
	Port    int
	Stub    *devicestub.Stub
}

// Coordinator owns a named set of DeviceStubs and drives them as one
// instrument (spec.md §4.5).
type Coordinator struct {
	dialer DeviceDialer

	names   []string // insertion order, spec.md §4.5 "deterministic iteration"
	devices map[string]*deviceHandle

	synced           *resyncflag.Flag
	syncSourcePolicy SyncSourcePolicy
	syncSourceSet    bool

	syncAttempts      int
	syncThresholdSec  float64
	baseTimeOffsetSec float64
	ppsSettleDelay    time.Duration

	metrics *metrics.Coordinator
	status  StatusPublisher
}

// StatusPublisher receives ambient telemetry about coordinator state
// transitions. It carries no sample data, so publishing to it does
// not amount to the streaming callback spec.md explicitly excludes
// (see SPEC_FULL.md §2). The zero value (nil) means "no publisher".
type StatusPublisher interface {
	PublishSyncState(synced bool)
	PublishCycle(op string, devices int, failed int)
}

// Option configures a Coordinator at construction.
type Option func(*Coordinator)

// WithDialer overrides how the coordinator opens device connections.
func WithDialer(d DeviceDialer) Option { return func(c *Coordinator) { c.dialer = d } }

// WithSyncSourcePolicy sets the election policy (default: auto).
func WithSyncSourcePolicy(p SyncSourcePolicy) Option {
	return func(c *Coordinator) { c.syncSourcePolicy = p }
}

// WithMetrics attaches a Prometheus collector set.
func WithMetrics(m *metrics.Coordinator) Option { return func(c *Coordinator) { c.metrics = m } }

// WithStatusPublisher attaches a telemetry sink (e.g. MQTT).
func WithStatusPublisher(p StatusPublisher) Option { return func(c *Coordinator) { c.status = p } }

// WithResyncInterval overrides the default 20-minute ReSyncFlag TTL.
func WithResyncInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.synced = resyncflag.New(d) }
}

// WithSyncSettleDelay overrides the 1.1s PPS-edge settle delay of
// spec.md §4.5.3 between a setTimeToZeroNextPps round and the next
// validity check. Mainly useful for tests.
func WithSyncSettleDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.ppsSettleDelay = d }
}

// New builds an empty Coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		dialer:           defaultDialer,
		devices:          make(map[string]*deviceHandle),
		synced:           resyncflag.New(defaultResyncInterval),
		syncSourcePolicy: SyncSourceAuto,
		syncAttempts:      defaultSyncAttempts,
		syncThresholdSec:  defaultSyncThresholdSec,
		baseTimeOffsetSec: defaultBaseTimeOffsetSec,
		ppsSettleDelay:    ppsSettleDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewUsrp dials a new device and adds it under name (spec.md §4.5.1).
func (c *Coordinator) NewUsrp(ctx context.Context, address string, port int, name string) error {
	dialCtx, cancel := context.WithTimeout(ctx, wire.DialTimeout)
	defer cancel()

	ch, err := c.dialer(dialCtx, address, port)
	if err != nil {
		return errormodel.New(errormodel.KindDeviceUnreachable, "%s:%d: %v", address, port, err)
	}
	stub, err := devicestub.New(dialCtx, address, port, ch)
	if err != nil {
		_ = ch.Close()
		return errormodel.New(errormodel.KindDeviceUnreachable, "%s:%d: %v", address, port, err)
	}
	return c.AddUsrp(ctx, name, stub)
}

// AddUsrp registers an already-constructed stub under name, rejecting
// duplicate names or duplicate (address, port) pairs (spec.md
// §4.5.1, §8 scenario 3).
func (c *Coordinator) AddUsrp(ctx context.Context, name string, stub *devicestub.Stub) error {
	if _, exists := c.devices[name]; exists {
		return errormodel.New(errormodel.KindDuplicateDevice, "device name %q already registered", name)
	}
	for _, h := range c.devices {
		if h.Address == stub.Address && h.Port == stub.Port {
			return errormodel.New(errormodel.KindDuplicateDevice, "device %s:%d already registered as %q", h.Address, h.Port, h.Name)
		}
	}

	if err := stub.ResetStreamingConfigs(ctx); err != nil {
		return errormodel.NewPerDevice(name, err)
	}

	c.devices[name] = &deviceHandle{Name: name, Address: stub.Address, Port: stub.Port, Stub: stub}
	c.names = append(c.names, name)
	c.onMembershipChanged()
	return nil
}

// RemoveUsrp drops a device from the fleet, closing its connection.
// Supplemented from original_source's fleet-shrink test harnesses
// (SPEC_FULL.md §4); membership change re-triggers sync-source
// election exactly as AddUsrp does.
func (c *Coordinator) RemoveUsrp(name string) error {
	h, ok := c.devices[name]
	if !ok {
		return fmt.Errorf("no such device: %s", name)
	}
	delete(c.devices, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
	c.onMembershipChanged()
	return h.Stub.Close()
}

func (c *Coordinator) onMembershipChanged() {
	c.synced.Reset()
	c.syncSourceSet = false
	if c.metrics != nil {
		c.metrics.Devices.Set(float64(len(c.names)))
		c.metrics.SyncedGauge.Set(0)
	}
}

// Close resets every device's streaming configs and closes every
// connection. Decides the Open Question of spec.md §9 ("reset on
// destructor" vs not) explicitly in favor of an idiomatic Go
// io.Closer rather than a finalizer (see DESIGN.md).
func (c *Coordinator) Close(ctx context.Context) error {
	var errs []*errormodel.PerDeviceError
	for _, name := range c.names {
		h := c.devices[name]
		if err := h.Stub.ResetStreamingConfigs(ctx); err != nil {
			errs = append(errs, errormodel.NewPerDevice(name, err))
		}
		if err := h.Stub.Close(); err != nil {
			errs = append(errs, errormodel.NewPerDevice(name, err))
		}
	}
	return errormodel.NewAggregated(errs)
}

// DeviceNames returns the fleet's names in deterministic insertion
// order.
func (c *Coordinator) DeviceNames() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func (c *Coordinator) orderedHandles() []*deviceHandle {
	out := make([]*deviceHandle, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, c.devices[n])
	}
	return out
}

// ConfigureRfConfig applies RfConfig to one device (spec.md §4.5).
func (c *Coordinator) ConfigureRfConfig(ctx context.Context, deviceName string, cfg configmodel.RfConfig) error {
	h, err := c.handle(deviceName)
	if err != nil {
		return err
	}
	if err := h.Stub.ConfigureRfConfig(ctx, cfg); err != nil {
		return errormodel.NewPerDevice(deviceName, err)
	}
	return nil
}

// ConfigureTx enqueues a transmission on one device, rejecting clipped
// samples before they ever reach the wire (spec.md §4.5.5).
func (c *Coordinator) ConfigureTx(ctx context.Context, deviceName string, cfg configmodel.TxStreamingConfig) error {
	h, err := c.handle(deviceName)
	if err != nil {
		return err
	}
	if configmodel.TxClipped(cfg.Samples) {
		return errormodel.New(errormodel.KindTxClippingRejected, "device %q: tx samples exceed |1| amplitude", deviceName)
	}
	if err := h.Stub.ConfigureTx(ctx, cfg); err != nil {
		return errormodel.NewPerDevice(deviceName, err)
	}
	return nil
}

// ConfigureRx enqueues a reception on one device.
func (c *Coordinator) ConfigureRx(ctx context.Context, deviceName string, cfg configmodel.RxStreamingConfig) error {
	h, err := c.handle(deviceName)
	if err != nil {
		return err
	}
	if err := h.Stub.ConfigureRx(ctx, cfg); err != nil {
		return errormodel.NewPerDevice(deviceName, err)
	}
	return nil
}

// ResetStreamingConfigs drops all enqueued tx/rx configs on one
// device.
func (c *Coordinator) ResetStreamingConfigs(ctx context.Context, deviceName string) error {
	h, err := c.handle(deviceName)
	if err != nil {
		return err
	}
	if err := h.Stub.ResetStreamingConfigs(ctx); err != nil {
		return errormodel.NewPerDevice(deviceName, err)
	}
	return nil
}

func (c *Coordinator) handle(name string) (*deviceHandle, error) {
	h, ok := c.devices[name]
	if !ok {
		return nil, fmt.Errorf("no such device: %s", name)
	}
	return h, nil
}
