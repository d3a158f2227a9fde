package coordinator

import (
	"context"
	"time"

	"github.com/madpsy/usrpsync/internal/errormodel"
)

// updateSyncSources runs the election of spec.md §4.5.2. It is a
// no-op once syncSourceSet is true for the current membership
// generation.
func (c *Coordinator) updateSyncSources(ctx context.Context) error {
	if c.syncSourceSet {
		return nil
	}

	var source string
	switch c.syncSourcePolicy {
	case SyncSourceInternal:
		if len(c.names) > 1 {
			return errormodel.New(errormodel.KindSyncUnsupported, "policy internal requires exactly one device, have %d", len(c.names))
		}
		source = "internal"
	case SyncSourceExternal:
		source = "external"
	default: // auto
		if len(c.names) <= 1 {
			source = "internal"
		} else {
			source = "external"
		}
	}

	var errs []*errormodel.PerDeviceError
	for _, h := range c.orderedHandles() {
		if err := h.Stub.SetSyncSource(ctx, source); err != nil {
			errs = append(errs, errormodel.NewPerDevice(h.Name, err))
		}
	}
	if err := errormodel.NewAggregated(errs); err != nil {
		return err
	}
	c.syncSourceSet = true
	return nil
}

// synchronisationValid queries currentFpgaTime on every device in
// fixed order and reports whether max-min is within syncThresholdSec
// (spec.md §4.5.3).
func (c *Coordinator) synchronisationValid(ctx context.Context) (bool, error) {
	times, err := c.currentFpgaTimes(ctx)
	if err != nil {
		return false, err
	}
	if len(times) == 0 {
		return true, nil
	}
	min, max := times[0], times[0]
	for _, t := range times[1:] {
		if t < min {
			min = t
		}
		if t > max {
			max = t
		}
	}
	return (max - min) < c.syncThresholdSec, nil
}

func (c *Coordinator) currentFpgaTimes(ctx context.Context) ([]float64, error) {
	handles := c.orderedHandles()
	times := make([]float64, len(handles))
	var errs []*errormodel.PerDeviceError
	for i, h := range handles {
		t, err := h.Stub.CurrentFpgaTime(ctx)
		if err != nil {
			errs = append(errs, errormodel.NewPerDevice(h.Name, err))
			continue
		}
		times[i] = t
	}
	if err := errormodel.NewAggregated(errs); err != nil {
		return nil, err
	}
	return times, nil
}

// SynchronizeUsrps runs the synchronization protocol of spec.md
// §4.5.3. On success, the ReSyncFlag is set so subsequent calls within
// its interval return immediately.
func (c *Coordinator) SynchronizeUsrps(ctx context.Context) error {
	if err := c.updateSyncSources(ctx); err != nil {
		return err
	}
	if c.synced.IsSet() {
		return nil
	}
	if valid, err := c.synchronisationValid(ctx); err != nil {
		return err
	} else if valid {
		c.markSynced()
		return nil
	}

	handles := c.orderedHandles()
	for attempt := 0; attempt < c.syncAttempts; attempt++ {
		if c.metrics != nil {
			c.metrics.SyncAttempts.Inc()
		}
		var errs []*errormodel.PerDeviceError
		for _, h := range handles {
			if err := h.Stub.SetTimeToZeroNextPps(ctx); err != nil {
				errs = append(errs, errormodel.NewPerDevice(h.Name, err))
			}
		}
		if err := errormodel.NewAggregated(errs); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.ppsSettleDelay):
		}

		valid, err := c.synchronisationValid(ctx)
		if err != nil {
			return err
		}
		if valid {
			c.markSynced()
			return nil
		}
	}

	if c.metrics != nil {
		c.metrics.SyncFailures.Inc()
		c.metrics.SyncedGauge.Set(0)
	}
	return errormodel.New(errormodel.KindSyncFailed, "fpga times did not converge within %d attempts", c.syncAttempts)
}

func (c *Coordinator) markSynced() {
	c.synced.Set()
	if c.metrics != nil {
		c.metrics.SyncedGauge.Set(1)
	}
	if c.status != nil {
		c.status.PublishSyncState(true)
	}
}
