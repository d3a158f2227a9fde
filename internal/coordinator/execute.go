package coordinator

import (
	"context"
	"time"

	"github.com/madpsy/usrpsync/internal/configmodel"
	"github.com/madpsy/usrpsync/internal/errormodel"
)

// Execute runs spec.md §4.5.4: synchronize, compute the shared arming
// time, then fan arm(baseTime) to every device. A device's failure
// does not abort the fan-out; all devices are called, then errors are
// raised together. Calling Execute twice without an intervening
// Collect is legal - it simply replaces the pending arming time.
func (c *Coordinator) Execute(ctx context.Context) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ExecuteDuration.Observe(time.Since(start).Seconds())
		}
	}()

	if err := c.SynchronizeUsrps(ctx); err != nil {
		return err
	}

	times, err := c.currentFpgaTimes(ctx)
	if err != nil {
		return err
	}
	tMax := 0.0
	for _, t := range times {
		if t > tMax {
			tMax = t
		}
	}
	baseTime := tMax + c.baseTimeOffsetSec

	handles := c.orderedHandles()
	var errs []*errormodel.PerDeviceError
	for _, h := range handles {
		if err := h.Stub.Arm(ctx, baseTime); err != nil {
			errs = append(errs, errormodel.NewPerDevice(h.Name, err))
		}
	}

	if c.status != nil {
		c.status.PublishCycle("execute", len(handles), len(errs))
	}
	for _, pe := range errs {
		if c.metrics != nil {
			c.metrics.AggregatedErrors.WithLabelValues(pe.DeviceName, "execute").Inc()
		}
	}
	return errormodel.NewAggregated(errs)
}

// Collect runs spec.md §4.5.4's collect fan-out: gather results from
// every device in fixed order, aggregate errors all-or-nothing (the
// reference policy of spec.md §7 - a partial result is discarded if
// any device failed), and finally reject the whole cycle if any
// returned MimoSignal is clipped.
func (c *Coordinator) Collect(ctx context.Context) (map[string][]configmodel.MimoSignal, error) {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.CollectDuration.Observe(time.Since(start).Seconds())
		}
	}()

	handles := c.orderedHandles()
	results := make(map[string][]configmodel.MimoSignal, len(handles))
	var errs []*errormodel.PerDeviceError
	for _, h := range handles {
		signals, err := h.Stub.Collect(ctx)
		if err != nil {
			errs = append(errs, errormodel.NewPerDevice(h.Name, err))
			continue
		}
		results[h.Name] = signals
	}

	if c.status != nil {
		c.status.PublishCycle("collect", len(handles), len(errs))
	}
	if err := errormodel.NewAggregated(errs); err != nil {
		for _, pe := range errs {
			if c.metrics != nil {
				c.metrics.AggregatedErrors.WithLabelValues(pe.DeviceName, "collect").Inc()
			}
		}
		return nil, err
	}

	for name, signals := range results {
		for _, m := range signals {
			if configmodel.RxClipped(m) {
				return nil, errormodel.New(errormodel.KindRxClippingDetected, "device %q returned a clipped sample", name)
			}
		}
	}
	return results, nil
}
