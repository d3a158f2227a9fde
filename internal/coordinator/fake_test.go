package coordinator

import (
	"context"
	"fmt"

	"github.com/madpsy/usrpsync/internal/samplecodec"
	"github.com/madpsy/usrpsync/internal/wire"
)

// fakeChannel is an in-memory stand-in for the wire protocol, used so
// coordinator/devicestub tests never open a real socket.
type fakeChannel struct {
	version         string
	numAntennas     int
	masterClockRate float64
	sampleRates     []float64

	fpgaTime func() float64

	syncSourceCalls *[]string
	ppsResetCalls   *int
	armCalls        *[]float64
	armErr          error
	collectResult   []samplecodec.Pair // single stream, single collected block, for simplicity
	collectErr      error
	closed          bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		version:         "1.0.0",
		numAntennas:     2,
		masterClockRate: 200e6,
		sampleRates:     []float64{200e6, 100e6},
		fpgaTime:        func() float64 { return 0 },
		syncSourceCalls: new([]string),
		ppsResetCalls:   new(int),
		armCalls:        new([]float64),
	}
}

func (f *fakeChannel) Close() error { f.closed = true; return nil }

func (f *fakeChannel) Call(_ context.Context, method wire.Method, params any, out any) error {
	switch method {
	case wire.MethodGetVersion:
		return assignOut(out, f.version)
	case wire.MethodGetNumAntennas:
		return assignOut(out, f.numAntennas)
	case wire.MethodGetMasterClockRate:
		return assignOut(out, f.masterClockRate)
	case wire.MethodGetSupportedSampleRates:
		return assignOut(out, f.sampleRates)
	case wire.MethodGetCurrentFpgaTime:
		return assignOut(out, f.fpgaTime())
	case wire.MethodGetCurrentSystemTime:
		return assignOut(out, 0.0)
	case wire.MethodSetSyncSource:
		p := params.(wire.SetSyncSourceParams)
		*f.syncSourceCalls = append(*f.syncSourceCalls, p.Source)
		return nil
	case wire.MethodSetTimeToZeroNextPps:
		*f.ppsResetCalls++
		return nil
	case wire.MethodResetStreamingConfigs:
		return nil
	case wire.MethodConfigureRfConfig:
		return nil
	case wire.MethodConfigureTx, wire.MethodConfigureRx:
		return nil
	case wire.MethodExecute:
		p := params.(wire.ExecuteParams)
		*f.armCalls = append(*f.armCalls, p.BaseTimeSec)
		return f.armErr
	case wire.MethodCollect:
		if f.collectErr != nil {
			return f.collectErr
		}
		result := wire.CollectResult{Streams: [][]wire.ComplexPair{{
			{Reals: firstOrEmptyReals(f.collectResult), Imags: firstOrEmptyImags(f.collectResult)},
		}}}
		return assignOut(out, result)
	default:
		return fmt.Errorf("fakeChannel: unhandled method %s", method)
	}
}

func firstOrEmptyReals(p []samplecodec.Pair) []float64 {
	if len(p) == 0 {
		return nil
	}
	return p[0].Reals
}

func firstOrEmptyImags(p []samplecodec.Pair) []float64 {
	if len(p) == 0 {
		return nil
	}
	return p[0].Imags
}

func assignOut(out any, value any) error {
	if out == nil {
		return nil
	}
	switch o := out.(type) {
	case *string:
		*o = value.(string)
	case *int:
		*o = value.(int)
	case *float64:
		*o = value.(float64)
	case *[]float64:
		*o = value.([]float64)
	case *wire.CollectResult:
		*o = value.(wire.CollectResult)
	default:
		return fmt.Errorf("assignOut: unsupported type %T", out)
	}
	return nil
}
