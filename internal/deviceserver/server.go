package deviceserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/madpsy/usrpsync/internal/configmodel"
	"github.com/madpsy/usrpsync/internal/samplecodec"
	"github.com/madpsy/usrpsync/internal/wire"
)

// Server adapts a NativeDevice to the remote-call surface of spec.md
// §6 via a static dispatch table, and serves it over HTTP/websocket
// (routing via gorilla/mux, matching clients/go/api_server.go's
// router setup in the teacher corpus).
type Server struct {
	device     NativeDevice
	dispatcher *wire.Dispatcher
	router     *mux.Router
}

// New builds a Server for device, registering every remote-call
// method.
func New(device NativeDevice) *Server {
	s := &Server{device: device, dispatcher: wire.NewDispatcher()}
	s.registerHandlers()

	s.router = mux.NewRouter()
	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	s.router.Handle("/ws", s.dispatcher)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) registerHandlers() {
	d := s.dispatcher
	dev := s.device

	d.Handle(wire.MethodGetVersion, func(json.RawMessage) (any, error) {
		return dev.Version(), nil
	})
	d.Handle(wire.MethodGetNumAntennas, func(json.RawMessage) (any, error) {
		return dev.NumAntennas(), nil
	})
	d.Handle(wire.MethodGetMasterClockRate, func(json.RawMessage) (any, error) {
		return dev.MasterClockRate(), nil
	})
	d.Handle(wire.MethodGetSupportedSampleRates, func(json.RawMessage) (any, error) {
		return dev.SupportedSampleRates(), nil
	})
	d.Handle(wire.MethodGetCurrentFpgaTime, func(json.RawMessage) (any, error) {
		return dev.CurrentFpgaTime()
	})
	d.Handle(wire.MethodGetCurrentSystemTime, func(json.RawMessage) (any, error) {
		return dev.CurrentSystemTime()
	})
	d.Handle(wire.MethodSetTimeToZeroNextPps, func(json.RawMessage) (any, error) {
		return nil, dev.SetTimeToZeroNextPps()
	})
	d.Handle(wire.MethodResetStreamingConfigs, func(json.RawMessage) (any, error) {
		return nil, dev.ResetStreamingConfigs()
	})

	d.Handle(wire.MethodSetSyncSource, func(raw json.RawMessage) (any, error) {
		var p wire.SetSyncSourceParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return nil, dev.SetSyncSource(p.Source)
	})

	d.Handle(wire.MethodExecute, func(raw json.RawMessage) (any, error) {
		var p wire.ExecuteParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return nil, dev.Arm(p.BaseTimeSec)
	})

	d.Handle(wire.MethodGetRfConfig, func(json.RawMessage) (any, error) {
		cfg, err := dev.GetRfConfig()
		if err != nil {
			return nil, err
		}
		return cfg.Serialize()
	})

	d.Handle(wire.MethodConfigureRfConfig, func(raw json.RawMessage) (any, error) {
		var p wire.ConfigureRfConfigParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		cfg, err := configmodel.DeserializeRfConfig(p.Serialized)
		if err != nil {
			return nil, err
		}
		return nil, dev.ConfigureRfConfig(cfg)
	})

	d.Handle(wire.MethodConfigureTx, func(raw json.RawMessage) (any, error) {
		var p wire.ConfigureTxParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		signals := make([][]complex128, len(p.Samples))
		for i, pair := range p.Samples {
			decoded, err := samplecodec.Decode(samplecodec.Pair{Reals: pair.Reals, Imags: pair.Imags})
			if err != nil {
				return nil, err
			}
			signals[i] = decoded
		}
		cfg := configmodel.TxStreamingConfig{
			SendTimeOffsetSec: p.SendTimeOffsetSec,
			Samples:           configmodel.MimoSignal{Signals: signals},
			NumRepetitions:    p.NumRepetitions,
		}
		return nil, dev.ConfigureTx(cfg)
	})

	d.Handle(wire.MethodConfigureRx, func(raw json.RawMessage) (any, error) {
		var p wire.ConfigureRxParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		cfg := configmodel.RxStreamingConfig{
			ReceiveTimeOffsetSec: p.ReceiveTimeOffsetSec,
			NumSamples:           p.NumSamples,
			AntennaPort:          p.AntennaPort,
			NumRepetitions:       p.NumRepetitions,
			RepetitionPeriod:     p.RepetitionPeriod,
		}
		return nil, dev.ConfigureRx(cfg)
	})

	d.Handle(wire.MethodCollect, func(json.RawMessage) (any, error) {
		signals, err := dev.Collect()
		if err != nil {
			return nil, err
		}
		result := wire.CollectResult{Streams: make([][]wire.ComplexPair, len(signals))}
		for i, m := range signals {
			pairs := make([]wire.ComplexPair, len(m.Signals))
			for j, stream := range m.Signals {
				p := samplecodec.EncodeFlat(stream)
				pairs[j] = wire.ComplexPair{Reals: p.Reals, Imags: p.Imags}
			}
			result.Streams[i] = pairs
		}
		return result, nil
	})
}
