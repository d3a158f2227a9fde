// Command coordinatord is the example composition root: it loads a
// fleet file, dials every listed device, and exposes the resulting
// Coordinator's Prometheus metrics, mirroring the flag+YAML+promhttp
// wiring of the teacher's own main.go.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/madpsy/usrpsync/internal/configmodel"
	"github.com/madpsy/usrpsync/internal/coordinator"
	"github.com/madpsy/usrpsync/internal/metrics"
)

func main() {
	fleetPath := flag.String("fleet", "fleet.yaml", "path to the fleet configuration file")
	flag.Parse()

	cfg, err := configmodel.LoadFleetConfig(*fleetPath)
	if err != nil {
		log.Fatalf("coordinatord: %v", err)
	}

	opts := []coordinator.Option{
		coordinator.WithSyncSourcePolicy(coordinator.SyncSourcePolicy(cfg.SyncSourcePolicy)),
		coordinator.WithResyncInterval(cfg.ResyncInterval),
	}

	reg := prometheus.NewRegistry()
	if cfg.Prometheus.Enabled {
		opts = append(opts, coordinator.WithMetrics(metrics.NewCoordinator(reg)))
	}

	if cfg.MQTT.Broker != "" {
		pub, err := coordinator.NewMQTTStatusPublisher(coordinator.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
		})
		if err != nil {
			log.Fatalf("coordinatord: mqtt: %v", err)
		}
		if pub != nil {
			opts = append(opts, coordinator.WithStatusPublisher(pub))
			defer pub.Close()
		}
	}

	coord := coordinator.New(opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, d := range cfg.Devices {
		log.Printf("coordinatord: dialing %s at %s:%d", d.Name, d.Address, d.Port)
		if err := coord.NewUsrp(ctx, d.Address, d.Port, d.Name); err != nil {
			log.Fatalf("coordinatord: add %s: %v", d.Name, err)
		}
	}
	log.Printf("coordinatord: %d devices registered", len(coord.DeviceNames()))

	if cfg.Prometheus.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			log.Printf("coordinatord: metrics listening on %s", cfg.Prometheus.Listen)
			if err := http.ListenAndServe(cfg.Prometheus.Listen, mux); err != nil {
				log.Printf("coordinatord: metrics server: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("coordinatord: shutting down")
	if err := coord.Close(context.Background()); err != nil {
		log.Printf("coordinatord: close: %v", err)
	}
	os.Exit(0)
}
