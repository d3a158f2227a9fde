package configmodel

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FleetConfig is the on-disk description of a Coordinator's device
// set and timers, loaded the way the teacher's config.go loads its
// own nested YAML configuration.
type FleetConfig struct {
	SyncSourcePolicy string               `yaml:"sync_source_policy"` // auto, internal, external
	ResyncInterval   time.Duration        `yaml:"resync_interval"`
	Prometheus       FleetPrometheusConfig `yaml:"prometheus"`
	MQTT             FleetMQTTConfig      `yaml:"mqtt"`
	Devices          []FleetDevice        `yaml:"devices"`
}

// FleetDevice names one device to dial at startup.
type FleetDevice struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// FleetPrometheusConfig enables the /metrics endpoint.
type FleetPrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// FleetMQTTConfig enables the optional status publisher.
type FleetMQTTConfig struct {
	Broker   string `yaml:"broker"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

// LoadFleetConfig reads and applies defaults to a FleetConfig file.
func LoadFleetConfig(path string) (FleetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FleetConfig{}, fmt.Errorf("read fleet config %s: %w", path, err)
	}
	var cfg FleetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FleetConfig{}, fmt.Errorf("parse fleet config %s: %w", path, err)
	}
	if cfg.SyncSourcePolicy == "" {
		cfg.SyncSourcePolicy = "auto"
	}
	if cfg.ResyncInterval == 0 {
		cfg.ResyncInterval = 20 * time.Minute
	}
	return cfg, nil
}
