package coordinator

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTStatusPublisher announces sync state transitions and arm/collect
// cycle outcomes to an MQTT broker. It never carries sample data, so
// it is ambient telemetry rather than the streaming callback spec.md's
// Non-goals exclude (see SPEC_FULL.md §2). Adapted from
// kiwi_wspr/mqtt_publisher.go's connection-options pattern.
type MQTTStatusPublisher struct {
	client mqtt.Client
	topic  string
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker   string
	Username string
	Password string
	Topic    string
}

// NewMQTTStatusPublisher connects to the broker and returns a
// StatusPublisher. Returns (nil, nil) if cfg.Broker is empty so
// callers can wire it unconditionally with WithStatusPublisher.
func NewMQTTStatusPublisher(cfg MQTTConfig) (*MQTTStatusPublisher, error) {
	if cfg.Broker == "" {
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(generateClientID())
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("usrpsync: connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("usrpsync: MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "usrpsync/status"
	}
	return &MQTTStatusPublisher{client: client, topic: topic}, nil
}

func generateClientID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "usrpsync_" + hex.EncodeToString(b)
}

type syncStateMessage struct {
	Synced    bool      `json:"synced"`
	Timestamp time.Time `json:"timestamp"`
}

type cycleMessage struct {
	Operation string    `json:"operation"`
	Devices   int       `json:"devices"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishSyncState implements StatusPublisher.
func (p *MQTTStatusPublisher) PublishSyncState(synced bool) {
	if p == nil {
		return
	}
	p.publish(p.topic+"/sync", syncStateMessage{Synced: synced, Timestamp: time.Now()})
}

// PublishCycle implements StatusPublisher.
func (p *MQTTStatusPublisher) PublishCycle(op string, devices, failed int) {
	if p == nil {
		return
	}
	p.publish(p.topic+"/cycle", cycleMessage{Operation: op, Devices: devices, Failed: failed, Timestamp: time.Now()})
}

func (p *MQTTStatusPublisher) publish(topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("usrpsync: marshal MQTT status payload: %v", err)
		return
	}
	token := p.client.Publish(topic, 0, false, body)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("usrpsync: publish MQTT status: %v", err)
	}
}

// Close disconnects from the broker.
func (p *MQTTStatusPublisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect(250)
}
