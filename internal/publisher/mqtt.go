package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/jgoulah/gridmeter/internal/config"
	"github.com/jgoulah/gridmeter/pkg/models"
)

func connectMQTT(cfg config.MQTTConfig) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID("gridmeter-" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	return client, nil
}

// mqttTopic returns the topic a subscriber's hourly deltas are published on
func mqttTopic(prefix string, subscriberID int64) string {
	return fmt.Sprintf("%s/%d/hourly", prefix, subscriberID)
}

func (p *Publisher) publishMQTT(deltas []models.HourlyDelta) error {
	for _, d := range deltas {
		body, err := json.Marshal(newPayload(d))
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}

		token := p.client.Publish(mqttTopic(p.topicPrefix, d.SubscriberID), 1, false, body)
		if !token.WaitTimeout(10 * time.Second) {
			return fmt.Errorf("timed out publishing to MQTT")
		}
		if err := token.Error(); err != nil {
			return err
		}
	}
	return nil
}
