// Package publisher exports hourly deltas to external consumers: an MQTT
// broker, a Kafka topic and the Home Assistant backfill endpoint.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"github.com/jgoulah/gridmeter/internal/config"
	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/pkg/models"
)

// Publisher fans hourly deltas out to every enabled sink
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	writer      *kafka.Writer
	haConfig    config.HAConfig
	httpClient  *http.Client
	loc         *time.Location
	lg          *slog.Logger
}

// New creates a publisher for the sinks enabled in cfg
func New(cfg *config.Config, lg *slog.Logger) (*Publisher, error) {
	p := &Publisher{
		haConfig:   cfg.HomeAssistant,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		lg:         lg,
	}

	if err := validateHA(cfg.HomeAssistant); err != nil {
		return nil, err
	}

	// Hour starts are naive wall clock values in the deployment zone
	loc, err := cfg.GetLocation()
	if err != nil {
		return nil, err
	}
	p.loc = loc

	if cfg.MQTT.Enabled {
		client, err := connectMQTT(cfg.MQTT)
		if err != nil {
			return nil, err
		}
		p.client = client
		p.topicPrefix = cfg.MQTT.GetTopicPrefix()
		lg.Info("mqtt connected", "broker", cfg.MQTT.Broker, "prefix", p.topicPrefix)
	}

	if cfg.Kafka.Enabled {
		writer, err := newKafkaWriter(cfg.Kafka)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.writer = writer
		lg.Info("kafka writer ready", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.GetTopic())
	}

	return p, nil
}

// Enabled reports whether at least one sink is configured
func (p *Publisher) Enabled() bool {
	return p != nil && (p.client != nil || p.writer != nil || p.haConfig.Enabled)
}

// PublishDeltas sends a batch to every enabled sink. A failing sink does not
// stop the others; all failures are returned together.
func (p *Publisher) PublishDeltas(ctx context.Context, deltas []models.HourlyDelta) error {
	if !p.Enabled() || len(deltas) == 0 {
		return nil
	}

	var errs []error
	if p.client != nil {
		if err := p.publishMQTT(deltas); err != nil {
			errs = append(errs, fmt.Errorf("mqtt: %w", err))
		}
	}
	if p.writer != nil {
		if err := p.publishKafka(ctx, deltas); err != nil {
			errs = append(errs, fmt.Errorf("kafka: %w", err))
		}
	}
	if p.haConfig.Enabled {
		for _, d := range deltas {
			if err := p.publishHA(ctx, d); err != nil {
				errs = append(errs, fmt.Errorf("home assistant %s: %w", meter.FormatTimestamp(d.HourStart), err))
				break
			}
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		p.lg.Warn("publish failed", "subscriber", deltas[0].SubscriberID, "hours", len(deltas), "error", err)
	} else {
		p.lg.Debug("published", "subscriber", deltas[0].SubscriberID, "hours", len(deltas))
	}
	return err
}

// Close disconnects from the MQTT broker and flushes the Kafka writer
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			p.lg.Warn("kafka writer close", "error", err)
		}
	}
}

// deltaPayload is the JSON body sent to MQTT and Kafka
type deltaPayload struct {
	SubscriberID int64   `json:"subscriber_id"`
	HourStart    string  `json:"hour_start"`
	Delta        float64 `json:"delta"`
}

func newPayload(d models.HourlyDelta) deltaPayload {
	return deltaPayload{
		SubscriberID: d.SubscriberID,
		HourStart:    meter.FormatTimestamp(d.HourStart),
		Delta:        d.Delta,
	}
}
