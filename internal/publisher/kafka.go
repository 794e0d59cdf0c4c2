package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jgoulah/gridmeter/internal/config"
	"github.com/jgoulah/gridmeter/internal/meter"
	"github.com/jgoulah/gridmeter/pkg/models"
)

func newKafkaWriter(cfg config.KafkaConfig) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required when enabled")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.GetTopic(),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, nil
}

// kafkaMessages keys every message by subscriber so one subscriber's hours
// land on one partition in order. Message time is the hour start in loc.
func kafkaMessages(deltas []models.HourlyDelta, loc *time.Location) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(deltas))
	for _, d := range deltas {
		body, err := json.Marshal(newPayload(d))
		if err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(d.SubscriberID, 10)),
			Value: body,
			Time:  meter.Localize(d.HourStart, loc),
		})
	}
	return msgs, nil
}

func (p *Publisher) publishKafka(ctx context.Context, deltas []models.HourlyDelta) error {
	msgs, err := kafkaMessages(deltas, p.loc)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msgs...)
}
