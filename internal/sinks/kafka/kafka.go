// Package kafka mirrors relayed call alerts onto a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"call-relay/internal/dispatch"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher implements dispatch.AlertSink.
type Publisher struct {
	w     messageWriter
	topic string
}

func NewPublisher(brokers []string, topic string, timeout time.Duration) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		WriteTimeout: timeout,
		MaxAttempts:  1,
	}
	return &Publisher{w: w, topic: topic}, nil
}

func (p *Publisher) Name() string { return "kafka" }

// record is the message value; the key is the caller ID so one caller's
// calls stay ordered on a partition.
type record struct {
	CallerID     string `json:"callerId"`
	Time         string `json:"time"`
	Label        string `json:"label"`
	CampaignName string `json:"campaignName"`
	Link         string `json:"link,omitempty"`
}

func (p *Publisher) Notify(ctx context.Context, a dispatch.Alert) error {
	val, err := json.Marshal(record(a))
	if err != nil {
		return fmt.Errorf("kafka: marshal record: %w", err)
	}
	msg := kafkago.Message{Key: []byte(a.CallerID), Value: val}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.w.Close() }
