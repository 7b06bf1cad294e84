// Package messaging is the Kafka boundary of the service: inbound storefront
// orders are consumed from one topic and lifecycle events are published to
// another.
package messaging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/config"
)

// Message represents a message consumed from the bus.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes an inbound message. A non-nil error leaves the message
// uncommitted so it is delivered again.
type Handler func(context.Context, Message) error

// Client publishes to the lifecycle events topic and consumes the inbound
// orders topic.
type Client interface {
	Publish(ctx context.Context, key []byte, value []byte) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
	EventsTopic() string
}

// Module wires the messaging client.
var Module = fx.Provide(NewClient)

// NewClient builds a messaging client based on configuration.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	log := logger.Named("messaging")
	if !cfg.Messaging.Enabled || cfg.Messaging.Driver == "noop" {
		log.Info("messaging disabled; using noop client")

		return noopClient{topic: cfg.Messaging.Kafka.Topic, eventsTopic: cfg.Messaging.Kafka.EventsTopic}, nil
	}

	switch cfg.Messaging.Driver {
	case "kafka":
		client := newKafkaClient(cfg.Messaging, log)
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
}

// noopClient drops published events and blocks on consume.
type noopClient struct {
	topic       string
	eventsTopic string
}

func (n noopClient) Publish(context.Context, []byte, []byte) error { return nil }

func (n noopClient) Consume(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (n noopClient) Topic() string       { return n.topic }
func (n noopClient) EventsTopic() string { return n.eventsTopic }
