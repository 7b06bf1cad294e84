package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Additional-Code/ordertrack/internal/config"
)

type kafkaClient struct {
	writer       *kafka.Writer
	reader       *kafka.Reader
	topic        string
	eventsTopic  string
	fetchBackoff time.Duration
	logger       *zap.Logger
}

// newKafkaClient writes events with a hash balancer so every event of one
// order lands on the same partition and keeps its order.
func newKafkaClient(cfg config.Messaging, logger *zap.Logger) *kafkaClient {
	kc := cfg.Kafka
	backoff := cfg.Workers.PollInterval
	if backoff <= 0 {
		backoff = time.Second
	}

	return &kafkaClient{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(kc.Brokers...),
			Topic:        kc.EventsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
			Logger:       kafkaLogger{logger: logger},
			ErrorLogger:  kafkaLogger{logger: logger, errors: true},
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        kc.Brokers,
			GroupID:        cfg.ConsumerGroup,
			Topic:          kc.Topic,
			MinBytes:       kc.MinBytes,
			MaxBytes:       kc.MaxBytes,
			CommitInterval: kc.CommitInterval,
			Dialer: &kafka.Dialer{
				Timeout:  kc.ConnectTimeout,
				ClientID: kc.ClientID,
			},
		}),
		topic:        kc.Topic,
		eventsTopic:  kc.EventsTopic,
		fetchBackoff: backoff,
		logger:       logger,
	}
}

func (k *kafkaClient) Publish(ctx context.Context, key []byte, value []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

// Consume fetches until ctx is done. Messages are committed only after the
// handler succeeds.
func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			k.logger.Error("kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(k.fetchBackoff):
			}
			continue
		}

		if err := handler(ctx, fromKafka(msg)); err != nil {
			k.logger.Error("message handler failed",
				zap.Error(err),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			continue
		}

		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			k.logger.Warn("commit failed", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}

func (k *kafkaClient) Topic() string       { return k.topic }
func (k *kafkaClient) EventsTopic() string { return k.eventsTopic }

// Close flushes pending writes and leaves the consumer group.
func (k *kafkaClient) Close() error {
	k.logger.Info("closing kafka client")
	return errors.Join(k.writer.Close(), k.reader.Close())
}

func fromKafka(msg kafka.Message) Message {
	out := Message{
		Topic:  msg.Topic,
		Key:    append([]byte(nil), msg.Key...),
		Value:  append([]byte(nil), msg.Value...),
		Offset: msg.Offset,
		Time:   msg.Time,
	}
	if len(msg.Headers) > 0 {
		out.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			out.Headers[h.Key] = string(h.Value)
		}
	}
	return out
}

type kafkaLogger struct {
	logger *zap.Logger
	errors bool
}

func (k kafkaLogger) Printf(msg string, args ...interface{}) {
	if k.errors {
		k.logger.Sugar().Warnf(msg, args...)
		return
	}
	k.logger.Sugar().Debugf(msg, args...)
}
