package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON-encoded events to a single topic. Messages are
// keyed so that every event for a client lands on the same partition.
type KafkaPublisher struct {
	writer     messageWriter
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewKafkaPublisher returns a publisher writing to topic on brokers. A
// maxRetries of zero makes a single attempt per event.
func NewKafkaPublisher(brokers []string, topic string, maxRetries int) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		maxRetries: uint64(maxRetries),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

// Publish marshals event and writes it under key, retrying transient write
// failures with exponential backoff.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	message := kafka.Message{Key: []byte(key), Value: data}
	operation := func() error {
		return p.writer.WriteMessages(ctx, message)
	}
	notify := func(err error, next time.Duration) {
		logrus.WithError(err).WithField("retry_in", next).Warn("publishing event failed, retrying")
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx)
	return backoff.RetryNotify(operation, policy, notify)
}

// Close flushes pending writes and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
