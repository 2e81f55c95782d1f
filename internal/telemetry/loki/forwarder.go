package loki

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	pushTimeout = 10 * time.Second
	minBackoff  = 200 * time.Millisecond
	maxBackoff  = 30 * time.Second
)

// MessageReader is the subset of *kafka.Reader the forwarder consumes from.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// NewKafkaReader returns a consumer-group reader for the auth event topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Forwarder copies auth events from the stream into Loki.
type Forwarder struct {
	reader     MessageReader
	client     *Client
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewForwarder returns a Forwarder reading from reader and pushing through client.
func NewForwarder(reader MessageReader, client *Client, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{reader: reader, client: client, logger: logger, minBackoff: minBackoff, maxBackoff: maxBackoff}
}

// Run reads until ctx is cancelled. Push errors are logged and skipped. Read errors are logged and
// retried with exponential backoff, reset by the next successful read.
func (f *Forwarder) Run(ctx context.Context) error {
	backoff := f.minBackoff
	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("kafka read failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, f.maxBackoff)
			continue
		}
		backoff = f.minBackoff
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		if err := f.client.PushEventJSON(pushCtx, msg.Value); err != nil {
			f.logger.Warn("loki push failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
		cancel()
	}
}
