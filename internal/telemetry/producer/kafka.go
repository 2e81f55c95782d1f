package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"phone-otp-auth/backend/internal/telemetry/domain"
)

// writeTimeout caps a single WriteMessages call.
const writeTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaProducer creates a producer that writes auth events to topic.
// Returns nil when brokers or topic are empty; a nil *KafkaProducer is a no-op.
func NewKafkaProducer(brokers []string, topic string, logger *zap.Logger) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer, topic: topic, logger: logger}
}

// Emit serializes the event as JSON and writes it keyed by phone number, or identity ID when there is none,
// so events for one subscriber land on one partition in order.
func (p *KafkaProducer) Emit(ctx context.Context, event *domain.AuthEvent) error {
	if p == nil || p.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   messageKey(event),
		Value: payload,
	})
	if err != nil {
		p.logger.Warn("kafka emit failed", zap.String("topic", p.topic), zap.String("event_type", event.Type), zap.Error(err))
		return err
	}
	return nil
}

// Close closes the Kafka writer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func messageKey(event *domain.AuthEvent) []byte {
	switch {
	case event.PhoneNumber != "":
		return []byte(event.PhoneNumber)
	case event.IdentityID != "":
		return []byte(event.IdentityID)
	default:
		return nil
	}
}
