package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/yasinhessnawi1/authgate/internal/config"
	"github.com/yasinhessnawi1/authgate/internal/constants"
)

// EventType names a session lifecycle transition.
type EventType string

// Lifecycle events published after the state change has been persisted.
const (
	EventSessionIssued        EventType = "session.issued"
	EventSessionRotated       EventType = "session.rotated"
	EventSessionReuseDetected EventType = "session.reuse_detected"
	EventSessionRevoked       EventType = "session.revoked"
	EventSessionRevokedAll    EventType = "session.revoked_all"
	EventPasswordReset        EventType = "password.reset"
	EventEmailVerified        EventType = "email.verified"
)

// Event is the JSON payload written to the events topic.
// It never carries token values.
type Event struct {
	Type       EventType         `json:"type"`
	UserID     int64             `json:"user_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// EventPublisher delivers lifecycle events. Publishing is best effort:
// implementations log failures and never return them to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by user ID,
// so all events of one user land on the same partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewEventPublisher returns a Kafka publisher when events are enabled
// and a NoopPublisher otherwise.
//
// Parameters:
//   - cfg: The events section of the application config
//
// Returns:
//   - An EventPublisher ready for use
func NewEventPublisher(cfg *config.EventSettings) EventPublisher {
	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		return NoopPublisher{}
	}

	topic := cfg.Topic
	if topic == "" {
		topic = constants.DefaultEventsTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: constants.EventPublishTimeout,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn().Err(err).Int("messages", len(messages)).Msg("Failed to deliver lifecycle events")
			}
		},
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", topic).
		Msg("Lifecycle event publisher enabled")

	return newKafkaPublisher(writer, topic)
}

func newKafkaPublisher(writer messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic}
}

// Publish writes one event. Failures are logged and swallowed.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", string(event.Type)).Msg("Failed to encode lifecycle event")
		return
	}

	// Detach from the request so a cancelled client does not drop the event
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.EventPublishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.UserID, 10)),
		Value: value,
		Time:  event.OccurredAt,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("event", string(event.Type)).
			Str("topic", p.topic).
			Int64("user_id", event.UserID).
			Msg("Failed to publish lifecycle event")
		return
	}

	log.Debug().
		Str("event", string(event.Type)).
		Int64("user_id", event.UserID).
		Msg("Lifecycle event published")
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(context.Context, Event) {}

// Close implements EventPublisher.
func (NoopPublisher) Close() error { return nil }
