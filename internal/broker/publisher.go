package broker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/casedesk-api/internal/observability"
)

// Topics published for consumers outside the realtime core.
const (
	TopicNotificationCreated = "notification.created"
	TopicChatMessageSent     = "chat.message_sent"
)

// Publisher hands domain events to downstream consumers such as email delivery.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Event is the envelope written on the wire.
type Event struct {
	ID         string      `json:"id"`
	Source     string      `json:"source"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// natsConn is the subset of *nats.Conn used for publishing.
type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes domain events to NATS under a subject prefix.
type NATSPublisher struct {
	conn   natsConn
	prefix string
	source string
	logger zerolog.Logger
	now    func() time.Time
}

// NewNATSPublisher builds a publisher. A nil conn yields a publisher that only logs.
func NewNATSPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) *NATSPublisher {
	if conn == nil {
		return newPublisher(nil, prefix, logger)
	}
	return newPublisher(conn, prefix, logger)
}

func newPublisher(conn natsConn, prefix string, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn:   conn,
		prefix: strings.Trim(strings.ReplaceAll(prefix, ":", "."), "."),
		source: uuid.NewString(),
		logger: logger.With().Str("component", "event_publisher").Logger(),
		now:    time.Now,
	}
}

// Subject returns the full NATS subject for a topic.
func (p *NATSPublisher) Subject(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

// Publish encodes the payload and sends it. Failures are returned for the caller to log.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	subject := p.Subject(topic)
	if p.conn == nil {
		p.logger.Debug().Str("subject", subject).Msg("nats not configured, skipping domain event")
		observability.DomainEventsPublished().WithLabelValues(subject, "skipped").Inc()
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(Event{
		ID:         uuid.NewString(),
		Source:     p.source,
		Type:       topic,
		OccurredAt: p.now().UTC(),
		Data:       payload,
	})
	if err != nil {
		observability.DomainEventsPublished().WithLabelValues(subject, "error").Inc()
		return err
	}

	if err := p.conn.Publish(subject, body); err != nil {
		observability.DomainEventsPublished().WithLabelValues(subject, "error").Inc()
		return err
	}

	observability.DomainEventsPublished().WithLabelValues(subject, "published").Inc()
	return nil
}
