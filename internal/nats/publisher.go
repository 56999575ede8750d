package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishAuditEvent publishes an audit event.
func (p *Publisher) PublishAuditEvent(ctx context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}
	return p.publish(ctx, SubjectAuditEvent, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// AuditPublisher is what domain services depend on to emit audit events.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event AuditEvent) error
}

// Emit publishes event on p and only logs failures. A nil p is a no-op,
// which is how the app runs without NATS configured.
func Emit(ctx context.Context, p AuditPublisher, event AuditEvent) {
	if p == nil {
		slog.Debug("nats disabled, dropping audit event", "event_type", event.EventType)
		return
	}
	if err := p.PublishAuditEvent(ctx, event); err != nil {
		slog.Warn("publishing audit event", "error", err, "event_type", event.EventType)
	}
}
