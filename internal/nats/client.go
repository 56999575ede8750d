package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/hubideas/hubideas/internal/config"
)

// Client wraps a NATS connection with JetStream support.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewClient connects to NATS and ensures required JetStream streams exist.
func NewClient(ctx context.Context, cfg config.NATSConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("hubideas-api"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	c := &Client{conn: nc, js: js}

	if err := c.ensureStreams(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensuring streams: %w", err)
	}

	slog.Info("connected to NATS", "url", cfg.URL)
	return c, nil
}

// eventsStream keeps audit history for the retention window the admin
// audit view promises. Old messages are discarded first when full.
var eventsStream = jetstream.StreamConfig{
	Name:        StreamEvents,
	Description: "hubideas domain and audit events",
	Subjects:    []string{SubjectEventsWildcard},
	Retention:   jetstream.LimitsPolicy,
	Discard:     jetstream.DiscardOld,
	Storage:     jetstream.FileStorage,
	MaxAge:      30 * 24 * time.Hour,
}

func (c *Client) ensureStreams(ctx context.Context) error {
	if _, err := c.js.CreateOrUpdateStream(ctx, eventsStream); err != nil {
		return fmt.Errorf("creating stream %s: %w", eventsStream.Name, err)
	}
	slog.Debug("ensured NATS stream", "name", eventsStream.Name)
	return nil
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Healthy reports whether the connection is up. While reconnecting it is
// false and publishes fail, which Emit only logs.
func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.IsConnected()
}

// Close drains and closes the NATS connection.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		slog.Warn("draining NATS connection", "error", err)
	}
}
