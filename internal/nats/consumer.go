package nats

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
)

// Consume creates (or reuses) a durable consumer on the stream and runs
// handler for every message. Handler errors leave the message unacked so
// JetStream redelivers it.
func (c *Client) Consume(ctx context.Context, stream, durable, subject string, handler func(msg jetstream.Msg) error) (jetstream.ConsumeContext, error) {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, stream, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating consumer %s on %s: %w", durable, stream, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(msg); err != nil {
			slog.Error("message handler failed", "subject", msg.Subject(), "error", err)
			return // no ack; redelivered
		}
		if err := msg.Ack(); err != nil {
			slog.Warn("acking message", "subject", msg.Subject(), "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("starting consume on %s: %w", durable, err)
	}
	return cc, nil
}
