package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/adforge-app/adforge/internal/nats"
)

// EntryWriter persists audit entries. *Repository satisfies it.
type EntryWriter interface {
	Insert(ctx context.Context, e *Entry) error
}

// Consumer drains the audit event stream into the audit_logs table.
// Insert failures leave the message unacked so nothing is lost on a
// database hiccup.
type Consumer struct {
	client *inats.Client
	writer EntryWriter

	cc jetstream.ConsumeContext
}

func NewConsumer(client *inats.Client, writer EntryWriter) *Consumer {
	return &Consumer{client: client, writer: writer}
}

func (c *Consumer) Start(ctx context.Context) error {
	cc, err := c.client.Consume(ctx, inats.StreamEvents, "audit-writer", inats.SubjectAuditEvent, c.handleMessage)
	if err != nil {
		return fmt.Errorf("starting audit consumer: %w", err)
	}
	c.cc = cc
	slog.Info("audit consumer started")
	return nil
}

func (c *Consumer) Stop() {
	if c.cc != nil {
		c.cc.Stop()
	}
}

func (c *Consumer) handleMessage(msg jetstream.Msg) error {
	var event inats.AuditEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		slog.Error("dropping undecodable audit event", "error", err)
		return nil
	}

	createdAt := event.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return c.writer.Insert(context.Background(), &Entry{
		ID:           uuid.New(),
		UserID:       event.UserID,
		EventType:    event.EventType,
		Severity:     event.Severity,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		Details:      event.Details,
		CreatedAt:    createdAt,
	})
}
