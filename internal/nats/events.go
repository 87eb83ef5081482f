package nats

import (
	"time"

	"github.com/google/uuid"
)

// Stream names.
const (
	StreamTasks  = "ADFORGE_TASKS"
	StreamEvents = "ADFORGE_EVENTS"
)

// Subject constants.
const (
	SubjectGenerationTask = "adforge.tasks.generation"
	SubjectAuditEvent     = "adforge.events.audit"
)

// GenerationTask is published when a paid generation job is accepted.
// The deduction has already happened; a worker failure must trigger a
// refund keyed by JobID.
type GenerationTask struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    uuid.UUID `json:"user_id"`
	ProjectID uuid.UUID `json:"project_id"`
	Kind      string    `json:"kind"`
	Prompt    string    `json:"prompt"`
	// Cost is the deducted amount as a decimal string.
	Cost string `json:"cost"`
}

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"` // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}
