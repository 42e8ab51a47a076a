package ports

import (
	"context"
	"time"
)

// AuditEvent records an operator-facing lifecycle transition (migration run,
// seed run, reset). Published outside the request path; delivery is
// best-effort and never fails the underlying operation.
type AuditEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Subject    string                 `json:"subject"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// Audit event types emitted by the migration engine, seeder and manager.
const (
	AuditMigrationStarted   = "migration.started"
	AuditMigrationCompleted = "migration.completed"
	AuditMigrationFailed    = "migration.failed"
	AuditRollbackCompleted  = "migration.rolled_back"
	AuditSeedCompleted      = "seed.completed"
	AuditSeedFailed         = "seed.failed"
	AuditDataCleared        = "data.cleared"
)

// EventPublisher delivers audit events to the platform event bus
type EventPublisher interface {
	Publish(ctx context.Context, events ...AuditEvent) error
}

// NopPublisher discards events, for local development and tests
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...AuditEvent) error { return nil }
