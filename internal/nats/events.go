package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every hubideas domain event.
const StreamEvents = "HUBIDEAS_EVENTS"

// Subject constants.
const (
	SubjectEventsWildcard = "hubideas.events.>"
	SubjectAuditEvent     = "hubideas.events.audit"
)

// Audit event types.
const (
	EventQuotaReset          = "quota_reset"
	EventQuotaExceeded       = "quota_exceeded"
	EventTokenLimitChanged   = "token_limit_changed"
	EventUserStatusChanged   = "user_status_changed"
	EventResurfacingSent     = "resurfacing_sent"
	EventSubscriptionRemoved = "subscription_removed"
)

// Severities.
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// AuditEvent is published for compliance/audit logging.
// OwnerUserID is nil for system events that have no acting user.
type AuditEvent struct {
	OwnerUserID  *uuid.UUID `json:"owner_user_id,omitempty"`
	EventType    string     `json:"event_type"`
	Severity     string     `json:"severity"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	Details      string     `json:"details"`
	Timestamp    time.Time  `json:"timestamp"`
}
