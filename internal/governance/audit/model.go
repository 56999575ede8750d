package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AuditLog is one row of audit_logs. System events such as a resurfacing
// pass have no owner.
type AuditLog struct {
	ID           uuid.UUID       `json:"id"`
	OwnerUserID  *uuid.UUID      `json:"owner_user_id,omitempty"`
	EventType    string          `json:"event_type"`
	Severity     string          `json:"severity"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ListParams filters and paginates audit log queries.
type ListParams struct {
	EventType string
	Severity  string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: defaultPageSize}
}

// normalized clamps Page to >= 1 and PageSize to 1..maxPageSize, falling
// back to the default size when out of range.
func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > maxPageSize {
		p.PageSize = defaultPageSize
	}
	return p
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.PageSize
}
