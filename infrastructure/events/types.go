// Package events defines the task lifecycle event envelope shared by the
// registry and the workers that consume its Redis stream.
package events

import (
	"time"

	"github.com/google/uuid"
)

// DefaultStreamName is the Redis stream task events are appended to.
const DefaultStreamName = "task-events"

// EventType represents the type of task event.
type EventType string

const (
	TaskCreated EventType = "TASK_CREATED"
	TaskUpdated EventType = "TASK_UPDATED"
	TaskDeleted EventType = "TASK_DELETED"
)

// TaskEvent is the envelope for all task events.
type TaskEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType EventType `json:"event_type"`
	TaskID    uuid.UUID `json:"task_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TaskCreatedPayload contains data for TASK_CREATED events.
type TaskCreatedPayload struct {
	Name     string         `json:"name"`
	URL      string         `json:"url"`
	SiteType string         `json:"site_type"`
	Status   string         `json:"status"`
	Criteria map[string]any `json:"criteria"`
}

// TaskUpdatedPayload contains data for TASK_UPDATED events.
type TaskUpdatedPayload struct {
	ChangedFields []string `json:"changed_fields"`
	Status        string   `json:"status"`
}

// TaskDeletedPayload contains data for TASK_DELETED events.
type TaskDeletedPayload struct {
	Reason string `json:"reason,omitempty"`
}
