// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. These are signals published after a transaction
// commits; read-only consumers (the notification collaborator) subscribe to
// them. They are not the ledger: the ledger is the attendance_events table.
const (
	// Ledger events
	EventSessionRecorded EventType = "attendance.session_recorded"

	// Assignment lifecycle events
	EventAssignmentCompleted EventType = "attendance.assignment_completed"

	// RBAC events
	EventTenantSwitched EventType = "rbac.tenant_switched"

	// Base-layer events
	EventEntityArchived EventType = "directory.entity_archived"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a published event.
type EventHandler interface {
	// Handle processes the event. Errors are logged by the bus, never
	// propagated to the publisher: a committed write cannot be undone by a
	// failing subscriber.
	Handle(ctx context.Context, event Event) error

	// Name identifies the handler in logs.
	Name() string
}

// EventBus publishes events to subscribed handlers.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
	Version     int       `json:"version"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionRecordedEvent is emitted after an attendance event commits.
type SessionRecordedEvent struct {
	BaseEvent
	TenantID     TenantID     `json:"center_id"`
	AssignmentID AssignmentID `json:"assignment_id"`
	Status       string       `json:"status"`
	Date         string       `json:"date"`
	IsBackdated  bool         `json:"is_backdated"`
	RecordedBy   ActorID      `json:"recorded_by"`
}

// Payload implements Event interface.
func (e SessionRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"center_id":     e.TenantID.String(),
		"assignment_id": e.AssignmentID.String(),
		"status":        e.Status,
		"date":          e.Date,
		"is_backdated":  e.IsBackdated,
		"recorded_by":   e.RecordedBy.String(),
	}
}

// AssignmentCompletedEvent is emitted when a completed-status session flips
// an assignment into the ready-for-transfer state.
type AssignmentCompletedEvent struct {
	BaseEvent
	TenantID     TenantID     `json:"center_id"`
	AssignmentID AssignmentID `json:"assignment_id"`
	StudentID    string       `json:"student_id"`
	FacultyID    string       `json:"faculty_id"`
}

// Payload implements Event interface.
func (e AssignmentCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"center_id":     e.TenantID.String(),
		"assignment_id": e.AssignmentID.String(),
		"student_id":    e.StudentID,
		"faculty_id":    e.FacultyID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// RBAC Events
// ═══════════════════════════════════════════════════════════════════════════

// TenantSwitchedEvent is emitted when a master actor changes active center.
type TenantSwitchedEvent struct {
	BaseEvent
	ActorID  ActorID  `json:"actor_id"`
	TenantID TenantID `json:"center_id"`
}

// Payload implements Event interface.
func (e TenantSwitchedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"actor_id":  e.ActorID.String(),
		"center_id": e.TenantID.String(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Base-Layer Events
// ═══════════════════════════════════════════════════════════════════════════

// EntityArchivedEvent is emitted when a directory entity is soft-deleted.
type EntityArchivedEvent struct {
	BaseEvent
	EntityType string  `json:"entity_type"`
	EntityID   string  `json:"entity_id"`
	ArchivedBy ActorID `json:"archived_by"`
}

// Payload implements Event interface.
func (e EntityArchivedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"entity_type": e.EntityType,
		"entity_id":   e.EntityID,
		"archived_by": e.ArchivedBy.String(),
	}
}
