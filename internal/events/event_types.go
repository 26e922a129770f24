package events

import (
	"time"

	"github.com/smartmaint/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated         EventType = "user_created"
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventEntityRestored      EventType = "entity_restored"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserCreatedPayload carries the data the welcome email needs. The plaintext
// password exists only on this in-process event; it is never persisted.
type UserCreatedPayload struct {
	Email             string      `json:"email"`
	FullName          string      `json:"full_name"`
	Role              domain.Role `json:"role"`
	PlaintextPassword string      `json:"-"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedToID string `json:"assigned_to_id"`
}

// EntityRestoredPayload payload.
type EntityRestoredPayload struct {
	EntityType domain.EntityType `json:"entity_type"`
}
