package dto

import (
	"time"

	"github.com/smartmaint/maintenance-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Subcategory string                `json:"subcategory"`
	Priority    domain.TicketPriority `json:"priority"`
	Machine     string                `json:"machine"`
	Area        string                `json:"area"`
	Source      domain.TicketSource   `json:"source"`
}

// UpdateTicketRequest carries the mutable ticket fields; absent fields are
// left untouched.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Category    *domain.TicketCategory `json:"category"`
	Subcategory *string                `json:"subcategory"`
	Priority    *domain.TicketPriority `json:"priority"`
	Status      *domain.TicketStatus   `json:"status"`
	Machine     *string                `json:"machine"`
	Area        *string                `json:"area"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	TechnicianID string `json:"technician_id"`
}

// DeleteTicketRequest optional payload.
type DeleteTicketRequest struct {
	Reason *string `json:"reason"`
}

// TicketResponse is the full ticket projection.
type TicketResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Category     domain.TicketCategory `json:"category"`
	Subcategory  string                `json:"subcategory"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	Machine      string                `json:"machine"`
	Area         string                `json:"area"`
	Source       domain.TicketSource   `json:"source"`
	CreatedByID  string                `json:"created_by_id"`
	AssignedToID *string               `json:"assigned_to_id"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ConversationRequest payload.
type ConversationRequest struct {
	Body     string `json:"body"`
	Internal bool   `json:"internal"`
}

// ConversationResponse represents a thread entry.
type ConversationResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	Internal  bool      `json:"internal"`
	CreatedAt time.Time `json:"created_at"`
}

// AttachmentRequest describes attachment metadata input.
type AttachmentRequest struct {
	FileName    string `json:"file_name"`
	StoragePath string `json:"storage_path"`
	MimeType    string `json:"mime_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntryResponse projects an audit trail record.
type AuditEntryResponse struct {
	ID         string              `json:"id"`
	ActionType domain.ActionType   `json:"action_type"`
	EntityType domain.EntityType   `json:"entity_type"`
	EntityID   string              `json:"entity_id"`
	ActorID    *string             `json:"actor_id"`
	Changes    domain.AuditChanges `json:"changes"`
	Reason     *string             `json:"reason"`
	CreatedAt  time.Time           `json:"created_at"`
}
