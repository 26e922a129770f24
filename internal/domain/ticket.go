package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInReview   TicketStatus = "in_review"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusSolved     TicketStatus = "solved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidTicketStatus reports whether s is one of the five lifecycle states.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInReview, TicketStatusInProgress, TicketStatusSolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// ValidTicketPriority reports whether p is a known priority.
func ValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketCategory enumerates maintenance problem domains.
type TicketCategory string

const (
	TicketCategorySoftware   TicketCategory = "software"
	TicketCategoryHardware   TicketCategory = "hardware"
	TicketCategoryElectrical TicketCategory = "electrical"
	TicketCategoryMechanical TicketCategory = "mechanical"
	TicketCategoryIT         TicketCategory = "it"
	TicketCategoryPlumbing   TicketCategory = "plumbing"
	TicketCategoryTask       TicketCategory = "task"
	TicketCategoryOther      TicketCategory = "other"
)

// ValidTicketCategory reports whether c is a known category.
func ValidTicketCategory(c TicketCategory) bool {
	switch c {
	case TicketCategorySoftware, TicketCategoryHardware, TicketCategoryElectrical,
		TicketCategoryMechanical, TicketCategoryIT, TicketCategoryPlumbing,
		TicketCategoryTask, TicketCategoryOther:
		return true
	}
	return false
}

// TicketSource records the channel a ticket arrived through.
type TicketSource string

const (
	TicketSourceWeb      TicketSource = "web"
	TicketSourceWhatsapp TicketSource = "whatsapp"
	TicketSourceEmail    TicketSource = "email"
)

// Ticket is the aggregate for maintenance requests.
type Ticket struct {
	ID           string
	Title        string
	Description  string
	Category     TicketCategory
	Subcategory  string
	Priority     TicketPriority
	Status       TicketStatus
	Machine      string
	Area         string
	Source       TicketSource
	CreatedByID  string
	AssignedToID *string
	IsDeleted    bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
