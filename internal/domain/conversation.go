package domain

import "time"

// ConversationEntry is a message on a ticket thread. Internal entries are
// visible to technicians and administrators only.
type ConversationEntry struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	Internal  bool
	CreatedAt time.Time
}
