package domain

import "time"

// AttachmentReference stores attachment metadata; the bytes live in external
// file storage keyed by StoragePath.
type AttachmentReference struct {
	ID          string
	TicketID    string
	UploaderID  string
	FileName    string
	StoragePath string
	MimeType    string
	SizeBytes   int64
	CreatedAt   time.Time
}
