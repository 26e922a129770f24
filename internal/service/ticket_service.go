package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/smartmaint/maintenance-service/internal/authz"
	"github.com/smartmaint/maintenance-service/internal/domain"
	"github.com/smartmaint/maintenance-service/internal/events"
	"github.com/smartmaint/maintenance-service/internal/repository"
	"github.com/smartmaint/maintenance-service/pkg/errorutil"
)

// TicketService coordinates the role-scoped ticket lifecycle.
type TicketService struct {
	tickets       repository.TicketRepository
	users         repository.UserRepository
	conversations repository.ConversationRepository
	attachments   repository.AttachmentRepository
	audit         repository.AuditRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo       repository.TicketRepository
	UserRepo         repository.UserRepository
	ConversationRepo repository.ConversationRepository
	AttachmentRepo   repository.AttachmentRepository
	AuditRepo        repository.AuditRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Subcategory string
	Priority    domain.TicketPriority
	Machine     string
	Area        string
	Source      domain.TicketSource
}

// TicketPatch enumerates the mutable ticket fields; nil fields are left
// untouched.
type TicketPatch struct {
	Title       *string
	Description *string
	Category    *domain.TicketCategory
	Subcategory *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	Machine     *string
	Area        *string
}

// TicketListFilter describes listing filters on top of role scoping.
type TicketListFilter struct {
	Statuses     []domain.TicketStatus
	Categories   []domain.TicketCategory
	Priorities   []domain.TicketPriority
	AssignedToID *string
	Limit        int
	Offset       int
}

// ticketSnapshot is the shape stored under changes.deletedSnapshot for
// tickets. Conversation and attachment ids are recorded for the audit trail;
// their rows are cascade-deleted and are not recoverable.
type ticketSnapshot struct {
	domain.Ticket
	ConversationIDs []string `json:"conversationIds,omitempty"`
	AttachmentIDs   []string `json:"attachmentIds,omitempty"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:       deps.TicketRepo,
		users:         deps.UserRepo,
		conversations: deps.ConversationRepo,
		attachments:   deps.AttachmentRepo,
		audit:         deps.AuditRepo,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// Create inserts a new ticket owned by the actor.
func (s *TicketService) Create(ctx context.Context, actor authz.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, errorutil.NewValidationError("title required", nil)
	}

	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Subcategory: input.Subcategory,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		Machine:     input.Machine,
		Area:        input.Area,
		Source:      input.Source,
		CreatedByID: actor.ID,
	}
	if ticket.Category == "" {
		ticket.Category = domain.TicketCategoryOther
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Source == "" {
		ticket.Source = domain.TicketSourceWeb
	}
	if !domain.ValidTicketCategory(ticket.Category) {
		return nil, errorutil.NewValidationError("unknown category", map[string]any{"category": ticket.Category})
	}
	if !domain.ValidTicketPriority(ticket.Priority) {
		return nil, errorutil.NewValidationError("unknown priority", map[string]any{"priority": ticket.Priority})
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, errorutil.MapError(err)
	}

	s.appendAudit(ctx, &domain.AuditEntry{
		ID:         uuid.NewString(),
		ActionType: domain.ActionCreate,
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		ActorID:    &actor.ID,
		Changes: domain.DiffChanges(map[string]domain.FieldChange{
			"title":    {From: nil, To: ticket.Title},
			"category": {From: nil, To: ticket.Category},
			"priority": {From: nil, To: ticket.Priority},
			"status":   {From: nil, To: ticket.Status},
		}),
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		EntityID: ticket.ID,
		ActorID:  &actor.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// List returns tickets visible to the actor, newest first. Workers are scoped
// to their own tickets; technicians and administrators see all.
func (s *TicketService) List(ctx context.Context, actor authz.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		AssignedToID: filter.AssignedToID,
		Statuses:     filter.Statuses,
		Categories:   filter.Categories,
		Priorities:   filter.Priorities,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	if authz.ScopeListToOwner(actor) {
		ownerID := actor.ID
		repoFilter.CreatedByID = &ownerID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return tickets, nil
}

// Get fetches a single ticket, enforcing the visibility gate.
func (s *TicketService) Get(ctx context.Context, actor authz.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, errorutil.MapError(err)
	}
	if decision := authz.CanViewTicket(actor, ticket); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}
	return ticket, nil
}

// Update merges patch fields into the ticket. Status changes are gated
// separately: a worker loses the ability to change status once the ticket has
// left open, while non-status fields stay editable on their own tickets.
func (s *TicketService) Update(ctx context.Context, actor authz.Actor, id string, patch TicketPatch) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if decision := authz.CanUpdateTicket(actor, ticket); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}
	if patch.Status != nil {
		if decision := authz.CanChangeStatus(actor, ticket); !decision.Allowed {
			return nil, errorutil.NewForbidden(decision.Reason)
		}
		if !domain.ValidTicketStatus(*patch.Status) {
			return nil, errorutil.NewValidationError("unknown status", map[string]any{"status": *patch.Status})
		}
	}
	if patch.Category != nil && !domain.ValidTicketCategory(*patch.Category) {
		return nil, errorutil.NewValidationError("unknown category", map[string]any{"category": *patch.Category})
	}
	if patch.Priority != nil && !domain.ValidTicketPriority(*patch.Priority) {
		return nil, errorutil.NewValidationError("unknown priority", map[string]any{"priority": *patch.Priority})
	}

	diffs := map[string]domain.FieldChange{}
	oldStatus := ticket.Status
	applyString(diffs, "title", &ticket.Title, patch.Title)
	applyString(diffs, "description", &ticket.Description, patch.Description)
	applyString(diffs, "subcategory", &ticket.Subcategory, patch.Subcategory)
	applyString(diffs, "machine", &ticket.Machine, patch.Machine)
	applyString(diffs, "area", &ticket.Area, patch.Area)
	if patch.Category != nil && *patch.Category != ticket.Category {
		diffs["category"] = domain.FieldChange{From: ticket.Category, To: *patch.Category}
		ticket.Category = *patch.Category
	}
	if patch.Priority != nil && *patch.Priority != ticket.Priority {
		diffs["priority"] = domain.FieldChange{From: ticket.Priority, To: *patch.Priority}
		ticket.Priority = *patch.Priority
	}
	if patch.Status != nil && *patch.Status != ticket.Status {
		diffs["status"] = domain.FieldChange{From: ticket.Status, To: *patch.Status}
		ticket.Status = *patch.Status
	}

	if len(diffs) == 0 {
		return ticket, nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, errorutil.MapError(err)
	}

	s.appendAudit(ctx, &domain.AuditEntry{
		ID:         uuid.NewString(),
		ActionType: domain.ActionUpdate,
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		ActorID:    &actor.ID,
		Changes:    domain.DiffChanges(diffs),
	})
	if ticket.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			EntityID: ticket.ID,
			ActorID:  &actor.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}
	return ticket, nil
}

// Remove deletes the ticket row and preserves a full snapshot in the audit
// log. Visibility is not checked here; deletion has its own gate.
func (s *TicketService) Remove(ctx context.Context, actor authz.Actor, id string, reason *string) error {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return errorutil.MapError(err)
	}
	if decision := authz.CanDeleteTicket(actor, ticket); !decision.Allowed {
		return errorutil.NewForbidden(decision.Reason)
	}

	now := time.Now()
	snapshot := ticketSnapshot{Ticket: *ticket}
	snapshot.IsDeleted = true
	snapshot.DeletedAt = &now
	if entries, err := s.conversations.ListByTicket(ctx, id); err == nil {
		for _, entry := range entries {
			snapshot.ConversationIDs = append(snapshot.ConversationIDs, entry.ID)
		}
	}
	if attachments, err := s.attachments.ListByTicket(ctx, id); err == nil {
		for _, attachment := range attachments {
			snapshot.AttachmentIDs = append(snapshot.AttachmentIDs, attachment.ID)
		}
	}

	changes, err := domain.SnapshotChanges(snapshot)
	if err != nil {
		return errorutil.MapError(err)
	}

	if err := s.tickets.Delete(ctx, id); err != nil {
		return errorutil.MapError(err)
	}

	s.appendAudit(ctx, &domain.AuditEntry{
		ID:         uuid.NewString(),
		ActionType: domain.ActionDelete,
		EntityType: domain.EntityTicket,
		EntityID:   id,
		ActorID:    &actor.ID,
		Changes:    changes,
		Reason:     reason,
	})
	return nil
}

// Assign sets the assignee and forces the ticket into in_progress regardless
// of its prior status.
func (s *TicketService) Assign(ctx context.Context, actor authz.Actor, ticketID, technicianID string) (*domain.Ticket, error) {
	if decision := authz.CanAssignTicket(actor); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}

	technician, err := s.users.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("technician", map[string]any{"user_id": technicianID})
		}
		return nil, errorutil.MapError(err)
	}
	if technician.Role != domain.RoleTechnician {
		return nil, errorutil.NewValidationError("assignee is not a technician", map[string]any{"user_id": technicianID})
	}
	if !technician.IsActive {
		return nil, errorutil.NewConflict("assignee inactive", map[string]any{"user_id": technicianID})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, errorutil.MapError(err)
	}

	diffs := map[string]domain.FieldChange{}
	if ticket.AssignedToID == nil || *ticket.AssignedToID != technician.ID {
		diffs["assignedToId"] = domain.FieldChange{From: ticket.AssignedToID, To: technician.ID}
	}
	if ticket.Status != domain.TicketStatusInProgress {
		diffs["status"] = domain.FieldChange{From: ticket.Status, To: domain.TicketStatusInProgress}
	}
	ticket.AssignedToID = &technician.ID
	ticket.Status = domain.TicketStatusInProgress

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, errorutil.MapError(err)
	}
	if len(diffs) > 0 {
		s.appendAudit(ctx, &domain.AuditEntry{
			ID:         uuid.NewString(),
			ActionType: domain.ActionUpdate,
			EntityType: domain.EntityTicket,
			EntityID:   ticket.ID,
			ActorID:    &actor.ID,
			Changes:    domain.DiffChanges(diffs),
		})
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		EntityID: ticket.ID,
		ActorID:  &actor.ID,
		Payload:  events.TicketAssignedPayload{AssignedToID: technician.ID},
	})
	return ticket, nil
}

// Close sets status=closed directly from any state.
func (s *TicketService) Close(ctx context.Context, actor authz.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, errorutil.MapError(err)
	}
	if decision := authz.CanCloseTicket(actor, ticket); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}
	if ticket.Status == domain.TicketStatusClosed {
		return ticket, nil
	}

	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusClosed
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, errorutil.MapError(err)
	}
	s.appendAudit(ctx, &domain.AuditEntry{
		ID:         uuid.NewString(),
		ActionType: domain.ActionUpdate,
		EntityType: domain.EntityTicket,
		EntityID:   ticket.ID,
		ActorID:    &actor.ID,
		Changes: domain.DiffChanges(map[string]domain.FieldChange{
			"status": {From: oldStatus, To: ticket.Status},
		}),
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		EntityID: ticket.ID,
		ActorID:  &actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// History lists ticket audit entries, newest first.
func (s *TicketService) History(ctx context.Context, actor authz.Actor, limit, offset int) ([]domain.AuditEntry, error) {
	if decision := authz.CanViewAuditHistory(actor, domain.EntityTicket); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}
	entries, err := s.audit.ListByEntityType(ctx, domain.EntityTicket, limit, offset)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return entries, nil
}

// AddConversation appends a thread entry under the ticket's view gate.
func (s *TicketService) AddConversation(ctx context.Context, actor authz.Actor, ticketID, body string, internal bool) (*domain.ConversationEntry, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errorutil.NewValidationError("body required", nil)
	}
	if _, err := s.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	if internal {
		if decision := authz.CanPostInternalNote(actor); !decision.Allowed {
			return nil, errorutil.NewForbidden(decision.Reason)
		}
	}

	entry := &domain.ConversationEntry{
		ID:       uuid.NewString(),
		TicketID: ticketID,
		AuthorID: actor.ID,
		Body:     strings.TrimSpace(body),
		Internal: internal,
	}
	if err := s.conversations.Create(ctx, entry); err != nil {
		return nil, errorutil.MapError(err)
	}
	return entry, nil
}

// ListConversations returns the thread; workers do not see internal notes.
func (s *TicketService) ListConversations(ctx context.Context, actor authz.Actor, ticketID string) ([]domain.ConversationEntry, error) {
	if _, err := s.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.conversations.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	if actor.Role != domain.RoleWorker {
		return entries, nil
	}
	visible := make([]domain.ConversationEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Internal {
			continue
		}
		visible = append(visible, entry)
	}
	return visible, nil
}

// AttachmentInput defines attachment metadata.
type AttachmentInput struct {
	FileName    string
	StoragePath string
	MimeType    string
	SizeBytes   int64
}

// AddAttachment records attachment metadata; bytes live in file storage.
func (s *TicketService) AddAttachment(ctx context.Context, actor authz.Actor, ticketID string, input AttachmentInput) (*domain.AttachmentReference, error) {
	if input.FileName == "" || input.StoragePath == "" {
		return nil, errorutil.NewValidationError("file_name and storage_path required", nil)
	}
	if _, err := s.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}

	attachment := &domain.AttachmentReference{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		UploaderID:  actor.ID,
		FileName:    input.FileName,
		StoragePath: input.StoragePath,
		MimeType:    input.MimeType,
		SizeBytes:   input.SizeBytes,
	}
	if err := s.attachments.Create(ctx, attachment); err != nil {
		return nil, errorutil.MapError(err)
	}
	return attachment, nil
}

// ListAttachments returns attachment metadata under the view gate.
func (s *TicketService) ListAttachments(ctx context.Context, actor authz.Actor, ticketID string) ([]domain.AttachmentReference, error) {
	if _, err := s.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return attachments, nil
}

// appendAudit writes an audit entry after a successful primary mutation.
// Failures are logged and not surfaced: the mutation already happened, but a
// missing delete entry breaks future restores, hence the error level.
func (s *TicketService) appendAudit(ctx context.Context, entry *domain.AuditEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("audit append failed",
			zap.String("entity_type", string(entry.EntityType)),
			zap.String("entity_id", entry.EntityID),
			zap.String("action", string(entry.ActionType)),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func applyString(diffs map[string]domain.FieldChange, field string, dst *string, src *string) {
	if src == nil || *src == *dst {
		return
	}
	diffs[field] = domain.FieldChange{From: *dst, To: *src}
	*dst = *src
}
