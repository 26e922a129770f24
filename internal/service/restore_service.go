package service

import (
	"context"
	"errors"
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

// RestoreService reconstructs deleted entities from their delete-time audit
// snapshots. Recovery is at-most-one-snapshot: an entity deleted twice comes
// back in its latest pre-deletion state; audit history is never merged.
type RestoreService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RestoreDependencies bundles repositories for the restore engine.
type RestoreDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	AuditRepo  repository.AuditRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewRestoreService constructs the service.
func NewRestoreService(deps RestoreDependencies) *RestoreService {
	return &RestoreService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// RestoreTicket re-inserts a deleted ticket under its original id. If a live
// row already exists the call is an idempotent no-op returning that row.
func (s *RestoreService) RestoreTicket(ctx context.Context, actor authz.Actor, id string) (*domain.Ticket, error) {
	if decision := authz.CanRestore(actor, domain.EntityTicket); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}

	live, err := s.tickets.GetByID(ctx, id)
	if err == nil {
		return live, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errorutil.MapError(err)
	}

	entry, err := s.latestSnapshot(ctx, domain.EntityTicket, id)
	if err != nil {
		return nil, err
	}

	var snapshot ticketSnapshot
	if err := entry.Changes.Snapshot(&snapshot); err != nil {
		return nil, errorutil.NewNotFound("restore information", map[string]any{"ticket_id": id})
	}

	ticket := snapshot.Ticket
	ticket.IsDeleted = false
	ticket.DeletedAt = nil
	if err := s.tickets.Create(ctx, &ticket); err != nil {
		return nil, errorutil.MapError(err)
	}

	s.appendRollback(ctx, actor, domain.EntityTicket, id)
	s.publishRestored(ctx, actor, domain.EntityTicket, id)
	return &ticket, nil
}

// RestoreUser re-inserts a deleted account under its original id. Snapshots
// carry no credential material, so the restored account has an empty password
// hash and must go through a password change before it can log in.
func (s *RestoreService) RestoreUser(ctx context.Context, actor authz.Actor, id string) (*domain.User, error) {
	if decision := authz.CanRestore(actor, domain.EntityUser); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}

	live, err := s.users.GetByID(ctx, id)
	if err == nil {
		sanitized := live.Sanitized()
		return &sanitized, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errorutil.MapError(err)
	}

	entry, err := s.latestSnapshot(ctx, domain.EntityUser, id)
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := entry.Changes.Snapshot(&user); err != nil {
		return nil, errorutil.NewNotFound("restore information", map[string]any{"user_id": id})
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return nil, errorutil.MapError(err)
	}

	s.appendRollback(ctx, actor, domain.EntityUser, id)
	s.publishRestored(ctx, actor, domain.EntityUser, id)
	sanitized := user.Sanitized()
	return &sanitized, nil
}

// latestSnapshot finds the most recent delete entry carrying a snapshot.
func (s *RestoreService) latestSnapshot(ctx context.Context, entityType domain.EntityType, id string) (*domain.AuditEntry, error) {
	entry, err := s.audit.LatestDelete(ctx, entityType, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("restore information", map[string]any{"entity_id": id})
		}
		return nil, errorutil.MapError(err)
	}
	if len(entry.Changes.DeletedSnapshot) == 0 {
		return nil, errorutil.NewNotFound("restore information", map[string]any{"entity_id": id})
	}
	return entry, nil
}

func (s *RestoreService) appendRollback(ctx context.Context, actor authz.Actor, entityType domain.EntityType, id string) {
	entry := &domain.AuditEntry{
		ID:         uuid.NewString(),
		ActionType: domain.ActionRollback,
		EntityType: entityType,
		EntityID:   id,
		ActorID:    &actor.ID,
		Changes:    domain.RestoreChanges(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("audit append failed",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", id),
			zap.String("action", string(domain.ActionRollback)),
			zap.Error(err))
	}
}

func (s *RestoreService) publishRestored(ctx context.Context, actor authz.Actor, entityType domain.EntityType, id string) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventEntityRestored,
		EntityID:  id,
		ActorID:   &actor.ID,
		Timestamp: time.Now(),
		Payload:   events.EntityRestoredPayload{EntityType: entityType},
	})
}
