package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/smartmaint/maintenance-service/internal/auth"
	"github.com/smartmaint/maintenance-service/internal/authz"
	"github.com/smartmaint/maintenance-service/internal/domain"
	"github.com/smartmaint/maintenance-service/internal/events"
	"github.com/smartmaint/maintenance-service/internal/repository"
	"github.com/smartmaint/maintenance-service/pkg/errorutil"
)

const technicianCacheKey = "users:technicians"
const technicianCacheTTL = time.Minute

// TechnicianCache is the cache surface the user directory needs; the Redis
// client satisfies it directly via a thin adapter, tests use a map.
type TechnicianCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// UserService manages the account directory.
type UserService struct {
	users      repository.UserRepository
	audit      repository.AuditRepository
	cache      TechnicianCache
	dispatcher events.Dispatcher
	logger     *zap.Logger

	bcryptCost      int
	superadminEmail string
}

// UserDependencies bundles requirements for UserService.
type UserDependencies struct {
	UserRepo        repository.UserRepository
	AuditRepo       repository.AuditRepository
	Cache           TechnicianCache
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	BcryptCost      int
	SuperadminEmail string
}

// UserCreateInput describes account creation payload.
type UserCreateInput struct {
	Username    string
	Email       string
	Password    string
	Role        domain.Role
	FullName    string
	PhoneNumber string
}

// UserPatch enumerates the mutable user fields; nil fields are left
// untouched.
type UserPatch struct {
	Username    *string
	FullName    *string
	PhoneNumber *string
	IsActive    *bool
	Role        *domain.Role
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:           deps.UserRepo,
		audit:           deps.AuditRepo,
		cache:           deps.Cache,
		dispatcher:      deps.Dispatcher,
		logger:          deps.Logger,
		bcryptCost:      deps.BcryptCost,
		superadminEmail: deps.SuperadminEmail,
	}
}

// Create inserts a new account. Email and username must be unique among live
// rows; violations surface as Conflict, never as a second row.
func (s *UserService) Create(ctx context.Context, actor authz.Actor, input UserCreateInput) (*domain.User, error) {
	if decision := authz.CanCreateUser(actor, input.Role); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}
	if !domain.ValidRole(input.Role) {
		return nil, errorutil.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	if input.Email == "" || input.Username == "" || input.Password == "" {
		return nil, errorutil.NewValidationError("username, email, password required", nil)
	}

	if err := s.checkUnique(ctx, input.Email, input.Username, ""); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, errorutil.MapError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		FullName:     input.FullName,
		PhoneNumber:  input.PhoneNumber,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, errorutil.MapError(err)
	}

	s.appendAudit(ctx, &domain.AuditEntry{
		ID:         uuid.NewString(),
		ActionType: domain.ActionCreate,
		EntityType: domain.EntityUser,
		EntityID:   user.ID,
		ActorID:    &actor.ID,
		Changes: domain.DiffChanges(map[string]domain.FieldChange{
			"email":    {From: nil, To: user.Email},
			"role":     {From: nil, To: user.Role},
			"isActive": {From: nil, To: user.IsActive},
		}),
	})
	s.invalidateTechnicianCache(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventUserCreated,
		EntityID: user.ID,
		ActorID:  &actor.ID,
		Payload: events.UserCreatedPayload{
			Email:             user.Email,
			FullName:          user.FullName,
			Role:              user.Role,
			PlaintextPassword: input.Password,
		},
	})
	return user, nil
}

// List returns all live accounts, newest first, credential material excluded.
func (s *UserService) List(ctx context.Context, actor authz.Actor) ([]domain.User, error) {
	if !actor.Role.IsAdministrative() {
		return nil, errorutil.NewForbidden("only administrators may list users")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// Get fetches one account: administrators, or the account itself.
func (s *UserService) Get(ctx context.Context, actor authz.Actor, id string) (*domain.User, error) {
	if decision := authz.CanViewUser(actor, id); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, errorutil.MapError(err)
	}
	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Update merges patch fields and records a field-diff audit entry when at
// least one tracked field (username, fullName, isActive, role) changed.
func (s *UserService) Update(ctx context.Context, actor authz.Actor, id string, patch UserPatch) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, errorutil.MapError(err)
	}
	if decision := authz.CanModifyUser(actor, user); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}
	if patch.Role != nil {
		if !domain.ValidRole(*patch.Role) {
			return nil, errorutil.NewValidationError("unknown role", map[string]any{"role": *patch.Role})
		}
		if *patch.Role == domain.RoleSuperadmin {
			if decision := authz.CanPromoteToSuperadmin(actor, user, s.superadminEmail); !decision.Allowed {
				return nil, errorutil.NewForbidden(decision.Reason)
			}
		} else if *patch.Role == domain.RoleAdmin && actor.Role != domain.RoleSuperadmin {
			return nil, errorutil.NewForbidden("only the superadmin may promote to admin")
		}
	}
	if patch.Username != nil && *patch.Username != user.Username {
		if err := s.checkUnique(ctx, "", *patch.Username, user.ID); err != nil {
			return nil, err
		}
	}

	diffs := map[string]domain.FieldChange{}
	if patch.Username != nil && *patch.Username != user.Username {
		diffs["username"] = domain.FieldChange{From: user.Username, To: *patch.Username}
		user.Username = *patch.Username
	}
	if patch.FullName != nil && *patch.FullName != user.FullName {
		diffs["fullName"] = domain.FieldChange{From: user.FullName, To: *patch.FullName}
		user.FullName = *patch.FullName
	}
	if patch.IsActive != nil && *patch.IsActive != user.IsActive {
		diffs["isActive"] = domain.FieldChange{From: user.IsActive, To: *patch.IsActive}
		user.IsActive = *patch.IsActive
	}
	if patch.Role != nil && *patch.Role != user.Role {
		diffs["role"] = domain.FieldChange{From: user.Role, To: *patch.Role}
		user.Role = *patch.Role
	}
	// Phone number is mutable but not audit-tracked.
	if patch.PhoneNumber != nil && *patch.PhoneNumber != user.PhoneNumber {
		user.PhoneNumber = *patch.PhoneNumber
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, errorutil.MapError(err)
	}
	if len(diffs) > 0 {
		s.appendAudit(ctx, &domain.AuditEntry{
			ID:         uuid.NewString(),
			ActionType: domain.ActionUpdate,
			EntityType: domain.EntityUser,
			EntityID:   user.ID,
			ActorID:    &actor.ID,
			Changes:    domain.DiffChanges(diffs),
		})
	}
	s.invalidateTechnicianCache(ctx)
	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Remove deletes the account row and preserves a snapshot in the audit log.
// The password hash is stripped from the snapshot; a restored account comes
// back without credentials.
func (s *UserService) Remove(ctx context.Context, actor authz.Actor, id string, reason *string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewNotFound("user", map[string]any{"user_id": id})
		}
		return errorutil.MapError(err)
	}
	if decision := authz.CanModifyUser(actor, user); !decision.Allowed {
		return errorutil.NewForbidden(decision.Reason)
	}

	changes, err := domain.SnapshotChanges(user.Sanitized())
	if err != nil {
		return errorutil.MapError(err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return errorutil.MapError(err)
	}

	s.appendAudit(ctx, &domain.AuditEntry{
		ID:         uuid.NewString(),
		ActionType: domain.ActionDelete,
		EntityType: domain.EntityUser,
		EntityID:   id,
		ActorID:    &actor.ID,
		Changes:    changes,
		Reason:     reason,
	})
	s.invalidateTechnicianCache(ctx)
	return nil
}

// Technicians returns active technicians, served from cache when possible.
func (s *UserService) Technicians(ctx context.Context) ([]domain.User, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, technicianCacheKey); err == nil && cached != "" {
			var technicians []domain.User
			if err := json.Unmarshal([]byte(cached), &technicians); err == nil {
				return technicians, nil
			}
		}
	}

	technicians, err := s.users.ListTechnicians(ctx)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	for i := range technicians {
		technicians[i] = technicians[i].Sanitized()
	}

	if s.cache != nil {
		if raw, err := json.Marshal(technicians); err == nil {
			if err := s.cache.Set(ctx, technicianCacheKey, string(raw), technicianCacheTTL); err != nil {
				s.logger.Warn("technician cache set failed", zap.Error(err))
			}
		}
	}
	return technicians, nil
}

// History lists the audit trail for one account.
func (s *UserService) History(ctx context.Context, actor authz.Actor, id string) ([]domain.AuditEntry, error) {
	if decision := authz.CanViewAuditHistory(actor, domain.EntityUser); !decision.Allowed {
		return nil, errorutil.NewForbidden(decision.Reason)
	}
	entries, err := s.audit.ListByEntity(ctx, domain.EntityUser, id)
	if err != nil {
		return nil, errorutil.MapError(err)
	}
	return entries, nil
}

func (s *UserService) checkUnique(ctx context.Context, email, username, selfID string) error {
	if email != "" {
		existing, err := s.users.GetByEmail(ctx, email)
		if err == nil && existing.ID != selfID {
			return errorutil.NewConflict("email already in use", map[string]any{"email": email})
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return errorutil.MapError(err)
		}
	}
	if username != "" {
		existing, err := s.users.GetByUsername(ctx, username)
		if err == nil && existing.ID != selfID {
			return errorutil.NewConflict("username already in use", map[string]any{"username": username})
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return errorutil.MapError(err)
		}
	}
	return nil
}

func (s *UserService) appendAudit(ctx context.Context, entry *domain.AuditEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("audit append failed",
			zap.String("entity_type", string(entry.EntityType)),
			zap.String("entity_id", entry.EntityID),
			zap.String("action", string(entry.ActionType)),
			zap.Error(err))
	}
}

func (s *UserService) invalidateTechnicianCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, technicianCacheKey); err != nil {
		s.logger.Warn("technician cache invalidation failed", zap.Error(err))
	}
}

func (s *UserService) publishEvent(ctx context.Context, event events.Event) {
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
