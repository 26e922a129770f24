package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/smartmaint/maintenance-service/internal/domain"
	"github.com/smartmaint/maintenance-service/internal/events"
	"github.com/smartmaint/maintenance-service/internal/repository"
)

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeUserRepo) ListTechnicians(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0)
	for _, user := range r.users {
		if user.Role == domain.RoleTechnician && user.IsActive {
			out = append(out, user)
		}
	}
	return out, nil
}

type fakeTicketRepo struct {
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	out := make([]domain.Ticket, 0)
	for _, ticket := range r.tickets {
		if filter.CreatedByID != nil && ticket.CreatedByID != *filter.CreatedByID {
			continue
		}
		if filter.AssignedToID != nil {
			if ticket.AssignedToID == nil || *ticket.AssignedToID != *filter.AssignedToID {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type fakeAuditRepo struct {
	entries []domain.AuditEntry
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Append(_ context.Context, entry *domain.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) LatestDelete(_ context.Context, entityType domain.EntityType, entityID string) (*domain.AuditEntry, error) {
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if entry.ActionType == domain.ActionDelete && entry.EntityType == entityType && entry.EntityID == entityID {
			return &entry, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAuditRepo) ListByEntityType(_ context.Context, entityType domain.EntityType, limit, offset int) ([]domain.AuditEntry, error) {
	out := make([]domain.AuditEntry, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].EntityType == entityType {
			out = append(out, r.entries[i])
		}
	}
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAuditRepo) ListByEntity(_ context.Context, entityType domain.EntityType, entityID string) ([]domain.AuditEntry, error) {
	out := make([]domain.AuditEntry, 0)
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].EntityType == entityType && r.entries[i].EntityID == entityID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) byAction(action domain.ActionType) []domain.AuditEntry {
	out := make([]domain.AuditEntry, 0)
	for _, entry := range r.entries {
		if entry.ActionType == action {
			out = append(out, entry)
		}
	}
	return out
}

type fakeConversationRepo struct {
	entries []domain.ConversationEntry
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{}
}

func (r *fakeConversationRepo) Create(_ context.Context, entry *domain.ConversationEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeConversationRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ConversationEntry, error) {
	out := make([]domain.ConversationEntry, 0)
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeAttachmentRepo struct {
	attachments []domain.AttachmentReference
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{}
}

func (r *fakeAttachmentRepo) Create(_ context.Context, attachment *domain.AttachmentReference) error {
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = time.Now()
	}
	r.attachments = append(r.attachments, *attachment)
	return nil
}

func (r *fakeAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.AttachmentReference, error) {
	out := make([]domain.AttachmentReference, 0)
	for _, attachment := range r.attachments {
		if attachment.TicketID == ticketID {
			out = append(out, attachment)
		}
	}
	return out, nil
}

type mapCache struct {
	values map[string]string
	dels   int
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string]string{}}
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	return c.values[key], nil
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *mapCache) Del(_ context.Context, key string) error {
	delete(c.values, key)
	c.dels++
	return nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(eventType events.EventType) []events.Event {
	out := make([]events.Event, 0)
	for _, event := range d.published {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
