package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmaint/maintenance-service/internal/authz"
	"github.com/smartmaint/maintenance-service/internal/domain"
	"github.com/smartmaint/maintenance-service/internal/events"
	"github.com/smartmaint/maintenance-service/pkg/errorutil"
)

type ticketFixture struct {
	svc        *TicketService
	tickets    *fakeTicketRepo
	users      *fakeUserRepo
	audit      *fakeAuditRepo
	dispatcher *recordingDispatcher
}

func newTicketFixture() *ticketFixture {
	tickets := newFakeTicketRepo()
	users := newFakeUserRepo()
	audit := newFakeAuditRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:       tickets,
		UserRepo:         users,
		ConversationRepo: newFakeConversationRepo(),
		AttachmentRepo:   newFakeAttachmentRepo(),
		AuditRepo:        audit,
		Dispatcher:       dispatcher,
		Logger:           testLogger(),
	})
	return &ticketFixture{svc: svc, tickets: tickets, users: users, audit: audit, dispatcher: dispatcher}
}

var (
	worker     = authz.Actor{ID: "worker-1", Role: domain.RoleWorker}
	technician = authz.Actor{ID: "tech-1", Role: domain.RoleTechnician}
	admin      = authz.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func TestTicketCreateDefaultsAndAudit(t *testing.T) {
	fx := newTicketFixture()

	ticket, err := fx.svc.Create(context.Background(), worker, TicketCreateInput{Title: "pump leaking"})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketCategoryOther, ticket.Category)
	assert.Equal(t, domain.TicketSourceWeb, ticket.Source)
	assert.Equal(t, worker.ID, ticket.CreatedByID)

	creates := fx.audit.byAction(domain.ActionCreate)
	require.Len(t, creates, 1)
	assert.Equal(t, ticket.ID, creates[0].EntityID)
	assert.Nil(t, creates[0].Changes.FieldDiffs["status"].From)
	assert.Len(t, fx.dispatcher.ofType(events.EventTicketCreated), 1)
}

func TestTicketCreateRejectsUnknownValues(t *testing.T) {
	fx := newTicketFixture()

	_, err := fx.svc.Create(context.Background(), worker, TicketCreateInput{Title: " "})
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	bad := domain.TicketCategory("gardening")
	_, err = fx.svc.Create(context.Background(), worker, TicketCreateInput{Title: "x", Category: bad})
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))
}

func TestTicketListScopesWorkersToOwn(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	mine, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "mine"})
	require.NoError(t, err)
	_, err = fx.svc.Create(ctx, authz.Actor{ID: "worker-2", Role: domain.RoleWorker}, TicketCreateInput{Title: "theirs"})
	require.NoError(t, err)

	listed, err := fx.svc.List(ctx, worker, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mine.ID, listed[0].ID)

	all, err := fx.svc.List(ctx, admin, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTicketGetVisibility(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "mine"})
	require.NoError(t, err)

	_, err = fx.svc.Get(ctx, authz.Actor{ID: "worker-2", Role: domain.RoleWorker}, ticket.ID)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))

	_, err = fx.svc.Get(ctx, worker, "missing")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeNotFound))
}

func TestTicketUpdateWorkerStatusLockedAfterOpen(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "broken belt"})
	require.NoError(t, err)

	// While open the creator may move the status.
	solved := domain.TicketStatusSolved
	updated, err := fx.svc.Update(ctx, worker, ticket.ID, TicketPatch{Status: &solved})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusSolved, updated.Status)

	// After leaving open, further status changes by the worker are denied but
	// other fields stay editable.
	open := domain.TicketStatusOpen
	_, err = fx.svc.Update(ctx, worker, ticket.ID, TicketPatch{Status: &open})
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))

	title := "broken belt (line 2)"
	updated, err = fx.svc.Update(ctx, worker, ticket.ID, TicketPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
}

func TestTicketUpdateRecordsFieldDiffs(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "old title"})
	require.NoError(t, err)

	title := "new title"
	high := domain.TicketPriorityHigh
	_, err = fx.svc.Update(ctx, admin, ticket.ID, TicketPatch{Title: &title, Priority: &high})
	require.NoError(t, err)

	updates := fx.audit.byAction(domain.ActionUpdate)
	require.Len(t, updates, 1)
	diffs := updates[0].Changes.FieldDiffs
	assert.Equal(t, "old title", diffs["title"].From)
	assert.Equal(t, "new title", diffs["title"].To)
	assert.Contains(t, diffs, "priority")
}

func TestTicketUpdateNoopSkipsAudit(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "same"})
	require.NoError(t, err)

	same := "same"
	_, err = fx.svc.Update(ctx, worker, ticket.ID, TicketPatch{Title: &same})
	require.NoError(t, err)
	assert.Empty(t, fx.audit.byAction(domain.ActionUpdate))
}

func TestTicketRemoveWritesSnapshot(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "disposable"})
	require.NoError(t, err)

	reason := "duplicate"
	require.NoError(t, fx.svc.Remove(ctx, worker, ticket.ID, &reason))

	_, err = fx.tickets.GetByID(ctx, ticket.ID)
	assert.Error(t, err)

	deletes := fx.audit.byAction(domain.ActionDelete)
	require.Len(t, deletes, 1)
	require.Equal(t, &reason, deletes[0].Reason)

	var snapshot domain.Ticket
	require.NoError(t, deletes[0].Changes.Snapshot(&snapshot))
	assert.Equal(t, ticket.ID, snapshot.ID)
	assert.Equal(t, "disposable", snapshot.Title)
	assert.True(t, snapshot.IsDeleted)
	require.NotNil(t, snapshot.DeletedAt)
}

func TestTicketRemoveDeniedForTechnician(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "keep"})
	require.NoError(t, err)

	err = fx.svc.Remove(ctx, technician, ticket.ID, nil)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))
}

func TestTicketAssignForcesInProgress(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	require.NoError(t, fx.users.Create(ctx, &domain.User{
		ID: "tech-9", Username: "tech9", Email: "tech9@example.com",
		Role: domain.RoleTechnician, IsActive: true,
	}))
	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "assign me"})
	require.NoError(t, err)

	assigned, err := fx.svc.Assign(ctx, admin, ticket.ID, "tech-9")
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedToID)
	assert.Equal(t, "tech-9", *assigned.AssignedToID)
	assert.Equal(t, domain.TicketStatusInProgress, assigned.Status)
	assert.Len(t, fx.dispatcher.ofType(events.EventTicketAssigned), 1)
}

func TestTicketAssignValidatesAssignee(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	require.NoError(t, fx.users.Create(ctx, &domain.User{
		ID: "worker-5", Role: domain.RoleWorker, IsActive: true,
	}))
	require.NoError(t, fx.users.Create(ctx, &domain.User{
		ID: "tech-off", Role: domain.RoleTechnician, IsActive: false,
	}))
	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "t"})
	require.NoError(t, err)

	_, err = fx.svc.Assign(ctx, admin, ticket.ID, "worker-5")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeValidation))

	_, err = fx.svc.Assign(ctx, admin, ticket.ID, "tech-off")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeConflict))

	_, err = fx.svc.Assign(ctx, worker, ticket.ID, "tech-off")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))
}

func TestTicketCloseIsIdempotent(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "wrap up"})
	require.NoError(t, err)

	closed, err := fx.svc.Close(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)

	again, err := fx.svc.Close(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, again.Status)
	// Only the first close produces an audit entry.
	assert.Len(t, fx.audit.byAction(domain.ActionUpdate), 1)
}

func TestConversationInternalNotesHiddenFromWorkers(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	ticket, err := fx.svc.Create(ctx, worker, TicketCreateInput{Title: "noisy motor"})
	require.NoError(t, err)

	_, err = fx.svc.AddConversation(ctx, worker, ticket.ID, "it rattles at startup", false)
	require.NoError(t, err)
	_, err = fx.svc.AddConversation(ctx, admin, ticket.ID, "vendor warranty expired", true)
	require.NoError(t, err)

	// Workers may not author internal notes.
	_, err = fx.svc.AddConversation(ctx, worker, ticket.ID, "secret", true)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))

	visible, err := fx.svc.ListConversations(ctx, worker, ticket.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.False(t, visible[0].Internal)

	all, err := fx.svc.ListConversations(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTicketHistoryRequiresAdmin(t *testing.T) {
	fx := newTicketFixture()
	ctx := context.Background()

	_, err := fx.svc.History(ctx, worker, 10, 0)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))

	_, err = fx.svc.Create(ctx, worker, TicketCreateInput{Title: "h"})
	require.NoError(t, err)

	entries, err := fx.svc.History(ctx, admin, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
