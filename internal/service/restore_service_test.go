package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartmaint/maintenance-service/internal/domain"
	"github.com/smartmaint/maintenance-service/internal/events"
	"github.com/smartmaint/maintenance-service/pkg/errorutil"
)

type restoreFixture struct {
	tickets    *ticketFixture
	users      *userFixture
	svc        *RestoreService
	audit      *fakeAuditRepo
	dispatcher *recordingDispatcher
}

// newRestoreFixture shares repos across the ticket, user and restore services
// so delete snapshots written by one are visible to the other.
func newRestoreFixture() *restoreFixture {
	tickets := newTicketFixture()
	dispatcher := &recordingDispatcher{}
	users := &userFixture{
		users:      tickets.users,
		audit:      tickets.audit,
		cache:      newMapCache(),
		dispatcher: dispatcher,
	}
	users.svc = NewUserService(UserDependencies{
		UserRepo:        users.users,
		AuditRepo:       users.audit,
		Cache:           users.cache,
		Dispatcher:      dispatcher,
		Logger:          testLogger(),
		BcryptCost:      4,
		SuperadminEmail: designatedSuperadminEmail,
	})
	svc := NewRestoreService(RestoreDependencies{
		TicketRepo: tickets.tickets,
		UserRepo:   tickets.users,
		AuditRepo:  tickets.audit,
		Dispatcher: dispatcher,
		Logger:     testLogger(),
	})
	return &restoreFixture{tickets: tickets, users: users, svc: svc, audit: tickets.audit, dispatcher: dispatcher}
}

func TestRestoreTicketRoundTrip(t *testing.T) {
	fx := newRestoreFixture()
	ctx := context.Background()

	ticket, err := fx.tickets.svc.Create(ctx, worker, TicketCreateInput{
		Title:    "compressor down",
		Category: domain.TicketCategoryMechanical,
		Priority: domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	require.NoError(t, fx.tickets.svc.Remove(ctx, admin, ticket.ID, nil))

	restored, err := fx.svc.RestoreTicket(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, restored.ID)
	assert.Equal(t, "compressor down", restored.Title)
	assert.Equal(t, domain.TicketCategoryMechanical, restored.Category)
	assert.Equal(t, worker.ID, restored.CreatedByID)
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.DeletedAt)

	live, err := fx.tickets.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, live.ID)

	rollbacks := fx.audit.byAction(domain.ActionRollback)
	require.Len(t, rollbacks, 1)
	assert.True(t, rollbacks[0].Changes.RestoredFromDelete)
	assert.Len(t, fx.dispatcher.ofType(events.EventEntityRestored), 1)
}

func TestRestoreTicketIdempotent(t *testing.T) {
	fx := newRestoreFixture()
	ctx := context.Background()

	ticket, err := fx.tickets.svc.Create(ctx, worker, TicketCreateInput{Title: "twice"})
	require.NoError(t, err)
	require.NoError(t, fx.tickets.svc.Remove(ctx, admin, ticket.ID, nil))

	first, err := fx.svc.RestoreTicket(ctx, admin, ticket.ID)
	require.NoError(t, err)

	// A second restore against a live row is a no-op returning that row.
	second, err := fx.svc.RestoreTicket(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, fx.audit.byAction(domain.ActionRollback), 1)
}

func TestRestoreTicketUsesLatestDelete(t *testing.T) {
	fx := newRestoreFixture()
	ctx := context.Background()

	ticket, err := fx.tickets.svc.Create(ctx, worker, TicketCreateInput{Title: "v1"})
	require.NoError(t, err)
	require.NoError(t, fx.tickets.svc.Remove(ctx, admin, ticket.ID, nil))

	_, err = fx.svc.RestoreTicket(ctx, admin, ticket.ID)
	require.NoError(t, err)

	title := "v2"
	_, err = fx.tickets.svc.Update(ctx, admin, ticket.ID, TicketPatch{Title: &title})
	require.NoError(t, err)
	require.NoError(t, fx.tickets.svc.Remove(ctx, admin, ticket.ID, nil))

	restored, err := fx.svc.RestoreTicket(ctx, admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", restored.Title)
}

func TestRestoreTicketWithoutSnapshotNotFound(t *testing.T) {
	fx := newRestoreFixture()

	_, err := fx.svc.RestoreTicket(context.Background(), admin, "never-existed")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeNotFound))
}

func TestRestoreTicketForbiddenBelowAdmin(t *testing.T) {
	fx := newRestoreFixture()

	_, err := fx.svc.RestoreTicket(context.Background(), technician, "t-1")
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))
}

func TestRestoreUserRoundTrip(t *testing.T) {
	fx := newRestoreFixture()
	ctx := context.Background()

	user, err := fx.users.svc.Create(ctx, admin, UserCreateInput{
		Username: "ghost", Email: "ghost@example.com", Password: "pw", Role: domain.RoleTechnician,
	})
	require.NoError(t, err)
	require.NoError(t, fx.users.svc.Remove(ctx, admin, user.ID, nil))

	// Only the superadmin restores accounts.
	_, err = fx.svc.RestoreUser(ctx, admin, user.ID)
	assert.True(t, errorutil.IsCode(err, errorutil.CodeForbidden))

	restored, err := fx.svc.RestoreUser(ctx, superadmin, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, restored.ID)
	assert.Equal(t, "ghost@example.com", restored.Email)
	assert.Equal(t, domain.RoleTechnician, restored.Role)
	// Snapshots carry no credential material.
	assert.Empty(t, restored.PasswordHash)
}
