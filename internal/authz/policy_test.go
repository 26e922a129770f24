package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartmaint/maintenance-service/internal/domain"
)

func ticketOwnedBy(ownerID string) *domain.Ticket {
	return &domain.Ticket{ID: "t-1", CreatedByID: ownerID, Status: domain.TicketStatusOpen}
}

func TestCanViewTicket(t *testing.T) {
	assignee := "tech-1"
	assigned := ticketOwnedBy("worker-1")
	assigned.AssignedToID = &assignee

	cases := []struct {
		name    string
		actor   Actor
		ticket  *domain.Ticket
		allowed bool
	}{
		{"worker sees own", Actor{ID: "worker-1", Role: domain.RoleWorker}, ticketOwnedBy("worker-1"), true},
		{"worker denied other", Actor{ID: "worker-2", Role: domain.RoleWorker}, ticketOwnedBy("worker-1"), false},
		{"technician sees assigned", Actor{ID: "tech-1", Role: domain.RoleTechnician}, assigned, true},
		{"technician denied unrelated", Actor{ID: "tech-2", Role: domain.RoleTechnician}, ticketOwnedBy("worker-1"), false},
		{"admin sees all", Actor{ID: "admin-1", Role: domain.RoleAdmin}, ticketOwnedBy("worker-1"), true},
		{"superadmin sees all", Actor{ID: "root", Role: domain.RoleSuperadmin}, ticketOwnedBy("worker-1"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := CanViewTicket(tc.actor, tc.ticket)
			assert.Equal(t, tc.allowed, decision.Allowed)
			if !tc.allowed {
				assert.NotEmpty(t, decision.Reason)
			}
		})
	}
}

func TestScopeListToOwner(t *testing.T) {
	assert.True(t, ScopeListToOwner(Actor{Role: domain.RoleWorker}))
	assert.False(t, ScopeListToOwner(Actor{Role: domain.RoleTechnician}))
	assert.False(t, ScopeListToOwner(Actor{Role: domain.RoleAdmin}))
}

func TestCanChangeStatusWorkerLockedAfterOpen(t *testing.T) {
	worker := Actor{ID: "worker-1", Role: domain.RoleWorker}

	open := ticketOwnedBy("worker-1")
	assert.True(t, CanChangeStatus(worker, open).Allowed)

	inProgress := ticketOwnedBy("worker-1")
	inProgress.Status = domain.TicketStatusInProgress
	decision := CanChangeStatus(worker, inProgress)
	assert.False(t, decision.Allowed)
	assert.NotEmpty(t, decision.Reason)

	// Admins stay unconstrained on the same ticket.
	assert.True(t, CanChangeStatus(Actor{ID: "a", Role: domain.RoleAdmin}, inProgress).Allowed)
}

func TestCanDeleteTicket(t *testing.T) {
	ticket := ticketOwnedBy("worker-1")

	assert.True(t, CanDeleteTicket(Actor{ID: "worker-1", Role: domain.RoleWorker}, ticket).Allowed)
	assert.False(t, CanDeleteTicket(Actor{ID: "worker-2", Role: domain.RoleWorker}, ticket).Allowed)
	assert.False(t, CanDeleteTicket(Actor{ID: "tech-1", Role: domain.RoleTechnician}, ticket).Allowed)
	assert.True(t, CanDeleteTicket(Actor{ID: "admin-1", Role: domain.RoleAdmin}, ticket).Allowed)
}

func TestCanAssignTicket(t *testing.T) {
	assert.False(t, CanAssignTicket(Actor{Role: domain.RoleWorker}).Allowed)
	assert.True(t, CanAssignTicket(Actor{Role: domain.RoleTechnician}).Allowed)
	assert.True(t, CanAssignTicket(Actor{Role: domain.RoleAdmin}).Allowed)
}

func TestCanRestore(t *testing.T) {
	assert.False(t, CanRestore(Actor{Role: domain.RoleTechnician}, domain.EntityTicket).Allowed)
	assert.True(t, CanRestore(Actor{Role: domain.RoleAdmin}, domain.EntityTicket).Allowed)
	assert.False(t, CanRestore(Actor{Role: domain.RoleAdmin}, domain.EntityUser).Allowed)
	assert.True(t, CanRestore(Actor{Role: domain.RoleSuperadmin}, domain.EntityUser).Allowed)
}

func TestCanCreateUser(t *testing.T) {
	admin := Actor{Role: domain.RoleAdmin}
	superadmin := Actor{Role: domain.RoleSuperadmin}

	assert.False(t, CanCreateUser(Actor{Role: domain.RoleWorker}, domain.RoleWorker).Allowed)
	assert.True(t, CanCreateUser(admin, domain.RoleTechnician).Allowed)
	assert.False(t, CanCreateUser(admin, domain.RoleAdmin).Allowed)
	assert.True(t, CanCreateUser(superadmin, domain.RoleAdmin).Allowed)
	// Superadmin accounts are never created through the API.
	assert.False(t, CanCreateUser(superadmin, domain.RoleSuperadmin).Allowed)
}

func TestCanModifyUser(t *testing.T) {
	admin := Actor{Role: domain.RoleAdmin}
	superadmin := Actor{Role: domain.RoleSuperadmin}

	worker := &domain.User{ID: "u-1", Role: domain.RoleWorker}
	otherAdmin := &domain.User{ID: "u-2", Role: domain.RoleAdmin}

	assert.True(t, CanModifyUser(admin, worker).Allowed)
	assert.False(t, CanModifyUser(admin, otherAdmin).Allowed)
	assert.True(t, CanModifyUser(superadmin, otherAdmin).Allowed)
	assert.False(t, CanModifyUser(Actor{Role: domain.RoleTechnician}, worker).Allowed)
}

func TestCanPromoteToSuperadmin(t *testing.T) {
	superadmin := Actor{Role: domain.RoleSuperadmin}
	designated := &domain.User{ID: "u-1", Email: "root@example.com"}
	other := &domain.User{ID: "u-2", Email: "someone@example.com"}

	assert.True(t, CanPromoteToSuperadmin(superadmin, designated, "root@example.com").Allowed)
	assert.False(t, CanPromoteToSuperadmin(superadmin, other, "root@example.com").Allowed)
	assert.False(t, CanPromoteToSuperadmin(superadmin, designated, "").Allowed)
	assert.False(t, CanPromoteToSuperadmin(Actor{Role: domain.RoleAdmin}, designated, "root@example.com").Allowed)
}

func TestCanViewAuditHistory(t *testing.T) {
	assert.False(t, CanViewAuditHistory(Actor{Role: domain.RoleTechnician}, domain.EntityTicket).Allowed)
	assert.True(t, CanViewAuditHistory(Actor{Role: domain.RoleAdmin}, domain.EntityTicket).Allowed)
	assert.False(t, CanViewAuditHistory(Actor{Role: domain.RoleAdmin}, domain.EntityUser).Allowed)
	assert.True(t, CanViewAuditHistory(Actor{Role: domain.RoleSuperadmin}, domain.EntityUser).Allowed)
}

func TestCanPostInternalNote(t *testing.T) {
	assert.False(t, CanPostInternalNote(Actor{Role: domain.RoleWorker}).Allowed)
	assert.True(t, CanPostInternalNote(Actor{Role: domain.RoleTechnician}).Allowed)
	assert.True(t, CanPostInternalNote(Actor{Role: domain.RoleAdmin}).Allowed)
}
