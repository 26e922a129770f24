// Package authz holds the pure authorization policy: side-effect-free
// decision functions mapping an actor and a target to allow or deny with a
// human-readable reason. No I/O happens here; callers translate denials into
// Forbidden errors.
package authz

import (
	"github.com/smartmaint/maintenance-service/internal/domain"
)

// Actor is the authenticated identity performing a request.
type Actor struct {
	ID   string
	Role domain.Role
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// CanViewTicket gates single-ticket visibility. Workers see only tickets they
// created; technicians additionally see tickets assigned to them; admins and
// superadmins see everything.
func CanViewTicket(actor Actor, ticket *domain.Ticket) Decision {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSuperadmin:
		return allow()
	case domain.RoleTechnician:
		if ticket.CreatedByID == actor.ID {
			return allow()
		}
		if ticket.AssignedToID != nil && *ticket.AssignedToID == actor.ID {
			return allow()
		}
		return deny("technicians may only view tickets they created or are assigned to")
	case domain.RoleWorker:
		if ticket.CreatedByID == actor.ID {
			return allow()
		}
		return deny("workers may only view their own tickets")
	}
	return deny("unknown role")
}

// ScopeListToOwner reports whether ticket listings must be restricted to the
// actor's own tickets. Only workers are scoped; technicians and admins list
// all tickets.
func ScopeListToOwner(actor Actor) bool {
	return actor.Role == domain.RoleWorker
}

// CanUpdateTicket gates non-status field updates. Workers may update only
// their own tickets; technicians theirs or assigned; admins any.
func CanUpdateTicket(actor Actor, ticket *domain.Ticket) Decision {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSuperadmin:
		return allow()
	case domain.RoleTechnician:
		if ticket.CreatedByID == actor.ID {
			return allow()
		}
		if ticket.AssignedToID != nil && *ticket.AssignedToID == actor.ID {
			return allow()
		}
		return deny("technicians may only update tickets they created or are assigned to")
	case domain.RoleWorker:
		if ticket.CreatedByID == actor.ID {
			return allow()
		}
		return deny("workers may only update their own tickets")
	}
	return deny("unknown role")
}

// CanChangeStatus gates status mutation on top of CanUpdateTicket. A worker
// may change status only while the ticket is still open; a technician only
// when they are the assignee or the creator. Admins are unconstrained.
func CanChangeStatus(actor Actor, ticket *domain.Ticket) Decision {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSuperadmin:
		return allow()
	case domain.RoleTechnician:
		if ticket.CreatedByID == actor.ID {
			return allow()
		}
		if ticket.AssignedToID != nil && *ticket.AssignedToID == actor.ID {
			return allow()
		}
		return deny("technicians may only change status on tickets they created or are assigned to")
	case domain.RoleWorker:
		if ticket.CreatedByID != actor.ID {
			return deny("workers may only change status on their own tickets")
		}
		if ticket.Status != domain.TicketStatusOpen {
			return deny("workers may only change status while the ticket is open")
		}
		return allow()
	}
	return deny("unknown role")
}

// CanDeleteTicket gates deletion. Admins may delete any ticket, workers only
// their own, technicians never.
func CanDeleteTicket(actor Actor, ticket *domain.Ticket) Decision {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSuperadmin:
		return allow()
	case domain.RoleWorker:
		if ticket.CreatedByID == actor.ID {
			return allow()
		}
		return deny("workers may only delete their own tickets")
	case domain.RoleTechnician:
		return deny("technicians may not delete tickets")
	}
	return deny("unknown role")
}

// CanAssignTicket gates assignment to a technician.
func CanAssignTicket(actor Actor) Decision {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSuperadmin, domain.RoleTechnician:
		return allow()
	}
	return deny("only technicians and administrators may assign tickets")
}

// CanCloseTicket gates the explicit close action: admins always, technicians
// only when they are the assignee or the creator.
func CanCloseTicket(actor Actor, ticket *domain.Ticket) Decision {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSuperadmin:
		return allow()
	case domain.RoleTechnician:
		if ticket.CreatedByID == actor.ID {
			return allow()
		}
		if ticket.AssignedToID != nil && *ticket.AssignedToID == actor.ID {
			return allow()
		}
		return deny("technicians may only close tickets they created or are assigned to")
	}
	return deny("only technicians and administrators may close tickets")
}

// CanRestore gates snapshot restores: tickets need admin or above, users need
// superadmin.
func CanRestore(actor Actor, entity domain.EntityType) Decision {
	switch entity {
	case domain.EntityTicket:
		if actor.Role.IsAdministrative() {
			return allow()
		}
		return deny("only administrators may restore tickets")
	case domain.EntityUser:
		if actor.Role == domain.RoleSuperadmin {
			return allow()
		}
		return deny("only the superadmin may restore users")
	}
	return deny("unknown entity type")
}

// CanCreateUser gates account creation. Creating a superadmin is always
// denied; an admin may not create another admin.
func CanCreateUser(actor Actor, newRole domain.Role) Decision {
	if !actor.Role.IsAdministrative() {
		return deny("only administrators may create users")
	}
	if newRole == domain.RoleSuperadmin {
		return deny("creating a superadmin account is not permitted")
	}
	if actor.Role == domain.RoleAdmin && newRole == domain.RoleAdmin {
		return deny("admins may not create other admin accounts")
	}
	return allow()
}

// CanModifyUser gates updates and deletes against a target account. An admin
// may not touch admin or superadmin accounts.
func CanModifyUser(actor Actor, target *domain.User) Decision {
	switch actor.Role {
	case domain.RoleSuperadmin:
		return allow()
	case domain.RoleAdmin:
		if target.Role.IsAdministrative() {
			return deny("admins may not modify admin or superadmin accounts")
		}
		return allow()
	}
	return deny("only administrators may modify users")
}

// CanPromoteToSuperadmin gates role promotion to superadmin: only the
// superadmin may perform it, and only for the designated address.
func CanPromoteToSuperadmin(actor Actor, target *domain.User, designatedEmail string) Decision {
	if actor.Role != domain.RoleSuperadmin {
		return deny("only the superadmin may promote to superadmin")
	}
	if designatedEmail == "" || target.Email != designatedEmail {
		return deny("superadmin role is reserved for the designated address")
	}
	return allow()
}

// CanViewUser gates single-user reads: administrators, or the account itself.
func CanViewUser(actor Actor, targetID string) Decision {
	if actor.Role.IsAdministrative() {
		return allow()
	}
	if actor.ID == targetID {
		return allow()
	}
	return deny("only administrators may view other accounts")
}

// CanViewAuditHistory gates audit-trail listings per entity type.
func CanViewAuditHistory(actor Actor, entity domain.EntityType) Decision {
	switch entity {
	case domain.EntityTicket:
		if actor.Role.IsAdministrative() {
			return allow()
		}
		return deny("only administrators may view ticket history")
	case domain.EntityUser:
		if actor.Role == domain.RoleSuperadmin {
			return allow()
		}
		return deny("only the superadmin may view user history")
	}
	return deny("unknown entity type")
}

// CanPostInternalNote gates internal conversation entries.
func CanPostInternalNote(actor Actor) Decision {
	if actor.Role == domain.RoleWorker {
		return deny("workers may not post internal notes")
	}
	return allow()
}
