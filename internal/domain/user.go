package domain

import "time"

// Role enumerates the access levels an account can hold.
type Role string

const (
	RoleWorker     Role = "worker"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleWorker, RoleTechnician, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// IsAdministrative reports whether r carries admin-level access.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// User is the domain model for every account: workers who file tickets,
// technicians who resolve them, and administrators.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FullName     string
	PhoneNumber  string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized returns a copy with credential material removed.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
