package domain

import (
	"strings"
	"time"
)

// Role is the application role carried by a credential and its tokens.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// DefaultRole is assigned when registration omits a role.
const DefaultRole = RoleClient

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// ParseRole maps raw input to a Role. Empty input yields DefaultRole.
func ParseRole(raw string) (Role, bool) {
	if raw == "" {
		return DefaultRole, true
	}
	role := Role(raw)
	return role, role.Valid()
}

// Credential is the registration input handed to the data layer. Password
// stays raw; hashing belongs to the store.
type Credential struct {
	Email    string
	Password string
	Name     string
	Role     Role
}

// User is the stored account as read back from the data layer. It never
// carries the password secret.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
