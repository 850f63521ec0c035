package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles. The string value is what gets
// persisted.
type Role string

const (
	RolePublic  Role = "usuario"
	RoleRevisor Role = "revisor"
	RoleAdmin   Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RolePublic, RoleRevisor, RoleAdmin}

// ParseRole accepts the persisted value of a role, case-insensitively.
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RolePublic, RoleRevisor, RoleAdmin:
		return true
	}
	return false
}

// Label returns the Spanish display name.
func (r Role) Label() string {
	switch r {
	case RolePublic:
		return "Usuario Público"
	case RoleRevisor:
		return "Revisor"
	case RoleAdmin:
		return "Administrador"
	}
	return string(r)
}

// Value refuses to persist a role outside the closed set.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %q", string(r))
	}
	return string(r), nil
}

// Capability is a permission checked by the access guard and re-checked by
// the services on the actor they receive.
type Capability int

const (
	CapAuthenticated Capability = iota
	CapManageComplaints
	CapManageUsers
)

func (c Capability) String() string {
	switch c {
	case CapAuthenticated:
		return "authenticated"
	case CapManageComplaints:
		return "manage_complaints"
	case CapManageUsers:
		return "manage_users"
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	switch c {
	case CapAuthenticated:
		return r.Valid()
	case CapManageComplaints:
		return r == RoleRevisor || r == RoleAdmin
	case CapManageUsers:
		return r == RoleAdmin
	}
	return false
}

// Account is a registered person. Role and Active are only changed by an
// admin; Username and Email are unique.
type Account struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	FirstName    string     `gorm:"size:150" json:"first_name"`
	LastName     string     `gorm:"size:150" json:"last_name"`
	Phone        *string    `gorm:"size:20" json:"telefono,omitempty"`
	Role         Role       `gorm:"size:20;not null;index" json:"rol"`
	Active       bool       `gorm:"not null" json:"activo"`
	CreatedAt    time.Time  `json:"date_joined"`
	LastLoginAt  *time.Time `json:"last_login,omitempty"`
}

func (Account) TableName() string { return "usuarios" }

// Can is shorthand for a.Role.Can(c) that also requires an active account.
func (a *Account) Can(c Capability) bool {
	return a != nil && a.Active && a.Role.Can(c)
}

// Actor is the authenticated caller of a service operation together with the
// address the request came from.
type Actor struct {
	Account *Account
	IP      string
}

func (a Actor) Can(c Capability) bool {
	return a.Account.Can(c)
}

// ID returns a pointer suitable for nullable actor columns.
func (a Actor) ID() *uint {
	if a.Account == nil {
		return nil
	}
	id := a.Account.ID
	return &id
}
