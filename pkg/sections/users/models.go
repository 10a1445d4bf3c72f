// Package users implements the user management section.
package users

import "strings"

// Role is a user's permission level.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleEditor Role = "Editor"
	RoleViewer Role = "Viewer"
)

// Roles lists the roles accepted on create, in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleViewer}
}

// Valid reports whether r is an assignable role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// NeverLoggedIn is the LastLogin value of accounts that never signed in.
const NeverLoggedIn = "Never"

// Account statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is a portal account.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	LastLogin string `json:"lastLogin"`
	Email     string `json:"email,omitempty"`
	Status    string `json:"status,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// CreateRequest carries the fields of a new account.
type CreateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// UpdateRequest is a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Role   *Role   `json:"role,omitempty"`
	Status *string `json:"status,omitempty"`
}

// Stats summarises the user base.
type Stats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Admins int `json:"admins"`
}

// Initials builds the avatar text: the first letter of every name part,
// upper-cased.
func Initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		for _, r := range part {
			b.WriteRune(r)
			break
		}
	}
	return strings.ToUpper(b.String())
}

// Fixtures returns the seeded accounts.
func Fixtures() []User {
	return []User{
		{ID: "u1", Name: "Alice Johnson", Email: "alice@vrx.com", Role: RoleAdmin, LastLogin: "2025-10-27T10:00:00Z", Status: StatusActive, Avatar: "AJ"},
		{ID: "u2", Name: "Bob Smith", Email: "bob@vrx.com", Role: RoleEditor, LastLogin: "2025-10-26T15:30:00Z", Status: StatusActive, Avatar: "BS"},
		{ID: "u3", Name: "Carol Davis", Email: "carol@vrx.com", Role: RoleViewer, LastLogin: "2025-10-25T09:15:00Z", Status: StatusActive, Avatar: "CD"},
		{ID: "u4", Name: "David Wilson", Email: "david@vrx.com", Role: RoleEditor, LastLogin: "2025-10-28T11:45:00Z", Status: StatusInactive, Avatar: "DW"},
	}
}
