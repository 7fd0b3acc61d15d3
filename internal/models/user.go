package models

import (
	"strings"
	"time"
)

// UserRole is a privilege level. Levels are totally ordered: a role satisfies
// every requirement at or below its own rank.
type UserRole string

const (
	UserRoleUser       UserRole = "USER"
	UserRoleEditor     UserRole = "EDITOR"
	UserRoleModerator  UserRole = "MODERATOR"
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleSuperAdmin UserRole = "SUPER_ADMIN"
)

var roleRank = map[UserRole]int{
	UserRoleUser:       1,
	UserRoleEditor:     2,
	UserRoleModerator:  3,
	UserRoleAdmin:      4,
	UserRoleSuperAdmin: 5,
}

// Minimum roles for the two privilege checks used across the service.
const (
	PanelRole = UserRoleEditor
	AdminRole = UserRoleAdmin
)

// ParseRole normalizes a stored or submitted role name. Unknown names come
// back as-is and fail Valid.
func ParseRole(s string) UserRole {
	return UserRole(strings.ToUpper(strings.TrimSpace(s)))
}

func (r UserRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

func (r UserRole) Rank() int {
	return roleRank[r]
}

// AtLeast reports whether r is a known role ranked at or above min.
func (r UserRole) AtLeast(min UserRole) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	need, ok := roleRank[min]
	if !ok {
		return false
	}
	return rank >= need
}

// Satisfies reports whether r meets any of the allowed roles, honoring the
// ordering. An empty set is satisfied by any valid role.
func (r UserRole) Satisfies(allowed ...UserRole) bool {
	if !r.Valid() {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if r.AtLeast(a) {
			return true
		}
	}
	return false
}

func CanAccessPanel(r UserRole) bool { return r.AtLeast(PanelRole) }

func IsAdmin(r UserRole) bool { return r.AtLeast(AdminRole) }

type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	FirstName    string
	LastName     string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the normalized identity attached to an authenticated request.
type Principal struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
}

func (u User) Principal() Principal {
	return Principal{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
