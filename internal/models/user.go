package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleMentee UserRole = "mentee"
	RoleMentor UserRole = "mentor"
	RoleAdmin  UserRole = "admin"
	RoleHOD    UserRole = "hod"
	RoleDean   UserRole = "dean"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleMentee, RoleMentor, RoleAdmin, RoleHOD, RoleDean:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to the oversight group.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleHOD || r == RoleDean
}

// User is a principal joined with its profile row.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role          *UserRole
	Search        string
	ExcludeAdmins bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
