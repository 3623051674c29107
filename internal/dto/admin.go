package dto

import "github.com/noah-isme/mentorship-api/internal/models"

// CreateUserPayload lets an admin create an account with any role.
type CreateUserPayload struct {
	Email    string          `json:"email" validate:"required,email,max=255"`
	Password string          `json:"password" validate:"required,min=6"`
	FullName string          `json:"full_name" validate:"required,min=2,max=100"`
	Role     models.UserRole `json:"role" validate:"required,oneof=mentee mentor admin hod dean"`
}

// ChangeRolePayload moves a user to a different role.
type ChangeRolePayload struct {
	Role models.UserRole `json:"role" validate:"required,oneof=mentee mentor admin hod dean"`
}

// UserListQuery filters the admin user list.
type UserListQuery struct {
	Role      string `form:"role" validate:"omitempty,oneof=mentee mentor hod dean"`
	Search    string `form:"search" validate:"omitempty,max=100"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,min=1,max=100"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=full_name email role created_at"`
	SortOrder string `form:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// Filter converts the query into a repository filter. Admin accounts are
// never listed.
func (q UserListQuery) Filter() models.UserFilter {
	filter := models.UserFilter{
		Search:    q.Search,
		Page:      q.Page,
		PageSize:  q.PageSize,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
	if q.Role != "" {
		role := models.UserRole(q.Role)
		filter.Role = &role
	}
	return filter
}
