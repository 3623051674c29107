package dto

import "github.com/noah-isme/mentorship-api/internal/models"

// UpdateMentorProfilePayload upserts the caller's mentor profile.
type UpdateMentorProfilePayload struct {
	FullName        string            `json:"full_name" validate:"required,min=2,max=100"`
	MentorType      models.MentorType `json:"mentor_type" validate:"required,oneof=senior alumni faculty"`
	Bio             *string           `json:"bio" validate:"omitempty,max=2000"`
	Experience      *string           `json:"experience" validate:"omitempty,max=2000"`
	Expertise       []string          `json:"expertise" validate:"max=20,dive,min=1,max=100"`
	AreasOfGuidance []string          `json:"areas_of_guidance" validate:"max=20,dive,min=1,max=100"`
	IsAvailable     *bool             `json:"is_available"`
	MaxMentees      *int              `json:"max_mentees" validate:"omitempty,min=1,max=20"`
}

// UpdateMenteeProfilePayload upserts the caller's mentee profile.
type UpdateMenteeProfilePayload struct {
	FullName       string   `json:"full_name" validate:"required,min=2,max=100"`
	Course         *string  `json:"course" validate:"omitempty,max=100"`
	Specialisation *string  `json:"specialisation" validate:"omitempty,max=100"`
	Year           *int     `json:"year" validate:"omitempty,min=1,max=6"`
	Semester       *int     `json:"semester" validate:"omitempty,min=1,max=12"`
	Section        *string  `json:"section" validate:"omitempty,max=20"`
	Interests      []string `json:"interests" validate:"max=20,dive,min=1,max=100"`
	CareerGoals    *string  `json:"career_goals" validate:"omitempty,max=2000"`
}

// AvailabilityPayload toggles whether a mentor accepts new requests.
type AvailabilityPayload struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}

// CapacityPayload sets a mentor's maximum number of mentees.
type CapacityPayload struct {
	MaxMentees int `json:"max_mentees" validate:"required,min=1,max=20"`
}

// AvatarResponse returns the public URL of an uploaded avatar.
type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}
