package models

import (
	"time"

	"github.com/lib/pq"
)

// MentorType classifies where a mentor comes from.
type MentorType string

const (
	MentorTypeSenior  MentorType = "senior"
	MentorTypeAlumni  MentorType = "alumni"
	MentorTypeFaculty MentorType = "faculty"
)

const (
	DefaultMaxMentees = 5
	MinMaxMentees     = 1
	MaxMaxMentees     = 20
)

// MentorProfile holds the mentor-specific profile and capacity ledger.
type MentorProfile struct {
	ID              string         `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"user_id"`
	MentorType      MentorType     `db:"mentor_type" json:"mentor_type"`
	Bio             *string        `db:"bio" json:"bio,omitempty"`
	Experience      *string        `db:"experience" json:"experience,omitempty"`
	Expertise       pq.StringArray `db:"expertise" json:"expertise"`
	AreasOfGuidance pq.StringArray `db:"areas_of_guidance" json:"areas_of_guidance"`
	IsAvailable     bool           `db:"is_available" json:"is_available"`
	MaxMentees      int            `db:"max_mentees" json:"max_mentees"`
	CurrentMentees  int            `db:"current_mentees" json:"current_mentees"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// HasCapacity reports whether another mentee can be accepted.
func (m *MentorProfile) HasCapacity() bool {
	return m.CurrentMentees < m.MaxMentees
}

// CanReceiveRequests reports whether new requests may be submitted.
func (m *MentorProfile) CanReceiveRequests() bool {
	return m.IsAvailable && m.HasCapacity()
}

// MentorCapacity is the ledger view of a mentor.
type MentorCapacity struct {
	MentorID       string `db:"user_id" json:"mentor_id"`
	IsAvailable    bool   `db:"is_available" json:"is_available"`
	MaxMentees     int    `db:"max_mentees" json:"max_mentees"`
	CurrentMentees int    `db:"current_mentees" json:"current_mentees"`
	HasCapacity    bool   `db:"-" json:"has_capacity"`
}

// MentorListing is a mentor profile joined with display fields.
type MentorListing struct {
	MentorProfile
	FullName  string  `db:"full_name" json:"full_name"`
	Email     string  `db:"email" json:"email"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url,omitempty"`
}

// MentorDirectoryEntry decorates a listing with the viewer's relationship.
type MentorDirectoryEntry struct {
	MentorListing
	IsConnected       bool `json:"is_connected"`
	HasPendingRequest bool `json:"has_pending_request"`
	CanRequest        bool `json:"can_request"`
}

// MentorFilter narrows directory listings.
type MentorFilter struct {
	Search        string
	MentorType    *MentorType
	AvailableOnly bool
}
