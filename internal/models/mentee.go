package models

import (
	"time"

	"github.com/lib/pq"
)

// MenteeProfile holds the academic details of a mentee.
type MenteeProfile struct {
	ID             string         `db:"id" json:"id"`
	UserID         string         `db:"user_id" json:"user_id"`
	Course         *string        `db:"course" json:"course,omitempty"`
	Specialisation *string        `db:"specialisation" json:"specialisation,omitempty"`
	Year           *int           `db:"year" json:"year,omitempty"`
	Semester       *int           `db:"semester" json:"semester,omitempty"`
	Section        *string        `db:"section" json:"section,omitempty"`
	Interests      pq.StringArray `db:"interests" json:"interests"`
	CareerGoals    *string        `db:"career_goals" json:"career_goals,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// MenteeListing is a mentee profile joined with display fields.
type MenteeListing struct {
	MenteeProfile
	FullName  string  `db:"full_name" json:"full_name"`
	Email     string  `db:"email" json:"email"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url,omitempty"`
}
