package models

import "time"

// RequestStatus captures the mentorship request lifecycle. Accepted and
// rejected are terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Valid reports whether the status is known.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusAccepted, RequestStatusRejected:
		return true
	}
	return false
}

const (
	MaxIntroductionLength     = 500
	MaxGoalsLength            = 500
	MaxRejectionMessageLength = 1000
)

// MentorshipRequest is a mentee's request to be mentored.
type MentorshipRequest struct {
	ID               string        `db:"id" json:"id"`
	MenteeID         string        `db:"mentee_id" json:"mentee_id"`
	MentorID         string        `db:"mentor_id" json:"mentor_id"`
	Introduction     string        `db:"introduction" json:"introduction"`
	Goals            string        `db:"goals" json:"goals"`
	Status           RequestStatus `db:"status" json:"status"`
	RejectionMessage *string       `db:"rejection_message" json:"rejection_message,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// IsPending reports whether the request can still transition.
func (r *MentorshipRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// MentorshipRequestView is a request joined with the counterpart's display data.
type MentorshipRequestView struct {
	MentorshipRequest
	CounterpartName   string  `db:"counterpart_name" json:"counterpart_name"`
	CounterpartEmail  string  `db:"counterpart_email" json:"counterpart_email"`
	CounterpartAvatar *string `db:"counterpart_avatar" json:"counterpart_avatar,omitempty"`
	MentorType        *string `db:"mentor_type" json:"mentor_type,omitempty"`
	Course            *string `db:"course" json:"course,omitempty"`
	Year              *int    `db:"year" json:"year,omitempty"`
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	Status *RequestStatus
}

// ActiveMentorship links a mentor and mentee after an accepted request.
type ActiveMentorship struct {
	ID        string     `db:"id" json:"id"`
	MentorID  string     `db:"mentor_id" json:"mentor_id"`
	MenteeID  string     `db:"mentee_id" json:"mentee_id"`
	RequestID *string    `db:"request_id" json:"request_id,omitempty"`
	StartedAt time.Time  `db:"started_at" json:"started_at"`
	EndedAt   *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

// IsOpen reports whether the mentorship is still running.
func (m *ActiveMentorship) IsOpen() bool {
	return m.EndedAt == nil
}

// ActiveMentorshipView is a mentorship joined with the counterpart's profile.
type ActiveMentorshipView struct {
	ActiveMentorship
	CounterpartName   string  `db:"counterpart_name" json:"counterpart_name"`
	CounterpartEmail  string  `db:"counterpart_email" json:"counterpart_email"`
	CounterpartAvatar *string `db:"counterpart_avatar" json:"counterpart_avatar,omitempty"`
	MentorType        *string `db:"mentor_type" json:"mentor_type,omitempty"`
	Bio               *string `db:"bio" json:"bio,omitempty"`
	Course            *string `db:"course" json:"course,omitempty"`
	Year              *int    `db:"year" json:"year,omitempty"`
}

// MentorshipRelation flags the viewer's link to a mentor in directory listings.
type MentorshipRelation struct {
	MentorID          string `db:"mentor_id"`
	IsConnected       bool   `db:"is_connected"`
	HasPendingRequest bool   `db:"has_pending"`
}
