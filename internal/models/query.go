package models

import "time"

// MentorshipType enumerates the kinds of guidance a query can ask for.
type MentorshipType string

const (
	MentorshipTypeAcademic         MentorshipType = "academic"
	MentorshipTypeCareer           MentorshipType = "career"
	MentorshipTypeInternship       MentorshipType = "internship"
	MentorshipTypeResearch         MentorshipType = "research"
	MentorshipTypeSkillDevelopment MentorshipType = "skill_development"
)

// MentorshipDuration enumerates the expected engagement length.
type MentorshipDuration string

const (
	MentorshipDurationOneTime   MentorshipDuration = "one_time"
	MentorshipDurationShortTerm MentorshipDuration = "short_term"
	MentorshipDurationLongTerm  MentorshipDuration = "long_term"
)

// Query display states.
const (
	QueryStatusPending = "Pending"
	QueryStatusReplied = "Replied"
)

const MaxReplyLength = 500

// MenteeQuery is a structured question addressed to a mentor.
type MenteeQuery struct {
	ID                 string             `db:"id" json:"id"`
	MenteeID           string             `db:"mentee_id" json:"mentee_id"`
	MentorID           string             `db:"mentor_id" json:"mentor_id"`
	FullName           string             `db:"full_name" json:"full_name"`
	CourseProgramYear  string             `db:"course_program_year" json:"course_program_year"`
	UniversityName     string             `db:"university_name" json:"university_name"`
	Email              string             `db:"email" json:"email"`
	MentorshipType     MentorshipType     `db:"mentorship_type" json:"mentorship_type"`
	DomainGuidance     string             `db:"domain_guidance" json:"domain_guidance"`
	QueryDescription   string             `db:"query_description" json:"query_description"`
	ExpectedOutcome    string             `db:"expected_outcome" json:"expected_outcome"`
	MentorshipDuration MentorshipDuration `db:"mentorship_duration" json:"mentorship_duration"`
	WhyThisMentor      string             `db:"why_this_mentor" json:"why_this_mentor"`
	ShareToken         string             `db:"share_token" json:"share_token"`
	ShareExpiresAt     *time.Time         `db:"share_expires_at" json:"share_expires_at,omitempty"`
	ShareRevokedAt     *time.Time         `db:"share_revoked_at" json:"share_revoked_at,omitempty"`
	MentorReply        *string            `db:"mentor_reply" json:"mentor_reply,omitempty"`
	RepliedAt          *time.Time         `db:"replied_at" json:"replied_at,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// Status reports Replied once a reply exists.
func (q *MenteeQuery) Status() string {
	if q.MentorReply != nil && *q.MentorReply != "" {
		return QueryStatusReplied
	}
	return QueryStatusPending
}

// ShareActive reports whether the share token still resolves at the given instant.
func (q *MenteeQuery) ShareActive(now time.Time) bool {
	if q.ShareRevokedAt != nil {
		return false
	}
	if q.ShareExpiresAt != nil && !now.Before(*q.ShareExpiresAt) {
		return false
	}
	return true
}

// MenteeQueryView is a query joined with the counterpart's name.
type MenteeQueryView struct {
	MenteeQuery
	CounterpartName   string  `db:"counterpart_name" json:"counterpart_name"`
	CounterpartAvatar *string `db:"counterpart_avatar" json:"counterpart_avatar,omitempty"`
	StatusLabel       string  `db:"-" json:"status"`
	ShareURL          string  `db:"-" json:"share_url,omitempty"`
}

// SharedQuery is the anonymous projection served for a share token.
type SharedQuery struct {
	ID                 string             `json:"id"`
	FullName           string             `json:"full_name"`
	CourseProgramYear  string             `json:"course_program_year"`
	UniversityName     string             `json:"university_name"`
	Email              string             `json:"email,omitempty"`
	MentorshipType     MentorshipType     `json:"mentorship_type"`
	DomainGuidance     string             `json:"domain_guidance"`
	QueryDescription   string             `json:"query_description"`
	ExpectedOutcome    string             `json:"expected_outcome"`
	MentorshipDuration MentorshipDuration `json:"mentorship_duration"`
	WhyThisMentor      string             `json:"why_this_mentor"`
	MentorName         string             `json:"mentor_name"`
	MentorReply        *string            `json:"mentor_reply,omitempty"`
	RepliedAt          *time.Time         `json:"replied_at,omitempty"`
	Status             string             `json:"status"`
	CreatedAt          time.Time          `json:"created_at"`
}
