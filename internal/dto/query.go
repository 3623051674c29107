package dto

import "github.com/noah-isme/mentorship-api/internal/models"

// SubmitQueryPayload is the structured query form a mentee sends to a mentor.
type SubmitQueryPayload struct {
	MentorID           string                    `json:"mentor_id" validate:"required,uuid"`
	FullName           string                    `json:"full_name" validate:"required,min=2,max=100"`
	CourseProgramYear  string                    `json:"course_program_year" validate:"required,min=2,max=100"`
	UniversityName     string                    `json:"university_name" validate:"required,min=2,max=200"`
	Email              string                    `json:"email" validate:"required,email,max=255"`
	MentorshipType     models.MentorshipType     `json:"mentorship_type" validate:"required,oneof=academic career internship research skill_development"`
	DomainGuidance     string                    `json:"domain_guidance" validate:"required,min=2,max=200"`
	QueryDescription   string                    `json:"query_description" validate:"required,min=10,max=1000"`
	ExpectedOutcome    string                    `json:"expected_outcome" validate:"required,min=10,max=500"`
	MentorshipDuration models.MentorshipDuration `json:"mentorship_duration" validate:"required,oneof=one_time short_term long_term"`
	WhyThisMentor      string                    `json:"why_this_mentor" validate:"required,min=10,max=500"`
}

// ReplyQueryPayload carries a mentor's reply. Replies overwrite.
type ReplyQueryPayload struct {
	Reply string `json:"reply" validate:"required,max=500"`
}

// ShareLinkResponse describes the current share capability of a query.
type ShareLinkResponse struct {
	QueryID   string  `json:"query_id"`
	ShareURL  string  `json:"share_url"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}
