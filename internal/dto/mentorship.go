package dto

import "github.com/noah-isme/mentorship-api/internal/models"

// SubmitRequestPayload is the body of POST /requests.
type SubmitRequestPayload struct {
	MentorID     string `json:"mentor_id" validate:"required,uuid"`
	Introduction string `json:"introduction" validate:"required,max=500"`
	Goals        string `json:"goals" validate:"required,max=500"`
}

// RejectRequestPayload optionally explains a rejection.
type RejectRequestPayload struct {
	Message *string `json:"message" validate:"omitempty,max=1000"`
}

// RequestListQuery filters request listings.
type RequestListQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=pending accepted rejected"`
}

// Filter converts the query into a repository filter.
func (q RequestListQuery) Filter() models.RequestFilter {
	if q.Status == "" {
		return models.RequestFilter{}
	}
	status := models.RequestStatus(q.Status)
	return models.RequestFilter{Status: &status}
}

// AcceptRequestResponse returns both rows written by an accept.
type AcceptRequestResponse struct {
	Request    *models.MentorshipRequest `json:"request"`
	Mentorship *models.ActiveMentorship  `json:"mentorship"`
}
