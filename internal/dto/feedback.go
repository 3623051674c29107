package dto

// FeedbackPayload is a rating with optional free text.
type FeedbackPayload struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

// FeedbackResponse confirms submission.
type FeedbackResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	FeedbackID string `json:"feedback_id"`
}
