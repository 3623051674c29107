package models

import "time"

// EventType names a change pushed on the realtime feed.
type EventType string

const (
	EventRequestCreated  EventType = "request.created"
	EventRequestAccepted EventType = "request.accepted"
	EventRequestRejected EventType = "request.rejected"
	EventQueryCreated    EventType = "query.created"
	EventQueryReplied    EventType = "query.replied"
	EventMentorshipEnded EventType = "mentorship.ended"
)

// Event is a single change delivered to one recipient.
type Event struct {
	ID          string            `json:"id"`
	Type        EventType         `json:"type"`
	RecipientID string            `json:"recipient_id"`
	ResourceID  string            `json:"resource_id"`
	Message     string            `json:"message"`
	Data        map[string]string `json:"data,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// NotificationItem is one entry in the pull feed.
type NotificationItem struct {
	RequestID         string        `json:"request_id"`
	Status            RequestStatus `json:"status"`
	CounterpartID     string        `json:"counterpart_id"`
	CounterpartName   string        `json:"counterpart_name"`
	CounterpartAvatar *string       `json:"counterpart_avatar,omitempty"`
	Message           string        `json:"message"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// NotificationFeed buckets a principal's requests by status, newest first.
type NotificationFeed struct {
	Accepted []NotificationItem `json:"accepted"`
	Pending  []NotificationItem `json:"pending"`
	Rejected []NotificationItem `json:"rejected"`
	Counts   NotificationCounts `json:"counts"`
}

// NotificationCounts summarises bucket sizes.
type NotificationCounts struct {
	Accepted int `json:"accepted"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
