package models

import "time"

// Audit actions recorded for account and mentorship changes.
const (
	AuditActionSignup         = "SIGNUP"
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionRoleChange     = "ROLE_CHANGE"
	AuditActionUserDelete     = "USER_DELETE"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionRequestAccept  = "REQUEST_ACCEPT"
	AuditActionRequestReject  = "REQUEST_REJECT"
	AuditActionMentorshipEnd  = "MENTORSHIP_END"
	AuditActionProfileUpdate  = "PROFILE_UPDATE"
	AuditActionCapacityChange = "CAPACITY_CHANGE"
	AuditActionQueryReply     = "QUERY_REPLY"
	AuditActionShareRevoke    = "SHARE_REVOKE"
	AuditActionExportRequest  = "EXPORT_REQUEST"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditMeta carries request origin details recorded with audit entries.
type AuditMeta struct {
	IP        string
	UserAgent string
}
