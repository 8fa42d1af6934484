package domain

import "time"

// AuthEventType names an entry in the authentication audit trail.
type AuthEventType string

const (
	EventLoginSucceeded  AuthEventType = "login_succeeded"
	EventLoginFailed     AuthEventType = "login_failed"
	EventRegistered      AuthEventType = "registered"
	EventTokenRefreshed  AuthEventType = "token_refreshed"
	EventRefreshRejected AuthEventType = "refresh_rejected"
	EventRoleChanged     AuthEventType = "role_changed"
	EventPasswordChanged AuthEventType = "password_changed"
	EventUserDeleted     AuthEventType = "user_deleted"
)

// AuthEvent is a single audit record. UserID is empty when the principal could
// not be resolved (for example a login with an unknown username).
type AuthEvent struct {
	Type       AuthEventType
	UserID     string
	Username   string
	Detail     string
	OccurredAt time.Time
}
