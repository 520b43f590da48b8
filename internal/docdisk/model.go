package docdisk

import "time"

// Identity is the authenticated user as reported by the backend's /me call.
type Identity struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Document is a stored document owned by the authenticated user.
// Documents are never patched locally; the collection is replaced by a
// fresh listing after every mutation.
type Document struct {
	ID        string
	Title     string
	Content   string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is the bearer token issued by a successful login.
// It is persisted in local storage under CredentialKey.
type Credential struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"` // zero if the token carries no expiry
}

// Expired reports whether the credential carries an expiry that has passed.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a transient user-facing message.
type Notification struct {
	Message   string
	Severity  Severity
	ExpiresAt time.Time
}
