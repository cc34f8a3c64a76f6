package domain

import "time"

// Session represents a cached authentication session stored in Redis.
// IsAdmin is fixed when the session is established and stays authoritative
// until the session is revoked, even if user_roles changes meanwhile.
type Session struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Email     string            `json:"email,omitempty"`
	IsAdmin   bool              `json:"is_admin"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// SessionContext is the explicit session state handed to the router and the
// provisioning flow. The zero value is an anonymous, resolved session.
type SessionContext struct {
	Identity  *User
	IsAdmin   bool
	Loading   bool
	SessionID string
}

// NewSessionContext builds the context for an established session.
func NewSessionContext(session *Session) SessionContext {
	if session == nil {
		return SessionContext{}
	}
	return SessionContext{
		Identity:  &User{ID: session.UserID, Email: session.Email, Status: "active"},
		IsAdmin:   session.IsAdmin,
		SessionID: session.ID,
	}
}

// Resolved reports whether the identity is known and no load is pending.
func (s SessionContext) Resolved() bool {
	return !s.Loading && s.Identity != nil && s.Identity.ID != ""
}

func (s SessionContext) IdentityID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}

// RequireAdmin returns ErrUnauthorized for an unresolved session and
// ErrNotAdmin for a resolved non-admin one.
func (s SessionContext) RequireAdmin() error {
	if !s.Resolved() {
		return ErrUnauthorized
	}
	if !s.IsAdmin {
		return ErrNotAdmin
	}
	return nil
}
