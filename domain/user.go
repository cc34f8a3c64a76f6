package domain

import (
	"strings"
	"time"
)

// User represents an authenticated identity in the platform.
type User struct {
	ID        string            `json:"id"`
	Email     string            `json:"email,omitempty"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u != nil && u.Status == "active"
}

// MetadataValue returns a trimmed metadata entry or an empty string.
func (u *User) MetadataValue(key string) string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(u.Metadata[key])
}

// Credentials is the password material needed to authenticate an identity.
type Credentials struct {
	UserID       string
	Email        string
	PasswordHash string
}

// Registration groups every row written when a new account is created.
type Registration struct {
	User         *User
	PasswordHash string
	Profile      *UserProfile
	Role         Role
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
