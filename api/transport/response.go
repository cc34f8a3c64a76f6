package transport

import (
	"encoding/json"
	"time"

	"github.com/fastygo/ava/domain"
)

// Envelope is the standard API response wrapper used for both success and error payloads.
// Navigation, when present, is an instruction the client executes verbatim.
type Envelope struct {
	Status     string             `json:"status"`
	Data       interface{}        `json:"data,omitempty"`
	Error      *ErrorBody         `json:"error,omitempty"`
	Navigation *domain.Navigation `json:"navigation,omitempty"`
	Meta       interface{}        `json:"meta,omitempty"`
}

// ErrorBody describes a failed request. Details carries per-field messages
// for validation failures.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// NewSuccess returns a success envelope.
func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

// NewError returns an error envelope with optional field details.
func NewError(code, message string, details map[string]string) Envelope {
	return Envelope{
		Status: "error",
		Error: &ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// WithNavigation attaches a navigation instruction. A nil nav is ignored.
func (e Envelope) WithNavigation(nav *domain.Navigation) Envelope {
	if nav != nil {
		copied := *nav
		e.Navigation = &copied
	}
	return e
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// AuthResponse is returned by sign in, sign up and refresh.
type AuthResponse struct {
	User        *domain.User `json:"user"`
	SessionID   string       `json:"session_id"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	IsAdmin     bool         `json:"is_admin"`
}

// DecisionResponse reports how the post-login router resolved a request.
type DecisionResponse struct {
	Pending  bool   `json:"pending"`
	Navigate bool   `json:"navigate"`
	Fallback bool   `json:"fallback"`
	Warning  string `json:"warning,omitempty"`
}

// DraftResponse acknowledges a stored pre-signup society draft.
type DraftResponse struct {
	DraftID   string             `json:"draft_id"`
	Form      domain.SocietyForm `json:"form"`
	CreatedAt time.Time          `json:"created_at"`
}

// ProfileUpdateResponse reports whether the update was applied or queued.
type ProfileUpdateResponse struct {
	Profile  *domain.UserProfile `json:"profile"`
	Buffered bool                `json:"buffered"`
}

// SocietyUpdateResponse reports whether the society update was applied or queued.
type SocietyUpdateResponse struct {
	Society  *domain.Society `json:"society"`
	Buffered bool            `json:"buffered"`
}

// MembersResponse lists the profiles linked to a society.
type MembersResponse struct {
	Members []domain.UserProfile `json:"members"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}
