package transport

// RefreshRequest names the session to extend.
type RefreshRequest struct {
	SessionID string `json:"session_id"`
}

// PresignupCompleteRequest carries the account details for the chained
// signup. DraftID falls back to the draft cookie when empty.
type PresignupCompleteRequest struct {
	DraftID     string `json:"draftId"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
}

// NavigationQuery is the query string of the sign-in and next endpoints.
type NavigationQuery struct {
	Redirect string `json:"redirect" validate:"omitempty,localpath"`
	Current  string `json:"current"`
}
