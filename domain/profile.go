package domain

import "time"

// UserProfile is the per-identity profile row. SocietyID is empty until the
// identity has been linked to a society.
type UserProfile struct {
	ID         string    `json:"id"`
	SocietyID  string    `json:"society_id,omitempty"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	FlatNumber string    `json:"flat_number,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *UserProfile) HasSociety() bool {
	return p != nil && p.SocietyID != ""
}

// ProfileUpdate carries the user-editable profile fields. It never carries
// society_id, which only the provisioning flow writes.
type ProfileUpdate struct {
	FirstName  string `json:"first_name" validate:"max=100"`
	LastName   string `json:"last_name" validate:"max=100"`
	AvatarURL  string `json:"avatar_url" validate:"omitempty,url,max=500"`
	Bio        string `json:"bio" validate:"max=1000"`
	FlatNumber string `json:"flat_number" validate:"max=20"`
}

// Apply copies the update onto the profile.
func (u ProfileUpdate) Apply(p *UserProfile) {
	p.FirstName = u.FirstName
	p.LastName = u.LastName
	p.AvatarURL = u.AvatarURL
	p.Bio = u.Bio
	p.FlatNumber = u.FlatNumber
}

// ProfileView is the read model rendered on the profile screen.
type ProfileView struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
	SocietyID   string    `json:"society_id,omitempty"`
	SocietyName string    `json:"society_name,omitempty"`
	FlatNumber  string    `json:"flat_number,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}
