package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Society is a managed community with its amenities, utility workers and flats.
type Society struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	Amenities      []string  `json:"amenities"`
	UtilityWorkers []string  `json:"utility_workers"`
	NumFlats       int       `json:"num_flats"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SocietyForm is the society setup form as submitted by the client. Amenities
// and UtilityWorkers are free text, comma separated.
type SocietyForm struct {
	Name           string `json:"name" validate:"required,max=200"`
	Address        string `json:"address" validate:"required,max=500"`
	Amenities      string `json:"amenities" validate:"max=2000"`
	UtilityWorkers string `json:"utilityWorkers" validate:"max=2000"`
	NumFlats       int    `json:"numFlats" validate:"gt=0"`
}

// Normalize trims the required text fields so whitespace-only input fails validation.
func (f SocietyForm) Normalize() SocietyForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Address = strings.TrimSpace(f.Address)
	return f
}

// Society converts a validated form into a society owned by createdBy.
func (f SocietyForm) Society(createdBy string) *Society {
	workers := SplitList(f.UtilityWorkers)
	formatted := make([]string, 0, len(workers))
	for _, entry := range workers {
		formatted = append(formatted, ParseWorker(entry).String())
	}
	return &Society{
		Name:           f.Name,
		Address:        f.Address,
		Amenities:      SplitList(f.Amenities),
		UtilityWorkers: formatted,
		NumFlats:       f.NumFlats,
		CreatedBy:      createdBy,
	}
}

// Apply overwrites the editable society fields with the form contents.
func (f SocietyForm) Apply(s *Society) {
	updated := f.Society(s.CreatedBy)
	s.Name = updated.Name
	s.Address = updated.Address
	s.Amenities = updated.Amenities
	s.UtilityWorkers = updated.UtilityWorkers
	s.NumFlats = updated.NumFlats
}

// SplitList splits comma separated text, trimming entries and dropping empty ones.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Worker is a utility worker with an optional contact.
type Worker struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
}

var workerPattern = regexp.MustCompile(`^(.*?)\s*\(([^()]*)\)$`)

// ParseWorker reads "<name> (<contact>)" or a bare "<name>".
func ParseWorker(entry string) Worker {
	entry = strings.TrimSpace(entry)
	if m := workerPattern.FindStringSubmatch(entry); m != nil && strings.TrimSpace(m[1]) != "" {
		return Worker{Name: strings.TrimSpace(m[1]), Contact: strings.TrimSpace(m[2])}
	}
	return Worker{Name: entry}
}

// String renders the worker the way it is persisted.
func (w Worker) String() string {
	if w.Contact != "" {
		return fmt.Sprintf("%s (%s)", w.Name, w.Contact)
	}
	return w.Name
}

// PendingSocietyDraftKey is the fixed storage key for society details captured
// before the admin account exists.
const PendingSocietyDraftKey = "ava_presignup_society_data"

// PendingSocietyDraft holds a society form awaiting post-signup provisioning.
type PendingSocietyDraft struct {
	ID        string      `json:"id"`
	Form      SocietyForm `json:"form"`
	CreatedAt time.Time   `json:"created_at"`
}
