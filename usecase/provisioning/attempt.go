package provisioning

import (
	"fmt"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/usecase/auth"
)

// Attempt records one run of the create-then-link sequence.
type Attempt struct {
	State domain.ProvisioningState   `json:"state"`
	Trail []domain.ProvisioningState `json:"trail"`

	Society *domain.Society `json:"society,omitempty"`
	// Existing is set when the pre-check found a society and nothing was inserted.
	Existing bool `json:"existing"`
	// Inconsistent is set when the society was created but the profile link
	// failed. The next pre-check reconciles it.
	Inconsistent bool `json:"inconsistent"`

	Navigation *domain.Navigation `json:"navigation,omitempty"`
	Account    *auth.Result       `json:"-"`
}

func newAttempt() *Attempt {
	return &Attempt{
		State: domain.StateIdle,
		Trail: []domain.ProvisioningState{domain.StateIdle},
	}
}

func (a *Attempt) to(next domain.ProvisioningState) {
	if !a.State.CanTransition(next) {
		panic(fmt.Sprintf("provisioning: illegal transition %s -> %s", a.State, next))
	}
	a.State = next
	a.Trail = append(a.Trail, next)
}

// fail returns the attempt to idle so the form stays editable.
func (a *Attempt) fail() {
	a.to(domain.StateIdle)
}

func (a *Attempt) navigate(nav domain.Navigation) {
	a.Navigation = &nav
}

// Done reports whether the sequence completed.
func (a *Attempt) Done() bool {
	return a != nil && a.State == domain.StateDone
}
