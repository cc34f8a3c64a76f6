package domain

// ProvisioningState is a step of the create-society-then-link-profile sequence.
type ProvisioningState string

const (
	StateIdle            ProvisioningState = "idle"
	StateValidating      ProvisioningState = "validating"
	StateCreatingSociety ProvisioningState = "creating_society"
	StateLinkingProfile  ProvisioningState = "linking_profile"
	StateDone            ProvisioningState = "done"
)

var provisioningTransitions = map[ProvisioningState][]ProvisioningState{
	StateIdle:            {StateValidating},
	StateValidating:      {StateCreatingSociety, StateDone, StateIdle},
	StateCreatingSociety: {StateLinkingProfile, StateIdle},
	StateLinkingProfile:  {StateDone, StateIdle},
	StateDone:            {},
}

// CanTransition reports whether next may follow s.
func (s ProvisioningState) CanTransition(next ProvisioningState) bool {
	for _, allowed := range provisioningTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
