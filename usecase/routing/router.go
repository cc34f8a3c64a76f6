package routing

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/ava/domain"
)

// MembershipReader reads the society back-reference of an identity.
// Implemented by repository.ProfileRepository.
type MembershipReader interface {
	GetSocietyID(ctx context.Context, id string) (string, error)
}

// NavigationRequest carries the caller's intent: the deep link that required
// authentication and the path the client is currently showing.
type NavigationRequest struct {
	RedirectTo  string
	CurrentPath string
}

// LookupResult is the outcome of the membership query. Exactly one of
// SocietyID (possibly empty) or Err is meaningful.
type LookupResult struct {
	SocietyID string
	Err       error
}

func (r LookupResult) Failed() bool { return r.Err != nil }

func (r LookupResult) HasSociety() bool { return r.Err == nil && r.SocietyID != "" }

// Decision is the router's single answer for one session transition.
type Decision struct {
	// Pending means the session is not resolved yet and nothing may happen.
	Pending bool
	// Navigate is false when there is nothing to do, either because the
	// decision is pending or the client already shows the chosen path.
	Navigate   bool
	Navigation domain.Navigation
	// Fallback is set when the membership lookup failed and the target was
	// chosen from the admin flag alone.
	Fallback bool
	Err      error
}

type Router struct {
	memberships MembershipReader
	logger      *zap.Logger
}

func New(memberships MembershipReader, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{memberships: memberships, logger: logger}
}

// Lookup queries membership and folds the outcome into a LookupResult.
func (r *Router) Lookup(ctx context.Context, identityID string) LookupResult {
	societyID, err := r.memberships.GetSocietyID(ctx, identityID)
	if err != nil {
		return LookupResult{Err: err}
	}
	return LookupResult{SocietyID: societyID}
}

// Decide picks the next screen for an authenticated session.
func (r *Router) Decide(ctx context.Context, session domain.SessionContext, req NavigationRequest) Decision {
	if !session.Resolved() {
		return Decision{Pending: true}
	}

	result := r.Lookup(ctx, session.IdentityID())
	if result.Failed() {
		r.logger.Warn("membership lookup failed, using fallback target",
			zap.String("user_id", session.IdentityID()),
			zap.Bool("is_admin", session.IsAdmin),
			zap.Error(result.Err))
	}

	decision := Decide(session.IsAdmin, result, req.RedirectTo)
	if decision.Navigation.Path == req.CurrentPath {
		decision.Navigate = false
	}
	return decision
}

// Decide is the pure decision table keyed on the admin flag and the lookup
// variant. A failed lookup ignores redirectTo.
func Decide(isAdmin bool, result LookupResult, redirectTo string) Decision {
	var nav domain.Navigation
	switch {
	case result.Failed() && isAdmin:
		return Decision{Navigate: true, Navigation: domain.NavigateTo(domain.TargetAdminDashboard), Fallback: true, Err: result.Err}
	case result.Failed():
		return Decision{Navigate: true, Navigation: domain.NavigateTo(domain.TargetHome), Fallback: true, Err: result.Err}
	case !result.HasSociety() && isAdmin:
		nav = domain.NavigateTo(domain.TargetAdminSetup)
	case !result.HasSociety():
		nav = domain.NavigateTo(domain.TargetTenantSetup)
	case redirectTo != "":
		nav = domain.RedirectTo(redirectTo)
	case isAdmin:
		nav = domain.NavigateTo(domain.TargetAdminDashboard)
	default:
		nav = domain.NavigateTo(domain.TargetHome)
	}
	return Decision{Navigate: true, Navigation: nav}
}
