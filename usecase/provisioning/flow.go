package provisioning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
	"github.com/fastygo/ava/usecase"
	"github.com/fastygo/ava/usecase/auth"
)

const (
	msgCreateFailed = "Failed to create society"
	msgLinkFailed   = "Failed to update your profile with society information"
	msgCheckFailed  = "Failed to check for an existing society"
)

// AccountCreator creates an account and signs it in, or signs in an account
// that already exists. Implemented by auth.UseCase.
type AccountCreator interface {
	SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.Result, error)
	SignIn(ctx context.Context, req auth.SignInRequest) (*auth.Result, error)
}

type Config struct {
	RedirectDelay time.Duration
}

// Flow provisions a society for an admin and links the admin's profile to it.
type Flow struct {
	societies repository.SocietyRepository
	profiles  repository.ProfileRepository
	drafts    repository.DraftRepository
	accounts  AccountCreator
	validator usecase.Validator
	inflight  singleflight.Group
	cfg       Config
	logger    *zap.Logger
}

func New(
	societies repository.SocietyRepository,
	profiles repository.ProfileRepository,
	drafts repository.DraftRepository,
	accounts AccountCreator,
	validator usecase.Validator,
	cfg Config,
	logger *zap.Logger,
) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		societies: societies,
		profiles:  profiles,
		drafts:    drafts,
		accounts:  accounts,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// PreCheck finds a society the identity already has, first through the
// profile back-reference and then by creator. A society found only by creator
// is the trace of an earlier attempt whose link step failed, so the profile
// is re-linked on the way out.
func (f *Flow) PreCheck(ctx context.Context, identityID string) (*domain.Society, error) {
	societyID, err := f.profiles.GetSocietyID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if societyID != "" {
		society, err := f.societies.GetByID(ctx, societyID)
		if err == nil {
			return society, nil
		}
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, err
		}
		f.logger.Warn("profile references a missing society",
			zap.String("user_id", identityID), zap.String("society_id", societyID))
	}

	society, err := f.societies.GetByCreator(ctx, identityID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := f.profiles.LinkSociety(ctx, identityID, society.ID); err != nil {
		f.logger.Warn("failed to reconcile profile link",
			zap.String("user_id", identityID), zap.String("society_id", society.ID), zap.Error(err))
	} else {
		f.logger.Info("reconciled profile link",
			zap.String("user_id", identityID), zap.String("society_id", society.ID))
	}
	return society, nil
}

// SetupStatus is what the setup screen needs before it renders the form.
type SetupStatus struct {
	Society    *domain.Society    `json:"society,omitempty"`
	Navigation *domain.Navigation `json:"navigation,omitempty"`
	Warning    string             `json:"warning,omitempty"`
}

// Status runs the pre-check for the setup screen. A failed lookup still lets
// the form render; Provision repeats the check before inserting.
func (f *Flow) Status(ctx context.Context, session domain.SessionContext) (*SetupStatus, error) {
	if err := session.RequireAdmin(); err != nil {
		return nil, err
	}

	society, err := f.PreCheck(ctx, session.IdentityID())
	if err != nil {
		f.logger.Warn("setup pre-check failed", zap.String("user_id", session.IdentityID()), zap.Error(err))
		return &SetupStatus{Warning: msgCheckFailed}, nil
	}
	if society == nil {
		return &SetupStatus{}, nil
	}
	nav := domain.NavigateTo(domain.TargetAdminDashboard)
	return &SetupStatus{Society: society, Navigation: &nav}, nil
}

// Provision runs the standalone path for a signed-in admin. Concurrent
// submissions by the same identity share one run.
func (f *Flow) Provision(ctx context.Context, session domain.SessionContext, form domain.SocietyForm) (*Attempt, error) {
	if err := session.RequireAdmin(); err != nil {
		return nil, err
	}

	identityID := session.IdentityID()
	shared := context.WithoutCancel(ctx)
	v, err, _ := f.inflight.Do("provision:"+identityID, func() (interface{}, error) {
		return f.provision(shared, identityID, form)
	})
	attempt, _ := v.(*Attempt)
	return attempt, err
}

func (f *Flow) provision(ctx context.Context, identityID string, form domain.SocietyForm) (*Attempt, error) {
	attempt := newAttempt()
	attempt.to(domain.StateValidating)

	form = form.Normalize()
	if err := f.validator.Struct(form); err != nil {
		attempt.fail()
		return attempt, err
	}

	existing, err := f.PreCheck(ctx, identityID)
	if err != nil {
		attempt.fail()
		return attempt, domain.WrapError(domain.ErrCodeInternal, msgCheckFailed, err)
	}
	if existing != nil {
		attempt.Society = existing
		attempt.Existing = true
		attempt.to(domain.StateDone)
		attempt.navigate(domain.NavigateTo(domain.TargetAdminDashboard))
		return attempt, nil
	}

	if err := f.createAndLink(ctx, attempt, form.Society(identityID)); err != nil {
		return attempt, err
	}
	attempt.navigate(domain.NavigateTo(domain.TargetAdminDashboard).WithDelay(f.cfg.RedirectDelay))
	return attempt, nil
}

// createAndLink inserts the society and then points the creator's profile at
// it. Linking never starts unless the insert succeeded.
func (f *Flow) createAndLink(ctx context.Context, attempt *Attempt, society *domain.Society) error {
	attempt.to(domain.StateCreatingSociety)
	if err := f.societies.Create(ctx, society); err != nil {
		f.logger.Error("society creation failed",
			zap.String("step", "create_society"),
			zap.String("user_id", society.CreatedBy),
			zap.Error(err))
		attempt.fail()
		return domain.WrapError(domain.ErrCodeSocietyCreate, msgCreateFailed, err)
	}
	attempt.Society = society

	attempt.to(domain.StateLinkingProfile)
	if err := f.profiles.LinkSociety(ctx, society.CreatedBy, society.ID); err != nil {
		f.logger.Error("profile link failed",
			zap.String("step", "link_profile"),
			zap.String("user_id", society.CreatedBy),
			zap.String("society_id", society.ID),
			zap.Error(err))
		attempt.Inconsistent = true
		attempt.fail()
		return domain.WrapError(domain.ErrCodeProfileLink, msgLinkFailed, err)
	}

	attempt.to(domain.StateDone)
	f.logger.Info("society provisioned",
		zap.String("user_id", society.CreatedBy), zap.String("society_id", society.ID))
	return nil
}

// SaveDraft validates the pre-signup form and parks it until the account exists.
func (f *Flow) SaveDraft(ctx context.Context, form domain.SocietyForm) (*domain.PendingSocietyDraft, error) {
	form = form.Normalize()
	if err := f.validator.Struct(form); err != nil {
		return nil, err
	}
	draft := &domain.PendingSocietyDraft{
		ID:        uuid.NewString(),
		Form:      form,
		CreatedAt: time.Now(),
	}
	if err := f.drafts.Save(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// LoadDraft returns a parked draft so the form can be shown again.
func (f *Flow) LoadDraft(ctx context.Context, draftID string) (*domain.PendingSocietyDraft, error) {
	return f.drafts.Get(ctx, draftID)
}

// ProvisionAfterSignup creates the admin account and then the society from
// the parked draft. The account is never rolled back; the draft survives
// every failure so the user can retry without typing it again. A retry finds
// the account already there and signs in with the same credentials instead.
//
// Only submissions with the same draft and the same credentials share a run,
// so a coalesced caller never receives another caller's session.
func (f *Flow) ProvisionAfterSignup(ctx context.Context, draftID string, req auth.SignUpRequest) (*Attempt, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := f.inflight.Do(submissionKey(draftID, req), func() (interface{}, error) {
		return f.provisionAfterSignup(shared, draftID, req)
	})
	attempt, _ := v.(*Attempt)
	return attempt, err
}

func submissionKey(draftID string, req auth.SignUpRequest) string {
	sum := sha256.Sum256([]byte(domain.NormalizeEmail(req.Email) + "\x00" + req.Password))
	return "presignup:" + draftID + ":" + hex.EncodeToString(sum[:])
}

func (f *Flow) provisionAfterSignup(ctx context.Context, draftID string, req auth.SignUpRequest) (*Attempt, error) {
	attempt := newAttempt()

	draft, err := f.drafts.Get(ctx, draftID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			attempt.navigate(domain.NavigateTo(domain.TargetPresignupSetup))
			return attempt, domain.ErrDraftNotFound
		}
		return attempt, err
	}

	attempt.to(domain.StateValidating)
	form := draft.Form.Normalize()
	if err := f.validator.Struct(form); err != nil {
		attempt.fail()
		return attempt, err
	}
	if req.Role == "" {
		req.Role = string(domain.RoleAdmin)
	}
	if role, ok := domain.ParseRole(req.Role); !ok || !role.IsAdmin() {
		attempt.fail()
		return attempt, domain.NewValidationError(map[string]string{
			"role": "role must be admin to register a society",
		})
	}

	account, err := f.account(ctx, draftID, req)
	if err != nil {
		attempt.fail()
		return attempt, err
	}
	attempt.Account = account
	if account == nil || account.Identity == nil || account.Identity.ID == "" {
		f.logger.Error("identity unresolved after signup", zap.String("draft_id", draftID))
		attempt.fail()
		return attempt, domain.ErrIdentityUnresolved
	}
	identityID := account.Identity.ID

	existing, err := f.PreCheck(ctx, identityID)
	if err != nil {
		attempt.fail()
		return attempt, domain.WrapError(domain.ErrCodeInternal, msgCheckFailed, err)
	}
	if existing != nil {
		attempt.Society = existing
		attempt.Existing = true
		attempt.to(domain.StateDone)
	} else if err := f.createAndLink(ctx, attempt, form.Society(identityID)); err != nil {
		return attempt, err
	}

	if err := f.drafts.Delete(ctx, draftID); err != nil {
		f.logger.Warn("failed to clear society draft", zap.String("draft_id", draftID), zap.Error(err))
	}
	attempt.navigate(domain.NavigateTo(domain.TargetAdminDashboard).Pushed())
	return attempt, nil
}

// account signs up, or signs in when an earlier attempt with this draft
// already created the account. Wrong credentials keep the original conflict.
func (f *Flow) account(ctx context.Context, draftID string, req auth.SignUpRequest) (*auth.Result, error) {
	account, err := f.accounts.SignUp(ctx, req)
	if err == nil || !domain.IsDomainError(err, domain.ErrCodeConflict) {
		return account, err
	}

	signedIn, signInErr := f.accounts.SignIn(ctx, auth.SignInRequest{Email: req.Email, Password: req.Password})
	if signInErr != nil {
		if domain.IsDomainError(signInErr, domain.ErrCodeUnauthorized) {
			return nil, err
		}
		return nil, signInErr
	}
	if signedIn != nil && !signedIn.IsAdmin {
		return nil, domain.ErrNotAdmin
	}
	f.logger.Info("resuming society setup for existing account", zap.String("draft_id", draftID))
	return signedIn, nil
}
