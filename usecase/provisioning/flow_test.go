package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/internal/infrastructure/token"
	"github.com/fastygo/ava/internal/testutil/memory"
	"github.com/fastygo/ava/pkg/validation"
	"github.com/fastygo/ava/usecase/auth"
)

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*auth.Result)
	return res, args.Error(1)
}

func (m *mockAccounts) SignIn(ctx context.Context, req auth.SignInRequest) (*auth.Result, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*auth.Result)
	return res, args.Error(1)
}

var oakGrove = domain.SocietyForm{
	Name:           "Oak Grove",
	Address:        "123 Main",
	Amenities:      "Pool, Gym",
	UtilityWorkers: "Sam (555-1234), Alex",
	NumFlats:       40,
}

func newTestFlow(t *testing.T) (*Flow, *memory.Store, *mockAccounts) {
	t.Helper()
	store := memory.NewStore()
	accounts := &mockAccounts{}
	flow := New(
		store.Societies(),
		store.Profiles(),
		store.Drafts(),
		accounts,
		validation.New(),
		Config{RedirectDelay: time.Second},
		nil,
	)
	return flow, store, accounts
}

// newAccountFlow wires the flow to a real auth use case over the same store.
func newAccountFlow(t *testing.T) (*Flow, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	accounts := auth.New(
		store.Users(),
		store.Roles(),
		store.Sessions(),
		store.ResetTokens(),
		token.NewIssuer(token.Config{Secret: "test-secret", Issuer: "ava"}),
		nil,
		validation.New(),
		auth.Config{SessionTTL: time.Hour, BcryptCost: bcrypt.MinCost},
		nil,
	)
	flow := New(
		store.Societies(),
		store.Profiles(),
		store.Drafts(),
		accounts,
		validation.New(),
		Config{RedirectDelay: time.Second},
		nil,
	)
	return flow, store
}

func adminSession(id string) domain.SessionContext {
	return domain.SessionContext{Identity: &domain.User{ID: id}, IsAdmin: true}
}

func signupRequest() auth.SignUpRequest {
	return auth.SignUpRequest{
		Email:     "ada@example.com",
		Password:  "correct-horse",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Role:      "admin",
	}
}

func TestProvision_Standalone(t *testing.T) {
	flow, store, _ := newTestFlow(t)
	store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "")

	attempt, err := flow.Provision(context.Background(), adminSession("U1"), oakGrove)
	require.NoError(t, err)

	assert.True(t, attempt.Done())
	assert.Equal(t, []domain.ProvisioningState{
		domain.StateIdle,
		domain.StateValidating,
		domain.StateCreatingSociety,
		domain.StateLinkingProfile,
		domain.StateDone,
	}, attempt.Trail)
	require.NotNil(t, attempt.Navigation)
	assert.Equal(t, "/admin/dashboard", attempt.Navigation.Path)
	assert.Equal(t, time.Second, attempt.Navigation.Delay())
	assert.Equal(t, attempt.Society.ID, store.Profile("U1").SocietyID)
	assert.Equal(t, 1, store.SocietyInserts)
}

func TestProvision_RequiresAdmin(t *testing.T) {
	flow, store, _ := newTestFlow(t)

	_, err := flow.Provision(context.Background(), domain.SessionContext{Identity: &domain.User{ID: "U2"}}, oakGrove)
	assert.ErrorIs(t, err, domain.ErrNotAdmin)

	_, err = flow.Provision(context.Background(), domain.SessionContext{Loading: true}, oakGrove)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	assert.Zero(t, store.SocietyInserts)
}

func TestProvision_ValidationMakesNoRemoteCalls(t *testing.T) {
	invalid := []domain.SocietyForm{
		{Name: "Oak Grove", Address: "123 Main", NumFlats: 0},
		{Name: "Oak Grove", Address: "123 Main", NumFlats: -1},
		{Name: "", Address: "123 Main", NumFlats: 10},
		{Name: "Oak Grove", Address: "   ", NumFlats: 10},
	}

	for _, form := range invalid {
		flow, store, accounts := newTestFlow(t)
		store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "")

		attempt, err := flow.Provision(context.Background(), adminSession("U1"), form)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		assert.Equal(t, domain.StateIdle, attempt.State)
		assert.Nil(t, attempt.Navigation)

		draftID := "draft-1"
		require.NoError(t, store.Drafts().Save(context.Background(), &domain.PendingSocietyDraft{ID: draftID, Form: form}))
		attempt, err = flow.ProvisionAfterSignup(context.Background(), draftID, signupRequest())
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		assert.Equal(t, domain.StateIdle, attempt.State)

		_, err = flow.SaveDraft(context.Background(), form)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

		assert.Zero(t, store.SocietyInserts)
		assert.Zero(t, store.SocietyLookups)
		assert.Zero(t, store.LinkCalls)
		accounts.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
	}
}

func TestProvision_CreateFailure(t *testing.T) {
	flow, store, _ := newTestFlow(t)
	store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "")
	store.Locked(func() { store.CreateSocietyErr = errors.New("insert failed") })

	attempt, err := flow.Provision(context.Background(), adminSession("U1"), oakGrove)

	assert.True(t, domain.IsDomainError(err, domain.ErrCodeSocietyCreate))
	assert.Equal(t, domain.StateIdle, attempt.State)
	assert.False(t, attempt.Inconsistent)
	assert.Nil(t, attempt.Navigation)
	assert.Zero(t, store.LinkCalls)
}

func TestProvision_LinkFailureThenRetryReconciles(t *testing.T) {
	flow, store, _ := newTestFlow(t)
	ctx := context.Background()
	store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "")
	store.Locked(func() { store.LinkErr = errors.New("update failed") })

	attempt, err := flow.Provision(ctx, adminSession("U1"), oakGrove)

	var dErr *domain.Error
	require.ErrorAs(t, err, &dErr)
	assert.Equal(t, domain.ErrCodeProfileLink, dErr.Code)
	assert.Equal(t, "Failed to update your profile with society information", dErr.Message)
	assert.True(t, attempt.Inconsistent)
	assert.Equal(t, domain.StateIdle, attempt.State)
	assert.Nil(t, attempt.Navigation)
	orphan := attempt.Society
	require.NotNil(t, orphan)

	store.Locked(func() { store.LinkErr = nil })
	retry, err := flow.Provision(ctx, adminSession("U1"), oakGrove)
	require.NoError(t, err)

	assert.True(t, retry.Existing)
	assert.Equal(t, orphan.ID, retry.Society.ID)
	assert.Equal(t, []domain.ProvisioningState{domain.StateIdle, domain.StateValidating, domain.StateDone}, retry.Trail)
	assert.Equal(t, domain.TargetAdminDashboard, retry.Navigation.Target)
	assert.Equal(t, 1, store.SocietyInserts)
	assert.Equal(t, orphan.ID, store.Profile("U1").SocietyID)
}

func TestPreCheck_IsIdempotent(t *testing.T) {
	tests := []struct {
		name string
		seed func(store *memory.Store)
	}{
		{
			name: "profile linked",
			seed: func(store *memory.Store) {
				store.SeedSociety(&domain.Society{ID: "S1", Name: "Oak Grove", CreatedBy: "someone-else"})
				store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "S1")
			},
		},
		{
			name: "creator linked",
			seed: func(store *memory.Store) {
				store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "")
				store.SeedSociety(&domain.Society{ID: "S1", Name: "Oak Grove", CreatedBy: "U1"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, store, _ := newTestFlow(t)
			tt.seed(store)
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				society, err := flow.PreCheck(ctx, "U1")
				require.NoError(t, err)
				require.NotNil(t, society)
				assert.Equal(t, "S1", society.ID)

				attempt, err := flow.Provision(ctx, adminSession("U1"), oakGrove)
				require.NoError(t, err)
				assert.True(t, attempt.Existing)
			}

			assert.Zero(t, store.SocietyInserts)
			assert.Equal(t, "S1", store.Profile("U1").SocietyID)
		})
	}
}

func TestStatus(t *testing.T) {
	flow, store, _ := newTestFlow(t)
	ctx := context.Background()
	store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "")

	status, err := flow.Status(ctx, adminSession("U1"))
	require.NoError(t, err)
	assert.Nil(t, status.Navigation)
	assert.Empty(t, status.Warning)

	store.Locked(func() { store.GetSocietyIDErr = errors.New("timeout") })
	status, err = flow.Status(ctx, adminSession("U1"))
	require.NoError(t, err)
	assert.NotEmpty(t, status.Warning)

	store.Locked(func() { store.GetSocietyIDErr = nil })
	store.SeedSociety(&domain.Society{ID: "S1", CreatedBy: "U1"})
	status, err = flow.Status(ctx, adminSession("U1"))
	require.NoError(t, err)
	require.NotNil(t, status.Navigation)
	assert.Equal(t, "/admin/dashboard", status.Navigation.Path)
}

func TestProvision_LookupFailureBlocksInsert(t *testing.T) {
	flow, store, _ := newTestFlow(t)
	store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "")
	store.Locked(func() { store.GetByCreatorErr = errors.New("timeout") })

	attempt, err := flow.Provision(context.Background(), adminSession("U1"), oakGrove)

	assert.Error(t, err)
	assert.Equal(t, domain.StateIdle, attempt.State)
	assert.Zero(t, store.SocietyInserts)
}

func TestProvision_ConcurrentSubmissionsInsertOnce(t *testing.T) {
	flow, store, _ := newTestFlow(t)
	store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := flow.Provision(context.Background(), adminSession("U1"), oakGrove)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.SocietyCount())
}

func TestProvisionAfterSignup_OakGrove(t *testing.T) {
	flow, store, accounts := newTestFlow(t)
	ctx := context.Background()

	draft, err := flow.SaveDraft(ctx, oakGrove)
	require.NoError(t, err)
	assert.True(t, store.HasDraft(draft.ID))

	accounts.On("SignUp", mock.Anything, signupRequest()).
		Run(func(mock.Arguments) {
			store.SeedUser("U1", "ada@example.com", domain.RoleAdmin, "")
		}).
		Return(&auth.Result{Identity: &domain.User{ID: "U1"}, IsAdmin: true}, nil).
		Once()

	attempt, err := flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())
	require.NoError(t, err)

	society := store.Society(attempt.Society.ID)
	require.NotNil(t, society)
	assert.Equal(t, []string{"Sam (555-1234)", "Alex"}, society.UtilityWorkers)
	assert.Equal(t, []string{"Pool", "Gym"}, society.Amenities)
	assert.Equal(t, "U1", society.CreatedBy)
	assert.Equal(t, 40, society.NumFlats)
	assert.Equal(t, society.ID, store.Profile("U1").SocietyID)
	assert.False(t, store.HasDraft(draft.ID))
	assert.Equal(t, "/admin/dashboard", attempt.Navigation.Path)
	assert.Zero(t, attempt.Navigation.DelayMS)
	accounts.AssertExpectations(t)
}

func TestProvisionAfterSignup_LinkFailureKeepsDraft(t *testing.T) {
	flow, store, accounts := newTestFlow(t)
	ctx := context.Background()
	draft, err := flow.SaveDraft(ctx, oakGrove)
	require.NoError(t, err)
	store.Locked(func() { store.LinkErr = errors.New("update failed") })

	account := &auth.Result{Identity: &domain.User{ID: "U1"}, IsAdmin: true}
	accounts.On("SignUp", mock.Anything, mock.Anything).Return(account, nil)

	attempt, err := flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())

	assert.True(t, domain.IsDomainError(err, domain.ErrCodeProfileLink))
	assert.True(t, store.HasDraft(draft.ID))
	assert.Nil(t, attempt.Navigation)
	assert.True(t, attempt.Inconsistent)
	assert.Same(t, account, attempt.Account)
}

func TestProvisionAfterSignup_IdentityUnresolved(t *testing.T) {
	flow, store, accounts := newTestFlow(t)
	ctx := context.Background()
	draft, err := flow.SaveDraft(ctx, oakGrove)
	require.NoError(t, err)
	accounts.On("SignUp", mock.Anything, mock.Anything).Return(&auth.Result{Identity: &domain.User{}}, nil)

	attempt, err := flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())

	assert.ErrorIs(t, err, domain.ErrIdentityUnresolved)
	assert.Equal(t, "User ID not found after signup", err.Error())
	assert.True(t, store.HasDraft(draft.ID))
	assert.Zero(t, store.SocietyInserts)
	assert.Nil(t, attempt.Navigation)
}

func TestProvisionAfterSignup_SignUpFailureKeepsDraft(t *testing.T) {
	flow, store, accounts := newTestFlow(t)
	ctx := context.Background()
	draft, err := flow.SaveDraft(ctx, oakGrove)
	require.NoError(t, err)
	accounts.On("SignUp", mock.Anything, mock.Anything).Return(nil, domain.ErrEmailTaken)
	accounts.On("SignIn", mock.Anything, auth.SignInRequest{Email: "ada@example.com", Password: "correct-horse"}).
		Return(nil, domain.ErrInvalidCredentials)

	_, err = flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())

	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.True(t, store.HasDraft(draft.ID))
	assert.Zero(t, store.SocietyInserts)
	accounts.AssertExpectations(t)
}

func TestProvisionAfterSignup_RetryAfterCreateFailure(t *testing.T) {
	flow, store := newAccountFlow(t)
	ctx := context.Background()
	draft, err := flow.SaveDraft(ctx, oakGrove)
	require.NoError(t, err)
	store.Locked(func() { store.CreateSocietyErr = errors.New("insert failed") })

	attempt, err := flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeSocietyCreate))
	assert.True(t, store.HasDraft(draft.ID))
	assert.Zero(t, store.SocietyCount())
	require.NotNil(t, attempt.Account)

	store.Locked(func() { store.CreateSocietyErr = nil })
	retry, err := flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())
	require.NoError(t, err)

	assert.False(t, retry.Existing)
	assert.Equal(t, 1, store.SocietyCount())
	assert.False(t, store.HasDraft(draft.ID))
	require.NotNil(t, retry.Account)
	assert.NotEmpty(t, retry.Account.AccessToken)
	assert.True(t, retry.Account.IsAdmin)
	assert.Equal(t, attempt.Account.Identity.ID, retry.Account.Identity.ID)
	assert.Equal(t, retry.Society.ID, store.Profile(retry.Account.Identity.ID).SocietyID)
	assert.Equal(t, "/admin/dashboard", retry.Navigation.Path)
	assert.False(t, retry.Navigation.Replace)
}

func TestProvisionAfterSignup_RetryAfterLinkFailure(t *testing.T) {
	flow, store := newAccountFlow(t)
	ctx := context.Background()
	draft, err := flow.SaveDraft(ctx, oakGrove)
	require.NoError(t, err)
	store.Locked(func() { store.LinkErr = errors.New("update failed") })

	attempt, err := flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeProfileLink))
	assert.True(t, store.HasDraft(draft.ID))
	orphan := attempt.Society
	require.NotNil(t, orphan)

	store.Locked(func() { store.LinkErr = nil })
	retry, err := flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())
	require.NoError(t, err)

	assert.True(t, retry.Existing)
	assert.Equal(t, orphan.ID, retry.Society.ID)
	assert.Equal(t, 1, store.SocietyInserts)
	assert.Equal(t, 1, store.SocietyCount())
	assert.False(t, store.HasDraft(draft.ID))
	assert.Equal(t, orphan.ID, store.Profile(retry.Account.Identity.ID).SocietyID)
	assert.Equal(t, domain.StateDone, retry.State)
	assert.Equal(t, domain.TargetAdminDashboard, retry.Navigation.Target)
}

func TestProvisionAfterSignup_RetryWithWrongPassword(t *testing.T) {
	flow, store := newAccountFlow(t)
	ctx := context.Background()
	draft, err := flow.SaveDraft(ctx, oakGrove)
	require.NoError(t, err)
	store.Locked(func() { store.CreateSocietyErr = errors.New("insert failed") })

	_, err = flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())
	require.Error(t, err)
	store.Locked(func() { store.CreateSocietyErr = nil })

	req := signupRequest()
	req.Password = "battery-staple"
	attempt, err := flow.ProvisionAfterSignup(ctx, draft.ID, req)

	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.Nil(t, attempt.Account)
	assert.Zero(t, store.SocietyCount())
	assert.True(t, store.HasDraft(draft.ID))
}

func TestProvisionAfterSignup_ExistingTenantCannotResume(t *testing.T) {
	flow, store, accounts := newTestFlow(t)
	ctx := context.Background()
	draft, err := flow.SaveDraft(ctx, oakGrove)
	require.NoError(t, err)
	accounts.On("SignUp", mock.Anything, mock.Anything).Return(nil, domain.ErrEmailTaken)
	accounts.On("SignIn", mock.Anything, mock.Anything).
		Return(&auth.Result{Identity: &domain.User{ID: "U1"}, AccessToken: "tenant-token"}, nil)

	attempt, err := flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())

	assert.ErrorIs(t, err, domain.ErrNotAdmin)
	assert.Nil(t, attempt.Account)
	assert.Zero(t, store.SocietyInserts)
	assert.True(t, store.HasDraft(draft.ID))
}

func TestProvisionAfterSignup_IgnoresCallerCancellation(t *testing.T) {
	flow, store, accounts := newTestFlow(t)
	draft, err := flow.SaveDraft(context.Background(), oakGrove)
	require.NoError(t, err)

	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	accounts.On("SignUp", live, mock.Anything).
		Return(&auth.Result{Identity: &domain.User{ID: "U1"}, IsAdmin: true}, nil).
		Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempt, err := flow.ProvisionAfterSignup(ctx, draft.ID, signupRequest())

	require.NoError(t, err)
	assert.True(t, attempt.Done())
	assert.Equal(t, 1, store.SocietyCount())
	accounts.AssertExpectations(t)
}

func TestSubmissionKey(t *testing.T) {
	base := signupRequest()

	upper := base
	upper.Email = "  ADA@example.com "
	otherEmail := base
	otherEmail.Email = "eve@example.com"
	otherPassword := base
	otherPassword.Password = "battery-staple"

	assert.Equal(t, submissionKey("d1", base), submissionKey("d1", upper))
	assert.NotEqual(t, submissionKey("d1", base), submissionKey("d2", base))
	assert.NotEqual(t, submissionKey("d1", base), submissionKey("d1", otherEmail))
	assert.NotEqual(t, submissionKey("d1", base), submissionKey("d1", otherPassword))
	assert.NotContains(t, submissionKey("d1", base), "ada@example.com")
}

func TestProvisionAfterSignup_MissingDraft(t *testing.T) {
	flow, _, accounts := newTestFlow(t)

	attempt, err := flow.ProvisionAfterSignup(context.Background(), "gone", signupRequest())

	assert.ErrorIs(t, err, domain.ErrDraftNotFound)
	require.NotNil(t, attempt.Navigation)
	assert.Equal(t, "/admin/presignup-setup", attempt.Navigation.Path)
	accounts.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
}

func TestProvisionAfterSignup_RejectsTenantRole(t *testing.T) {
	flow, _, accounts := newTestFlow(t)
	ctx := context.Background()
	draft, err := flow.SaveDraft(ctx, oakGrove)
	require.NoError(t, err)

	req := signupRequest()
	req.Role = "tenant"
	_, err = flow.ProvisionAfterSignup(ctx, draft.ID, req)

	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	accounts.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
}
