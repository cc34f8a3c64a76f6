package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
	"github.com/fastygo/ava/usecase"
)

// TokenIssuer signs access tokens bound to a session.
type TokenIssuer interface {
	Issue(session *domain.Session) (string, error)
}

// ResetNotifier delivers password reset links.
type ResetNotifier interface {
	SendReset(ctx context.Context, email, link string) error
}

type Config struct {
	SessionTTL time.Duration
	ResetTTL   time.Duration
	ResetURL   string
	BcryptCost int
}

// Result is what a successful sign in or sign up hands back to the caller.
type Result struct {
	Identity    *domain.User
	Session     *domain.Session
	AccessToken string
	IsAdmin     bool
}

// SessionContext returns the explicit session value for the router.
func (r *Result) SessionContext() domain.SessionContext {
	if r == nil {
		return domain.SessionContext{}
	}
	sc := domain.NewSessionContext(r.Session)
	if r.Identity != nil {
		sc.Identity = r.Identity
	}
	return sc
}

type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FirstName   string `json:"firstName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"required,max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
	Role        string `json:"role" validate:"required,role"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ConfirmResetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UseCase struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	sessions  repository.SessionRepository
	resets    repository.ResetTokenRepository
	tokens    TokenIssuer
	notifier  ResetNotifier
	validator usecase.Validator
	cfg       Config
	logger    *zap.Logger
}

func New(
	users repository.UserRepository,
	roles repository.RoleRepository,
	sessions repository.SessionRepository,
	resets repository.ResetTokenRepository,
	tokens TokenIssuer,
	notifier ResetNotifier,
	validator usecase.Validator,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &UseCase{
		users:     users,
		roles:     roles,
		sessions:  sessions,
		resets:    resets,
		tokens:    tokens,
		notifier:  notifier,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// SignUp creates the account with its profile and role, then signs it in.
func (uc *UseCase) SignUp(ctx context.Context, req SignUpRequest) (*Result, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := uc.validator.Struct(req); err != nil {
		return nil, err
	}
	role, _ := domain.ParseRole(req.Role)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), uc.cfg.BcryptCost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to hash password", err)
	}

	user := &domain.User{
		ID:     uuid.NewString(),
		Email:  req.Email,
		Status: "active",
		Metadata: map[string]string{
			"first_name":   req.FirstName,
			"last_name":    req.LastName,
			"phone_number": req.PhoneNumber,
			"role":         string(role),
		},
	}
	reg := &domain.Registration{
		User:         user,
		PasswordHash: string(hash),
		Profile:      &domain.UserProfile{ID: user.ID, FirstName: req.FirstName, LastName: req.LastName},
		Role:         role,
	}
	if err := uc.users.Create(ctx, reg); err != nil {
		return nil, err
	}

	uc.logger.Info("account created", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return uc.establish(ctx, user, role.IsAdmin())
}

// SignIn checks the password and opens a session. Unknown emails and wrong
// passwords produce the same error.
func (uc *UseCase) SignIn(ctx context.Context, req SignInRequest) (*Result, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := uc.validator.Struct(req); err != nil {
		return nil, err
	}

	creds, err := uc.users.GetCredentials(ctx, req.Email)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := uc.users.GetByID(ctx, creds.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrInvalidCredentials
	}

	isAdmin, err := uc.isAdmin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return uc.establish(ctx, user, isAdmin)
}

func (uc *UseCase) isAdmin(ctx context.Context, userID string) (bool, error) {
	role, err := uc.roles.GetRole(ctx, userID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return role.IsAdmin(), nil
}

// establish stores a session and signs its access token. The admin flag is
// frozen into the session here.
func (uc *UseCase) establish(ctx context.Context, user *domain.User, isAdmin bool) (*Result, error) {
	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		IsAdmin:   isAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.cfg.SessionTTL),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	token, err := uc.tokens.Issue(session)
	if err != nil {
		_ = uc.sessions.Delete(ctx, session.ID)
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to issue token", err)
	}

	return &Result{Identity: user, Session: session, AccessToken: token, IsAdmin: isAdmin}, nil
}

// ResetPassword issues a reset link when the email belongs to an account and
// returns nil either way.
func (uc *UseCase) ResetPassword(ctx context.Context, req ResetRequest) error {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := uc.validator.Struct(req); err != nil {
		return err
	}

	creds, err := uc.users.GetCredentials(ctx, req.Email)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token := uuid.NewString()
	if err := uc.resets.Save(ctx, token, creds.UserID, uc.cfg.ResetTTL); err != nil {
		return err
	}
	if err := uc.notifier.SendReset(ctx, creds.Email, uc.cfg.ResetURL+"?token="+token); err != nil {
		uc.logger.Error("failed to send reset link", zap.String("user_id", creds.UserID), zap.Error(err))
	}
	return nil
}

// ConfirmReset spends the token and sets the new password.
func (uc *UseCase) ConfirmReset(ctx context.Context, req ConfirmResetRequest) error {
	if err := uc.validator.Struct(req); err != nil {
		return err
	}

	userID, err := uc.resets.Consume(ctx, req.Token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), uc.cfg.BcryptCost)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "failed to hash password", err)
	}
	if err := uc.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	uc.logger.Info("password reset", zap.String("user_id", userID))
	return nil
}

func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// RefreshSession extends a live session and signs a fresh access token.
func (uc *UseCase) RefreshSession(ctx context.Context, sessionID string) (*Result, error) {
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, sessionID, int(uc.cfg.SessionTTL.Seconds())); err != nil {
		return nil, err
	}
	session.ExpiresAt = time.Now().Add(uc.cfg.SessionTTL)

	token, err := uc.tokens.Issue(session)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to issue token", err)
	}
	return &Result{
		Identity:    &domain.User{ID: session.UserID, Email: session.Email, Status: "active"},
		Session:     session,
		AccessToken: token,
		IsAdmin:     session.IsAdmin,
	}, nil
}

// SignOut revokes the session. Tokens bound to it stop working at once.
func (uc *UseCase) SignOut(ctx context.Context, sessionID string) error {
	return uc.sessions.Delete(ctx, sessionID)
}

// SessionContext resolves a session into the value passed to the router and
// the provisioning flow. The identity is filled from the users table when it
// can be read; otherwise the session's own copy is used.
func (uc *UseCase) SessionContext(ctx context.Context, sessionID string) (domain.SessionContext, error) {
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return domain.SessionContext{}, err
	}

	sc := domain.NewSessionContext(session)
	user, err := uc.users.GetByID(ctx, session.UserID)
	if err != nil {
		uc.logger.Warn("identity lookup failed, using session copy",
			zap.String("user_id", session.UserID), zap.Error(err))
		return sc, nil
	}
	sc.Identity = user
	return sc, nil
}
