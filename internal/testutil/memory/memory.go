// Package memory provides in-memory repositories for use case and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
)

// Store backs every repository view with shared maps so a registration is
// visible to the profile and role views, as it is in Postgres.
type Store struct {
	mu sync.Mutex

	users     map[string]*domain.User
	passwords map[string]string
	profiles  map[string]*domain.UserProfile
	roles     map[string]domain.Role
	societies map[string]*domain.Society
	sessions  map[string]*domain.Session
	resets    map[string]string
	drafts    map[string]*domain.PendingSocietyDraft

	// Injected failures, checked before the matching call touches state.
	CreateUserErr    error
	GetSocietyIDErr  error
	GetByCreatorErr  error
	CreateSocietyErr error
	UpdateSocietyErr error
	LinkErr          error
	UpdateProfileErr error
	GetRoleErr       error

	SocietyInserts int
	LinkCalls      int
	SocietyLookups int
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]*domain.User),
		passwords: make(map[string]string),
		profiles:  make(map[string]*domain.UserProfile),
		roles:     make(map[string]domain.Role),
		societies: make(map[string]*domain.Society),
		sessions:  make(map[string]*domain.Session),
		resets:    make(map[string]string),
		drafts:    make(map[string]*domain.PendingSocietyDraft),
	}
}

func (s *Store) Users() repository.UserRepository             { return userView{s} }
func (s *Store) Profiles() repository.ProfileRepository       { return profileView{s} }
func (s *Store) Roles() repository.RoleRepository             { return roleView{s} }
func (s *Store) Societies() repository.SocietyRepository      { return societyView{s} }
func (s *Store) Sessions() repository.SessionRepository       { return sessionView{s} }
func (s *Store) ResetTokens() repository.ResetTokenRepository { return resetView{s} }
func (s *Store) Drafts() repository.DraftRepository           { return draftView{s} }

// Locked runs fn while holding the store lock, for tests that tweak failures
// between concurrent calls.
func (s *Store) Locked(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// SeedUser registers an active user with a profile and role.
func (s *Store) SeedUser(id, email string, role domain.Role, societyID string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	user := &domain.User{ID: id, Email: email, Status: "active", CreatedAt: now, UpdatedAt: now}
	s.users[id] = user
	s.profiles[id] = &domain.UserProfile{ID: id, SocietyID: societyID, CreatedAt: now, UpdatedAt: now}
	s.roles[id] = role
	return user
}

// SeedSociety stores society as-is and returns it.
func (s *Store) SeedSociety(society *domain.Society) *domain.Society {
	s.mu.Lock()
	defer s.mu.Unlock()
	if society.ID == "" {
		society.ID = uuid.NewString()
	}
	if society.CreatedAt.IsZero() {
		society.CreatedAt = time.Now()
	}
	cp := *society
	s.societies[society.ID] = &cp
	return society
}

// Society returns a copy of the stored society, or nil.
func (s *Store) Society(id string) *domain.Society {
	s.mu.Lock()
	defer s.mu.Unlock()
	if soc, ok := s.societies[id]; ok {
		cp := *soc
		return &cp
	}
	return nil
}

// SocietyCount is the number of stored societies.
func (s *Store) SocietyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.societies)
}

// Profile returns a copy of the stored profile, or nil.
func (s *Store) Profile(id string) *domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// HasDraft reports whether a pending draft with id exists.
func (s *Store) HasDraft(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.drafts[id]
	return ok
}

// UserByEmail finds a registered user, or nil.
func (s *Store) UserByEmail(email string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp
		}
	}
	return nil
}

// ResetTokenFor returns the live reset token of userID, or "".
func (s *Store) ResetTokenFor(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, owner := range s.resets {
		if owner == userID {
			return token
		}
	}
	return ""
}

type userView struct{ s *Store }

func (v userView) GetByID(_ context.Context, id string) (*domain.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (v userView) GetCredentials(_ context.Context, email string) (*domain.Credentials, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for id, u := range v.s.users {
		if strings.EqualFold(u.Email, email) {
			return &domain.Credentials{UserID: id, Email: u.Email, PasswordHash: v.s.passwords[id]}, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (v userView) Create(_ context.Context, reg *domain.Registration) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.CreateUserErr != nil {
		return v.s.CreateUserErr
	}
	if reg == nil || reg.User == nil {
		return domain.ErrInvalidPayload
	}
	for _, u := range v.s.users {
		if strings.EqualFold(u.Email, reg.User.Email) {
			return domain.ErrEmailTaken
		}
	}
	if reg.User.ID == "" {
		reg.User.ID = uuid.NewString()
	}
	now := time.Now()
	reg.User.CreatedAt, reg.User.UpdatedAt = now, now
	cp := *reg.User
	v.s.users[cp.ID] = &cp
	v.s.passwords[cp.ID] = reg.PasswordHash

	profile := domain.UserProfile{ID: cp.ID, CreatedAt: now, UpdatedAt: now}
	if reg.Profile != nil {
		profile = *reg.Profile
		profile.ID = cp.ID
		profile.CreatedAt, profile.UpdatedAt = now, now
	}
	v.s.profiles[cp.ID] = &profile
	v.s.roles[cp.ID] = reg.Role
	return nil
}

func (v userView) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	v.s.passwords[userID] = passwordHash
	return nil
}

type profileView struct{ s *Store }

func (v profileView) GetByID(_ context.Context, id string) (*domain.UserProfile, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (v profileView) GetSocietyID(_ context.Context, id string) (string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.GetSocietyIDErr != nil {
		return "", v.s.GetSocietyIDErr
	}
	if p, ok := v.s.profiles[id]; ok {
		return p.SocietyID, nil
	}
	return "", nil
}

func (v profileView) LinkSociety(_ context.Context, id, societyID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.LinkCalls++
	if v.s.LinkErr != nil {
		return v.s.LinkErr
	}
	p, ok := v.s.profiles[id]
	if !ok {
		p = &domain.UserProfile{ID: id, CreatedAt: time.Now()}
		v.s.profiles[id] = p
	}
	p.SocietyID = societyID
	p.UpdatedAt = time.Now()
	return nil
}

func (v profileView) Update(_ context.Context, profile *domain.UserProfile) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.UpdateProfileErr != nil {
		return v.s.UpdateProfileErr
	}
	p, ok := v.s.profiles[profile.ID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	society := p.SocietyID
	*p = *profile
	p.SocietyID = society
	p.UpdatedAt = time.Now()
	profile.UpdatedAt = p.UpdatedAt
	return nil
}

func (v profileView) ListBySociety(_ context.Context, societyID string, limit, offset int) ([]domain.UserProfile, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []domain.UserProfile
	for _, p := range v.s.profiles {
		if p.SocietyID == societyID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	if offset >= len(out) {
		return []domain.UserProfile{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type roleView struct{ s *Store }

func (v roleView) GetRole(_ context.Context, userID string) (domain.Role, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.GetRoleErr != nil {
		return "", v.s.GetRoleErr
	}
	role, ok := v.s.roles[userID]
	if !ok || role == "" {
		return "", domain.ErrRoleNotFound
	}
	return role, nil
}

type societyView struct{ s *Store }

func (v societyView) GetByID(_ context.Context, id string) (*domain.Society, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	soc, ok := v.s.societies[id]
	if !ok {
		return nil, domain.ErrSocietyNotFound
	}
	cp := *soc
	return &cp, nil
}

func (v societyView) GetByCreator(_ context.Context, userID string) (*domain.Society, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.SocietyLookups++
	if v.s.GetByCreatorErr != nil {
		return nil, v.s.GetByCreatorErr
	}
	var found *domain.Society
	for _, soc := range v.s.societies {
		if soc.CreatedBy == userID && (found == nil || soc.CreatedAt.Before(found.CreatedAt)) {
			found = soc
		}
	}
	if found == nil {
		return nil, domain.ErrSocietyNotFound
	}
	cp := *found
	return &cp, nil
}

func (v societyView) Create(_ context.Context, society *domain.Society) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.CreateSocietyErr != nil {
		return v.s.CreateSocietyErr
	}
	v.s.SocietyInserts++
	if society.ID == "" {
		society.ID = uuid.NewString()
	}
	now := time.Now()
	society.CreatedAt, society.UpdatedAt = now, now
	cp := *society
	v.s.societies[society.ID] = &cp
	return nil
}

func (v societyView) Update(_ context.Context, society *domain.Society) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.UpdateSocietyErr != nil {
		return v.s.UpdateSocietyErr
	}
	if _, ok := v.s.societies[society.ID]; !ok {
		return domain.ErrSocietyNotFound
	}
	society.UpdatedAt = time.Now()
	cp := *society
	v.s.societies[society.ID] = &cp
	return nil
}

type sessionView struct{ s *Store }

func (v sessionView) Get(_ context.Context, id string) (*domain.Session, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sess, ok := v.s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (v sessionView) Save(_ context.Context, session *domain.Session) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}
	cp := *session
	v.s.sessions[session.ID] = &cp
	return nil
}

func (v sessionView) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	delete(v.s.sessions, id)
	return nil
}

func (v sessionView) Extend(_ context.Context, id string, ttlSeconds int) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sess, ok := v.s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.ExpiresAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	return nil
}

type resetView struct{ s *Store }

func (v resetView) Save(_ context.Context, token, userID string, _ time.Duration) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.resets[token] = userID
	return nil
}

func (v resetView) Consume(_ context.Context, token string) (string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	userID, ok := v.s.resets[token]
	if !ok {
		return "", domain.ErrResetTokenInvalid
	}
	delete(v.s.resets, token)
	return userID, nil
}

type draftView struct{ s *Store }

func (v draftView) Get(_ context.Context, id string) (*domain.PendingSocietyDraft, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	d, ok := v.s.drafts[id]
	if !ok {
		return nil, domain.ErrDraftNotFound
	}
	cp := *d
	return &cp, nil
}

func (v draftView) Save(_ context.Context, draft *domain.PendingSocietyDraft) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if draft == nil || draft.ID == "" {
		return domain.ErrInvalidPayload
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now()
	}
	cp := *draft
	v.s.drafts[draft.ID] = &cp
	return nil
}

func (v draftView) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	delete(v.s.drafts, id)
	return nil
}
