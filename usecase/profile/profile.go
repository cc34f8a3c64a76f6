package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
	"github.com/fastygo/ava/usecase"
)

type UseCase struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	roles     repository.RoleRepository
	societies repository.SocietyRepository
	buffer    usecase.OperationBuffer
	validator usecase.Validator
	logger    *zap.Logger
}

func New(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	roles repository.RoleRepository,
	societies repository.SocietyRepository,
	buffer usecase.OperationBuffer,
	validator usecase.Validator,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:     users,
		profiles:  profiles,
		roles:     roles,
		societies: societies,
		buffer:    buffer,
		validator: validator,
		logger:    logger,
	}
}

// GetProfile assembles the profile screen. Only the identity itself is
// required; every other part degrades to an empty value.
func (uc *UseCase) GetProfile(ctx context.Context, identityID string) (*domain.ProfileView, error) {
	user, err := uc.users.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}

	view := &domain.ProfileView{
		ID:       user.ID,
		Email:    user.Email,
		JoinedAt: user.CreatedAt,
		Role:     uc.role(ctx, identityID),
	}

	profile, err := uc.profiles.GetByID(ctx, identityID)
	switch {
	case err == nil:
		view.FirstName = profile.FirstName
		view.LastName = profile.LastName
		view.SocietyID = profile.SocietyID
		view.FlatNumber = profile.FlatNumber
		view.Bio = profile.Bio
		view.AvatarURL = profile.AvatarURL
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
	default:
		uc.logger.Warn("profile lookup failed", zap.String("user_id", identityID), zap.Error(err))
	}

	if view.FirstName == "" {
		view.FirstName = user.MetadataValue("first_name")
	}
	if view.LastName == "" {
		view.LastName = user.MetadataValue("last_name")
	}
	if view.Bio == "" {
		view.Bio = user.MetadataValue("bio")
	}

	if view.SocietyID != "" {
		society, err := uc.societies.GetByID(ctx, view.SocietyID)
		if err != nil {
			uc.logger.Warn("society lookup failed",
				zap.String("user_id", identityID), zap.String("society_id", view.SocietyID), zap.Error(err))
		} else {
			view.SocietyName = society.Name
		}
	}

	return view, nil
}

func (uc *UseCase) role(ctx context.Context, identityID string) domain.Role {
	role, err := uc.roles.GetRole(ctx, identityID)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.logger.Warn("role lookup failed", zap.String("user_id", identityID), zap.Error(err))
		}
		return domain.RoleTenant
	}
	return role
}

// UpdateProfile writes the editable fields. When Postgres refuses the write
// for reasons other than a missing row, the update is buffered and replayed
// later; the returned profile then reflects the pending state.
func (uc *UseCase) UpdateProfile(ctx context.Context, identityID string, update domain.ProfileUpdate) (*domain.UserProfile, bool, error) {
	if err := uc.validator.Struct(update); err != nil {
		return nil, false, err
	}

	profile := &domain.UserProfile{ID: identityID}
	update.Apply(profile)

	err := uc.profiles.Update(ctx, profile)
	if err == nil {
		return profile, false, nil
	}
	if domain.IsDomainError(err, domain.ErrCodeNotFound) || uc.buffer == nil {
		return nil, false, err
	}

	if bufErr := uc.buffer.BufferProfile(ctx, usecase.OperationUpdate, profile); bufErr != nil {
		uc.logger.Error("failed to buffer profile update", zap.String("user_id", identityID), zap.Error(bufErr))
		return nil, false, err
	}
	uc.logger.Warn("profile update buffered due to repository error", zap.String("user_id", identityID), zap.Error(err))
	return profile, true, nil
}
