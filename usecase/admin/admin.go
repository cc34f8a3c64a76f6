package admin

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
	"github.com/fastygo/ava/usecase"
)

const defaultMemberPage = 50

// UseCase serves the admin screens for the society an admin is linked to.
type UseCase struct {
	societies repository.SocietyRepository
	profiles  repository.ProfileRepository
	buffer    usecase.OperationBuffer
	validator usecase.Validator
	logger    *zap.Logger
}

func New(
	societies repository.SocietyRepository,
	profiles repository.ProfileRepository,
	buffer usecase.OperationBuffer,
	validator usecase.Validator,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		societies: societies,
		profiles:  profiles,
		buffer:    buffer,
		validator: validator,
		logger:    logger,
	}
}

func (uc *UseCase) GetSociety(ctx context.Context, session domain.SessionContext) (*domain.Society, error) {
	if err := session.RequireAdmin(); err != nil {
		return nil, err
	}
	societyID, err := uc.profiles.GetSocietyID(ctx, session.IdentityID())
	if err != nil {
		return nil, err
	}
	if societyID == "" {
		return nil, domain.ErrSocietyNotFound
	}
	return uc.societies.GetByID(ctx, societyID)
}

// UpdateSociety lets the creator edit the society. The form is parsed the same
// way as during provisioning.
func (uc *UseCase) UpdateSociety(ctx context.Context, session domain.SessionContext, form domain.SocietyForm) (*domain.Society, bool, error) {
	form = form.Normalize()
	if err := uc.validator.Struct(form); err != nil {
		return nil, false, err
	}

	society, err := uc.GetSociety(ctx, session)
	if err != nil {
		return nil, false, err
	}
	if society.CreatedBy != session.IdentityID() {
		return nil, false, domain.ErrNotSocietyCreator
	}

	form.Apply(society)
	err = uc.societies.Update(ctx, society)
	if err == nil {
		return society, false, nil
	}
	if domain.IsDomainError(err, domain.ErrCodeNotFound) || uc.buffer == nil {
		return nil, false, err
	}

	if bufErr := uc.buffer.BufferSociety(ctx, usecase.OperationUpdate, society); bufErr != nil {
		uc.logger.Error("failed to buffer society update", zap.String("society_id", society.ID), zap.Error(bufErr))
		return nil, false, err
	}
	uc.logger.Warn("society update buffered due to repository error", zap.String("society_id", society.ID), zap.Error(err))
	return society, true, nil
}

// ListMembers returns the profiles linked to the admin's society.
func (uc *UseCase) ListMembers(ctx context.Context, session domain.SessionContext, limit, offset int) ([]domain.UserProfile, error) {
	society, err := uc.GetSociety(ctx, session)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMemberPage
	}
	if offset < 0 {
		offset = 0
	}
	return uc.profiles.ListBySociety(ctx, society.ID, limit, offset)
}
