package repository

import (
	"context"

	"github.com/fastygo/ava/domain"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)
	// GetSocietyID returns "" when the identity has no profile or no society.
	GetSocietyID(ctx context.Context, id string) (string, error)
	LinkSociety(ctx context.Context, id, societyID string) error
	Update(ctx context.Context, profile *domain.UserProfile) error
	ListBySociety(ctx context.Context, societyID string, limit, offset int) ([]domain.UserProfile, error)
}
