package repository

import (
	"context"

	"github.com/fastygo/ava/domain"
)

type SocietyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Society, error)
	GetByCreator(ctx context.Context, userID string) (*domain.Society, error)
	Create(ctx context.Context, society *domain.Society) error
	Update(ctx context.Context, society *domain.Society) error
}
