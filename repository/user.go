package repository

import (
	"context"

	"github.com/fastygo/ava/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetCredentials(ctx context.Context, email string) (*domain.Credentials, error)
	// Create writes the user, its profile and its role atomically.
	Create(ctx context.Context, reg *domain.Registration) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
