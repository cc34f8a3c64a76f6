package repository

import (
	"context"

	"github.com/fastygo/ava/domain"
)

type RoleRepository interface {
	GetRole(ctx context.Context, userID string) (domain.Role, error)
}
