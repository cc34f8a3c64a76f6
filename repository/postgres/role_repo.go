package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
)

type roleRepository struct {
	db DB
}

// NewRoleRepository returns a Postgres-backed RoleRepository.
func NewRoleRepository(db DB) repository.RoleRepository {
	return &roleRepository{db: db}
}

// GetRole returns the strongest role held by userID; admin wins over tenant.
func (r *roleRepository) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	const query = `
	SELECT role
	FROM user_roles
	WHERE user_id = $1
	ORDER BY (role = 'admin') DESC
	LIMIT 1
	`
	var raw string
	if err := r.db.QueryRow(ctx, query, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrRoleNotFound
		}
		return "", err
	}
	role, ok := domain.ParseRole(raw)
	if !ok {
		return "", domain.ErrRoleNotFound
	}
	return role, nil
}
