package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
)

type userRepository struct {
	db DB
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(db DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
		SELECT id, email, status, metadata, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	row := r.db.QueryRow(ctx, query, id)

	var user domain.User
	var metadata []byte

	if err := row.Scan(&user.ID, &user.Email, &user.Status, &metadata, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &user.Metadata)
	}

	return &user, nil
}

func (r *userRepository) GetCredentials(ctx context.Context, email string) (*domain.Credentials, error) {
	const query = `
		SELECT id, email, password_hash
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`
	var creds domain.Credentials
	if err := r.db.QueryRow(ctx, query, email).Scan(&creds.UserID, &creds.Email, &creds.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &creds, nil
}

func (r *userRepository) Create(ctx context.Context, reg *domain.Registration) error {
	if reg == nil || reg.User == nil || reg.Profile == nil {
		return domain.ErrInvalidPayload
	}
	if reg.User.ID == "" {
		reg.User.ID = uuid.NewString()
	}
	reg.Profile.ID = reg.User.ID

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}

	if err := insertRegistration(ctx, tx, reg); err != nil {
		_ = tx.Rollback(ctx)
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return err
	}

	return tx.Commit(ctx)
}

func insertRegistration(ctx context.Context, tx pgx.Tx, reg *domain.Registration) error {
	const insertUser = `
	INSERT INTO users (id, email, password_hash, status, metadata)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at, updated_at
	`
	const insertProfile = `
	INSERT INTO user_profiles (id, first_name, last_name)
	VALUES ($1, $2, $3)
	RETURNING created_at, updated_at
	`
	const insertRole = `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`

	user := reg.User
	if err := tx.QueryRow(ctx, insertUser,
		user.ID,
		user.Email,
		reg.PasswordHash,
		user.Status,
		marshalMap(user.Metadata),
	).Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		return err
	}

	profile := reg.Profile
	if err := tx.QueryRow(ctx, insertProfile,
		profile.ID,
		profile.FirstName,
		profile.LastName,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt); err != nil {
		return err
	}

	_, err := tx.Exec(ctx, insertRole, user.ID, string(reg.Role))
	return err
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
