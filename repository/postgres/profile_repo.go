package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
)

const profileColumns = `id, COALESCE(society_id::text, ''), first_name, last_name, avatar_url, bio, flat_number, created_at, updated_at`

type profileRepository struct {
	db DB
}

// NewProfileRepository returns a Postgres-backed ProfileRepository.
func NewProfileRepository(db DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = $1`
	return scanProfile(r.db.QueryRow(ctx, query, id))
}

func (r *profileRepository) GetSocietyID(ctx context.Context, id string) (string, error) {
	const query = `SELECT COALESCE(society_id::text, '') FROM user_profiles WHERE id = $1`

	var societyID string
	if err := r.db.QueryRow(ctx, query, id).Scan(&societyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return societyID, nil
}

func (r *profileRepository) LinkSociety(ctx context.Context, id, societyID string) error {
	if id == "" || societyID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO user_profiles (id, society_id)
	VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE
	SET society_id = EXCLUDED.society_id,
		updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, id, societyID)
	return err
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.UserProfile) error {
	if profile == nil || profile.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE user_profiles
	SET first_name = $2,
		last_name = $3,
		avatar_url = $4,
		bio = $5,
		flat_number = $6,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.db.QueryRow(ctx, query,
		profile.ID,
		profile.FirstName,
		profile.LastName,
		profile.AvatarURL,
		profile.Bio,
		profile.FlatNumber,
	).Scan(&profile.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrProfileNotFound
		}
		return err
	}
	return nil
}

func (r *profileRepository) ListBySociety(ctx context.Context, societyID string, limit, offset int) ([]domain.UserProfile, error) {
	query := `SELECT ` + profileColumns + `
	FROM user_profiles
	WHERE society_id = $1
	ORDER BY last_name, first_name
	LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, societyID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.UserProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

func scanProfile(row rowScanner) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := row.Scan(
		&p.ID,
		&p.SocietyID,
		&p.FirstName,
		&p.LastName,
		&p.AvatarURL,
		&p.Bio,
		&p.FlatNumber,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}
