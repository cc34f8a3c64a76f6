package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/repository"
)

const societyColumns = `id, name, address, amenities, utility_workers, num_flats, created_by, created_at, updated_at`

type societyRepository struct {
	db DB
}

// NewSocietyRepository returns a Postgres-backed SocietyRepository.
func NewSocietyRepository(db DB) repository.SocietyRepository {
	return &societyRepository{db: db}
}

func (r *societyRepository) GetByID(ctx context.Context, id string) (*domain.Society, error) {
	query := `SELECT ` + societyColumns + ` FROM societies WHERE id = $1`
	return scanSociety(r.db.QueryRow(ctx, query, id))
}

// GetByCreator returns the oldest society created by userID.
func (r *societyRepository) GetByCreator(ctx context.Context, userID string) (*domain.Society, error) {
	query := `SELECT ` + societyColumns + `
	FROM societies
	WHERE created_by = $1
	ORDER BY created_at ASC
	LIMIT 1`
	return scanSociety(r.db.QueryRow(ctx, query, userID))
}

func (r *societyRepository) Create(ctx context.Context, society *domain.Society) error {
	if society == nil || society.CreatedBy == "" {
		return domain.ErrInvalidPayload
	}
	if society.ID == "" {
		society.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO societies (id, name, address, amenities, utility_workers, num_flats, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		society.ID,
		society.Name,
		society.Address,
		nonNil(society.Amenities),
		nonNil(society.UtilityWorkers),
		society.NumFlats,
		society.CreatedBy,
	).Scan(&society.CreatedAt, &society.UpdatedAt)
}

func (r *societyRepository) Update(ctx context.Context, society *domain.Society) error {
	if society == nil || society.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE societies
	SET name = $2,
		address = $3,
		amenities = $4,
		utility_workers = $5,
		num_flats = $6,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.db.QueryRow(ctx, query,
		society.ID,
		society.Name,
		society.Address,
		nonNil(society.Amenities),
		nonNil(society.UtilityWorkers),
		society.NumFlats,
	).Scan(&society.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSocietyNotFound
		}
		return err
	}
	return nil
}

func scanSociety(row rowScanner) (*domain.Society, error) {
	var s domain.Society
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Address,
		&s.Amenities,
		&s.UtilityWorkers,
		&s.NumFlats,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSocietyNotFound
		}
		return nil, err
	}
	return &s, nil
}
