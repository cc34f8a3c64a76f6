package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/ava/domain"
)

func newMockDB(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)
	return mockDB
}

var societyRowColumns = []string{"id", "name", "address", "amenities", "utility_workers", "num_flats", "created_by", "created_at", "updated_at"}

func TestSocietyRepository_Create(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		society *domain.Society
		setupDB func(pgxmock.PgxPoolIface)
		wantErr bool
	}{
		{
			name: "inserts with parsed lists",
			society: &domain.Society{
				Name:           "Oak Grove",
				Address:        "123 Main",
				Amenities:      []string{"Pool", "Gym"},
				UtilityWorkers: []string{"Sam (555-1234)", "Alex"},
				NumFlats:       40,
				CreatedBy:      "U1",
			},
			setupDB: func(mockDB pgxmock.PgxPoolIface) {
				mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO societies")).
					WithArgs(pgxmock.AnyArg(), "Oak Grove", "123 Main", []string{"Pool", "Gym"}, []string{"Sam (555-1234)", "Alex"}, 40, "U1").
					WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
			},
		},
		{
			name: "nil lists become empty arrays",
			society: &domain.Society{
				Name:      "Elm Court",
				Address:   "9 Elm",
				NumFlats:  5,
				CreatedBy: "U2",
			},
			setupDB: func(mockDB pgxmock.PgxPoolIface) {
				mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO societies")).
					WithArgs(pgxmock.AnyArg(), "Elm Court", "9 Elm", []string{}, []string{}, 5, "U2").
					WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
			},
		},
		{
			name:    "missing creator is rejected",
			society: &domain.Society{Name: "No Owner"},
			setupDB: func(pgxmock.PgxPoolIface) {},
			wantErr: true,
		},
		{
			name:    "database error",
			society: &domain.Society{Name: "Broken", CreatedBy: "U3"},
			setupDB: func(mockDB pgxmock.PgxPoolIface) {
				mockDB.ExpectQuery(regexp.QuoteMeta("INSERT INTO societies")).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB := newMockDB(t)
			tt.setupDB(mockDB)

			repo := NewSocietyRepository(mockDB)
			err := repo.Create(context.Background(), tt.society)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, tt.society.ID)
				assert.Equal(t, now, tt.society.CreatedAt)
			}
			assert.NoError(t, mockDB.ExpectationsWereMet())
		})
	}
}

func TestSocietyRepository_GetByCreator(t *testing.T) {
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		mockDB := newMockDB(t)
		mockDB.ExpectQuery(regexp.QuoteMeta("WHERE created_by = $1")).
			WithArgs("U1").
			WillReturnRows(pgxmock.NewRows(societyRowColumns).
				AddRow("S1", "Oak Grove", "123 Main", []string{"Pool"}, []string{"Alex"}, 40, "U1", now, now))

		society, err := NewSocietyRepository(mockDB).GetByCreator(context.Background(), "U1")

		require.NoError(t, err)
		assert.Equal(t, "S1", society.ID)
		assert.Equal(t, []string{"Pool"}, society.Amenities)
		assert.Equal(t, 40, society.NumFlats)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mockDB := newMockDB(t)
		mockDB.ExpectQuery(regexp.QuoteMeta("WHERE created_by = $1")).
			WithArgs("U9").
			WillReturnError(pgx.ErrNoRows)

		society, err := NewSocietyRepository(mockDB).GetByCreator(context.Background(), "U9")

		assert.Nil(t, society)
		assert.ErrorIs(t, err, domain.ErrSocietyNotFound)
		assert.NoError(t, mockDB.ExpectationsWereMet())
	})
}

func TestSocietyRepository_Update(t *testing.T) {
	mockDB := newMockDB(t)
	mockDB.ExpectQuery(regexp.QuoteMeta("UPDATE societies")).
		WithArgs("S404", "Name", "Addr", []string{}, []string{}, 2).
		WillReturnError(pgx.ErrNoRows)

	err := NewSocietyRepository(mockDB).Update(context.Background(), &domain.Society{ID: "S404", Name: "Name", Address: "Addr", NumFlats: 2})

	assert.ErrorIs(t, err, domain.ErrSocietyNotFound)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}
