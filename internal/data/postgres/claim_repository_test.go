package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contaflow-reconciliation/internal/domain/match"
)

func TestClaimRepository_State(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClaimRepository{db: mock, logger: newTestLogger()}
	entryID := uuid.New()

	query := regexp.QuoteMeta(`
		SELECT state FROM entry_claims
		WHERE entry_id = $1
	`)

	t.Run("claimed entry", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"state"}).AddRow(match.ClaimPending)
		mock.ExpectQuery(query).WithArgs(entryID).WillReturnRows(rows)

		state, err := repo.State(ctx, entryID)
		require.NoError(t, err)
		assert.Equal(t, match.ClaimPending, state)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unclaimed entry is free", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entryID).WillReturnError(pgx.ErrNoRows)

		state, err := repo.State(ctx, entryID)
		require.NoError(t, err)
		assert.Equal(t, match.ClaimFree, state)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimRepository_Claim(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClaimRepository{db: mock, logger: newTestLogger()}
	holderID := uuid.New()
	entryIDs := []uuid.UUID{uuid.New(), uuid.New()}

	query := regexp.QuoteMeta(`
		INSERT INTO entry_claims (entry_id, holder_id, state, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entry_id) DO UPDATE
		SET state = EXCLUDED.state, claimed_at = EXCLUDED.claimed_at
		WHERE entry_claims.holder_id = EXCLUDED.holder_id
	`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		for _, entryID := range entryIDs {
			mock.ExpectExec(query).
				WithArgs(entryID, holderID, match.ClaimPending, pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
		mock.ExpectCommit()

		err := repo.Claim(ctx, holderID, match.ClaimPending, entryIDs)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("entry held by another match rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(query).
			WithArgs(entryIDs[0], holderID, match.ClaimPending, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(query).
			WithArgs(entryIDs[1], holderID, match.ClaimPending, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectRollback()

		err := repo.Claim(ctx, holderID, match.ClaimPending, entryIDs)
		assert.ErrorIs(t, err, match.ErrEntryClaimed{EntryID: entryIDs[1]})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec failure rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(query).
			WithArgs(entryIDs[0], holderID, match.ClaimPending, pgxmock.AnyArg()).
			WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		err := repo.Claim(ctx, holderID, match.ClaimPending, entryIDs)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimRepository_Promote(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClaimRepository{db: mock, logger: newTestLogger()}
	holderID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE entry_claims`)).
		WithArgs(match.ClaimConfirmed, holderID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	err = repo.Promote(ctx, holderID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimRepository_Release(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClaimRepository{db: mock, logger: newTestLogger()}
	holderID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM entry_claims`)).
		WithArgs(holderID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	err = repo.Release(ctx, holderID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
