package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/platform/persistence"
)

// claimDB is what the guard needs from the database: plain queries
// plus the ability to open a transaction for the multi-entry claim.
type claimDB interface {
	persistence.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ClaimRepository implements the match.Guard interface on a claims
// table with a primary key on entry_id. The all-or-nothing claim runs
// in a transaction: the first entry that is already held by another
// match rolls back every insert.
type ClaimRepository struct {
	db     claimDB
	logger *slog.Logger
}

// NewClaimRepository creates a PostgreSQL-backed usage guard
func NewClaimRepository(logger *slog.Logger, db *persistence.PostgresDB) match.Guard {
	return &ClaimRepository{
		db:     db.Pool(),
		logger: logger,
	}
}

// State reports the claim state of a single entry
func (r *ClaimRepository) State(ctx context.Context, entryID uuid.UUID) (match.ClaimState, error) {
	query := `
		SELECT state FROM entry_claims
		WHERE entry_id = $1
	`

	var state match.ClaimState
	err := r.db.QueryRow(ctx, query, entryID).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return match.ClaimFree, nil
		}
		r.logger.Error("Failed to read claim state", "entry_id", entryID.String(), "error", err)
		return "", fmt.Errorf("failed to read claim state: %w", err)
	}

	return state, nil
}

// Claim inserts one claim row per entry inside a transaction. The
// conditional upsert leaves zero rows affected when another holder
// owns the entry, which aborts and rolls back the whole claim.
func (r *ClaimRepository) Claim(ctx context.Context, holderID uuid.UUID, state match.ClaimState, entryIDs []uuid.UUID) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error("Failed to rollback claim transaction", "holder_id", holderID.String(), "error", rbErr)
			}
		}
	}()

	query := `
		INSERT INTO entry_claims (entry_id, holder_id, state, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entry_id) DO UPDATE
		SET state = EXCLUDED.state, claimed_at = EXCLUDED.claimed_at
		WHERE entry_claims.holder_id = EXCLUDED.holder_id
	`

	now := time.Now()
	for _, entryID := range entryIDs {
		result, execErr := tx.Exec(ctx, query, entryID, holderID, state, now)
		if execErr != nil {
			err = fmt.Errorf("failed to claim entry %s: %w", entryID, execErr)
			return err
		}
		if result.RowsAffected() == 0 {
			err = match.ErrEntryClaimed{EntryID: entryID}
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit claim transaction: %w", err)
	}

	return nil
}

// Promote moves the holder's claims to the confirmed state
func (r *ClaimRepository) Promote(ctx context.Context, holderID uuid.UUID) error {
	query := `
		UPDATE entry_claims
		SET state = $1
		WHERE holder_id = $2
	`

	if _, err := r.db.Exec(ctx, query, match.ClaimConfirmed, holderID); err != nil {
		r.logger.Error("Failed to promote claims", "holder_id", holderID.String(), "error", err)
		return fmt.Errorf("failed to promote claims: %w", err)
	}

	return nil
}

// Release frees every claim held by the holder
func (r *ClaimRepository) Release(ctx context.Context, holderID uuid.UUID) error {
	query := `
		DELETE FROM entry_claims
		WHERE holder_id = $1
	`

	if _, err := r.db.Exec(ctx, query, holderID); err != nil {
		r.logger.Error("Failed to release claims", "holder_id", holderID.String(), "error", err)
		return fmt.Errorf("failed to release claims: %w", err)
	}

	return nil
}
