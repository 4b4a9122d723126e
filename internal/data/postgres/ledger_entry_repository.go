package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/contaflow-reconciliation/internal/domain/ledger"
	"github.com/contaflow-reconciliation/internal/platform/persistence"
)

// LedgerEntryRepository implements the ledger.Repository interface for PostgreSQL
type LedgerEntryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerEntryRepository creates a new PostgreSQL ledger entry repository
func NewLedgerEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerEntryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so entry status
// transitions commit together with the match record.
func (r *LedgerEntryRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerEntryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByID retrieves a ledger entry by its identifier
func (r *LedgerEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT id, entry_date, amount_cents, kind, description, status, account_id, category_id, created_at, updated_at
		FROM ledger_entries
		WHERE id = $1
	`

	var e ledger.Entry
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.EntryDate,
		&e.AmountCents,
		&e.Kind,
		&e.Description,
		&e.Status,
		&e.AccountID,
		&e.CategoryID,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "entry_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return &e, nil
}

// ListCandidates returns pending entries in the period for the
// account. Entries with no account assignment are included: they can
// reconcile against any account.
func (r *LedgerEntryRepository) ListCandidates(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*ledger.Entry, error) {
	query := `
		SELECT id, entry_date, amount_cents, kind, description, status, account_id, category_id, created_at, updated_at
		FROM ledger_entries
		WHERE status = $1
		  AND (account_id = $2 OR account_id IS NULL)
		  AND entry_date >= $3 AND entry_date <= $4
		ORDER BY entry_date ASC
	`

	rows, err := r.querier.Query(ctx, query, ledger.StatusPending, accountID, from, to)
	if err != nil {
		r.logger.Error("Failed to list candidate entries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list candidate entries: %w", err)
	}
	defer rows.Close()

	var out []*ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		err := rows.Scan(
			&e.ID,
			&e.EntryDate,
			&e.AmountCents,
			&e.Kind,
			&e.Description,
			&e.Status,
			&e.AccountID,
			&e.CategoryID,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		out = append(out, &e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return out, nil
}

// MarkReconciled moves a pending entry to PAID. The status predicate
// makes the transition race-safe: a concurrent mark or cancel leaves
// zero rows affected.
func (r *LedgerEntryRepository) MarkReconciled(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, ledger.StatusPending, ledger.StatusPaid)
}

// MarkUnreconciled reverts a paid entry to PENDING on match undo
func (r *LedgerEntryRepository) MarkUnreconciled(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, ledger.StatusPaid, ledger.StatusPending)
}

func (r *LedgerEntryRepository) transition(ctx context.Context, id uuid.UUID, from, to ledger.Status) error {
	query := `
		UPDATE ledger_entries
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, to, time.Now(), id, from)
	if err != nil {
		r.logger.Error("Failed to update ledger entry status",
			"entry_id", id.String(),
			"to", string(to),
			"error", err,
		)
		return fmt.Errorf("failed to update ledger entry status: %w", err)
	}

	if result.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		return ledger.ErrInvalidStatusTransition{EntryID: id, From: current.Status, To: to}
	}

	return nil
}
