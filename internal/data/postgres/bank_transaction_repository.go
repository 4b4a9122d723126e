// Package postgres implements the domain repositories against
// PostgreSQL. All repositories share the Querier abstraction so the
// same code runs on the pool or inside a transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/platform/persistence"
)

const uniqueViolationCode = "23505"

// BankTransactionRepository implements the banktx.Repository interface for PostgreSQL
type BankTransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBankTransactionRepository creates a new PostgreSQL bank transaction repository
func NewBankTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) banktx.Repository {
	return &BankTransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create stores an imported bank transaction. The (account_id, fit_id)
// unique constraint turns a re-imported statement line into
// ErrDuplicateTransaction.
func (r *BankTransactionRepository) Create(ctx context.Context, tx *banktx.Transaction) error {
	query := `
		INSERT INTO bank_transactions (id, account_id, fit_id, posted_at, amount_cents, description, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.FitID,
		tx.PostedAt,
		tx.AmountCents,
		tx.Description,
		tx.ImportedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return banktx.ErrDuplicateTransaction{FitID: tx.FitID}
		}
		r.logger.Error("Failed to create bank transaction",
			"transaction_id", tx.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create bank transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a bank transaction by its identifier
func (r *BankTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*banktx.Transaction, error) {
	query := `
		SELECT id, account_id, fit_id, posted_at, amount_cents, description, imported_at
		FROM bank_transactions
		WHERE id = $1
	`

	tx, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, banktx.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get bank transaction", "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get bank transaction: %w", err)
	}

	return tx, nil
}

// GetByFitID retrieves a transaction by its bank-assigned statement ID,
// used for import dedupe.
func (r *BankTransactionRepository) GetByFitID(ctx context.Context, accountID uuid.UUID, fitID string) (*banktx.Transaction, error) {
	query := `
		SELECT id, account_id, fit_id, posted_at, amount_cents, description, imported_at
		FROM bank_transactions
		WHERE account_id = $1 AND fit_id = $2
	`

	tx, err := r.scanOne(r.querier.QueryRow(ctx, query, accountID, fitID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, banktx.ErrTransactionNotFound{}
		}
		r.logger.Error("Failed to get bank transaction by FIT ID",
			"account_id", accountID.String(),
			"fit_id", fitID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get bank transaction by FIT ID: %w", err)
	}

	return tx, nil
}

// ListUnmatched returns the account's transactions in the period with
// no confirmed match, oldest first.
func (r *BankTransactionRepository) ListUnmatched(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*banktx.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.fit_id, t.posted_at, t.amount_cents, t.description, t.imported_at
		FROM bank_transactions t
		WHERE t.account_id = $1
		  AND t.posted_at >= $2 AND t.posted_at <= $3
		  AND NOT EXISTS (
			SELECT 1 FROM reconciliation_matches m
			WHERE m.bank_transaction_id = t.id AND m.status = $4
		  )
		ORDER BY t.posted_at ASC
	`

	rows, err := r.querier.Query(ctx, query, accountID, from, to, match.MatchConfirmed)
	if err != nil {
		r.logger.Error("Failed to list unmatched bank transactions", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list unmatched bank transactions: %w", err)
	}
	defer rows.Close()

	var out []*banktx.Transaction
	for rows.Next() {
		var tx banktx.Transaction
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.FitID, &tx.PostedAt, &tx.AmountCents, &tx.Description, &tx.ImportedAt); err != nil {
			r.logger.Error("Failed to scan bank transaction", "error", err)
			return nil, fmt.Errorf("failed to scan bank transaction: %w", err)
		}
		out = append(out, &tx)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over bank transactions", "error", err)
		return nil, fmt.Errorf("error iterating over bank transactions: %w", err)
	}

	return out, nil
}

func (r *BankTransactionRepository) scanOne(row pgx.Row) (*banktx.Transaction, error) {
	var tx banktx.Transaction
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.FitID, &tx.PostedAt, &tx.AmountCents, &tx.Description, &tx.ImportedAt)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
