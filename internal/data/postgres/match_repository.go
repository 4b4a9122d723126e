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

// MatchRepository implements the match.Repository interface for
// PostgreSQL. Matches span two tables: the match record and one row
// per linked ledger entry.
type MatchRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewMatchRepository creates a new PostgreSQL match repository
func NewMatchRepository(logger *slog.Logger, db *persistence.PostgresDB) match.Repository {
	return &MatchRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *MatchRepository) WithTx(tx pgx.Tx) match.Repository {
	return &MatchRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a confirmed match and its entry links
func (r *MatchRepository) Create(ctx context.Context, m *match.Match) error {
	matchQuery := `
		INSERT INTO reconciliation_matches (id, bank_transaction_id, note, confidence, auto_confirmed, status, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, matchQuery,
		m.ID,
		m.BankTransactionID,
		m.Note,
		m.Confidence,
		m.AutoConfirmed,
		m.Status,
		m.ConfirmedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create reconciliation match", "match_id", m.ID.String(), "error", err)
		return fmt.Errorf("failed to create reconciliation match: %w", err)
	}

	entryQuery := `
		INSERT INTO reconciliation_match_entries (match_id, entry_id)
		VALUES ($1, $2)
	`
	for _, entryID := range m.EntryIDs {
		if _, err := r.querier.Exec(ctx, entryQuery, m.ID, entryID); err != nil {
			r.logger.Error("Failed to link entry to match",
				"match_id", m.ID.String(),
				"entry_id", entryID.String(),
				"error", err,
			)
			return fmt.Errorf("failed to link entry to match: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a match with its linked entry IDs
func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*match.Match, error) {
	query := `
		SELECT id, bank_transaction_id, note, confidence, auto_confirmed, status, confirmed_at, voided_at
		FROM reconciliation_matches
		WHERE id = $1
	`

	var m match.Match
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.BankTransactionID,
		&m.Note,
		&m.Confidence,
		&m.AutoConfirmed,
		&m.Status,
		&m.ConfirmedAt,
		&m.VoidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, match.ErrMatchNotFound{MatchID: id}
		}
		r.logger.Error("Failed to get reconciliation match", "match_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get reconciliation match: %w", err)
	}

	entryQuery := `
		SELECT entry_id FROM reconciliation_match_entries
		WHERE match_id = $1
		ORDER BY entry_id
	`
	rows, err := r.querier.Query(ctx, entryQuery, id)
	if err != nil {
		r.logger.Error("Failed to get match entries", "match_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get match entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entryID uuid.UUID
		if err := rows.Scan(&entryID); err != nil {
			return nil, fmt.Errorf("failed to scan match entry: %w", err)
		}
		m.EntryIDs = append(m.EntryIDs, entryID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over match entries: %w", err)
	}

	return &m, nil
}

// Void marks a confirmed match as voided. Voiding twice is reported
// as ErrMatchAlreadyVoided, a missing match as ErrMatchNotFound.
func (r *MatchRepository) Void(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE reconciliation_matches
		SET status = $1, voided_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, match.MatchVoided, time.Now(), id, match.MatchConfirmed)
	if err != nil {
		r.logger.Error("Failed to void reconciliation match", "match_id", id.String(), "error", err)
		return fmt.Errorf("failed to void reconciliation match: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return match.ErrMatchAlreadyVoided{MatchID: id}
	}

	return nil
}

// MatchedEntryIDs returns the entry IDs held by confirmed matches in
// the account/period.
func (r *MatchRepository) MatchedEntryIDs(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT me.entry_id
		FROM reconciliation_match_entries me
		JOIN reconciliation_matches m ON m.id = me.match_id
		JOIN bank_transactions t ON t.id = m.bank_transaction_id
		WHERE m.status = $1
		  AND t.account_id = $2
		  AND t.posted_at >= $3 AND t.posted_at <= $4
	`

	return r.listIDs(ctx, query, match.MatchConfirmed, accountID, from, to)
}

// MatchedBankTransactionIDs returns bank transaction IDs covered by a
// confirmed match in the account/period.
func (r *MatchRepository) MatchedBankTransactionIDs(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT m.bank_transaction_id
		FROM reconciliation_matches m
		JOIN bank_transactions t ON t.id = m.bank_transaction_id
		WHERE m.status = $1
		  AND t.account_id = $2
		  AND t.posted_at >= $3 AND t.posted_at <= $4
	`

	return r.listIDs(ctx, query, match.MatchConfirmed, accountID, from, to)
}

func (r *MatchRepository) listIDs(ctx context.Context, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query match IDs", "error", err)
		return nil, fmt.Errorf("failed to query match IDs: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ID: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over IDs: %w", err)
	}

	return out, nil
}
