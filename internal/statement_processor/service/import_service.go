package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
)

// ErrInvalidLine marks a statement line that can never import
// successfully. The consumer routes these to the DLQ instead of
// retrying.
var ErrInvalidLine = errors.New("invalid statement line")

// StatementImportService persists imported statement transactions and
// runs the auto-confirmation fast path on each one.
type StatementImportService struct {
	transactions  banktx.Repository
	builder       SuggestionBuilder
	autoConfirmer AutoConfirmer
	logger        *slog.Logger
}

// NewStatementImportService creates a new import service
func NewStatementImportService(
	logger *slog.Logger,
	transactions banktx.Repository,
	builder SuggestionBuilder,
	autoConfirmer AutoConfirmer,
) *StatementImportService {
	return &StatementImportService{
		transactions:  transactions,
		builder:       builder,
		autoConfirmer: autoConfirmer,
		logger:        logger,
	}
}

// ProcessStatementLine validates and persists one statement line, then
// attempts auto-confirmation. Re-imports of the same FIT ID are
// idempotent. Matching is best-effort: once the transaction is stored
// the message is considered handled, and an unmatched transaction is
// simply picked up by the next interactive suggestion build.
func (s *StatementImportService) ProcessStatementLine(ctx context.Context, line *banktx.StatementLine) error {
	logger := s.logger
	if line.CorrelationID != "" {
		logger = s.logger.With("correlation_id", line.CorrelationID)
	}

	tx, err := banktx.NewTransaction(line.AccountID, line.FitID, line.PostedAt, line.AmountCents, line.Description)
	if err != nil {
		logger.Error("Statement line failed validation",
			"account_id", line.AccountID.String(),
			"fit_id", line.FitID,
			"error", err,
		)
		return fmt.Errorf("%w: %s", ErrInvalidLine, err.Error())
	}

	if err := s.transactions.Create(ctx, tx); err != nil {
		if errors.Is(err, banktx.ErrDuplicateTransaction{}) {
			logger.Info("Statement line already imported, skipping",
				"account_id", line.AccountID.String(),
				"fit_id", line.FitID,
			)
			return nil
		}
		logger.Error("Failed to persist statement transaction",
			"account_id", line.AccountID.String(),
			"fit_id", line.FitID,
			"error", err,
		)
		return fmt.Errorf("failed to persist statement transaction: %w", err)
	}

	logger.Info("Imported statement transaction",
		"transaction_id", tx.ID.String(),
		"account_id", tx.AccountID.String(),
		"fit_id", tx.FitID,
	)

	s.tryAutoConfirm(ctx, logger, tx)
	return nil
}

// tryAutoConfirm builds suggestions for the fresh transaction and
// confirms the best one when it qualifies for the fast path. Losing a
// claim race or a failed build is not an import failure.
func (s *StatementImportService) tryAutoConfirm(ctx context.Context, logger *slog.Logger, tx *banktx.Transaction) {
	suggestions, err := s.builder.BuildForTransaction(ctx, tx.ID)
	if err != nil {
		logger.Warn("Failed to build suggestions for imported transaction",
			"transaction_id", tx.ID.String(),
			"error", err,
		)
		return
	}

	if len(suggestions) == 0 {
		logger.Debug("No candidates for imported transaction", "transaction_id", tx.ID.String())
		return
	}

	best := suggestions[0]
	if !best.AutoConfirmable() {
		logger.Debug("Best suggestion does not qualify for auto-confirmation",
			"transaction_id", tx.ID.String(),
			"suggestion_id", best.ID.String(),
			"confidence", best.Confidence,
		)
		return
	}

	m, err := s.autoConfirmer.AutoConfirm(ctx, best)
	if err != nil {
		logger.Warn("Auto-confirmation did not go through",
			"transaction_id", tx.ID.String(),
			"suggestion_id", best.ID.String(),
			"error", err,
		)
		return
	}

	logger.Info("Auto-confirmed imported transaction",
		"transaction_id", tx.ID.String(),
		"match_id", m.ID.String(),
	)
}
