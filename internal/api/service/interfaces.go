package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/domain/batchrun"
	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/reconciliation/batch"
)

// ReconciliationService defines the interface for suggestion and match operations
type ReconciliationService interface {
	// BuildSuggestions builds fresh suggestions for every unmatched bank
	// transaction in the scope and registers them for later confirmation
	BuildSuggestions(ctx context.Context, scope match.Scope) ([]*match.Suggestion, error)

	// ConfirmSuggestion turns a proposed suggestion into a confirmed match
	// Returns ErrSuggestionNotFound, ErrStaleSuggestion or ErrEntryClaimed
	ConfirmSuggestion(ctx context.Context, suggestionID uuid.UUID, note string) (*match.Match, error)

	// RejectSuggestion marks a proposed suggestion rejected without touching
	// any ledger entry
	RejectSuggestion(ctx context.Context, suggestionID uuid.UUID, reason string) (*match.Suggestion, error)

	// CreateManualMatch pairs a bank transaction with operator-chosen entries,
	// bypassing the suggestion builder
	CreateManualMatch(ctx context.Context, bankTransactionID uuid.UUID, entryIDs []uuid.UUID, note string) (*match.Match, error)

	// UndoMatch voids a confirmed match and releases its entries
	// Returns ErrMatchNotFound or ErrMatchAlreadyVoided
	UndoMatch(ctx context.Context, matchID uuid.UUID) (*match.Match, error)
}

// BatchService defines the interface for batch run control
type BatchService interface {
	// StartRun begins a batch reconciliation run over the scope
	// Returns batch.ErrRunInProgress while another run is active
	StartRun(ctx context.Context, scope match.Scope, policy batch.Policy) (batchrun.Run, error)

	// GetRun returns the named run, live or archived
	GetRun(ctx context.Context, runID uuid.UUID) (batchrun.Run, error)

	// PauseRun halts the named run before its next item
	PauseRun(ctx context.Context, runID uuid.UUID) (batchrun.Run, error)

	// ResumeRun continues the named paused run from the next unprocessed item
	ResumeRun(ctx context.Context, runID uuid.UUID) (batchrun.Run, error)

	// ResetRun clears the named run so a new one can start
	ResetRun(ctx context.Context, runID uuid.UUID) error
}
