package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/reconciliation/lifecycle"
)

// SuggestionBuilder builds suggestions for a scope. Implemented by the
// matcher builder.
type SuggestionBuilder interface {
	BuildForScope(ctx context.Context, scope match.Scope) ([]*match.Suggestion, error)
}

// MatchLifecycle drives suggestion and match state transitions.
// Implemented by the lifecycle service.
type MatchLifecycle interface {
	Confirm(ctx context.Context, suggestionID uuid.UUID, note string, source lifecycle.AuditSource) (*match.Match, error)
	Reject(ctx context.Context, suggestionID uuid.UUID, source lifecycle.AuditSource) (*match.Suggestion, error)
	ManualMatch(ctx context.Context, bankTransactionID uuid.UUID, entryIDs []uuid.UUID, note string, source lifecycle.AuditSource) (*match.Match, error)
	Undo(ctx context.Context, matchID uuid.UUID, source lifecycle.AuditSource) (*match.Match, error)
}

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	builder   SuggestionBuilder
	lifecycle MatchLifecycle
	registry  *lifecycle.Registry
	logger    *slog.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	logger *slog.Logger,
	builder SuggestionBuilder,
	lc MatchLifecycle,
	registry *lifecycle.Registry,
) ReconciliationService {
	return &ReconciliationServiceImpl{
		builder:   builder,
		lifecycle: lc,
		registry:  registry,
		logger:    logger,
	}
}

// BuildSuggestions builds suggestions for the scope and installs them in the
// registry, replacing whatever an earlier build left for the account
func (s *ReconciliationServiceImpl) BuildSuggestions(ctx context.Context, scope match.Scope) ([]*match.Suggestion, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	suggestions, err := s.builder.BuildForScope(ctx, scope)
	if err != nil {
		return nil, err
	}

	s.registry.ReplaceForAccount(scope.AccountID, suggestions)

	s.logger.Info("Built suggestions",
		"account_id", scope.AccountID.String(),
		"count", len(suggestions),
	)
	return suggestions, nil
}

// ConfirmSuggestion confirms a proposed suggestion on behalf of an operator
func (s *ReconciliationServiceImpl) ConfirmSuggestion(ctx context.Context, suggestionID uuid.UUID, note string) (*match.Match, error) {
	return s.lifecycle.Confirm(ctx, suggestionID, note, lifecycle.SourceInteractive)
}

// RejectSuggestion rejects a proposed suggestion. The reason is kept in the
// log only; the audit trail records the rejection itself.
func (s *ReconciliationServiceImpl) RejectSuggestion(ctx context.Context, suggestionID uuid.UUID, reason string) (*match.Suggestion, error) {
	sugg, err := s.lifecycle.Reject(ctx, suggestionID, lifecycle.SourceInteractive)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Suggestion rejected",
		"suggestion_id", suggestionID.String(),
		"reason", reason,
	)
	return sugg, nil
}

// CreateManualMatch pairs a bank transaction with operator-chosen entries
func (s *ReconciliationServiceImpl) CreateManualMatch(ctx context.Context, bankTransactionID uuid.UUID, entryIDs []uuid.UUID, note string) (*match.Match, error) {
	return s.lifecycle.ManualMatch(ctx, bankTransactionID, entryIDs, note, lifecycle.SourceManual)
}

// UndoMatch voids a confirmed match
func (s *ReconciliationServiceImpl) UndoMatch(ctx context.Context, matchID uuid.UUID) (*match.Match, error) {
	return s.lifecycle.Undo(ctx, matchID, lifecycle.SourceInteractive)
}
