package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/domain/match"
)

// ImportService defines the interface for processing imported statement lines.
type ImportService interface {
	ProcessStatementLine(ctx context.Context, line *banktx.StatementLine) error
}

// SuggestionBuilder builds candidate suggestions for one imported transaction
type SuggestionBuilder interface {
	BuildForTransaction(ctx context.Context, txID uuid.UUID) ([]*match.Suggestion, error)
}

// AutoConfirmer runs the exact-match fast path on a fresh suggestion
type AutoConfirmer interface {
	AutoConfirm(ctx context.Context, sugg *match.Suggestion) (*match.Match, error)
}
