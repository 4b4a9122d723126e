package banktx

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages bank transaction persistence. Transactions are
// written once at import time and only queried afterwards.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByFitID(ctx context.Context, accountID uuid.UUID, fitID string) (*Transaction, error)

	// ListUnmatched returns transactions in the account/period that are
	// not yet linked to a confirmed reconciliation match.
	ListUnmatched(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*Transaction, error)
}

// ErrTransactionNotFound indicates a missing bank transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "bank transaction not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateTransaction indicates a FIT ID uniqueness violation
// within an account (the same statement line imported twice).
type ErrDuplicateTransaction struct {
	FitID string
}

func (e ErrDuplicateTransaction) Error() string {
	return "duplicate bank transaction: " + e.FitID
}

// Is implements the errors.Is interface for ErrDuplicateTransaction
func (e ErrDuplicateTransaction) Is(target error) bool {
	t, ok := target.(ErrDuplicateTransaction)
	if !ok {
		return false
	}
	if t.FitID == "" {
		return true
	}
	return e.FitID == t.FitID
}
