// Package banktx defines the bank-statement transaction aggregate.
// Transactions are produced by the statement import pipeline and are
// immutable once recorded; the matching engine only reads them.
package banktx

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrZeroAmount = errors.New("bank transaction amount cannot be zero")
	ErrEmptyFitID = errors.New("bank transaction FIT ID cannot be empty")
)

// Transaction represents one movement on a bank statement.
// Amount is signed, in cents: positive for credits, negative for debits.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	FitID       string    `json:"fit_id"` // bank-side unique identifier (OFX FITID or CSV row hash)
	PostedAt    time.Time `json:"posted_at"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description"`
	ImportedAt  time.Time `json:"imported_at"`
}

// NewTransaction validates and builds a transaction from imported
// statement data.
func NewTransaction(accountID uuid.UUID, fitID string, postedAt time.Time, amountCents int64, description string) (*Transaction, error) {
	if fitID == "" {
		return nil, ErrEmptyFitID
	}
	if amountCents == 0 {
		return nil, ErrZeroAmount
	}

	return &Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		FitID:       fitID,
		PostedAt:    postedAt,
		AmountCents: amountCents,
		Description: description,
		ImportedAt:  time.Now(),
	}, nil
}

// IsCredit reports whether the transaction increases the bank balance.
func (t *Transaction) IsCredit() bool {
	return t.AmountCents > 0
}
