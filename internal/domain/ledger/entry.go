// Package ledger defines the internal bookkeeping entry aggregate
// (the "lançamento"). Entries are created and mutated by the CRUD
// collaborators; the matching engine reads them and drives their
// status toward reconciled on match confirmation.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes revenue from expense entries. The amount is
// stored unsigned; the kind implies the sign against the bank account.
type Kind string

const (
	KindRevenue Kind = "REVENUE"
	KindExpense Kind = "EXPENSE"
)

// Status defines the entry's settlement state
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Entry represents one ledger entry in the books
type Entry struct {
	ID          uuid.UUID  `json:"id" bson:"id"`
	EntryDate   time.Time  `json:"entry_date" bson:"entry_date"`
	AmountCents int64      `json:"amount_cents" bson:"amount_cents"` // Unsigned, in cents; sign implied by Kind
	Kind        Kind       `json:"kind" bson:"kind"`
	Description string     `json:"description" bson:"description"`
	Status      Status     `json:"status" bson:"status"`
	AccountID   *uuid.UUID `json:"account_id,omitempty" bson:"account_id,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty" bson:"category_id,omitempty"` // Opaque to the matcher
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

// SignedAmountCents returns the amount as it would appear on a bank
// statement: positive for revenue, negative for expense.
func (e *Entry) SignedAmountCents() int64 {
	if e.Kind == KindExpense {
		return -e.AmountCents
	}
	return e.AmountCents
}

// Matchable reports whether the entry may participate in a new match
// suggestion. Cancelled entries never match; paid entries are already
// settled against the bank.
func (e *Entry) Matchable() bool {
	return e.Status == StatusPending
}
