package match

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MatchStatus defines the persisted match states. A confirmed match is
// immutable; undo voids it rather than mutating the confirmation.
type MatchStatus string

const (
	MatchConfirmed MatchStatus = "CONFIRMED"
	MatchVoided    MatchStatus = "VOIDED"
)

// Match is the persisted linkage between a bank transaction and the
// ledger entries it reconciles, with an audit note.
type Match struct {
	ID                uuid.UUID   `json:"id"`
	BankTransactionID uuid.UUID   `json:"bank_transaction_id"`
	EntryIDs          []uuid.UUID `json:"entry_ids"`
	Note              string      `json:"note"`
	Confidence        float64     `json:"confidence"`
	AutoConfirmed     bool        `json:"auto_confirmed"`
	Status            MatchStatus `json:"status"`
	ConfirmedAt       time.Time   `json:"confirmed_at"`
	VoidedAt          *time.Time  `json:"voided_at,omitempty"`
}

// NewMatch builds a confirmed match record for the given candidate set
func NewMatch(set CandidateSet, note string, confidence float64, auto bool) (*Match, error) {
	if len(set.Entries) == 0 {
		return nil, ErrEmptyCandidateSet{}
	}

	return &Match{
		ID:                uuid.New(),
		BankTransactionID: set.Transaction.ID,
		EntryIDs:          set.EntryIDs(),
		Note:              note,
		Confidence:        confidence,
		AutoConfirmed:     auto,
		Status:            MatchConfirmed,
		ConfirmedAt:       time.Now(),
	}, nil
}

// Void marks the match as reversed by an explicit undo
func (m *Match) Void() {
	m.Status = MatchVoided
	now := time.Now()
	m.VoidedAt = &now
}

// Repository manages reconciliation match persistence
type Repository interface {
	Create(ctx context.Context, m *Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*Match, error)
	Void(ctx context.Context, id uuid.UUID) error

	// MatchedEntryIDs returns the entry IDs referenced by any confirmed
	// match in the account/period. The builder excludes these so an
	// entry is proposed at most once across concurrent runs.
	MatchedEntryIDs(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]uuid.UUID, error)

	// MatchedBankTransactionIDs returns bank transaction IDs already
	// covered by a confirmed match in the account/period.
	MatchedBankTransactionIDs(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]uuid.UUID, error)

	// WithTx returns a repository bound to the given transaction so
	// match writes commit atomically with ledger and outbox writes.
	WithTx(tx pgx.Tx) Repository
}
