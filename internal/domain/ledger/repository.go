package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry reads and the status transitions the
// reconciliation lifecycle is allowed to trigger. Creation and general
// mutation of entries belong to the bookkeeping CRUD layer, outside
// this module.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// ListCandidates returns entries eligible for matching in the
	// account/period: pending status, optional account filter applied.
	ListCandidates(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*Entry, error)

	// MarkReconciled moves an entry to PAID as a result of a confirmed
	// match; MarkUnreconciled reverts it to PENDING on undo.
	MarkReconciled(ctx context.Context, id uuid.UUID) error
	MarkUnreconciled(ctx context.Context, id uuid.UUID) error

	// WithTx returns a repository bound to the given transaction so
	// status transitions commit atomically with the match record.
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates a missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrInvalidStatusTransition indicates an attempt to reconcile a
// cancelled entry or unreconcile an entry that is not paid.
type ErrInvalidStatusTransition struct {
	EntryID uuid.UUID
	From    Status
	To      Status
}

func (e ErrInvalidStatusTransition) Error() string {
	return "invalid ledger status transition for entry " + e.EntryID.String() +
		": " + string(e.From) + " -> " + string(e.To)
}
