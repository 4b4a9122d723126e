package match

import (
	"context"

	"github.com/google/uuid"
)

// ClaimState is the tri-state usage indicator for a ledger entry
type ClaimState string

const (
	ClaimFree      ClaimState = "FREE"
	ClaimPending   ClaimState = "PENDING"   // Held by an in-flight confirmation
	ClaimConfirmed ClaimState = "CONFIRMED" // Held by a confirmed match
)

// Guard prevents a ledger entry from being claimed by more than one
// match at a time. Claim is all-or-nothing across the given entries:
// implementations must guarantee that concurrent callers cannot each
// claim an overlapping subset.
type Guard interface {
	// State reports the current claim state of a single entry
	State(ctx context.Context, entryID uuid.UUID) (ClaimState, error)

	// Claim atomically claims every entry for the holder, failing the
	// whole operation with ErrEntryClaimed if any entry is already held.
	Claim(ctx context.Context, holderID uuid.UUID, state ClaimState, entryIDs []uuid.UUID) error

	// Promote moves a holder's pending claims to confirmed
	Promote(ctx context.Context, holderID uuid.UUID) error

	// Release frees every claim held by the holder
	Release(ctx context.Context, holderID uuid.UUID) error
}
