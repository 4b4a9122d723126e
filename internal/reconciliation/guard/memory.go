// Package guard provides the in-memory usage guard used by tests and
// single-node deployments. The production guard backed by Postgres
// lives in the data layer; both honor the same all-or-nothing claim
// contract.
package guard

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/domain/match"
)

type claim struct {
	holderID uuid.UUID
	state    match.ClaimState
}

// MemoryGuard tracks entry claims under a single mutex
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[uuid.UUID]claim
}

// NewMemoryGuard creates an empty in-memory guard
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{claims: make(map[uuid.UUID]claim)}
}

// State reports the claim state of a single entry
func (g *MemoryGuard) State(_ context.Context, entryID uuid.UUID) (match.ClaimState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.claims[entryID]; ok {
		return c.state, nil
	}
	return match.ClaimFree, nil
}

// Claim claims every entry for the holder, or none of them. The check
// and the writes happen under one lock, so two callers racing for an
// overlapping set cannot both win.
func (g *MemoryGuard) Claim(_ context.Context, holderID uuid.UUID, state match.ClaimState, entryIDs []uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range entryIDs {
		if c, ok := g.claims[id]; ok && c.holderID != holderID {
			return match.ErrEntryClaimed{EntryID: id}
		}
	}
	for _, id := range entryIDs {
		g.claims[id] = claim{holderID: holderID, state: state}
	}
	return nil
}

// Promote moves all of a holder's claims to the confirmed state
func (g *MemoryGuard) Promote(_ context.Context, holderID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, c := range g.claims {
		if c.holderID == holderID {
			c.state = match.ClaimConfirmed
			g.claims[id] = c
		}
	}
	return nil
}

// Release frees every claim held by the holder. Releasing a holder
// with no claims is a no-op.
func (g *MemoryGuard) Release(_ context.Context, holderID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, c := range g.claims {
		if c.holderID == holderID {
			delete(g.claims, id)
		}
	}
	return nil
}
