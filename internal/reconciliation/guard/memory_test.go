package guard

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contaflow-reconciliation/internal/domain/match"
)

func TestMemoryGuard_ClaimLifecycle(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	holder := uuid.New()
	entryA := uuid.New()
	entryB := uuid.New()

	state, err := g.State(ctx, entryA)
	require.NoError(t, err)
	assert.Equal(t, match.ClaimFree, state)

	require.NoError(t, g.Claim(ctx, holder, match.ClaimPending, []uuid.UUID{entryA, entryB}))

	state, _ = g.State(ctx, entryA)
	assert.Equal(t, match.ClaimPending, state)

	require.NoError(t, g.Promote(ctx, holder))
	state, _ = g.State(ctx, entryB)
	assert.Equal(t, match.ClaimConfirmed, state)

	require.NoError(t, g.Release(ctx, holder))
	state, _ = g.State(ctx, entryA)
	assert.Equal(t, match.ClaimFree, state)
}

func TestMemoryGuard_ClaimIsAllOrNothing(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	shared := uuid.New()
	other := uuid.New()

	require.NoError(t, g.Claim(ctx, first, match.ClaimPending, []uuid.UUID{shared}))

	err := g.Claim(ctx, second, match.ClaimPending, []uuid.UUID{other, shared})
	require.Error(t, err)
	assert.ErrorIs(t, err, match.ErrEntryClaimed{EntryID: shared})

	// The failed claim must not leave a partial hold on the free entry
	state, _ := g.State(ctx, other)
	assert.Equal(t, match.ClaimFree, state)
}

func TestMemoryGuard_ReclaimBySameHolder(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	holder := uuid.New()
	entry := uuid.New()

	require.NoError(t, g.Claim(ctx, holder, match.ClaimPending, []uuid.UUID{entry}))
	require.NoError(t, g.Claim(ctx, holder, match.ClaimPending, []uuid.UUID{entry}))
}

func TestMemoryGuard_ConcurrentClaimsSingleWinner(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	contested := uuid.New()

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			holder := uuid.New()
			if err := g.Claim(ctx, holder, match.ClaimPending, []uuid.UUID{uuid.New(), contested}); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestMemoryGuard_ReleaseUnknownHolder(t *testing.T) {
	g := NewMemoryGuard()
	assert.NoError(t, g.Release(context.Background(), uuid.New()))
}
