package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/domain/ledger"
	"github.com/contaflow-reconciliation/internal/domain/match"
)

// readRetryDelay spaces the retries of an idempotent repository read
const readRetryDelay = 150 * time.Millisecond

// Builder assembles scored suggestions for a scope. It consults the
// usage guard and the match repository so that entries already claimed
// or already reconciled are never proposed again.
type Builder struct {
	log          *slog.Logger
	transactions banktx.Repository
	entries      ledger.Repository
	matches      match.Repository
	guard        match.Guard
	tol          Tolerances
	readRetries  int
}

// NewBuilder creates a suggestion builder
func NewBuilder(
	log *slog.Logger,
	transactions banktx.Repository,
	entries ledger.Repository,
	matches match.Repository,
	guard match.Guard,
	tol Tolerances,
	readRetries int,
) *Builder {
	if readRetries < 1 {
		readRetries = 1
	}
	return &Builder{
		log:          log,
		transactions: transactions,
		entries:      entries,
		matches:      matches,
		guard:        guard,
		tol:          tol,
		readRetries:  readRetries,
	}
}

// BuildForScope produces suggestions for every unmatched bank
// transaction in the scope, best first: confidence descending, then
// smaller date distance, then fewer entries.
func (b *Builder) BuildForScope(ctx context.Context, scope match.Scope) ([]*match.Suggestion, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	txs, err := retryRead(ctx, b.readRetries, func() ([]*banktx.Transaction, error) {
		return b.transactions.ListUnmatched(ctx, scope.AccountID, scope.From, scope.To)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing unmatched transactions: %v", match.ErrExternalStore, err)
	}

	// Entries slightly outside the period can still land inside the
	// wide date window of a transaction at the period edge.
	pad := time.Duration(b.tol.WideDayWindow) * 24 * time.Hour
	pool, err := retryRead(ctx, b.readRetries, func() ([]*ledger.Entry, error) {
		return b.entries.ListCandidates(ctx, scope.AccountID, scope.From.Add(-pad), scope.To.Add(pad))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing candidate entries: %v", match.ErrExternalStore, err)
	}

	pool, err = b.excludeUnavailable(ctx, scope, pool)
	if err != nil {
		return nil, err
	}

	var out []*match.Suggestion
	for _, tx := range txs {
		out = append(out, b.buildForTransaction(tx, pool)...)
	}

	sortSuggestions(out)

	b.log.Debug("suggestion run complete",
		"account_id", scope.AccountID,
		"transactions", len(txs),
		"pool_size", len(pool),
		"suggestions", len(out))

	return out, nil
}

// BuildForTransaction produces suggestions for a single bank
// transaction, searching the wide date window around its posted date.
// A transaction already covered by a confirmed match yields no
// suggestions.
func (b *Builder) BuildForTransaction(ctx context.Context, txID uuid.UUID) ([]*match.Suggestion, error) {
	tx, err := retryRead(ctx, b.readRetries, func() (*banktx.Transaction, error) {
		return b.transactions.GetByID(ctx, txID)
	})
	if err != nil {
		return nil, err
	}

	window := time.Duration(b.tol.WideDayWindow) * 24 * time.Hour
	scope := match.Scope{
		AccountID: tx.AccountID,
		From:      tx.PostedAt.Add(-window),
		To:        tx.PostedAt.Add(window),
	}

	matchedTxs, err := retryRead(ctx, b.readRetries, func() ([]uuid.UUID, error) {
		return b.matches.MatchedBankTransactionIDs(ctx, scope.AccountID, scope.From, scope.To)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing matched transactions: %v", match.ErrExternalStore, err)
	}
	for _, id := range matchedTxs {
		if id == tx.ID {
			b.log.Debug("transaction already matched, skipping build", "transaction_id", tx.ID)
			return nil, nil
		}
	}

	pool, err := retryRead(ctx, b.readRetries, func() ([]*ledger.Entry, error) {
		return b.entries.ListCandidates(ctx, scope.AccountID, scope.From, scope.To)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing candidate entries: %v", match.ErrExternalStore, err)
	}

	pool, err = b.excludeUnavailable(ctx, scope, pool)
	if err != nil {
		return nil, err
	}

	out := b.buildForTransaction(tx, pool)
	sortSuggestions(out)
	return out, nil
}

// buildForTransaction runs the tiered search plus the split search over
// a pre-filtered pool and scores everything found.
func (b *Builder) buildForTransaction(tx *banktx.Transaction, pool []*ledger.Entry) []*match.Suggestion {
	var out []*match.Suggestion

	for _, cand := range b.tol.FindCandidates(tx, pool) {
		set := match.CandidateSet{Transaction: tx, Entries: []*ledger.Entry{cand.Entry}}
		out = append(out, b.newSuggestion(set, cand.Tier))
	}

	for _, set := range b.tol.FindSplitSets(tx, pool) {
		out = append(out, b.newSuggestion(set, match.TierWide))
	}

	return out
}

func (b *Builder) newSuggestion(set match.CandidateSet, tier match.SearchTier) *match.Suggestion {
	score := b.tol.Score(set)
	return &match.Suggestion{
		ID:         uuid.New(),
		Set:        set,
		Confidence: score.Confidence,
		Tier:       score.Tier,
		SearchTier: tier,
		Rationale:  score.Rationale,
		ExactMatch: score.ExactMatch,
		Status:     match.SuggestionProposed,
		CreatedAt:  time.Now(),
	}
}

// excludeUnavailable drops pool entries that are claimed by the usage
// guard or referenced by a confirmed match.
func (b *Builder) excludeUnavailable(ctx context.Context, scope match.Scope, pool []*ledger.Entry) ([]*ledger.Entry, error) {
	matched, err := retryRead(ctx, b.readRetries, func() ([]uuid.UUID, error) {
		return b.matches.MatchedEntryIDs(ctx, scope.AccountID, scope.From, scope.To)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing matched entries: %v", match.ErrExternalStore, err)
	}
	taken := make(map[uuid.UUID]struct{}, len(matched))
	for _, id := range matched {
		taken[id] = struct{}{}
	}

	var out []*ledger.Entry
	for _, e := range pool {
		if _, ok := taken[e.ID]; ok {
			continue
		}
		state, err := b.guard.State(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: reading claim state: %v", match.ErrExternalStore, err)
		}
		if state != match.ClaimFree {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func sortSuggestions(s []*match.Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Confidence != s[j].Confidence {
			return s[i].Confidence > s[j].Confidence
		}
		di, dj := s[i].Set.MaxDayDiff(), s[j].Set.MaxDayDiff()
		if di != dj {
			return di < dj
		}
		return len(s[i].Set.Entries) < len(s[j].Set.Entries)
	})
}

// retryRead retries an idempotent read a small fixed number of times.
// Writes never go through this path.
func retryRead[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(readRetryDelay):
			}
		}
		var v T
		if v, err = fn(); err == nil {
			return v, nil
		}
	}
	return zero, err
}
