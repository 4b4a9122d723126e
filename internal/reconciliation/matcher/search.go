// Package matcher implements the candidate discovery and scoring half
// of the reconciliation engine: the tiered tolerance search, the
// confidence scorer, and the suggestion builder that combines them.
package matcher

import (
	"sort"

	"github.com/contaflow-reconciliation/internal/config"
	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/domain/ledger"
	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/domain/shared"
)

// Tolerances carries the tiered search bands. Tiers are applied in
// order (exact, tight, wide); the search stops at the first tier that
// yields at least one candidate and never widens past the wide tier.
type Tolerances struct {
	ExactDayWindow  int
	TightPercent    float64
	TightDayWindow  int
	WidePercent     float64
	WideDayWindow   int
	MaxSplitEntries int
	MaxSplitPool    int
}

// TolerancesFromConfig maps the matching configuration section
func TolerancesFromConfig(cfg *config.MatchingConfig) Tolerances {
	return Tolerances{
		ExactDayWindow:  cfg.ExactDayWindow,
		TightPercent:    cfg.TightPercent,
		TightDayWindow:  cfg.TightDayWindow,
		WidePercent:     cfg.WidePercent,
		WideDayWindow:   cfg.WideDayWindow,
		MaxSplitEntries: cfg.MaxSplitEntries,
		MaxSplitPool:    cfg.MaxSplitPool,
	}
}

// DefaultTolerances returns the documented default bands:
// exact (0 diff, 3 days), tight (5%, 3 days), wide (10%, 7 days),
// splits up to 3 entries.
func DefaultTolerances() Tolerances {
	return Tolerances{
		ExactDayWindow:  3,
		TightPercent:    5.0,
		TightDayWindow:  3,
		WidePercent:     10.0,
		WideDayWindow:   7,
		MaxSplitEntries: 3,
		MaxSplitPool:    25,
	}
}

// Candidate is one ledger entry passing a tolerance tier for a bank
// transaction, annotated with the tier that admitted it.
type Candidate struct {
	Entry     *ledger.Entry
	Tier      match.SearchTier
	DayDiff   int
	DiffCents int64
}

// eligible filters the pool down to entries that can face the
// transaction at all: pending status and matching direction (credits
// reconcile revenue, debits reconcile expenses).
func eligible(tx *banktx.Transaction, pool []*ledger.Entry) []*ledger.Entry {
	var out []*ledger.Entry
	for _, e := range pool {
		if !e.Matchable() {
			continue
		}
		if tx.IsCredit() != (e.Kind == ledger.KindRevenue) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FindCandidates returns the entries passing the first tolerance tier
// that yields at least one candidate. An empty result means nothing
// matched even the wide tier; callers must not widen further.
func (t Tolerances) FindCandidates(tx *banktx.Transaction, pool []*ledger.Entry) []Candidate {
	entries := eligible(tx, pool)
	if len(entries) == 0 {
		return nil
	}

	bankAbs := shared.AbsCents(tx.AmountCents)

	tiers := []struct {
		name      match.SearchTier
		valueTol  int64
		dayWindow int
	}{
		{match.TierExact, 0, t.ExactDayWindow},
		{match.TierTight, shared.PercentOfCents(bankAbs, t.TightPercent), t.TightDayWindow},
		{match.TierWide, shared.PercentOfCents(bankAbs, t.WidePercent), t.WideDayWindow},
	}

	for _, tier := range tiers {
		var found []Candidate
		for _, e := range entries {
			diff := shared.DiffCents(bankAbs, shared.AbsCents(e.SignedAmountCents()))
			days := shared.DayDiff(tx.PostedAt, e.EntryDate)
			if diff <= tier.valueTol && days <= tier.dayWindow {
				found = append(found, Candidate{
					Entry:     e,
					Tier:      tier.name,
					DayDiff:   days,
					DiffCents: diff,
				})
			}
		}
		if len(found) > 0 {
			return found
		}
	}

	return nil
}

// FindSplitSets returns candidate sets of two or more entries whose
// amounts sum to the bank transaction within the wide tolerance band.
// The pool considered is capped to bound the combinatorial search.
func (t Tolerances) FindSplitSets(tx *banktx.Transaction, pool []*ledger.Entry) []match.CandidateSet {
	if t.MaxSplitEntries < 2 {
		return nil
	}

	entries := eligible(tx, pool)

	// Only entries inside the wide date window can participate
	var window []*ledger.Entry
	for _, e := range entries {
		if shared.DayDiff(tx.PostedAt, e.EntryDate) <= t.WideDayWindow {
			window = append(window, e)
		}
	}
	if len(window) < 2 {
		return nil
	}

	// Closest-dated entries first, then cap the pool
	sort.Slice(window, func(i, j int) bool {
		di := shared.DayDiff(tx.PostedAt, window[i].EntryDate)
		dj := shared.DayDiff(tx.PostedAt, window[j].EntryDate)
		if di != dj {
			return di < dj
		}
		return window[i].AmountCents > window[j].AmountCents
	})
	if len(window) > t.MaxSplitPool {
		window = window[:t.MaxSplitPool]
	}

	target := shared.AbsCents(tx.AmountCents)
	tolerance := shared.PercentOfCents(target, t.WidePercent)

	var sets []match.CandidateSet
	var combo []*ledger.Entry

	// All entries share the transaction's direction, so the running sum
	// only grows; prune as soon as it overshoots the tolerance band.
	var walk func(start int, sum int64)
	walk = func(start int, sum int64) {
		if len(combo) >= 2 && shared.DiffCents(sum, target) <= tolerance {
			set := match.CandidateSet{
				Transaction: tx,
				Entries:     append([]*ledger.Entry(nil), combo...),
			}
			sets = append(sets, set)
		}
		if len(combo) == t.MaxSplitEntries {
			return
		}
		for i := start; i < len(window); i++ {
			next := sum + window[i].AmountCents
			if next > target+tolerance {
				continue
			}
			combo = append(combo, window[i])
			walk(i+1, next)
			combo = combo[:len(combo)-1]
		}
	}
	walk(0, 0)

	return sets
}
