// Package match defines the reconciliation matching domain: candidate
// sets, scored suggestions, confirmed matches, and the usage guard
// that keeps a ledger entry from being claimed twice.
package match

import (
	"time"

	"github.com/google/uuid"
	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/domain/ledger"
	"github.com/contaflow-reconciliation/internal/domain/shared"
)

// SearchTier identifies which tolerance band produced a candidate
type SearchTier string

const (
	TierExact SearchTier = "EXACT"
	TierTight SearchTier = "TIGHT"
	TierWide  SearchTier = "WIDE"
)

// ConfidenceTier is the discrete bucket derived from the confidence
// score, used to gate automatic behavior.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "HIGH"
	ConfidenceMedium ConfidenceTier = "MEDIUM"
	ConfidenceLow    ConfidenceTier = "LOW"
)

// Confidence tier boundaries on the [0,1] score scale
const (
	HighTierBoundary   = 0.8
	MediumTierBoundary = 0.6
)

// TierForConfidence maps a clamped score to its discrete tier
func TierForConfidence(score float64) ConfidenceTier {
	switch {
	case score >= HighTierBoundary:
		return ConfidenceHigh
	case score >= MediumTierBoundary:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// SuggestionStatus defines the suggestion lifecycle states
type SuggestionStatus string

const (
	SuggestionProposed  SuggestionStatus = "PROPOSED"
	SuggestionConfirmed SuggestionStatus = "CONFIRMED"
	SuggestionRejected  SuggestionStatus = "REJECTED"
	SuggestionExpired   SuggestionStatus = "EXPIRED"
)

// CandidateSet pairs one bank transaction with one or more ledger
// entries. A set of size greater than one is a split match: several
// entries summing to a single bank movement.
type CandidateSet struct {
	Transaction *banktx.Transaction
	Entries     []*ledger.Entry
}

// SumCents returns the signed sum of the set's entries in cents
func (s CandidateSet) SumCents() int64 {
	var sum int64
	for _, e := range s.Entries {
		sum += e.SignedAmountCents()
	}
	return sum
}

// DiffCents returns the absolute difference, in cents, between the
// bank amount and the (possibly summed) ledger amount. Zero here is
// the one and only condition under which a match is "exact".
func (s CandidateSet) DiffCents() int64 {
	return shared.DiffCents(s.Transaction.AmountCents, s.SumCents())
}

// MaxDayDiff returns the largest calendar-day distance between the
// bank transaction and any entry in the set.
func (s CandidateSet) MaxDayDiff() int {
	max := 0
	for _, e := range s.Entries {
		if d := shared.DayDiff(s.Transaction.PostedAt, e.EntryDate); d > max {
			max = d
		}
	}
	return max
}

// IsSplit reports whether the set matches several entries to one
// bank transaction.
func (s CandidateSet) IsSplit() bool {
	return len(s.Entries) > 1
}

// EntryIDs returns the identifiers of the set's entries in order
func (s CandidateSet) EntryIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Suggestion is a scored candidate pairing awaiting resolution.
// Created by the suggestion builder, mutated only by the lifecycle.
type Suggestion struct {
	ID         uuid.UUID        `json:"id"`
	Set        CandidateSet     `json:"-"`
	Confidence float64          `json:"confidence"` // Clamped to [0,1]
	Tier       ConfidenceTier   `json:"tier"`
	SearchTier SearchTier       `json:"search_tier"`
	Rationale  []string         `json:"rationale"`
	ExactMatch bool             `json:"exact_match"`
	Status     SuggestionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}

// AutoConfirmable reports whether the suggestion qualifies for the
// automatic confirmation fast path: an exact match on a single entry.
// Splits always require human confirmation, even at zero difference.
func (s *Suggestion) AutoConfirmable() bool {
	return s.ExactMatch && len(s.Set.Entries) == 1
}

// Scope selects the bank transactions a suggestion run covers
type Scope struct {
	AccountID uuid.UUID
	From      time.Time
	To        time.Time
}

// Validate rejects malformed scopes before any store access
func (s Scope) Validate() error {
	if s.AccountID == uuid.Nil {
		return ErrInvalidScope{Reason: "account id is required"}
	}
	if s.To.Before(s.From) {
		return ErrInvalidScope{Reason: "period end precedes period start"}
	}
	return nil
}
