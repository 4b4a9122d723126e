package matcher

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/domain/shared"
)

// Component weights. Amount proximity dominates, the date window comes
// second and description overlap only nudges the result.
const (
	valueWeight = 0.55
	dateWeight  = 0.35
	descWeight  = 0.10

	// Each entry beyond the first in a split set costs a tenth of the
	// score, floored so a large split never collapses to zero.
	splitPenaltyStep = 0.10
	splitFactorFloor = 0.50
)

// Score is the outcome of scoring one candidate set.
type Score struct {
	Confidence float64
	Tier       match.ConfidenceTier
	Rationale  []string
	ExactMatch bool
}

// Score grades a candidate set against its bank transaction. It is a
// pure function of the set and the configured bands: the same set
// always yields the same score, so re-scoring after a rebuild cannot
// flip a suggestion's tier.
//
// Closeness is measured against the widest bands regardless of which
// tier admitted the set, keeping the score monotone in the actual
// amount and date distance.
func (t Tolerances) Score(set match.CandidateSet) Score {
	bankAbs := shared.AbsCents(set.Transaction.AmountCents)

	diff := set.DiffCents()
	valueTol := shared.PercentOfCents(bankAbs, t.WidePercent)
	var valueCloseness float64
	switch {
	case diff == 0:
		valueCloseness = 1
	case valueTol == 0 || diff > valueTol:
		valueCloseness = 0
	default:
		valueCloseness = 1 - float64(diff)/float64(valueTol)
	}

	days := set.MaxDayDiff()
	var dateCloseness float64
	switch {
	case days == 0:
		dateCloseness = 1
	case t.WideDayWindow == 0 || days > t.WideDayWindow:
		dateCloseness = 0
	default:
		dateCloseness = 1 - float64(days)/float64(t.WideDayWindow)
	}

	descSim := descriptionSimilarity(set)

	factor := 1 - splitPenaltyStep*float64(len(set.Entries)-1)
	if factor < splitFactorFloor {
		factor = splitFactorFloor
	}

	confidence := factor * (valueWeight*valueCloseness + dateWeight*dateCloseness + descWeight*descSim)
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	exact := !set.IsSplit() && diff == 0 && days == 0

	return Score{
		Confidence: confidence,
		Tier:       match.TierForConfidence(confidence),
		Rationale:  buildRationale(set, t, diff, days, descSim),
		ExactMatch: exact,
	}
}

func buildRationale(set match.CandidateSet, t Tolerances, diff int64, days int, descSim float64) []string {
	var out []string

	switch {
	case diff == 0:
		out = append(out, "same amount")
	case diff <= shared.PercentOfCents(shared.AbsCents(set.Transaction.AmountCents), t.TightPercent):
		out = append(out, fmt.Sprintf("amount within %.0f%%", t.TightPercent))
	default:
		out = append(out, fmt.Sprintf("amount within %.0f%%", t.WidePercent))
	}

	if days == 0 {
		out = append(out, "same day")
	} else {
		out = append(out, fmt.Sprintf("date within %d days", days))
	}

	if descSim > 0 {
		out = append(out, "description overlap")
	}

	if set.IsSplit() {
		out = append(out, fmt.Sprintf("split across %d entries", len(set.Entries)))
	}

	return out
}

// descriptionSimilarity measures token overlap between the bank
// statement description and the entry descriptions, as the fraction of
// entry tokens also present in the statement text.
func descriptionSimilarity(set match.CandidateSet) float64 {
	bankTokens := tokenize(set.Transaction.Description)
	if len(bankTokens) == 0 {
		return 0
	}

	entryTokens := make(map[string]struct{})
	for _, e := range set.Entries {
		for tok := range tokenize(e.Description) {
			entryTokens[tok] = struct{}{}
		}
	}
	if len(entryTokens) == 0 {
		return 0
	}

	shared := 0
	for tok := range entryTokens {
		if _, ok := bankTokens[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(entryTokens))
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping
// tokens too short to carry meaning.
func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
