package match

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/domain/ledger"
)

func testTransaction(amountCents int64, postedAt time.Time) *banktx.Transaction {
	return &banktx.Transaction{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		FitID:       "FIT-1",
		PostedAt:    postedAt,
		AmountCents: amountCents,
		Description: "PIX TRANSF JOAO SILVA",
	}
}

func testEntry(amountCents int64, kind ledger.Kind, date time.Time) *ledger.Entry {
	return &ledger.Entry{
		ID:          uuid.New(),
		EntryDate:   date,
		AmountCents: amountCents,
		Kind:        kind,
		Description: "Joao Silva consulting",
		Status:      ledger.StatusPending,
	}
}

func TestCandidateSet_SumAndDiff(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("single revenue entry against credit", func(t *testing.T) {
		set := CandidateSet{
			Transaction: testTransaction(15000, day),
			Entries:     []*ledger.Entry{testEntry(15000, ledger.KindRevenue, day)},
		}
		assert.Equal(t, int64(15000), set.SumCents())
		assert.Equal(t, int64(0), set.DiffCents())
		assert.False(t, set.IsSplit())
	})

	t.Run("split entries summing to the bank amount", func(t *testing.T) {
		set := CandidateSet{
			Transaction: testTransaction(30000, day),
			Entries: []*ledger.Entry{
				testEntry(15000, ledger.KindRevenue, day),
				testEntry(15000, ledger.KindRevenue, day),
			},
		}
		assert.Equal(t, int64(0), set.DiffCents())
		assert.True(t, set.IsSplit())
	})

	t.Run("expense entry against debit", func(t *testing.T) {
		set := CandidateSet{
			Transaction: testTransaction(-4250, day),
			Entries:     []*ledger.Entry{testEntry(4250, ledger.KindExpense, day)},
		}
		assert.Equal(t, int64(-4250), set.SumCents())
		assert.Equal(t, int64(0), set.DiffCents())
	})
}

func TestCandidateSet_MaxDayDiff(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	set := CandidateSet{
		Transaction: testTransaction(30000, day),
		Entries: []*ledger.Entry{
			testEntry(15000, ledger.KindRevenue, day.AddDate(0, 0, 1)),
			testEntry(15000, ledger.KindRevenue, day.AddDate(0, 0, -3)),
		},
	}
	assert.Equal(t, 3, set.MaxDayDiff())
}

func TestSuggestion_AutoConfirmable(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("exact single entry qualifies", func(t *testing.T) {
		s := &Suggestion{
			Set: CandidateSet{
				Transaction: testTransaction(15000, day),
				Entries:     []*ledger.Entry{testEntry(15000, ledger.KindRevenue, day)},
			},
			ExactMatch: true,
		}
		assert.True(t, s.AutoConfirmable())
	})

	t.Run("split never qualifies even with exact flag unset", func(t *testing.T) {
		s := &Suggestion{
			Set: CandidateSet{
				Transaction: testTransaction(30000, day),
				Entries: []*ledger.Entry{
					testEntry(15000, ledger.KindRevenue, day),
					testEntry(15000, ledger.KindRevenue, day),
				},
			},
			ExactMatch: false,
		}
		assert.False(t, s.AutoConfirmable())
	})

	t.Run("inexact single entry does not qualify", func(t *testing.T) {
		s := &Suggestion{
			Set: CandidateSet{
				Transaction: testTransaction(15000, day),
				Entries:     []*ledger.Entry{testEntry(14850, ledger.KindRevenue, day)},
			},
			ExactMatch: false,
		}
		assert.False(t, s.AutoConfirmable())
	})
}

func TestTierForConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, TierForConfidence(0.8))
	assert.Equal(t, ConfidenceHigh, TierForConfidence(1.0))
	assert.Equal(t, ConfidenceMedium, TierForConfidence(0.6))
	assert.Equal(t, ConfidenceMedium, TierForConfidence(0.79))
	assert.Equal(t, ConfidenceLow, TierForConfidence(0.59))
	assert.Equal(t, ConfidenceLow, TierForConfidence(0))
}

func TestScope_Validate(t *testing.T) {
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		s := Scope{AccountID: uuid.New(), From: now.AddDate(0, -1, 0), To: now}
		assert.NoError(t, s.Validate())
	})

	t.Run("missing account", func(t *testing.T) {
		s := Scope{From: now.AddDate(0, -1, 0), To: now}
		err := s.Validate()
		assert.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})

	t.Run("inverted period", func(t *testing.T) {
		s := Scope{AccountID: uuid.New(), From: now, To: now.AddDate(0, -1, 0)}
		assert.Error(t, s.Validate())
	})
}

func TestNewMatch_EmptySet(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	set := CandidateSet{Transaction: testTransaction(15000, day)}

	m, err := NewMatch(set, "note", 1.0, false)
	assert.Nil(t, m)
	assert.Error(t, err)
	assert.True(t, IsInvalidInput(err))
}
