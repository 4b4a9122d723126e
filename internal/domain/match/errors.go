package match

import (
	"errors"

	"github.com/google/uuid"
)

// ErrExternalStore wraps query/persistence failures so callers can
// distinguish them from business conflicts. Reads may be retried;
// confirmation writes are never retried automatically.
var ErrExternalStore = errors.New("external store failure")

// ErrEntryClaimed indicates a usage guard conflict: the entry is
// already held by another pending or confirmed match.
type ErrEntryClaimed struct {
	EntryID uuid.UUID
}

func (e ErrEntryClaimed) Error() string {
	return "ledger entry already claimed: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryClaimed
func (e ErrEntryClaimed) Is(target error) bool {
	t, ok := target.(ErrEntryClaimed)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrEmptyCandidateSet indicates invalid input: a suggestion or match
// with no ledger entries.
type ErrEmptyCandidateSet struct{}

func (e ErrEmptyCandidateSet) Error() string {
	return "candidate set must contain at least one ledger entry"
}

// ErrInvalidScope indicates a malformed account/period scope
type ErrInvalidScope struct {
	Reason string
}

func (e ErrInvalidScope) Error() string {
	return "invalid reconciliation scope: " + e.Reason
}

// ErrSuggestionNotFound indicates a missing or already archived suggestion
type ErrSuggestionNotFound struct {
	SuggestionID uuid.UUID
}

func (e ErrSuggestionNotFound) Error() string {
	return "suggestion not found: " + e.SuggestionID.String()
}

// Is implements the errors.Is interface for ErrSuggestionNotFound
func (e ErrSuggestionNotFound) Is(target error) bool {
	t, ok := target.(ErrSuggestionNotFound)
	if !ok {
		return false
	}
	if t.SuggestionID == uuid.Nil {
		return true
	}
	return e.SuggestionID == t.SuggestionID
}

// ErrStaleSuggestion indicates the suggestion is no longer in the
// PROPOSED state and cannot be acted on; callers must refresh.
type ErrStaleSuggestion struct {
	SuggestionID uuid.UUID
	Status       SuggestionStatus
}

func (e ErrStaleSuggestion) Error() string {
	return "suggestion " + e.SuggestionID.String() + " is not actionable in status " + string(e.Status)
}

// ErrMatchNotFound indicates a missing reconciliation match
type ErrMatchNotFound struct {
	MatchID uuid.UUID
}

func (e ErrMatchNotFound) Error() string {
	return "reconciliation match not found: " + e.MatchID.String()
}

// Is implements the errors.Is interface for ErrMatchNotFound
func (e ErrMatchNotFound) Is(target error) bool {
	t, ok := target.(ErrMatchNotFound)
	if !ok {
		return false
	}
	if t.MatchID == uuid.Nil {
		return true
	}
	return e.MatchID == t.MatchID
}

// ErrMatchAlreadyVoided indicates an undo attempt on a match that was
// already voided by an earlier undo.
type ErrMatchAlreadyVoided struct {
	MatchID uuid.UUID
}

func (e ErrMatchAlreadyVoided) Error() string {
	return "reconciliation match already voided: " + e.MatchID.String()
}

// Is implements the errors.Is interface for ErrMatchAlreadyVoided
func (e ErrMatchAlreadyVoided) Is(target error) bool {
	t, ok := target.(ErrMatchAlreadyVoided)
	if !ok {
		return false
	}
	if t.MatchID == uuid.Nil {
		return true
	}
	return e.MatchID == t.MatchID
}

// IsConflict reports whether the error belongs to the Conflict class:
// recorded as a skip in batch runs, surfaced as 409 interactively.
func IsConflict(err error) bool {
	return errors.Is(err, ErrEntryClaimed{}) ||
		errors.As(err, &ErrStaleSuggestion{}) ||
		errors.Is(err, ErrSuggestionNotFound{}) ||
		errors.Is(err, ErrMatchAlreadyVoided{})
}

// IsInvalidInput reports whether the error belongs to the InvalidInput
// class: rejected immediately, never retried.
func IsInvalidInput(err error) bool {
	var emptySet ErrEmptyCandidateSet
	var badScope ErrInvalidScope
	return errors.As(err, &emptySet) || errors.As(err, &badScope)
}
