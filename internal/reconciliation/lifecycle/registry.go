package lifecycle

import (
	"sync"

	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/domain/match"
)

// Registry holds the live suggestion set in memory, indexed by ID and
// by account. Suggestions are ephemeral: a rebuild for an account
// expires everything still proposed and replaces it wholesale.
type Registry struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*match.Suggestion
	byAccount map[uuid.UUID][]uuid.UUID
}

// NewRegistry creates an empty suggestion registry
func NewRegistry() *Registry {
	return &Registry{
		byID:      make(map[uuid.UUID]*match.Suggestion),
		byAccount: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Get returns the suggestion with the given ID
func (r *Registry) Get(id uuid.UUID) (*match.Suggestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, match.ErrSuggestionNotFound{SuggestionID: id}
	}
	return s, nil
}

// ListProposed returns the account's suggestions still awaiting a
// decision, in the order the builder ranked them.
func (r *Registry) ListProposed(accountID uuid.UUID) []*match.Suggestion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*match.Suggestion
	for _, id := range r.byAccount[accountID] {
		if s := r.byID[id]; s != nil && s.Status == match.SuggestionProposed {
			out = append(out, s)
		}
	}
	return out
}

// ReplaceForAccount installs a freshly built suggestion set for the
// account. Previous suggestions still proposed are expired; resolved
// ones keep their terminal status but leave the account index.
func (r *Registry) ReplaceForAccount(accountID uuid.UUID, suggestions []*match.Suggestion) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.byAccount[accountID] {
		if s := r.byID[id]; s != nil && s.Status == match.SuggestionProposed {
			s.Status = match.SuggestionExpired
		}
		delete(r.byID, id)
	}

	ids := make([]uuid.UUID, len(suggestions))
	for i, s := range suggestions {
		r.byID[s.ID] = s
		ids[i] = s.ID
	}
	r.byAccount[accountID] = ids
}

// Resolve transitions a proposed suggestion to a terminal status. It
// fails with ErrStaleSuggestion when the suggestion was already
// resolved or expired by a concurrent actor.
func (r *Registry) Resolve(id uuid.UUID, to match.SuggestionStatus) (*match.Suggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, match.ErrSuggestionNotFound{SuggestionID: id}
	}
	if s.Status != match.SuggestionProposed {
		return nil, match.ErrStaleSuggestion{SuggestionID: id, Status: s.Status}
	}
	s.Status = to
	return s, nil
}

// ExpireByEntries expires every proposed suggestion referencing any of
// the given entries. Called after a confirmation takes entries out of
// play so sibling suggestions stop being offered.
func (r *Registry) ExpireByEntries(entryIDs []uuid.UUID) int {
	taken := make(map[uuid.UUID]struct{}, len(entryIDs))
	for _, id := range entryIDs {
		taken[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	expired := 0
	for _, s := range r.byID {
		if s.Status != match.SuggestionProposed {
			continue
		}
		for _, e := range s.Set.Entries {
			if _, ok := taken[e.ID]; ok {
				s.Status = match.SuggestionExpired
				expired++
				break
			}
		}
	}
	return expired
}
