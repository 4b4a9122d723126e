package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/domain/ledger"
	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/domain/outbox"
	"github.com/contaflow-reconciliation/internal/reconciliation/matcher"
)

// Service executes suggestion decisions and manual matches
type Service struct {
	log          *slog.Logger
	db           TxStarter
	registry     *Registry
	transactions banktx.Repository
	entries      ledger.Repository
	matches      match.Repository
	outbox       outbox.Repository
	guard        match.Guard
	audit        AuditRecorder
	tol          matcher.Tolerances
}

// NewService creates the lifecycle service
func NewService(
	log *slog.Logger,
	db TxStarter,
	registry *Registry,
	transactions banktx.Repository,
	entries ledger.Repository,
	matches match.Repository,
	outboxRepo outbox.Repository,
	guard match.Guard,
	audit AuditRecorder,
	tol matcher.Tolerances,
) *Service {
	return &Service{
		log:          log,
		db:           db,
		registry:     registry,
		transactions: transactions,
		entries:      entries,
		matches:      matches,
		outbox:       outboxRepo,
		guard:        guard,
		audit:        audit,
		tol:          tol,
	}
}

// Registry exposes the live suggestion set for read access
func (s *Service) Registry() *Registry {
	return s.registry
}

// Confirm turns a proposed suggestion into a persisted match. The
// entries are claimed first; if anything after the claim fails, the
// claim is released so the entries return to play. On an entry-claim
// conflict the suggestion comes back expired, not proposed: callers
// must rebuild before retrying.
func (s *Service) Confirm(ctx context.Context, suggestionID uuid.UUID, note string, source AuditSource) (*match.Match, error) {
	sugg, err := s.registry.Get(suggestionID)
	if err != nil {
		return nil, err
	}
	if sugg.Status != match.SuggestionProposed {
		return nil, match.ErrStaleSuggestion{SuggestionID: suggestionID, Status: sugg.Status}
	}

	m, err := s.confirmSet(ctx, sugg.Set, note, sugg.Confidence, source == SourceAutoImport, source)
	if err != nil {
		if errors.Is(err, match.ErrEntryClaimed{}) {
			// Someone else took an entry: this suggestion can never be
			// confirmed, so retire it instead of leaving it proposed.
			if _, expireErr := s.registry.Resolve(suggestionID, match.SuggestionExpired); expireErr != nil {
				s.log.Warn("failed to expire conflicted suggestion", "suggestion_id", suggestionID, "error", expireErr)
			}
		}
		return nil, err
	}

	if _, err := s.registry.Resolve(suggestionID, match.SuggestionConfirmed); err != nil {
		// The persisted match stands; the registry merely lost the race
		s.log.Warn("suggestion resolved concurrently after confirmation", "suggestion_id", suggestionID, "error", err)
	}
	s.registry.ExpireByEntries(m.EntryIDs)

	return m, nil
}

// AutoConfirm persists an exact single-entry suggestion without a
// human decision, during statement import. Splits and inexact sets
// are refused regardless of confidence.
func (s *Service) AutoConfirm(ctx context.Context, sugg *match.Suggestion) (*match.Match, error) {
	if !sugg.AutoConfirmable() {
		return nil, match.ErrStaleSuggestion{SuggestionID: sugg.ID, Status: sugg.Status}
	}

	m, err := s.confirmSet(ctx, sugg.Set, "auto-confirmed on import", sugg.Confidence, true, SourceAutoImport)
	if err != nil {
		return nil, err
	}
	sugg.Status = match.SuggestionConfirmed
	s.registry.ExpireByEntries(m.EntryIDs)
	return m, nil
}

// ManualMatch links a bank transaction to explicitly chosen entries,
// bypassing the tolerance search. The pairing is still scored so the
// stored confidence reflects how close the amounts actually are.
func (s *Service) ManualMatch(ctx context.Context, txID uuid.UUID, entryIDs []uuid.UUID, note string, source AuditSource) (*match.Match, error) {
	if len(entryIDs) == 0 {
		return nil, match.ErrEmptyCandidateSet{}
	}

	tx, err := s.transactions.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	set := match.CandidateSet{Transaction: tx}
	for _, id := range entryIDs {
		entry, err := s.entries.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !entry.Matchable() {
			return nil, ledger.ErrInvalidStatusTransition{EntryID: id, From: entry.Status, To: ledger.StatusPaid}
		}
		set.Entries = append(set.Entries, entry)
	}

	score := s.tol.Score(set)
	m, err := s.confirmSet(ctx, set, note, score.Confidence, false, source)
	if err != nil {
		return nil, err
	}
	s.registry.ExpireByEntries(m.EntryIDs)
	return m, nil
}

// Reject retires a proposed suggestion. Nothing is persisted: the
// entries stay in play and later rebuilds may propose the same
// pairing again.
func (s *Service) Reject(ctx context.Context, suggestionID uuid.UUID, source AuditSource) (*match.Suggestion, error) {
	sugg, err := s.registry.Resolve(suggestionID, match.SuggestionRejected)
	if err != nil {
		return nil, err
	}

	if err := s.audit.RecordRejection(ctx, sugg, source); err != nil {
		s.log.Warn("failed to record rejection audit", "suggestion_id", suggestionID, "error", err)
	}

	s.log.Info("suggestion rejected", "suggestion_id", suggestionID)
	return sugg, nil
}

// Undo voids a confirmed match: the match record is kept with a
// VOIDED status, the entries return to PENDING and an undo event is
// queued for downstream consumers.
func (s *Service) Undo(ctx context.Context, matchID uuid.UUID, source AuditSource) (*match.Match, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status == match.MatchVoided {
		return nil, match.ErrMatchAlreadyVoided{MatchID: matchID}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning undo transaction: %v", match.ErrExternalStore, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.log.Error("failed to rollback undo transaction", "match_id", matchID, "error", rbErr)
			}
		}
	}()

	if err = s.matches.WithTx(tx).Void(ctx, matchID); err != nil {
		return nil, fmt.Errorf("%w: voiding match: %v", match.ErrExternalStore, err)
	}

	entriesTx := s.entries.WithTx(tx)
	for _, entryID := range m.EntryIDs {
		if err = entriesTx.MarkUnreconciled(ctx, entryID); err != nil {
			return nil, fmt.Errorf("%w: reverting entry %s: %v", match.ErrExternalStore, entryID, err)
		}
	}

	m.Void()
	msg, msgErr := outbox.NewMessage(outbox.EventMatchVoided, m)
	if msgErr != nil {
		err = fmt.Errorf("building undo event payload: %w", msgErr)
		return nil, err
	}
	if err = s.outbox.WithTx(tx).Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: queueing undo event: %v", match.ErrExternalStore, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: committing undo: %v", match.ErrExternalStore, err)
	}

	if err := s.guard.Release(ctx, matchID); err != nil {
		s.log.Error("failed to release claims after undo", "match_id", matchID, "error", err)
	}
	if err := s.audit.RecordUndo(ctx, m, source); err != nil {
		s.log.Warn("failed to record undo audit", "match_id", matchID, "error", err)
	}

	s.log.Info("match voided", "match_id", matchID, "entries", len(m.EntryIDs))
	return m, nil
}

// confirmSet runs the confirmation machinery shared by Confirm,
// AutoConfirm and ManualMatch: claim, persist, promote, audit.
func (s *Service) confirmSet(ctx context.Context, set match.CandidateSet, note string, confidence float64, auto bool, source AuditSource) (*match.Match, error) {
	m, err := match.NewMatch(set, note, confidence, auto)
	if err != nil {
		return nil, err
	}

	// The match ID doubles as the claim holder, so a later undo can
	// release exactly this match's claims.
	if err := s.guard.Claim(ctx, m.ID, match.ClaimPending, m.EntryIDs); err != nil {
		return nil, err
	}

	if err := s.persistMatch(ctx, m); err != nil {
		if relErr := s.guard.Release(ctx, m.ID); relErr != nil {
			s.log.Error("failed to release claims after persist failure", "match_id", m.ID, "error", relErr)
		}
		return nil, err
	}

	if err := s.guard.Promote(ctx, m.ID); err != nil {
		s.log.Error("failed to promote claims for confirmed match", "match_id", m.ID, "error", err)
	}

	if err := s.audit.RecordConfirmation(ctx, m, source); err != nil {
		s.log.Warn("failed to record confirmation audit", "match_id", m.ID, "error", err)
	}

	s.log.Info("match confirmed",
		"match_id", m.ID,
		"bank_transaction_id", m.BankTransactionID,
		"entries", len(m.EntryIDs),
		"auto", auto)

	return m, nil
}

// persistMatch writes the match record, the entry status transitions
// and the outbox event in one database transaction.
func (s *Service) persistMatch(ctx context.Context, m *match.Match) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning confirmation transaction: %v", match.ErrExternalStore, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.log.Error("failed to rollback confirmation transaction", "match_id", m.ID, "error", rbErr)
			}
		}
	}()

	if err = s.matches.WithTx(tx).Create(ctx, m); err != nil {
		return fmt.Errorf("%w: creating match: %v", match.ErrExternalStore, err)
	}

	entriesTx := s.entries.WithTx(tx)
	for _, entryID := range m.EntryIDs {
		if err = entriesTx.MarkReconciled(ctx, entryID); err != nil {
			return fmt.Errorf("%w: reconciling entry %s: %v", match.ErrExternalStore, entryID, err)
		}
	}

	msg, msgErr := outbox.NewMessage(outbox.EventMatchConfirmed, m)
	if msgErr != nil {
		err = fmt.Errorf("building confirmation event payload: %w", msgErr)
		return err
	}
	if err = s.outbox.WithTx(tx).Create(ctx, msg); err != nil {
		return fmt.Errorf("%w: queueing confirmation event: %v", match.ErrExternalStore, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing confirmation: %v", match.ErrExternalStore, err)
	}

	return nil
}
