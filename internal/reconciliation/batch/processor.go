// Package batch runs unattended reconciliation over an account: it
// builds the suggestion set once, filters it by a confidence policy
// and confirms the survivors sequentially, in bounded batches, with
// pause and resume controls.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/config"
	"github.com/contaflow-reconciliation/internal/domain/batchrun"
	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/reconciliation/lifecycle"
)

// Control errors
var (
	ErrRunInProgress = errors.New("a batch run is already in progress")
	ErrNoRun         = errors.New("no batch run")
	ErrRunNotPaused  = errors.New("batch run is not paused")
	ErrRunNotActive  = errors.New("batch run is not active")
)

// Policy selects which confidence tiers the run may auto-confirm.
// The default confirms only high-confidence suggestions.
type Policy struct {
	High   bool `json:"high"`
	Medium bool `json:"medium"`
	Low    bool `json:"low"`
}

// DefaultPolicy confirms high-confidence suggestions only
func DefaultPolicy() Policy {
	return Policy{High: true}
}

// Allows reports whether the tier falls under the policy
func (p Policy) Allows(t match.ConfidenceTier) bool {
	switch t {
	case match.ConfidenceHigh:
		return p.High
	case match.ConfidenceMedium:
		return p.Medium
	case match.ConfidenceLow:
		return p.Low
	}
	return false
}

// SuggestionSource builds the suggestion set for a scope. Implemented
// by the matcher builder.
type SuggestionSource interface {
	BuildForScope(ctx context.Context, scope match.Scope) ([]*match.Suggestion, error)
}

// Confirmer persists one suggestion decision. Implemented by the
// lifecycle service.
type Confirmer interface {
	Confirm(ctx context.Context, suggestionID uuid.UUID, note string, source lifecycle.AuditSource) (*match.Match, error)
}

// Archiver stores finished runs for later inspection. Implemented by
// the Mongo audit store.
type Archiver interface {
	ArchiveRun(ctx context.Context, run *batchrun.Run) error
}

// Processor owns at most one batch run at a time. All state mutation
// happens under one mutex; the run loop re-checks the run status
// before every item so a pause takes effect at item granularity.
type Processor struct {
	log       *slog.Logger
	builder   SuggestionSource
	registry  *lifecycle.Registry
	confirmer Confirmer
	archiver  Archiver
	cfg       config.BatchConfig

	mu    sync.Mutex
	run   *batchrun.Run
	queue []*match.Suggestion
	next  int
	stop  chan struct{}
}

// NewProcessor creates a batch processor
func NewProcessor(
	log *slog.Logger,
	builder SuggestionSource,
	registry *lifecycle.Registry,
	confirmer Confirmer,
	archiver Archiver,
	cfg config.BatchConfig,
) *Processor {
	return &Processor{
		log:       log,
		builder:   builder,
		registry:  registry,
		confirmer: confirmer,
		archiver:  archiver,
		cfg:       cfg,
	}
}

// Start builds suggestions for the scope, installs them in the
// registry and begins confirming the ones the policy allows. It fails
// with ErrRunInProgress while a run is running or paused.
func (p *Processor) Start(ctx context.Context, scope match.Scope, policy Policy) (batchrun.Run, error) {
	if err := scope.Validate(); err != nil {
		return batchrun.Run{}, err
	}

	p.mu.Lock()
	if p.run != nil && (p.run.Status == batchrun.StatusRunning || p.run.Status == batchrun.StatusPaused) {
		p.mu.Unlock()
		return batchrun.Run{}, ErrRunInProgress
	}
	p.mu.Unlock()

	suggestions, err := p.builder.BuildForScope(ctx, scope)
	if err != nil {
		return batchrun.Run{}, err
	}
	p.registry.ReplaceForAccount(scope.AccountID, suggestions)

	var queue []*match.Suggestion
	for _, s := range suggestions {
		if policy.Allows(s.Tier) && !s.Set.IsSplit() {
			queue = append(queue, s)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Re-check: a competing Start may have won while we were building
	if p.run != nil && (p.run.Status == batchrun.StatusRunning || p.run.Status == batchrun.StatusPaused) {
		return batchrun.Run{}, ErrRunInProgress
	}

	p.run = batchrun.NewRun(scope.AccountID, len(queue), p.cfg.EventLogCap)
	p.queue = queue
	p.next = 0
	p.run.Status = batchrun.StatusRunning
	p.run.Note(fmt.Sprintf("run started: %d of %d suggestions eligible", len(queue), len(suggestions)))
	p.spawnLocked(ctx)

	p.log.Info("batch run started",
		"run_id", p.run.ID,
		"account_id", scope.AccountID,
		"eligible", len(queue),
		"built", len(suggestions))

	return p.run.Snapshot(), nil
}

// Pause halts the run before the next item. Items already handed to
// the confirmer complete; nothing is rolled back.
func (p *Processor) Pause(ctx context.Context) (batchrun.Run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return batchrun.Run{}, ErrNoRun
	}
	if p.run.Status != batchrun.StatusRunning {
		return batchrun.Run{}, ErrRunNotActive
	}

	p.run.Status = batchrun.StatusPaused
	p.run.Note("run paused")
	close(p.stop)
	p.stop = nil

	p.log.Info("batch run paused", "run_id", p.run.ID, "processed", p.run.Processed)
	return p.run.Snapshot(), nil
}

// Resume continues a paused run from the next unprocessed suggestion
func (p *Processor) Resume(ctx context.Context) (batchrun.Run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return batchrun.Run{}, ErrNoRun
	}
	if p.run.Status != batchrun.StatusPaused {
		return batchrun.Run{}, ErrRunNotPaused
	}

	p.run.Status = batchrun.StatusRunning
	p.run.Note("run resumed")
	p.spawnLocked(ctx)

	p.log.Info("batch run resumed", "run_id", p.run.ID, "remaining", p.run.Remaining())
	return p.run.Snapshot(), nil
}

// Reset clears a paused or finished run so a new one can start.
// A running run must be paused first.
func (p *Processor) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return ErrNoRun
	}
	if p.run.Status == batchrun.StatusRunning {
		return ErrRunInProgress
	}

	p.log.Info("batch run reset", "run_id", p.run.ID, "status", p.run.Status)
	p.run = nil
	p.queue = nil
	p.next = 0
	return nil
}

// Status returns a snapshot of the current or most recent run
func (p *Processor) Status(ctx context.Context) (batchrun.Run, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return batchrun.Run{}, ErrNoRun
	}
	return p.run.Snapshot(), nil
}

// spawnLocked starts the run loop goroutine. Caller holds p.mu.
func (p *Processor) spawnLocked(ctx context.Context) {
	stop := make(chan struct{})
	p.stop = stop
	go p.loop(ctx, stop)
}

func (p *Processor) loop(ctx context.Context, stop <-chan struct{}) {
	for {
		p.mu.Lock()
		if p.run == nil || p.run.Status != batchrun.StatusRunning {
			p.mu.Unlock()
			return
		}
		if p.next >= len(p.queue) {
			p.run.Note("run completed")
			p.run.Finish(batchrun.StatusCompleted)
			finished := p.run.Snapshot()
			p.mu.Unlock()
			p.archive(ctx, &finished)
			return
		}

		boundary := p.next > 0 && p.next%p.cfg.Size == 0
		if boundary {
			p.run.Note(fmt.Sprintf("batch boundary after %d items", p.next))
		}
		sugg := p.queue[p.next]
		p.mu.Unlock()

		// The cursor only advances after the item is processed, so a
		// pause taken during this wait keeps the item for the resume.
		if boundary {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-time.After(p.cfg.InterBatchDelay):
			}
		}

		outcome, message, abort := p.processOne(ctx, sugg)

		p.mu.Lock()
		if p.run == nil {
			p.mu.Unlock()
			return
		}
		p.next++
		p.run.Record(sugg.ID, outcome, message)
		if abort {
			p.run.Note("run aborted: " + message)
			p.run.Finish(batchrun.StatusAborted)
			finished := p.run.Snapshot()
			p.mu.Unlock()
			p.archive(ctx, &finished)
			return
		}
		p.mu.Unlock()

		select {
		case <-stop:
			return
		default:
		}
	}
}

// processOne confirms a single suggestion and classifies the result.
// Conflicts are expected under concurrency and count as skips; store
// failures count as item failures; anything unclassified aborts the
// run rather than grinding through an unknown failure mode.
func (p *Processor) processOne(ctx context.Context, sugg *match.Suggestion) (batchrun.Outcome, string, bool) {
	m, err := p.confirmer.Confirm(ctx, sugg.ID, "batch reconciliation", lifecycle.SourceBatch)
	if err == nil {
		return batchrun.OutcomeConfirmed, "confirmed as match " + m.ID.String(), false
	}

	switch {
	case match.IsConflict(err):
		return batchrun.OutcomeSkipped, err.Error(), false
	case match.IsInvalidInput(err), errors.Is(err, match.ErrExternalStore):
		p.log.Warn("batch item failed", "suggestion_id", sugg.ID, "error", err)
		return batchrun.OutcomeFailed, err.Error(), false
	default:
		p.log.Error("batch run aborting on unclassified error", "suggestion_id", sugg.ID, "error", err)
		return batchrun.OutcomeFailed, err.Error(), true
	}
}

func (p *Processor) archive(ctx context.Context, run *batchrun.Run) {
	if p.archiver == nil {
		return
	}
	if err := p.archiver.ArchiveRun(ctx, run); err != nil {
		p.log.Warn("failed to archive batch run", "run_id", run.ID, "error", err)
	}
	p.log.Info("batch run finished",
		"run_id", run.ID,
		"status", run.Status,
		"processed", run.Processed,
		"succeeded", run.Succeeded,
		"failed", run.Failed,
		"skipped", run.Skipped)
}
