package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/domain/batchrun"
	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/reconciliation/batch"
)

// RunController drives the single live batch run. Implemented by the
// batch processor.
type RunController interface {
	Start(ctx context.Context, scope match.Scope, policy batch.Policy) (batchrun.Run, error)
	Pause(ctx context.Context) (batchrun.Run, error)
	Resume(ctx context.Context) (batchrun.Run, error)
	Reset(ctx context.Context) error
	Status(ctx context.Context) (batchrun.Run, error)
}

// RunArchive looks up finished runs. Implemented by the Mongo audit store.
type RunArchive interface {
	GetRun(ctx context.Context, runID uuid.UUID) (*batchrun.Run, error)
}

// BatchServiceImpl implements the BatchService interface. The processor
// owns at most one live run, so every by-ID operation first checks the
// live run and falls back to the archive for reads.
type BatchServiceImpl struct {
	processor RunController
	archive   RunArchive
	logger    *slog.Logger
}

// NewBatchService creates a new batch service
func NewBatchService(logger *slog.Logger, processor RunController, archive RunArchive) BatchService {
	return &BatchServiceImpl{
		processor: processor,
		archive:   archive,
		logger:    logger,
	}
}

// StartRun begins a batch reconciliation run over the scope
func (s *BatchServiceImpl) StartRun(ctx context.Context, scope match.Scope, policy batch.Policy) (batchrun.Run, error) {
	return s.processor.Start(ctx, scope, policy)
}

// GetRun returns the live run if it carries the ID, otherwise the
// archived run
func (s *BatchServiceImpl) GetRun(ctx context.Context, runID uuid.UUID) (batchrun.Run, error) {
	run, err := s.processor.Status(ctx)
	if err == nil && run.ID == runID {
		return run, nil
	}
	if err != nil && !errors.Is(err, batch.ErrNoRun) {
		return batchrun.Run{}, err
	}

	archived, err := s.archive.GetRun(ctx, runID)
	if err != nil {
		return batchrun.Run{}, err
	}
	return *archived, nil
}

// PauseRun halts the live run if it carries the ID
func (s *BatchServiceImpl) PauseRun(ctx context.Context, runID uuid.UUID) (batchrun.Run, error) {
	if err := s.requireLiveRun(ctx, runID); err != nil {
		return batchrun.Run{}, err
	}
	return s.processor.Pause(ctx)
}

// ResumeRun continues the live paused run if it carries the ID
func (s *BatchServiceImpl) ResumeRun(ctx context.Context, runID uuid.UUID) (batchrun.Run, error) {
	if err := s.requireLiveRun(ctx, runID); err != nil {
		return batchrun.Run{}, err
	}
	return s.processor.Resume(ctx)
}

// ResetRun clears the live run if it carries the ID
func (s *BatchServiceImpl) ResetRun(ctx context.Context, runID uuid.UUID) error {
	if err := s.requireLiveRun(ctx, runID); err != nil {
		return err
	}
	return s.processor.Reset(ctx)
}

// requireLiveRun rejects control operations aimed at a run the
// processor no longer holds
func (s *BatchServiceImpl) requireLiveRun(ctx context.Context, runID uuid.UUID) error {
	run, err := s.processor.Status(ctx)
	if err != nil {
		if errors.Is(err, batch.ErrNoRun) {
			return batchrun.ErrRunNotFound{RunID: runID}
		}
		return err
	}
	if run.ID != runID {
		return batchrun.ErrRunNotFound{RunID: runID}
	}
	return nil
}
