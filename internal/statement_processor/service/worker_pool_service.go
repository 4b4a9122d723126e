package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
)

// WorkerPoolImportService implements the ImportService interface on
// top of an ants pool so statement lines import concurrently.
type WorkerPoolImportService struct {
	baseService ImportService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolImportService(
	baseService ImportService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolImportService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolImportService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// ProcessStatementLine submits a statement line to the worker pool for processing.
func (s *WorkerPoolImportService) ProcessStatementLine(ctx context.Context, line *banktx.StatementLine) error {
	logger := s.logger
	if line.CorrelationID != "" {
		logger = s.logger.With("correlation_id", line.CorrelationID)
	}

	logger.Info("Submitting statement line to worker pool",
		"account_id", line.AccountID.String(),
		"fit_id", line.FitID,
	)

	resultChan := make(chan error, 1)

	// The FIT ID is unique per account, which makes it the natural task key.
	taskKey := line.AccountID.String() + "/" + line.FitID
	s.mu.Lock()
	s.results[taskKey] = resultChan
	s.mu.Unlock()

	// Create a copy of the line to avoid data races
	lineCopy := *line

	err := s.pool.Submit(func() {
		err := s.baseService.ProcessStatementLine(ctx, &lineCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, taskKey)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, taskKey)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit statement line to worker pool",
			"account_id", line.AccountID.String(),
			"fit_id", line.FitID,
			"error", err,
		)
		return err
	}

	// Wait for the result from the worker
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolImportService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolImportService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolImportService) Capacity() int {
	return s.pool.Cap()
}
