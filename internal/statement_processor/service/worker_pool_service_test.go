package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
)

// MockImportService mocks the ImportService interface
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) ProcessStatementLine(ctx context.Context, line *banktx.StatementLine) error {
	args := m.Called(ctx, line)
	return args.Error(0)
}

func TestWorkerPoolImportService_ProcessStatementLine(t *testing.T) {
	logger := newTestLogger()

	line := &banktx.StatementLine{
		AccountID:     uuid.New(),
		FitID:         "FIT-001",
		PostedAt:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		AmountCents:   125000,
		Description:   "ACME invoice payment",
		CorrelationID: "corr1",
	}

	tests := []struct {
		name          string
		setupMocks    func(base *MockImportService)
		expectedError error
	}{
		{
			name: "successful import",
			setupMocks: func(base *MockImportService) {
				base.On("ProcessStatementLine", mock.Anything, mock.Anything).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "import error",
			setupMocks: func(base *MockImportService) {
				base.On("ProcessStatementLine", mock.Anything, mock.Anything).Return(errors.New("import error")).Once()
			},
			expectedError: errors.New("import error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockBaseService := &MockImportService{}

			workerPoolService, err := NewWorkerPoolImportService(
				mockBaseService,
				WorkerPoolConfig{Size: 2},
				logger,
			)
			assert.NoError(t, err)
			defer workerPoolService.Shutdown()

			tt.setupMocks(mockBaseService)

			err = workerPoolService.ProcessStatementLine(context.Background(), line)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockBaseService.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolImportService_Concurrency(t *testing.T) {
	mockBaseService := &MockImportService{}
	logger := newTestLogger()

	workerPoolService, err := NewWorkerPoolImportService(
		mockBaseService,
		WorkerPoolConfig{Size: 5},
		logger,
	)
	assert.NoError(t, err)
	defer workerPoolService.Shutdown()

	var mu sync.Mutex
	counter := 0

	mockBaseService.On("ProcessStatementLine", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		// Simulate some work
		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		counter++
		mu.Unlock()
	}).Return(nil)

	accountID := uuid.New()
	numLines := 10
	var wg sync.WaitGroup
	wg.Add(numLines)

	for i := 0; i < numLines; i++ {
		go func(i int) {
			defer wg.Done()

			line := &banktx.StatementLine{
				AccountID:   accountID,
				FitID:       "FIT-" + uuid.NewString(),
				PostedAt:    time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
				AmountCents: int64(100 * (i + 1)),
				Description: "statement line",
			}

			err := workerPoolService.ProcessStatementLine(context.Background(), line)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	assert.Equal(t, numLines, counter)
	assert.Equal(t, 5, workerPoolService.Capacity())
}
