package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/statement_processor/service"
)

// MockImportService for testing
type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) ProcessStatementLine(ctx context.Context, line *banktx.StatementLine) error {
	args := m.Called(ctx, line)
	return args.Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	logger := slog.Default()

	validLine := &banktx.StatementLine{
		AccountID:     uuid.New(),
		FitID:         "FIT-2025-0042",
		PostedAt:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		AmountCents:   125000,
		Description:   "ACME invoice payment",
		CorrelationID: "corr1",
	}

	validJSON, err := json.Marshal(validLine)
	assert.NoError(t, err)

	tests := []struct {
		name          string
		key           []byte
		value         []byte
		setupMocks    func(importService *MockImportService, dlqPublisher *MockDeadLetterPublisher)
		expectedError error
	}{
		{
			name:  "successful processing",
			key:   []byte("test-key"),
			value: validJSON,
			setupMocks: func(importService *MockImportService, dlqPublisher *MockDeadLetterPublisher) {
				importService.On("ProcessStatementLine", mock.Anything, mock.MatchedBy(func(line *banktx.StatementLine) bool {
					return line.FitID == validLine.FitID && line.AccountID == validLine.AccountID
				})).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "transient processing error is returned for redelivery",
			key:   []byte("test-key"),
			value: validJSON,
			setupMocks: func(importService *MockImportService, dlqPublisher *MockDeadLetterPublisher) {
				importService.On("ProcessStatementLine", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
			},
			expectedError: errors.New("processing statement line"),
		},
		{
			name:  "invalid line goes to DLQ and commits",
			key:   []byte("test-key"),
			value: validJSON,
			setupMocks: func(importService *MockImportService, dlqPublisher *MockDeadLetterPublisher) {
				importService.On("ProcessStatementLine", mock.Anything, mock.Anything).
					Return(fmt.Errorf("%w: amount must be non-zero", service.ErrInvalidLine))
				dlqPublisher.On("PublishToDLQ", mock.Anything, "test-key", validJSON, mock.Anything).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:  "invalid line with DLQ publish failure is retried",
			key:   []byte("test-key"),
			value: validJSON,
			setupMocks: func(importService *MockImportService, dlqPublisher *MockDeadLetterPublisher) {
				importService.On("ProcessStatementLine", mock.Anything, mock.Anything).
					Return(fmt.Errorf("%w: amount must be non-zero", service.ErrInvalidLine))
				dlqPublisher.On("PublishToDLQ", mock.Anything, "test-key", validJSON, mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: errors.New("processing statement line"),
		},
		{
			name:  "unmarshal error with successful DLQ publish",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func(importService *MockImportService, dlqPublisher *MockDeadLetterPublisher) {
				dlqPublisher.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(nil)
			},
			expectedError: nil, // No error because message was successfully sent to DLQ
		},
		{
			name:  "unmarshal error with DLQ publish failure",
			key:   []byte("test-key"),
			value: []byte("invalid json"),
			setupMocks: func(importService *MockImportService, dlqPublisher *MockDeadLetterPublisher) {
				dlqPublisher.On("PublishToDLQ", mock.Anything, "test-key", []byte("invalid json"), mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: errors.New("failed to unmarshal"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockImportService := &MockImportService{}
			mockDLQPublisher := &MockDeadLetterPublisher{}
			mockDLQPublisher.On("Close").Return(nil).Maybe()

			handler := NewStatementEventHandler(logger, mockImportService, mockDLQPublisher)

			tt.setupMocks(mockImportService, mockDLQPublisher)
			ctx := context.Background()

			err := handler.HandleMessage(ctx, tt.key, tt.value)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}

			mockImportService.AssertExpectations(t)
			mockDLQPublisher.AssertExpectations(t)
		})
	}
}

func TestHandleMessage_NilDLQProducer(t *testing.T) {
	mockImportService := &MockImportService{}
	handler := NewStatementEventHandler(slog.Default(), mockImportService, nil)

	err := handler.HandleMessage(context.Background(), []byte("test-key"), []byte("invalid json"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
	mockImportService.AssertExpectations(t)
}
