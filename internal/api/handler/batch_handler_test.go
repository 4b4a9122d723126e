package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/contaflow-reconciliation/internal/domain/batchrun"
	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/reconciliation/batch"
)

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) StartRun(ctx context.Context, scope match.Scope, policy batch.Policy) (batchrun.Run, error) {
	args := m.Called(ctx, scope, policy)
	return args.Get(0).(batchrun.Run), args.Error(1)
}

func (m *MockBatchService) GetRun(ctx context.Context, runID uuid.UUID) (batchrun.Run, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(batchrun.Run), args.Error(1)
}

func (m *MockBatchService) PauseRun(ctx context.Context, runID uuid.UUID) (batchrun.Run, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(batchrun.Run), args.Error(1)
}

func (m *MockBatchService) ResumeRun(ctx context.Context, runID uuid.UUID) (batchrun.Run, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(batchrun.Run), args.Error(1)
}

func (m *MockBatchService) ResetRun(ctx context.Context, runID uuid.UUID) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

func sampleRun(status batchrun.Status) batchrun.Run {
	return batchrun.Run{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Status:    status,
		Total:     120,
		Processed: 50,
		Succeeded: 46,
		Failed:    1,
		Skipped:   3,
		StartedAt: time.Now().Add(-time.Minute),
		Events: []batchrun.Event{
			{At: time.Now(), SuggestionID: uuid.New(), Outcome: batchrun.OutcomeConfirmed, Message: "confirmed"},
		},
	}
}

func TestBatchHandler_Start(t *testing.T) {
	logger := testHandlerLogger()
	gin.SetMode(gin.TestMode)

	newRouter := func(h *BatchHandler) *gin.Engine {
		router := gin.New()
		router.POST("/batch-runs", h.Start)
		return router
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		accountID := uuid.New()
		started := sampleRun(batchrun.StatusRunning)
		mockService.On("StartRun", mock.Anything, mock.MatchedBy(func(scope match.Scope) bool {
			return scope.AccountID == accountID
		}), batch.Policy{High: true, Medium: true}).Return(started, nil)

		reqBody := StartBatchRunRequest{
			AccountID: accountID.String(),
			From:      "2025-03-01",
			To:        "2025-03-31",
			Policy:    &BatchPolicyRequest{High: true, Medium: true},
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/batch-runs", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)

		data := decodeData(t, rr.Body.Bytes())
		assert.Equal(t, started.ID.String(), data["id"])
		assert.Equal(t, "RUNNING", data["status"])

		mockService.AssertExpectations(t)
	})

	t.Run("DefaultPolicyWhenOmitted", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		started := sampleRun(batchrun.StatusRunning)
		mockService.On("StartRun", mock.Anything, mock.Anything, batch.DefaultPolicy()).Return(started, nil)

		reqBody := StartBatchRunRequest{
			AccountID: uuid.New().String(),
			From:      "2025-03-01",
			To:        "2025-03-31",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/batch-runs", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("RunAlreadyInProgress", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		mockService.On("StartRun", mock.Anything, mock.Anything, mock.Anything).
			Return(batchrun.Run{}, batch.ErrRunInProgress)

		reqBody := StartBatchRunRequest{
			AccountID: uuid.New().String(),
			From:      "2025-03-01",
			To:        "2025-03-31",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/batch-runs", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("InvalidDates", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		reqBody := StartBatchRunRequest{
			AccountID: uuid.New().String(),
			From:      "March 1st",
			To:        "2025-03-31",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/batch-runs", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "StartRun")
	})
}

func TestBatchHandler_GetStatus(t *testing.T) {
	logger := testHandlerLogger()
	gin.SetMode(gin.TestMode)

	newRouter := func(h *BatchHandler) *gin.Engine {
		router := gin.New()
		router.GET("/batch-runs/:id", h.GetStatus)
		return router
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		run := sampleRun(batchrun.StatusPaused)
		mockService.On("GetRun", mock.Anything, run.ID).Return(run, nil)

		req, _ := http.NewRequest(http.MethodGet, "/batch-runs/"+run.ID.String(), nil)
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		data := decodeData(t, rr.Body.Bytes())
		assert.Equal(t, "PAUSED", data["status"])
		assert.Equal(t, float64(120), data["total"])
		assert.Equal(t, float64(50), data["processed"])

		events, ok := data["events"].([]interface{})
		assert.True(t, ok)
		assert.Len(t, events, 1)

		mockService.AssertExpectations(t)
	})

	t.Run("RunNotFound", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		runID := uuid.New()
		mockService.On("GetRun", mock.Anything, runID).Return(batchrun.Run{}, batchrun.ErrRunNotFound{RunID: runID})

		req, _ := http.NewRequest(http.MethodGet, "/batch-runs/"+runID.String(), nil)
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestBatchHandler_GetStats(t *testing.T) {
	logger := testHandlerLogger()
	gin.SetMode(gin.TestMode)

	newRouter := func(h *BatchHandler) *gin.Engine {
		router := gin.New()
		router.GET("/batch-runs/:id/stats", h.GetStats)
		return router
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		run := sampleRun(batchrun.StatusRunning)
		mockService.On("GetRun", mock.Anything, run.ID).Return(run, nil)

		req, _ := http.NewRequest(http.MethodGet, "/batch-runs/"+run.ID.String()+"/stats", nil)
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		data := decodeData(t, rr.Body.Bytes())
		assert.Equal(t, run.ID.String(), data["run_id"])
		assert.Equal(t, float64(46), data["confirmed"])
		assert.Equal(t, float64(1), data["failed"])
		assert.Equal(t, float64(3), data["skipped"])
		assert.Equal(t, float64(70), data["remaining"])
		assert.InDelta(t, 0.92, data["success_rate"].(float64), 0.0001)

		mockService.AssertExpectations(t)
	})

	t.Run("RunNotFound", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		runID := uuid.New()
		mockService.On("GetRun", mock.Anything, runID).Return(batchrun.Run{}, batchrun.ErrRunNotFound{RunID: runID})

		req, _ := http.NewRequest(http.MethodGet, "/batch-runs/"+runID.String()+"/stats", nil)
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestBatchHandler_PauseResumeReset(t *testing.T) {
	logger := testHandlerLogger()
	gin.SetMode(gin.TestMode)

	newRouter := func(h *BatchHandler) *gin.Engine {
		router := gin.New()
		router.POST("/batch-runs/:id/pause", h.Pause)
		router.POST("/batch-runs/:id/resume", h.Resume)
		router.POST("/batch-runs/:id/reset", h.Reset)
		return router
	}

	t.Run("PauseSuccess", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		paused := sampleRun(batchrun.StatusPaused)
		mockService.On("PauseRun", mock.Anything, paused.ID).Return(paused, nil)

		req, _ := http.NewRequest(http.MethodPost, "/batch-runs/"+paused.ID.String()+"/pause", nil)
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		data := decodeData(t, rr.Body.Bytes())
		assert.Equal(t, "PAUSED", data["status"])
	})

	t.Run("PauseNotRunningConflict", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		runID := uuid.New()
		mockService.On("PauseRun", mock.Anything, runID).Return(batchrun.Run{}, batch.ErrRunNotActive)

		req, _ := http.NewRequest(http.MethodPost, "/batch-runs/"+runID.String()+"/pause", nil)
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("ResumeNotPausedConflict", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		runID := uuid.New()
		mockService.On("ResumeRun", mock.Anything, runID).Return(batchrun.Run{}, batch.ErrRunNotPaused)

		req, _ := http.NewRequest(http.MethodPost, "/batch-runs/"+runID.String()+"/resume", nil)
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("ResetSuccess", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		runID := uuid.New()
		mockService.On("ResetRun", mock.Anything, runID).Return(nil)

		req, _ := http.NewRequest(http.MethodPost, "/batch-runs/"+runID.String()+"/reset", nil)
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("ResetUnknownRun", func(t *testing.T) {
		mockService := new(MockBatchService)
		handler := NewBatchHandler(logger, mockService)

		runID := uuid.New()
		mockService.On("ResetRun", mock.Anything, runID).Return(batchrun.ErrRunNotFound{RunID: runID})

		req, _ := http.NewRequest(http.MethodPost, "/batch-runs/"+runID.String()+"/reset", nil)
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
