package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/domain/ledger"
	"github.com/contaflow-reconciliation/internal/domain/match"
)

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) BuildSuggestions(ctx context.Context, scope match.Scope) ([]*match.Suggestion, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*match.Suggestion), args.Error(1)
}

func (m *MockReconciliationService) ConfirmSuggestion(ctx context.Context, suggestionID uuid.UUID, note string) (*match.Match, error) {
	args := m.Called(ctx, suggestionID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*match.Match), args.Error(1)
}

func (m *MockReconciliationService) RejectSuggestion(ctx context.Context, suggestionID uuid.UUID, reason string) (*match.Suggestion, error) {
	args := m.Called(ctx, suggestionID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*match.Suggestion), args.Error(1)
}

func (m *MockReconciliationService) CreateManualMatch(ctx context.Context, bankTransactionID uuid.UUID, entryIDs []uuid.UUID, note string) (*match.Match, error) {
	args := m.Called(ctx, bankTransactionID, entryIDs, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*match.Match), args.Error(1)
}

func (m *MockReconciliationService) UndoMatch(ctx context.Context, matchID uuid.UUID) (*match.Match, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*match.Match), args.Error(1)
}

func testHandlerLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func sampleSuggestion(accountID uuid.UUID) *match.Suggestion {
	postedAt := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &match.Suggestion{
		ID: uuid.New(),
		Set: match.CandidateSet{
			Transaction: &banktx.Transaction{
				ID:          uuid.New(),
				AccountID:   accountID,
				FitID:       "FIT-2025-0042",
				PostedAt:    postedAt,
				AmountCents: 125000,
				Description: "ACME invoice payment",
			},
			Entries: []*ledger.Entry{
				{
					ID:          uuid.New(),
					EntryDate:   postedAt,
					AmountCents: 125000,
					Kind:        ledger.KindRevenue,
					Description: "Invoice 2025-0042",
					Status:      ledger.StatusPending,
				},
			},
		},
		Confidence: 0.97,
		Tier:       match.ConfidenceHigh,
		SearchTier: match.TierExact,
		Rationale:  []string{"identical amount", "same day"},
		ExactMatch: true,
		Status:     match.SuggestionProposed,
		CreatedAt:  time.Now(),
	}
}

func decodeData(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var topLevel map[string]interface{}
	err := json.Unmarshal(body, &topLevel)
	assert.NoError(t, err, "Failed to unmarshal top-level response")

	dataField, ok := topLevel["data"]
	assert.True(t, ok, "'data' field should exist in response")
	data, ok := dataField.(map[string]interface{})
	assert.True(t, ok, "'data' field should be a map")
	return data
}

func TestSuggestionHandler_ListForAccount(t *testing.T) {
	logger := testHandlerLogger()
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		accountID := uuid.New()
		suggestions := []*match.Suggestion{sampleSuggestion(accountID)}
		mockService.On("BuildSuggestions", mock.Anything, mock.MatchedBy(func(scope match.Scope) bool {
			return scope.AccountID == accountID
		})).Return(suggestions, nil)

		router := gin.New()
		router.GET("/accounts/:id/suggestions", handler.ListForAccount)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+accountID.String()+"/suggestions?from=2025-03-01&to=2025-03-31", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		data := decodeData(t, rr.Body.Bytes())
		list, ok := data["suggestions"].([]interface{})
		assert.True(t, ok)
		assert.Len(t, list, 1)

		first := list[0].(map[string]interface{})
		assert.Equal(t, suggestions[0].ID.String(), first["id"])
		assert.Equal(t, "HIGH", first["tier"])
		assert.Equal(t, true, first["exact_match"])

		mockService.AssertExpectations(t)
	})

	t.Run("InvalidAccountID", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		router := gin.New()
		router.GET("/accounts/:id/suggestions", handler.ListForAccount)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/not-a-uuid/suggestions?from=2025-03-01&to=2025-03-31", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingPeriod", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		router := gin.New()
		router.GET("/accounts/:id/suggestions", handler.ListForAccount)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+uuid.New().String()+"/suggestions", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "BuildSuggestions")
	})

	t.Run("StoreFailure", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		mockService.On("BuildSuggestions", mock.Anything, mock.Anything).Return(nil, errors.New("store unavailable"))

		router := gin.New()
		router.GET("/accounts/:id/suggestions", handler.ListForAccount)

		req, _ := http.NewRequest(http.MethodGet, "/accounts/"+uuid.New().String()+"/suggestions?from=2025-03-01&to=2025-03-31", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestSuggestionHandler_Confirm(t *testing.T) {
	logger := testHandlerLogger()
	gin.SetMode(gin.TestMode)

	suggestionID := uuid.New()
	body, _ := json.Marshal(ConfirmSuggestionRequest{Note: "looks right"})

	newRouter := func(h *SuggestionHandler) *gin.Engine {
		router := gin.New()
		router.POST("/suggestions/:id/confirm", h.Confirm)
		return router
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		confirmed := &match.Match{
			ID:                uuid.New(),
			BankTransactionID: uuid.New(),
			EntryIDs:          []uuid.UUID{uuid.New()},
			Note:              "looks right",
			Confidence:        0.97,
			Status:            match.MatchConfirmed,
			ConfirmedAt:       time.Now(),
		}
		mockService.On("ConfirmSuggestion", mock.Anything, suggestionID, "looks right").Return(confirmed, nil)

		req, _ := http.NewRequest(http.MethodPost, "/suggestions/"+suggestionID.String()+"/confirm", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		data := decodeData(t, rr.Body.Bytes())
		assert.Equal(t, confirmed.ID.String(), data["id"])
		assert.Equal(t, "CONFIRMED", data["status"])

		mockService.AssertExpectations(t)
	})

	t.Run("SuggestionNotFound", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		mockService.On("ConfirmSuggestion", mock.Anything, suggestionID, "looks right").
			Return(nil, match.ErrSuggestionNotFound{SuggestionID: suggestionID})

		req, _ := http.NewRequest(http.MethodPost, "/suggestions/"+suggestionID.String()+"/confirm", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("EntryClaimedConflict", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		mockService.On("ConfirmSuggestion", mock.Anything, suggestionID, "looks right").
			Return(nil, match.ErrEntryClaimed{EntryID: uuid.New()})

		req, _ := http.NewRequest(http.MethodPost, "/suggestions/"+suggestionID.String()+"/confirm", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("StaleSuggestionConflict", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		mockService.On("ConfirmSuggestion", mock.Anything, suggestionID, "looks right").
			Return(nil, match.ErrStaleSuggestion{SuggestionID: suggestionID, Status: match.SuggestionExpired})

		req, _ := http.NewRequest(http.MethodPost, "/suggestions/"+suggestionID.String()+"/confirm", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("InvalidSuggestionID", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		req, _ := http.NewRequest(http.MethodPost, "/suggestions/not-a-uuid/confirm", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "ConfirmSuggestion")
	})
}

func TestSuggestionHandler_Reject(t *testing.T) {
	logger := testHandlerLogger()
	gin.SetMode(gin.TestMode)

	suggestionID := uuid.New()
	body, _ := json.Marshal(RejectSuggestionRequest{Reason: "wrong invoice"})

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewSuggestionHandler(logger, mockService)

		rejected := sampleSuggestion(uuid.New())
		rejected.ID = suggestionID
		rejected.Status = match.SuggestionRejected
		mockService.On("RejectSuggestion", mock.Anything, suggestionID, "wrong invoice").Return(rejected, nil)

		router := gin.New()
		router.POST("/suggestions/:id/reject", handler.Reject)

		req, _ := http.NewRequest(http.MethodPost, "/suggestions/"+suggestionID.String()+"/reject", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		data := decodeData(t, rr.Body.Bytes())
		assert.Equal(t, "REJECTED", data["status"])

		mockService.AssertExpectations(t)
	})
}
