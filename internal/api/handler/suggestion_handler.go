package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/api/service"
	"github.com/contaflow-reconciliation/internal/domain/match"
)

// scopeDateLayout is the wire format for period boundaries
const scopeDateLayout = "2006-01-02"

// SuggestionHandler handles HTTP requests for suggestion operations
type SuggestionHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *SuggestionHandler {
	return &SuggestionHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// ListForAccount builds and returns suggestions for every unmatched bank
// transaction of the account within the requested period
func (h *SuggestionHandler) ListForAccount(c *gin.Context) {
	accountIDParam := c.Param("id")
	accountID, err := uuid.Parse(accountIDParam)
	if err != nil {
		h.logger.Error("Invalid account ID", "account_id", accountIDParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	from, to, ok := parsePeriod(c)
	if !ok {
		return
	}

	scope := match.Scope{AccountID: accountID, From: from, To: to}
	suggestions, err := h.reconciliationService.BuildSuggestions(c.Request.Context(), scope)
	if err != nil {
		h.logger.Error("Failed to build suggestions", "account_id", accountIDParam, "error", err)
		respondMatchError(c, err)
		return
	}

	response := SuggestionListResponse{Suggestions: make([]SuggestionResponse, 0, len(suggestions))}
	for _, s := range suggestions {
		response.Suggestions = append(response.Suggestions, mapSuggestionToResponse(s))
	}
	RespondOK(c, response)
}

// Confirm turns a proposed suggestion into a confirmed match
func (h *SuggestionHandler) Confirm(c *gin.Context) {
	suggestionID, ok := parseIDParam(c, h.logger, "suggestion")
	if !ok {
		return
	}

	var req ConfirmSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	m, err := h.reconciliationService.ConfirmSuggestion(c.Request.Context(), suggestionID, req.Note)
	if err != nil {
		h.logger.Error("Failed to confirm suggestion", "suggestion_id", suggestionID.String(), "error", err)
		respondMatchError(c, err)
		return
	}

	RespondCreated(c, mapMatchToResponse(m))
}

// Reject marks a proposed suggestion rejected
func (h *SuggestionHandler) Reject(c *gin.Context) {
	suggestionID, ok := parseIDParam(c, h.logger, "suggestion")
	if !ok {
		return
	}

	var req RejectSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sugg, err := h.reconciliationService.RejectSuggestion(c.Request.Context(), suggestionID, req.Reason)
	if err != nil {
		h.logger.Error("Failed to reject suggestion", "suggestion_id", suggestionID.String(), "error", err)
		respondMatchError(c, err)
		return
	}

	RespondOK(c, mapSuggestionToResponse(sugg))
}

// parseIDParam parses the :id path parameter as a UUID, responding 400
// on failure
func parseIDParam(c *gin.Context, logger *slog.Logger, kind string) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Error("Invalid "+kind+" ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid "+kind+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// parsePeriod parses the from/to query parameters, responding 400 on
// failure
func parsePeriod(c *gin.Context) (time.Time, time.Time, bool) {
	from, err := time.Parse(scopeDateLayout, c.Query("from"))
	if err != nil {
		RespondBadRequest(c, "Invalid 'from' date, expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(scopeDateLayout, c.Query("to"))
	if err != nil {
		RespondBadRequest(c, "Invalid 'to' date, expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// respondMatchError maps the reconciliation error taxonomy onto HTTP
// statuses: missing resources 404, invalid input 400, conflicts 409,
// anything else 500.
func respondMatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, match.ErrSuggestionNotFound{}) || errors.Is(err, match.ErrMatchNotFound{}):
		RespondNotFound(c, err.Error())
	case match.IsInvalidInput(err):
		RespondBadRequest(c, err.Error())
	case match.IsConflict(err):
		RespondConflict(c, err.Error())
	default:
		RespondInternalError(c)
	}
}

// mapSuggestionToResponse maps a suggestion to its response DTO
func mapSuggestionToResponse(s *match.Suggestion) SuggestionResponse {
	tx := s.Set.Transaction
	response := SuggestionResponse{
		ID: s.ID.String(),
		BankTransaction: BankTransactionResponse{
			ID:          tx.ID.String(),
			AccountID:   tx.AccountID.String(),
			FitID:       tx.FitID,
			PostedAt:    tx.PostedAt.Format(time.RFC3339),
			AmountCents: tx.AmountCents,
			Description: tx.Description,
		},
		Confidence: s.Confidence,
		Tier:       string(s.Tier),
		SearchTier: string(s.SearchTier),
		Rationale:  s.Rationale,
		ExactMatch: s.ExactMatch,
		Status:     string(s.Status),
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}

	for _, e := range s.Set.Entries {
		response.Entries = append(response.Entries, LedgerEntryResponse{
			ID:          e.ID.String(),
			EntryDate:   e.EntryDate.Format(scopeDateLayout),
			AmountCents: e.AmountCents,
			Kind:        string(e.Kind),
			Description: e.Description,
			Status:      string(e.Status),
		})
	}
	return response
}

// mapMatchToResponse maps a match to its response DTO
func mapMatchToResponse(m *match.Match) MatchResponse {
	response := MatchResponse{
		ID:                m.ID.String(),
		BankTransactionID: m.BankTransactionID.String(),
		Note:              m.Note,
		Confidence:        m.Confidence,
		AutoConfirmed:     m.AutoConfirmed,
		Status:            string(m.Status),
		ConfirmedAt:       m.ConfirmedAt.Format(time.RFC3339),
	}

	for _, id := range m.EntryIDs {
		response.EntryIDs = append(response.EntryIDs, id.String())
	}
	if m.VoidedAt != nil {
		response.VoidedAt = m.VoidedAt.Format(time.RFC3339)
	}
	return response
}
