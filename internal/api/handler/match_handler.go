package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/api/service"
)

// MatchHandler handles HTTP requests for direct match operations
type MatchHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *MatchHandler {
	return &MatchHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// CreateManual pairs a bank transaction with operator-chosen entries,
// bypassing the suggestion builder
func (h *MatchHandler) CreateManual(c *gin.Context) {
	var req ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	bankTransactionID, err := uuid.Parse(req.BankTransactionID)
	if err != nil {
		h.logger.Error("Invalid bank transaction ID", "bank_transaction_id", req.BankTransactionID, "error", err)
		RespondBadRequest(c, "Invalid bank transaction ID")
		return
	}

	entryIDs := make([]uuid.UUID, 0, len(req.EntryIDs))
	for _, raw := range req.EntryIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.logger.Error("Invalid entry ID", "entry_id", raw, "error", err)
			RespondBadRequest(c, "Invalid entry ID: "+raw)
			return
		}
		entryIDs = append(entryIDs, id)
	}

	m, err := h.reconciliationService.CreateManualMatch(c.Request.Context(), bankTransactionID, entryIDs, req.Note)
	if err != nil {
		h.logger.Error("Failed to create manual match", "bank_transaction_id", req.BankTransactionID, "error", err)
		respondMatchError(c, err)
		return
	}

	RespondCreated(c, mapMatchToResponse(m))
}

// Undo voids a confirmed match and releases its entries
func (h *MatchHandler) Undo(c *gin.Context) {
	matchID, ok := parseIDParam(c, h.logger, "match")
	if !ok {
		return
	}

	m, err := h.reconciliationService.UndoMatch(c.Request.Context(), matchID)
	if err != nil {
		h.logger.Error("Failed to undo match", "match_id", matchID.String(), "error", err)
		respondMatchError(c, err)
		return
	}

	RespondOK(c, mapMatchToResponse(m))
}
