package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/contaflow-reconciliation/internal/api/service"
	"github.com/contaflow-reconciliation/internal/domain/batchrun"
	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/reconciliation/batch"
)

// BatchHandler handles HTTP requests for batch run control
type BatchHandler struct {
	batchService service.BatchService
	logger       *slog.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(logger *slog.Logger, batchService service.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
		logger:       logger,
	}
}

// Start begins a batch reconciliation run over an account and period
func (h *BatchHandler) Start(c *gin.Context) {
	var req StartBatchRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		h.logger.Error("Invalid account ID", "account_id", req.AccountID, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	from, err := time.Parse(scopeDateLayout, req.From)
	if err != nil {
		RespondBadRequest(c, "Invalid 'from' date, expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse(scopeDateLayout, req.To)
	if err != nil {
		RespondBadRequest(c, "Invalid 'to' date, expected YYYY-MM-DD")
		return
	}

	policy := batch.DefaultPolicy()
	if req.Policy != nil {
		policy = batch.Policy{High: req.Policy.High, Medium: req.Policy.Medium, Low: req.Policy.Low}
	}

	scope := match.Scope{AccountID: accountID, From: from, To: to}
	run, err := h.batchService.StartRun(c.Request.Context(), scope, policy)
	if err != nil {
		h.logger.Error("Failed to start batch run", "account_id", req.AccountID, "error", err)
		respondBatchError(c, err)
		return
	}

	RespondAccepted(c, mapRunToResponse(run))
}

// GetStatus returns a snapshot of the named run, live or archived
func (h *BatchHandler) GetStatus(c *gin.Context) {
	runID, ok := parseIDParam(c, h.logger, "run")
	if !ok {
		return
	}

	run, err := h.batchService.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to get batch run", "run_id", runID.String(), "error", err)
		respondBatchError(c, err)
		return
	}

	RespondOK(c, mapRunToResponse(run))
}

// GetStats returns aggregated outcome statistics for the named run
func (h *BatchHandler) GetStats(c *gin.Context) {
	runID, ok := parseIDParam(c, h.logger, "run")
	if !ok {
		return
	}

	run, err := h.batchService.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to get batch run stats", "run_id", runID.String(), "error", err)
		respondBatchError(c, err)
		return
	}

	RespondOK(c, mapStatsToResponse(run.Stats()))
}

// Pause halts the named run before its next item
func (h *BatchHandler) Pause(c *gin.Context) {
	h.control(c, h.batchService.PauseRun, "pause")
}

// Resume continues the named paused run
func (h *BatchHandler) Resume(c *gin.Context) {
	h.control(c, h.batchService.ResumeRun, "resume")
}

// Reset clears the named run so a new one can start
func (h *BatchHandler) Reset(c *gin.Context) {
	runID, ok := parseIDParam(c, h.logger, "run")
	if !ok {
		return
	}

	if err := h.batchService.ResetRun(c.Request.Context(), runID); err != nil {
		h.logger.Error("Failed to reset batch run", "run_id", runID.String(), "error", err)
		respondBatchError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *BatchHandler) control(c *gin.Context, op func(ctx context.Context, runID uuid.UUID) (batchrun.Run, error), name string) {
	runID, ok := parseIDParam(c, h.logger, "run")
	if !ok {
		return
	}

	run, err := op(c.Request.Context(), runID)
	if err != nil {
		h.logger.Error("Failed to "+name+" batch run", "run_id", runID.String(), "error", err)
		respondBatchError(c, err)
		return
	}

	RespondOK(c, mapRunToResponse(run))
}

// respondBatchError maps batch control errors onto HTTP statuses
func respondBatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, batchrun.ErrRunNotFound{}) || errors.Is(err, batch.ErrNoRun):
		RespondNotFound(c, err.Error())
	case errors.Is(err, batch.ErrRunInProgress) ||
		errors.Is(err, batch.ErrRunNotPaused) ||
		errors.Is(err, batch.ErrRunNotActive):
		RespondConflict(c, err.Error())
	case match.IsInvalidInput(err):
		RespondBadRequest(c, err.Error())
	default:
		RespondInternalError(c)
	}
}

// mapStatsToResponse maps aggregated run statistics to the response DTO
func mapStatsToResponse(stats batchrun.Stats) BatchRunStatsResponse {
	return BatchRunStatsResponse{
		RunID:           stats.RunID.String(),
		Status:          string(stats.Status),
		Total:           stats.Total,
		Processed:       stats.Processed,
		Confirmed:       stats.Confirmed,
		Failed:          stats.Failed,
		Skipped:         stats.Skipped,
		Remaining:       stats.Remaining,
		SuccessRate:     stats.SuccessRate,
		DurationSeconds: stats.Duration.Seconds(),
	}
}

// mapRunToResponse maps a batch run snapshot to its response DTO
func mapRunToResponse(run batchrun.Run) BatchRunResponse {
	response := BatchRunResponse{
		ID:        run.ID.String(),
		AccountID: run.AccountID.String(),
		Status:    string(run.Status),
		Total:     run.Total,
		Processed: run.Processed,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Skipped:   run.Skipped,
		StartedAt: run.StartedAt.Format(time.RFC3339),
	}

	if run.EndedAt != nil {
		response.EndedAt = run.EndedAt.Format(time.RFC3339)
	}

	for _, ev := range run.Events {
		mapped := BatchEventResponse{
			At:      ev.At.Format(time.RFC3339),
			Outcome: string(ev.Outcome),
			Message: ev.Message,
		}
		if ev.SuggestionID != uuid.Nil {
			mapped.SuggestionID = ev.SuggestionID.String()
		}
		response.Events = append(response.Events, mapped)
	}
	return response
}
