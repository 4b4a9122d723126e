package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/contaflow-reconciliation/internal/domain/banktx"
	"github.com/contaflow-reconciliation/internal/platform/messaging/producers"
	"github.com/contaflow-reconciliation/internal/statement_processor/service"
)

// StatementEventHandler handles incoming statement line messages from Kafka
type StatementEventHandler struct {
	importService service.ImportService
	producer      producers.DeadLetterPublisher
	logger        *slog.Logger
}

// NewStatementEventHandler creates a new handler
func NewStatementEventHandler(
	logger *slog.Logger,
	importService service.ImportService,
	producer producers.DeadLetterPublisher,
) *StatementEventHandler {
	return &StatementEventHandler{
		importService: importService,
		producer:      producer,
		logger:        logger,
	}
}

// HandleMessage processes Kafka messages. Messages that can never
// import (unparseable or failing validation) go to the DLQ and are
// committed; transient failures are returned so the offset stays
// uncommitted and Kafka redelivers.
func (h *StatementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var line banktx.StatementLine
	if err := json.Unmarshal(value, &line); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal statement line from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		reason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
		if h.sendToDLQ(ctx, key, value, reason) {
			return nil // Message handled, commit offset
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if line.CorrelationID != "" {
		logger = h.logger.With("correlation_id", line.CorrelationID)
	}

	logger.Info("Received statement line for processing",
		"account_id", line.AccountID.String(),
		"fit_id", line.FitID,
		"amount_cents", line.AmountCents,
	)

	if err := h.importService.ProcessStatementLine(ctx, &line); err != nil {
		if errors.Is(err, service.ErrInvalidLine) {
			logger.Error("Statement line is permanently invalid",
				"fit_id", line.FitID,
				"error", err,
			)
			if h.sendToDLQ(ctx, key, value, err.Error()) {
				return nil
			}
		}
		logger.Error("Failed to process statement line",
			"account_id", line.AccountID.String(),
			"fit_id", line.FitID,
			"error", err,
		)
		return fmt.Errorf("processing statement line %s failed: %w", line.FitID, err)
	}

	logger.Info("Successfully processed statement line", "fit_id", line.FitID)
	return nil // Success, commit offset
}

func (h *StatementEventHandler) sendToDLQ(ctx context.Context, key []byte, value []byte, reason string) bool {
	if h.producer == nil {
		return false
	}
	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"message_key", string(key),
		)
		return false
	}
	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return true
}
