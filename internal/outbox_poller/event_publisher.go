// Package outbox_poller drains the reconciliation outbox: pending
// messages written alongside match confirmations are published to the
// events topic and marked processed, with bounded retries.
package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/contaflow-reconciliation/internal/domain/outbox"
	"github.com/contaflow-reconciliation/internal/platform/messaging/producers"
)

// EventPublisher publishes one outbox message downstream
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher on top of the Kafka
// event producer.
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent decodes and publishes a message, then marks it
// processed. A payload that cannot be decoded is permanently failed:
// retrying it can never succeed.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal reconciliation event from outbox payload",
			"outbox_id", message.ID, "match_id", message.MatchID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	p.logger.Info("Attempting to publish outbox message",
		"outbox_id", message.ID, "match_id", message.MatchID, "event_type", string(event.Type),
	)

	// Keyed by match ID so confirm and undo of the same match stay ordered.
	if err := p.producer.Publish(ctx, message.MatchID.String(), event); err != nil {
		return fmt.Errorf("failed to publish event for outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		p.logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "match_id", message.MatchID, "error", err,
		)
		return fmt.Errorf("event for match %s published, but failed to mark outbox %d as PROCESSED: %w", message.MatchID, message.ID, err)
	}

	p.logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID, "match_id", message.MatchID)
	return nil
}
