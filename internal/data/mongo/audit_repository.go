// Package mongo holds the document-store side of the system: the
// reconciliation audit trail and archived batch runs. Both are
// write-mostly and read for reporting, which suits a document model
// better than the relational schema.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/contaflow-reconciliation/internal/domain/batchrun"
	"github.com/contaflow-reconciliation/internal/domain/match"
	"github.com/contaflow-reconciliation/internal/reconciliation/lifecycle"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "reconciliation_audit"
	// BatchRunCollectionName is the name of the archived batch runs collection
	BatchRunCollectionName = "batch_runs"
)

// Action classifies an audit record
type Action string

const (
	ActionConfirmed Action = "CONFIRMED"
	ActionRejected  Action = "REJECTED"
	ActionUndone    Action = "UNDONE"
)

// AuditRecord is one entry in the reconciliation audit trail
type AuditRecord struct {
	ID                uuid.UUID   `bson:"id"`
	Action            Action      `bson:"action"`
	Source            string      `bson:"source"`
	MatchID           *uuid.UUID  `bson:"match_id,omitempty"`
	SuggestionID      *uuid.UUID  `bson:"suggestion_id,omitempty"`
	BankTransactionID uuid.UUID   `bson:"bank_transaction_id"`
	EntryIDs          []uuid.UUID `bson:"entry_ids"`
	Confidence        float64     `bson:"confidence"`
	AutoConfirmed     bool        `bson:"auto_confirmed"`
	RecordedAt        time.Time   `bson:"recorded_at"`
}

// AuditRepository implements the lifecycle.AuditRecorder and
// batch.Archiver interfaces for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// RecordConfirmation stores an audit record for a confirmed match
func (r *AuditRepository) RecordConfirmation(ctx context.Context, m *match.Match, source lifecycle.AuditSource) error {
	record := AuditRecord{
		ID:                uuid.New(),
		Action:            ActionConfirmed,
		Source:            string(source),
		MatchID:           &m.ID,
		BankTransactionID: m.BankTransactionID,
		EntryIDs:          m.EntryIDs,
		Confidence:        m.Confidence,
		AutoConfirmed:     m.AutoConfirmed,
		RecordedAt:        time.Now(),
	}

	return r.insert(ctx, record)
}

// RecordRejection stores an audit record for a rejected suggestion
func (r *AuditRepository) RecordRejection(ctx context.Context, s *match.Suggestion, source lifecycle.AuditSource) error {
	record := AuditRecord{
		ID:                uuid.New(),
		Action:            ActionRejected,
		Source:            string(source),
		SuggestionID:      &s.ID,
		BankTransactionID: s.Set.Transaction.ID,
		EntryIDs:          s.Set.EntryIDs(),
		Confidence:        s.Confidence,
		RecordedAt:        time.Now(),
	}

	return r.insert(ctx, record)
}

// RecordUndo stores an audit record for a voided match
func (r *AuditRepository) RecordUndo(ctx context.Context, m *match.Match, source lifecycle.AuditSource) error {
	record := AuditRecord{
		ID:                uuid.New(),
		Action:            ActionUndone,
		Source:            string(source),
		MatchID:           &m.ID,
		BankTransactionID: m.BankTransactionID,
		EntryIDs:          m.EntryIDs,
		Confidence:        m.Confidence,
		AutoConfirmed:     m.AutoConfirmed,
		RecordedAt:        time.Now(),
	}

	return r.insert(ctx, record)
}

func (r *AuditRepository) insert(ctx context.Context, record AuditRecord) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		r.logger.Error("Failed to insert audit record",
			"action", string(record.Action),
			"error", err)
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	return nil
}

// ListByBankTransaction retrieves the audit trail of one bank
// transaction, newest first.
func (r *AuditRepository) ListByBankTransaction(ctx context.Context, bankTransactionID uuid.UUID, limit int) ([]*AuditRecord, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"bank_transaction_id": bankTransactionID}
	opts := options.Find().
		SetSort(bson.M{"recorded_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit records",
			"bank_transaction_id", bankTransactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*AuditRecord
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode audit records",
			"bank_transaction_id", bankTransactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}

// ArchiveRun stores a finished batch run, replacing any earlier
// archive of the same run ID so a re-archive after retry is idempotent.
func (r *AuditRepository) ArchiveRun(ctx context.Context, run *batchrun.Run) error {
	collection := r.db.Collection(BatchRunCollectionName)

	filter := bson.M{"id": run.ID}
	opts := options.Replace().SetUpsert(true)

	_, err := collection.ReplaceOne(ctx, filter, run, opts)
	if err != nil {
		r.logger.Error("Failed to archive batch run",
			"run_id", run.ID.String(),
			"error", err)
		return fmt.Errorf("failed to archive batch run: %w", err)
	}

	return nil
}

// GetRun retrieves an archived batch run by its identifier.
// Returns ErrRunNotFound if no run was archived under the ID.
func (r *AuditRepository) GetRun(ctx context.Context, runID uuid.UUID) (*batchrun.Run, error) {
	collection := r.db.Collection(BatchRunCollectionName)

	filter := bson.M{"id": runID}
	var run batchrun.Run
	err := collection.FindOne(ctx, filter).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, batchrun.ErrRunNotFound{RunID: runID}
		}
		r.logger.Error("Failed to get archived batch run",
			"run_id", runID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get archived batch run: %w", err)
	}

	return &run, nil
}

// ListRuns retrieves archived runs for an account, newest first
func (r *AuditRepository) ListRuns(ctx context.Context, accountID uuid.UUID, limit int) ([]*batchrun.Run, error) {
	collection := r.db.Collection(BatchRunCollectionName)

	filter := bson.M{"account_id": accountID}
	opts := options.Find().
		SetSort(bson.M{"started_at": -1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list archived batch runs",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list archived batch runs: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []*batchrun.Run
	if err := cursor.All(ctx, &runs); err != nil {
		r.logger.Error("Failed to decode archived batch runs",
			"account_id", accountID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode archived batch runs: %w", err)
	}

	return runs, nil
}
