// Package lifecycle drives suggestions through their states and turns
// confirmations into persisted matches. All writes for one
// confirmation (match record, entry status, outbox event) commit in a
// single database transaction; the usage guard brackets that
// transaction so concurrent confirmations cannot share an entry.
package lifecycle

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/contaflow-reconciliation/internal/domain/match"
)

// TxStarter begins database transactions. Satisfied by pgxpool.Pool.
type TxStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AuditSource identifies what triggered a lifecycle action
type AuditSource string

const (
	SourceInteractive AuditSource = "INTERACTIVE"
	SourceBatch       AuditSource = "BATCH"
	SourceAutoImport  AuditSource = "AUTO_IMPORT"
	SourceManual      AuditSource = "MANUAL"
)

// AuditRecorder persists the reconciliation audit trail. Recording is
// best-effort: a failed audit write never rolls back a confirmation.
type AuditRecorder interface {
	RecordConfirmation(ctx context.Context, m *match.Match, source AuditSource) error
	RecordRejection(ctx context.Context, s *match.Suggestion, source AuditSource) error
	RecordUndo(ctx context.Context, m *match.Match, source AuditSource) error
}
