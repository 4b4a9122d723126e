package banktx

import (
	"time"

	"github.com/google/uuid"
)

// StatementLine is the wire format of one normalized statement
// transaction on the statement topic. The import pipeline upstream
// parses OFX/CSV into this shape; the statement processor turns it
// into a Transaction.
type StatementLine struct {
	AccountID     uuid.UUID `json:"account_id"`
	FitID         string    `json:"fit_id"`
	PostedAt      time.Time `json:"posted_at"`
	AmountCents   int64     `json:"amount_cents"`
	Description   string    `json:"description"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}
