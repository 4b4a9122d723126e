package handler

// ConfirmSuggestionRequest represents a request to confirm a suggestion
type ConfirmSuggestionRequest struct {
	Note string `json:"note"`
}

// RejectSuggestionRequest represents a request to reject a suggestion
type RejectSuggestionRequest struct {
	Reason string `json:"reason"`
}

// ManualMatchRequest represents a request to pair a bank transaction
// with operator-chosen ledger entries
type ManualMatchRequest struct {
	BankTransactionID string   `json:"bank_transaction_id" binding:"required,uuid"`
	EntryIDs          []string `json:"entry_ids" binding:"required,min=1,dive,uuid"`
	Note              string   `json:"note"`
}

// StartBatchRunRequest represents a request to start a batch
// reconciliation run
type StartBatchRunRequest struct {
	AccountID string              `json:"account_id" binding:"required,uuid"`
	From      string              `json:"from" binding:"required"`
	To        string              `json:"to" binding:"required"`
	Policy    *BatchPolicyRequest `json:"policy,omitempty"`
}

// BatchPolicyRequest selects which confidence tiers the run may confirm
type BatchPolicyRequest struct {
	High   bool `json:"high"`
	Medium bool `json:"medium"`
	Low    bool `json:"low"`
}

// BankTransactionResponse represents a bank transaction in API responses
type BankTransactionResponse struct {
	ID          string `json:"id"`
	AccountID   string `json:"account_id"`
	FitID       string `json:"fit_id"`
	PostedAt    string `json:"posted_at"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID          string `json:"id"`
	EntryDate   string `json:"entry_date"`
	AmountCents int64  `json:"amount_cents"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// SuggestionResponse represents a match suggestion in API responses
type SuggestionResponse struct {
	ID              string                  `json:"id"`
	BankTransaction BankTransactionResponse `json:"bank_transaction"`
	Entries         []LedgerEntryResponse   `json:"entries"`
	Confidence      float64                 `json:"confidence"`
	Tier            string                  `json:"tier"`
	SearchTier      string                  `json:"search_tier"`
	Rationale       []string                `json:"rationale"`
	ExactMatch      bool                    `json:"exact_match"`
	Status          string                  `json:"status"`
	CreatedAt       string                  `json:"created_at"`
}

// SuggestionListResponse represents a list of suggestions in API responses
type SuggestionListResponse struct {
	Suggestions []SuggestionResponse `json:"suggestions"`
}

// MatchResponse represents a confirmed or voided match in API responses
type MatchResponse struct {
	ID                string   `json:"id"`
	BankTransactionID string   `json:"bank_transaction_id"`
	EntryIDs          []string `json:"entry_ids"`
	Note              string   `json:"note,omitempty"`
	Confidence        float64  `json:"confidence"`
	AutoConfirmed     bool     `json:"auto_confirmed"`
	Status            string   `json:"status"`
	ConfirmedAt       string   `json:"confirmed_at"`
	VoidedAt          string   `json:"voided_at,omitempty"`
}

// BatchEventResponse represents one batch run event in API responses
type BatchEventResponse struct {
	At           string `json:"at"`
	SuggestionID string `json:"suggestion_id,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
	Message      string `json:"message"`
}

// BatchRunResponse represents a batch run in API responses
type BatchRunResponse struct {
	ID        string               `json:"id"`
	AccountID string               `json:"account_id"`
	Status    string               `json:"status"`
	Total     int                  `json:"total"`
	Processed int                  `json:"processed"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
	StartedAt string               `json:"started_at"`
	EndedAt   string               `json:"ended_at,omitempty"`
	Events    []BatchEventResponse `json:"events"`
}

// BatchRunStatsResponse represents aggregated run outcome statistics
type BatchRunStatsResponse struct {
	RunID           string  `json:"run_id"`
	Status          string  `json:"status"`
	Total           int     `json:"total"`
	Processed       int     `json:"processed"`
	Confirmed       int     `json:"confirmed"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	Remaining       int     `json:"remaining"`
	SuccessRate     float64 `json:"success_rate"`
	DurationSeconds float64 `json:"duration_seconds"`
}
