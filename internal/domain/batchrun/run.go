// Package batchrun defines the process state of a batch
// reconciliation run: counters, status, and the bounded event log.
package batchrun

import (
	"time"

	"github.com/google/uuid"
)

// Status defines the batch run states
type Status string

const (
	StatusIdle      Status = "IDLE"
	StatusRunning   Status = "RUNNING"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusAborted   Status = "ABORTED"
)

// Outcome classifies the result of processing one suggestion
type Outcome string

const (
	OutcomeConfirmed Outcome = "CONFIRMED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeSkipped   Outcome = "SKIPPED" // Became ineligible since filtering, e.g. concurrent claim
)

// Event is one entry in the run's append-only log
type Event struct {
	At           time.Time `json:"at" bson:"at"`
	SuggestionID uuid.UUID `json:"suggestion_id,omitempty" bson:"suggestion_id,omitempty"`
	Outcome      Outcome   `json:"outcome,omitempty" bson:"outcome,omitempty"`
	Message      string    `json:"message" bson:"message"`
}

// Run tracks the progress of one batch reconciliation run
type Run struct {
	ID        uuid.UUID  `json:"id" bson:"id"`
	AccountID uuid.UUID  `json:"account_id" bson:"account_id"`
	Status    Status     `json:"status" bson:"status"`
	Total     int        `json:"total" bson:"total"`
	Processed int        `json:"processed" bson:"processed"`
	Succeeded int        `json:"succeeded" bson:"succeeded"`
	Failed    int        `json:"failed" bson:"failed"`
	Skipped   int        `json:"skipped" bson:"skipped"`
	StartedAt time.Time  `json:"started_at" bson:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	Events    []Event    `json:"events" bson:"events"`

	logCap int
}

// NewRun initializes run state for the given candidate count.
// logCap bounds the event log; older events are evicted past it.
func NewRun(accountID uuid.UUID, total, logCap int) *Run {
	if logCap <= 0 {
		logCap = 1
	}
	return &Run{
		ID:        uuid.New(),
		AccountID: accountID,
		Status:    StatusIdle,
		Total:     total,
		StartedAt: time.Now(),
		logCap:    logCap,
	}
}

// Record appends the outcome of one suggestion to the counters and log
func (r *Run) Record(suggestionID uuid.UUID, outcome Outcome, message string) {
	r.Processed++
	switch outcome {
	case OutcomeConfirmed:
		r.Succeeded++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
	r.appendEvent(Event{
		At:           time.Now(),
		SuggestionID: suggestionID,
		Outcome:      outcome,
		Message:      message,
	})
}

// Note appends a run-level event (started, paused, batch boundary)
func (r *Run) Note(message string) {
	r.appendEvent(Event{At: time.Now(), Message: message})
}

// appendEvent keeps the log bounded as a ring: oldest entries are
// evicted once the cap is reached.
func (r *Run) appendEvent(ev Event) {
	if len(r.Events) >= r.logCap {
		copy(r.Events, r.Events[1:])
		r.Events[len(r.Events)-1] = ev
		return
	}
	r.Events = append(r.Events, ev)
}

// Finish stamps the terminal status and end time
func (r *Run) Finish(status Status) {
	r.Status = status
	now := time.Now()
	r.EndedAt = &now
}

// Remaining returns how many suggestions have not been processed yet
func (r *Run) Remaining() int {
	return r.Total - r.Processed
}

// Snapshot returns a copy safe to hand to callers while the run is
// still being mutated by the processor goroutine.
func (r *Run) Snapshot() Run {
	cp := *r
	cp.Events = make([]Event, len(r.Events))
	copy(cp.Events, r.Events)
	return cp
}

// Stats is an aggregated view of a run's outcomes
type Stats struct {
	RunID       uuid.UUID     `json:"run_id"`
	Status      Status        `json:"status"`
	Total       int           `json:"total"`
	Processed   int           `json:"processed"`
	Confirmed   int           `json:"confirmed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Remaining   int           `json:"remaining"`
	SuccessRate float64       `json:"success_rate"`
	Duration    time.Duration `json:"duration"`
}

// Stats aggregates the run counters. SuccessRate is confirmed over
// processed; zero while nothing has been processed. Duration is
// start-to-end for finished runs, start-to-now otherwise.
func (r *Run) Stats() Stats {
	s := Stats{
		RunID:     r.ID,
		Status:    r.Status,
		Total:     r.Total,
		Processed: r.Processed,
		Confirmed: r.Succeeded,
		Failed:    r.Failed,
		Skipped:   r.Skipped,
		Remaining: r.Remaining(),
	}
	if r.Processed > 0 {
		s.SuccessRate = float64(r.Succeeded) / float64(r.Processed)
	}
	end := time.Now()
	if r.EndedAt != nil {
		end = *r.EndedAt
	}
	s.Duration = end.Sub(r.StartedAt)
	return s
}
