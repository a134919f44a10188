package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the terminal state of one candidate message within a run
type Outcome string

const (
	// OutcomeProcessed: a proposal was stored and the message logged as processed
	OutcomeProcessed Outcome = "processed"
	// OutcomeFailed: the message was logged as not processed, Reason says why
	OutcomeFailed Outcome = "failed"
	// OutcomeDuplicate: the message was already handled or is being handled elsewhere
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeDropped: the message has no id or sender and cannot be tracked
	OutcomeDropped Outcome = "dropped"
	// OutcomeCancelled: the run stopped before the message reached a terminal state
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeError: an infrastructure failure prevented recording any outcome
	OutcomeError Outcome = "error"
)

const (
	ReasonVendorNotFound = "Vendor not found"
	ReasonNoRFPSent      = "No RFP sent to this vendor"
)

// Result describes how one message was handled
type Result struct {
	Ref        string     `json:"ref"`
	EmailID    string     `json:"email_id,omitempty"`
	From       string     `json:"from,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	Outcome    Outcome    `json:"outcome"`
	Reason     string     `json:"reason,omitempty"`
	ProposalID *uuid.UUID `json:"proposal_id,omitempty"`
}

// Report summarizes one run
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	Duplicates int       `json:"duplicates"`
	Dropped    int       `json:"dropped"`
	Cancelled  int       `json:"cancelled"`
	Errors     int       `json:"errors"`
	Results    []Result  `json:"results"`
}

func (r *Report) tally() {
	for _, res := range r.Results {
		switch res.Outcome {
		case OutcomeProcessed:
			r.Processed++
		case OutcomeFailed:
			r.Failed++
		case OutcomeDuplicate:
			r.Duplicates++
		case OutcomeDropped:
			r.Dropped++
		case OutcomeCancelled:
			r.Cancelled++
		case OutcomeError:
			r.Errors++
		}
	}
}
