// Package notify tells operators about newly processed proposals.
// Notifications are best-effort and never affect message outcomes.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProposalEvent describes a proposal that was just stored
type ProposalEvent struct {
	EmailID     string    `json:"email_id"`
	ProposalID  uuid.UUID `json:"proposal_id"`
	RFPID       uuid.UUID `json:"rfp_id"`
	RFPTitle    string    `json:"rfp_title"`
	VendorID    uuid.UUID `json:"vendor_id"`
	VendorName  string    `json:"vendor_name"`
	VendorEmail string    `json:"vendor_email"`
	TotalPrice  *float64  `json:"total_price,omitempty"`
	Score       float64   `json:"ai_score"`
	Summary     string    `json:"ai_summary"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Notifier delivers a proposal event to one channel
type Notifier interface {
	Name() string
	ProposalReceived(ctx context.Context, event ProposalEvent) error
}
