package models

import (
	"time"

	"github.com/google/uuid"
)

// CreateRFPRequest carries the free-text procurement request
type CreateRFPRequest struct {
	NaturalLanguageInput string `json:"naturalLanguageInput"`
}

// SendRFPRequest selects the vendors that receive an invitation
type SendRFPRequest struct {
	VendorIDs []uuid.UUID `json:"vendorIds"`
}

// VendorRequest is used for both create and partial update
type VendorRequest struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	ContactPerson *string `json:"contact_person"`
	Address       *string `json:"address"`
}

// RFPVendorStatus is a vendor linked to an RFP with its send state
type RFPVendorStatus struct {
	Vendor
	EmailSent bool       `json:"email_sent"`
	SentAt    *time.Time `json:"sent_at"`
}

// RFPDetail is an RFP with its linked vendors and received proposals
type RFPDetail struct {
	RFP       RFP               `json:"rfp"`
	Vendors   []RFPVendorStatus `json:"vendors"`
	Proposals []Proposal        `json:"proposals"`
}

// LogPage is one page of the email processing log
type LogPage struct {
	Items    []EmailProcessingLog `json:"items"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
