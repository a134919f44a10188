package ai

import (
	"time"

	"rfp-relay-go/internal/models"
)

// StructuredRFP is the model's reading of a free-text procurement request
type StructuredRFP struct {
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Budget           *float64            `json:"budget"`
	DeliveryDeadline *time.Time          `json:"delivery_deadline"`
	PaymentTerms     string              `json:"payment_terms"`
	WarrantyPeriod   string              `json:"warranty_period"`
	Requirements     models.Requirements `json:"requirements"`
}

// StructuredProposal is the model's reading of a vendor reply
type StructuredProposal struct {
	TotalPrice   *float64               `json:"total_price"`
	DeliveryTime string                 `json:"delivery_time"`
	PaymentTerms string                 `json:"payment_terms"`
	Warranty     string                 `json:"warranty"`
	ParsedData   models.ProposalDetails `json:"parsed_data"`
	Summary      string                 `json:"ai_summary"`
}

// RFPContext is the RFP as shown to the model
type RFPContext struct {
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Requirements     models.Requirements `json:"requirements"`
	Budget           *float64            `json:"budget,omitempty"`
	DeliveryDeadline string              `json:"delivery_deadline,omitempty"`
	PaymentTerms     string              `json:"payment_terms,omitempty"`
	WarrantyPeriod   string              `json:"warranty_period,omitempty"`
}

// ExtractionContext carries only what proposal extraction needs
func ExtractionContext(rfp *models.RFP) RFPContext {
	return RFPContext{
		Title:        rfp.Title,
		Description:  rfp.Description,
		Requirements: rfp.Requirements.Data().Normalize(),
	}
}

// FullContext includes commercial terms for scoring and comparison
func FullContext(rfp *models.RFP) RFPContext {
	c := ExtractionContext(rfp)
	c.Budget = rfp.Budget
	c.PaymentTerms = rfp.PaymentTerms
	c.WarrantyPeriod = rfp.WarrantyPeriod
	if rfp.DeliveryDeadline != nil {
		c.DeliveryDeadline = rfp.DeliveryDeadline.Format(dateLayout)
	}
	return c
}

// ProposalSummary is one vendor's proposal as shown to the comparison model
type ProposalSummary struct {
	VendorID     string                 `json:"vendor_id"`
	VendorName   string                 `json:"vendor_name"`
	TotalPrice   *float64               `json:"total_price"`
	DeliveryTime string                 `json:"delivery_time"`
	PaymentTerms string                 `json:"payment_terms"`
	Warranty     string                 `json:"warranty"`
	AISummary    string                 `json:"ai_summary"`
	ParsedData   models.ProposalDetails `json:"parsed_data"`
}

// VendorAssessment is the comparison verdict on one vendor
type VendorAssessment struct {
	VendorID   string   `json:"vendor_id"`
	VendorName string   `json:"vendor_name"`
	Score      float64  `json:"score"`
	Pros       []string `json:"pros"`
	Cons       []string `json:"cons"`
}

// Recommendation is the outcome of comparing all proposals of an RFP
type Recommendation struct {
	BestPrice    string             `json:"best_price"`
	BestDelivery string             `json:"best_delivery"`
	BestOverall  string             `json:"best_overall"`
	Summary      string             `json:"summary"`
	Details      []VendorAssessment `json:"details"`
}
