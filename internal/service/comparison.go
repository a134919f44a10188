package service

import (
	"context"

	"github.com/google/uuid"

	"rfp-relay-go/internal/ai"
	"rfp-relay-go/internal/apperr"
	"rfp-relay-go/internal/models"
)

// Comparison is the recommendation for an RFP alongside the proposals it was based on
type Comparison struct {
	RFP            *models.RFP        `json:"rfp"`
	Proposals      []models.Proposal  `json:"proposals"`
	Recommendation *ai.Recommendation `json:"comparison"`
}

// Compare asks the model to rank all proposals of an RFP. Nothing is stored.
func (s *Service) Compare(ctx context.Context, rfpID uuid.UUID) (*Comparison, error) {
	rfp, err := s.repo.GetRFP(ctx, rfpID)
	if err != nil {
		return nil, lookupError(err, "RFP", rfpID)
	}

	proposals, err := s.repo.ListProposals(ctx, rfpID)
	if err != nil {
		return nil, internal(err, "failed to list proposals")
	}
	if len(proposals) == 0 {
		return nil, apperr.New(apperr.NotFound, "no proposals found for RFP %s", rfpID)
	}

	summaries := make([]ai.ProposalSummary, 0, len(proposals))
	for _, p := range proposals {
		summary := ai.ProposalSummary{
			VendorID:     p.VendorID.String(),
			TotalPrice:   p.TotalPrice,
			DeliveryTime: p.DeliveryTime,
			PaymentTerms: p.PaymentTerms,
			Warranty:     p.Warranty,
			AISummary:    p.AISummary,
			ParsedData:   p.ParsedData.Data(),
		}
		if p.Vendor != nil {
			summary.VendorName = p.Vendor.Name
		}
		summaries = append(summaries, summary)
	}

	recommendation, err := s.inference.CompareProposals(ctx, summaries, ai.FullContext(rfp))
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.Wrap(apperr.Extraction, err, "failed to compare proposals")
		}
		return nil, err
	}

	return &Comparison{RFP: rfp, Proposals: proposals, Recommendation: recommendation}, nil
}
