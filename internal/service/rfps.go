package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"rfp-relay-go/internal/ai"
	"rfp-relay-go/internal/apperr"
	"rfp-relay-go/internal/models"
)

// CreatedRFP is a stored RFP together with the model's structured reading
type CreatedRFP struct {
	RFP            *models.RFP       `json:"rfp"`
	StructuredData *ai.StructuredRFP `json:"structured_data"`
}

// CreateFromText turns a free-text request into a draft RFP
func (s *Service) CreateFromText(ctx context.Context, input string) (*CreatedRFP, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, apperr.New(apperr.Validation, "natural language input is required")
	}

	structured, err := s.inference.ExtractRFP(ctx, input)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			err = apperr.Wrap(apperr.Extraction, err, "failed to extract RFP")
		}
		return nil, err
	}
	structured.Requirements = structured.Requirements.Normalize()

	rfp := &models.RFP{
		Title:            structured.Title,
		Description:      structured.Description,
		Budget:           structured.Budget,
		DeliveryDeadline: structured.DeliveryDeadline,
		PaymentTerms:     structured.PaymentTerms,
		WarrantyPeriod:   structured.WarrantyPeriod,
		Requirements:     datatypes.NewJSONType(structured.Requirements),
		Status:           models.RFPStatusDraft,
	}
	if err := s.repo.CreateRFP(ctx, rfp); err != nil {
		return nil, internal(err, "failed to save RFP")
	}

	logrus.WithFields(logrus.Fields{"rfp_id": rfp.ID, "title": rfp.Title}).Info("Created RFP")
	return &CreatedRFP{RFP: rfp, StructuredData: structured}, nil
}

func (s *Service) ListRFPs(ctx context.Context) ([]models.RFP, error) {
	rfps, err := s.repo.ListRFPs(ctx)
	if err != nil {
		return nil, internal(err, "failed to list RFPs")
	}
	return rfps, nil
}

// GetRFP returns the RFP with its invited vendors and received proposals
func (s *Service) GetRFP(ctx context.Context, id uuid.UUID) (*models.RFPDetail, error) {
	rfp, err := s.repo.GetRFP(ctx, id)
	if err != nil {
		return nil, lookupError(err, "RFP", id)
	}

	links, err := s.repo.ListRFPVendors(ctx, id)
	if err != nil {
		return nil, internal(err, "failed to list RFP vendors")
	}
	proposals, err := s.repo.ListProposals(ctx, id)
	if err != nil {
		return nil, internal(err, "failed to list proposals")
	}

	detail := &models.RFPDetail{
		RFP:       *rfp,
		Vendors:   make([]models.RFPVendorStatus, 0, len(links)),
		Proposals: proposals,
	}
	for _, link := range links {
		if link.Vendor == nil {
			continue
		}
		detail.Vendors = append(detail.Vendors, models.RFPVendorStatus{
			Vendor:    *link.Vendor,
			EmailSent: link.EmailSent,
			SentAt:    link.SentAt,
		})
	}
	return detail, nil
}

// DeleteRFP removes the RFP with its invitations and proposals
func (s *Service) DeleteRFP(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteRFP(ctx, id)
	if err != nil {
		return internal(err, "failed to delete RFP")
	}
	if !deleted {
		return apperr.New(apperr.NotFound, "RFP %s not found", id)
	}
	return nil
}

// CloseRFP moves a sent RFP to closed
func (s *Service) CloseRFP(ctx context.Context, id uuid.UUID) (*models.RFP, error) {
	rfp, err := s.repo.GetRFP(ctx, id)
	if err != nil {
		return nil, lookupError(err, "RFP", id)
	}
	if rfp.Status != models.RFPStatusSent {
		return nil, apperr.New(apperr.Validation, "only sent RFPs can be closed, RFP is %s", rfp.Status)
	}

	updated, err := s.repo.UpdateRFPStatus(ctx, id, models.RFPStatusClosed, models.RFPStatusSent)
	if err != nil {
		return nil, internal(err, "failed to close RFP")
	}
	if !updated {
		return nil, apperr.New(apperr.Conflict, "RFP %s changed status concurrently", id)
	}
	rfp.Status = models.RFPStatusClosed
	return rfp, nil
}
