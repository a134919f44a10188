package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rfp-relay-go/internal/apperr"
	"rfp-relay-go/internal/mailer"
	"rfp-relay-go/internal/models"
)

// SendResult lists the vendors that received the invitation
type SendResult struct {
	RFP    *models.RFP     `json:"rfp"`
	SentTo []models.Vendor `json:"sent_to"`
}

// SendToVendors emails the RFP to each known vendor in request order.
// Unknown ids are ignored. The first delivery failure aborts the batch and
// leaves the RFP status unchanged; vendors already reached stay recorded.
func (s *Service) SendToVendors(ctx context.Context, rfpID uuid.UUID, vendorIDs []uuid.UUID) (*SendResult, error) {
	if len(vendorIDs) == 0 {
		return nil, apperr.New(apperr.Validation, "at least one vendor id is required")
	}

	rfp, err := s.repo.GetRFP(ctx, rfpID)
	if err != nil {
		return nil, lookupError(err, "RFP", rfpID)
	}
	if rfp.Status == models.RFPStatusClosed {
		return nil, apperr.New(apperr.Validation, "RFP %s is closed", rfpID)
	}

	found, err := s.repo.FindVendorsByIDs(ctx, vendorIDs)
	if err != nil {
		return nil, internal(err, "failed to resolve vendors")
	}
	vendors := inRequestOrder(found, vendorIDs)

	result := &SendResult{RFP: rfp, SentTo: make([]models.Vendor, 0, len(vendors))}
	for i := range vendors {
		vendor := &vendors[i]
		env, err := mailer.Invitation(rfp, vendor, s.signature)
		if err != nil {
			return nil, internal(err, "failed to render invitation")
		}

		err = s.sender.Send(ctx, env)
		s.metrics.ObserveDelivery(err)
		if err != nil {
			logrus.WithFields(logrus.Fields{"rfp_id": rfp.ID, "vendor": vendor.Email}).Errorf("Failed to send RFP: %v", err)
			return nil, apperr.Wrap(apperr.Delivery, err, "failed to send RFP to %s", vendor.Email)
		}

		if err := s.repo.MarkRFPSent(ctx, rfp.ID, vendor.ID, s.now()); err != nil {
			return nil, internal(err, "failed to record invitation to %s", vendor.Email)
		}
		result.SentTo = append(result.SentTo, *vendor)
		logrus.WithFields(logrus.Fields{"rfp_id": rfp.ID, "vendor": vendor.Email}).Info("Sent RFP")
	}

	if _, err := s.repo.UpdateRFPStatus(ctx, rfp.ID, models.RFPStatusSent, models.RFPStatusDraft, models.RFPStatusSent); err != nil {
		return nil, internal(err, "failed to mark RFP sent")
	}
	rfp.Status = models.RFPStatusSent
	return result, nil
}

func inRequestOrder(vendors []models.Vendor, ids []uuid.UUID) []models.Vendor {
	byID := make(map[uuid.UUID]models.Vendor, len(vendors))
	for _, v := range vendors {
		byID[v.ID] = v
	}
	ordered := make([]models.Vendor, 0, len(vendors))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
			delete(byID, id)
		}
	}
	return ordered
}
