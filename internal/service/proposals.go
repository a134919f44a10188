package service

import (
	"context"

	"github.com/google/uuid"

	"rfp-relay-go/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListProposals returns the proposals of an RFP, best score first
func (s *Service) ListProposals(ctx context.Context, rfpID uuid.UUID) ([]models.Proposal, error) {
	if _, err := s.repo.GetRFP(ctx, rfpID); err != nil {
		return nil, lookupError(err, "RFP", rfpID)
	}
	proposals, err := s.repo.ListProposals(ctx, rfpID)
	if err != nil {
		return nil, internal(err, "failed to list proposals")
	}
	return proposals, nil
}

func (s *Service) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.repo.GetProposal(ctx, id)
	if err != nil {
		return nil, lookupError(err, "proposal", id)
	}
	return proposal, nil
}

// ListEmailLogs pages through the processing log, newest first
func (s *Service) ListEmailLogs(ctx context.Context, page, pageSize int) (*models.LogPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	logs, total, err := s.repo.ListEmailLogs(ctx, page, pageSize)
	if err != nil {
		return nil, internal(err, "failed to list email logs")
	}
	return &models.LogPage{Items: logs, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *Service) GetEmailLog(ctx context.Context, id uuid.UUID) (*models.EmailProcessingLog, error) {
	entry, err := s.repo.GetEmailLog(ctx, id)
	if err != nil {
		return nil, lookupError(err, "email log", id)
	}
	return entry, nil
}
