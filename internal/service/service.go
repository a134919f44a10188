// Package service implements the procurement operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"rfp-relay-go/internal/ai"
	"rfp-relay-go/internal/apperr"
	"rfp-relay-go/internal/mailer"
	"rfp-relay-go/internal/metrics"
	"rfp-relay-go/internal/repository"
)

// Inference is the subset of the gateway the service calls directly
type Inference interface {
	ExtractRFP(ctx context.Context, input string) (*ai.StructuredRFP, error)
	CompareProposals(ctx context.Context, proposals []ai.ProposalSummary, rfp ai.RFPContext) (*ai.Recommendation, error)
}

// Service wires the repository, the inference gateway and the mail sender
type Service struct {
	repo      *repository.Repository
	inference Inference
	sender    mailer.Sender
	metrics   *metrics.Metrics
	signature string
	now       func() time.Time
}

// Option customizes a Service
type Option func(*Service)

// WithSignature sets the closing line of invitation emails
func WithSignature(signature string) Option {
	return func(s *Service) { s.signature = signature }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a service. m may be nil.
func New(repo *repository.Repository, inference Inference, sender mailer.Sender, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		inference: inference,
		sender:    sender,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the database connection
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func lookupError(err error, what string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.NotFound, err, "%s %s not found", what, id)
	}
	return apperr.Wrap(apperr.Internal, err, "failed to load %s", what)
}

func internal(err error, format string, args ...interface{}) error {
	return apperr.Wrap(apperr.Internal, err, format, args...)
}
