package service

import (
	"context"
	"errors"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"rfp-relay-go/internal/apperr"
	"rfp-relay-go/internal/models"
	"rfp-relay-go/internal/repository"
)

func (s *Service) CreateVendor(ctx context.Context, req models.VendorRequest) (*models.Vendor, error) {
	name, email := trimmed(req.Name), trimmed(req.Email)
	if name == "" || email == "" {
		return nil, apperr.New(apperr.Validation, "name and email are required")
	}
	if err := validEmail(email); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindVendorByEmail(ctx, email)
	if err != nil {
		return nil, internal(err, "failed to check vendor email")
	}
	if existing != nil {
		return nil, apperr.New(apperr.Conflict, "vendor with email %s already exists", email)
	}

	vendor := &models.Vendor{
		Name:          name,
		Email:         email,
		Phone:         trimmed(req.Phone),
		ContactPerson: trimmed(req.ContactPerson),
		Address:       trimmed(req.Address),
	}
	if err := s.repo.CreateVendor(ctx, vendor); err != nil {
		return nil, vendorWriteError(err, email)
	}
	return vendor, nil
}

func (s *Service) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	vendors, err := s.repo.ListVendors(ctx)
	if err != nil {
		return nil, internal(err, "failed to list vendors")
	}
	return vendors, nil
}

func (s *Service) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		return nil, lookupError(err, "vendor", id)
	}
	return vendor, nil
}

// UpdateVendor changes only the fields present in req
func (s *Service) UpdateVendor(ctx context.Context, id uuid.UUID, req models.VendorRequest) (*models.Vendor, error) {
	vendor, err := s.GetVendor(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if vendor.Name = trimmed(req.Name); vendor.Name == "" {
			return nil, apperr.New(apperr.Validation, "name cannot be empty")
		}
	}
	if req.Email != nil {
		email := trimmed(req.Email)
		if email == "" {
			return nil, apperr.New(apperr.Validation, "email cannot be empty")
		}
		if err := validEmail(email); err != nil {
			return nil, err
		}
		if email != vendor.Email {
			other, err := s.repo.FindVendorByEmail(ctx, email)
			if err != nil {
				return nil, internal(err, "failed to check vendor email")
			}
			if other != nil && other.ID != vendor.ID {
				return nil, apperr.New(apperr.Conflict, "vendor with email %s already exists", email)
			}
		}
		vendor.Email = email
	}
	if req.Phone != nil {
		vendor.Phone = trimmed(req.Phone)
	}
	if req.ContactPerson != nil {
		vendor.ContactPerson = trimmed(req.ContactPerson)
	}
	if req.Address != nil {
		vendor.Address = trimmed(req.Address)
	}

	if err := s.repo.UpdateVendor(ctx, vendor); err != nil {
		return nil, vendorWriteError(err, vendor.Email)
	}
	return vendor, nil
}

// DeleteVendor removes the vendor with its invitations and proposals
func (s *Service) DeleteVendor(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteVendor(ctx, id)
	if err != nil {
		return internal(err, "failed to delete vendor")
	}
	if !deleted {
		return apperr.New(apperr.NotFound, "vendor %s not found", id)
	}
	return nil
}

func vendorWriteError(err error, email string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperr.Wrap(apperr.Conflict, err, "vendor with email %s already exists", email)
	}
	return internal(err, "failed to save vendor")
}

func validEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.New(apperr.Validation, "invalid email address %q", email)
	}
	return nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
