package service

import (
	"context"

	"rfp-relay-go/internal/models"
)

// DemoVendors is the sample vendor directory used by the seed command
func DemoVendors() []models.Vendor {
	return []models.Vendor{
		{
			Name:          "Tech Solutions Inc",
			Email:         "sales@techsolutions.com",
			Phone:         "+1-555-0101",
			ContactPerson: "John Smith",
			Address:       "123 Tech Street, San Francisco, CA 94105",
		},
		{
			Name:          "Global Electronics Ltd",
			Email:         "info@globalelectronics.com",
			Phone:         "+1-555-0202",
			ContactPerson: "Sarah Johnson",
			Address:       "456 Innovation Ave, Austin, TX 78701",
		},
		{
			Name:          "Enterprise Hardware Co",
			Email:         "contact@enterprisehw.com",
			Phone:         "+1-555-0303",
			ContactPerson: "Mike Williams",
			Address:       "789 Business Blvd, New York, NY 10001",
		},
		{
			Name:          "Premium Office Supplies",
			Email:         "sales@premiumoffice.com",
			Phone:         "+1-555-0404",
			ContactPerson: "Emily Davis",
			Address:       "321 Commerce Road, Seattle, WA 98101",
		},
	}
}

// Seed inserts the demo vendors, skipping emails that already exist.
// It returns the number of vendors inserted.
func (s *Service) Seed(ctx context.Context) (int64, error) {
	n, err := s.repo.SeedVendors(ctx, DemoVendors())
	if err != nil {
		return 0, internal(err, "failed to seed vendors")
	}
	return n, nil
}
