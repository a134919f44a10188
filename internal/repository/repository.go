package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rfp-relay-go/internal/models"
)

// ErrDuplicate is returned when a unique constraint rejects a write
var ErrDuplicate = errors.New("duplicate record")

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// Vendors

func (r *Repository) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		return fmt.Errorf("failed to create vendor: %w", translate(err))
	}
	return nil
}

// SeedVendors inserts vendors, ignoring those whose email already exists
func (r *Repository) SeedVendors(ctx context.Context, vendors []models.Vendor) (int64, error) {
	if len(vendors) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&vendors)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to seed vendors: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if err := r.db.WithContext(ctx).Order("name asc").Find(&vendors).Error; err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	return vendors, nil
}

func (r *Repository) GetVendor(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get vendor %s: %w", id, err)
	}
	return &vendor, nil
}

// FindVendorByEmail returns nil when no vendor has the exact address
func (r *Repository) FindVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	var vendor models.Vendor
	result := r.db.WithContext(ctx).Where("email = ?", email).Limit(1).Find(&vendor)
	if result.Error != nil {
		return nil, fmt.Errorf("database error looking up vendor: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &vendor, nil
}

// FindVendorsByIDs returns the vendors that exist among ids, in no particular order
func (r *Repository) FindVendorsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if len(ids) == 0 {
		return vendors, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&vendors).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve vendors: %w", err)
	}
	return vendors, nil
}

func (r *Repository) UpdateVendor(ctx context.Context, vendor *models.Vendor) error {
	if err := r.db.WithContext(ctx).Save(vendor).Error; err != nil {
		return fmt.Errorf("failed to update vendor: %w", translate(err))
	}
	return nil
}

// DeleteVendor removes a vendor with its invitations and proposals.
// It reports false when the vendor did not exist.
func (r *Repository) DeleteVendor(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vendor_id = ?", id).Delete(&models.Proposal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("vendor_id = ?", id).Delete(&models.RFPVendor{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Vendor{}, "id = ?", id)
		deleted = result.RowsAffected > 0
		return result.Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete vendor: %w", err)
	}
	return deleted, nil
}

// RFPs

func (r *Repository) CreateRFP(ctx context.Context, rfp *models.RFP) error {
	if err := r.db.WithContext(ctx).Create(rfp).Error; err != nil {
		return fmt.Errorf("failed to create rfp: %w", err)
	}
	return nil
}

func (r *Repository) ListRFPs(ctx context.Context) ([]models.RFP, error) {
	var rfps []models.RFP
	if err := r.db.WithContext(ctx).Order("created_at desc").Find(&rfps).Error; err != nil {
		return nil, fmt.Errorf("failed to list rfps: %w", err)
	}
	return rfps, nil
}

func (r *Repository) GetRFP(ctx context.Context, id uuid.UUID) (*models.RFP, error) {
	var rfp models.RFP
	if err := r.db.WithContext(ctx).First(&rfp, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get rfp %s: %w", id, err)
	}
	return &rfp, nil
}

// DeleteRFP removes an RFP with its invitations and proposals.
// It reports false when the RFP did not exist.
func (r *Repository) DeleteRFP(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rfp_id = ?", id).Delete(&models.Proposal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("rfp_id = ?", id).Delete(&models.RFPVendor{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.RFP{}, "id = ?", id)
		deleted = result.RowsAffected > 0
		return result.Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete rfp: %w", err)
	}
	return deleted, nil
}

// UpdateRFPStatus moves an RFP to status when it currently is in one of from.
// It reports false when no row matched.
func (r *Repository) UpdateRFPStatus(ctx context.Context, id uuid.UUID, status models.RFPStatus, from ...models.RFPStatus) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.RFP{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	result := q.Update("status", status)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update rfp status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Invitations

// MarkRFPSent records a successful invitation, refreshing the send time on resend
func (r *Repository) MarkRFPSent(ctx context.Context, rfpID, vendorID uuid.UUID, sentAt time.Time) error {
	link := models.RFPVendor{RFPID: rfpID, VendorID: vendorID, SentAt: &sentAt, EmailSent: true}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rfp_id"}, {Name: "vendor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"sent_at", "email_sent"}),
		}).
		Create(&link).Error
	if err != nil {
		return fmt.Errorf("failed to record invitation: %w", err)
	}
	return nil
}

func (r *Repository) ListRFPVendors(ctx context.Context, rfpID uuid.UUID) ([]models.RFPVendor, error) {
	var links []models.RFPVendor
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("rfp_id = ?", rfpID).
		Order("sent_at desc").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rfp vendors: %w", err)
	}
	return links, nil
}

// LatestSentRFP returns the RFP most recently sent to the vendor, or nil
func (r *Repository) LatestSentRFP(ctx context.Context, vendorID uuid.UUID) (*models.RFP, error) {
	var links []models.RFPVendor
	err := r.db.WithContext(ctx).
		Preload("RFP").
		Where("vendor_id = ? AND email_sent = ?", vendorID, true).
		Order("sent_at desc").
		Limit(1).
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("database error looking up sent rfp: %w", err)
	}
	if len(links) == 0 || links[0].RFP == nil {
		return nil, nil
	}
	return links[0].RFP, nil
}

// Proposals

var proposalUpdateColumns = []string{
	"email_subject", "email_body", "total_price", "delivery_time", "payment_terms",
	"warranty", "parsed_data", "raw_email_data", "ai_score", "ai_summary", "updated_at",
}

// UpsertProposal writes the proposal for its (rfp, vendor) pair in one statement,
// overwriting any earlier reply. On return proposal reflects the stored row.
func (r *Repository) UpsertProposal(ctx context.Context, proposal *models.Proposal) error {
	db := r.db.WithContext(ctx)
	err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rfp_id"}, {Name: "vendor_id"}},
			DoUpdates: clause.AssignmentColumns(proposalUpdateColumns),
		}).
		Create(proposal).Error
	if err != nil {
		return fmt.Errorf("failed to upsert proposal: %w", err)
	}
	var stored models.Proposal
	if err := db.Where("rfp_id = ? AND vendor_id = ?", proposal.RFPID, proposal.VendorID).First(&stored).Error; err != nil {
		return fmt.Errorf("failed to reload proposal: %w", err)
	}
	*proposal = stored
	return nil
}

// ListProposals returns the proposals for an RFP, best score first
func (r *Repository) ListProposals(ctx context.Context, rfpID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("rfp_id = ?", rfpID).
		Order("ai_score desc").
		Find(&proposals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, nil
}

func (r *Repository) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := r.db.WithContext(ctx).Preload("Vendor").First(&proposal, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get proposal %s: %w", id, err)
	}
	return &proposal, nil
}

// Email processing log

func (r *Repository) IsEmailProcessed(ctx context.Context, emailID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.EmailProcessingLog{}).Where("email_id = ?", emailID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("database error checking processed email: %w", err)
	}
	return count > 0, nil
}

// LogEmail records the outcome of a message. It reports false when a row for
// the same message already existed; the existing row is left untouched.
func (r *Repository) LogEmail(ctx context.Context, entry *models.EmailProcessingLog) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email_id"}}, DoNothing: true}).
		Create(entry)
	if result.Error != nil {
		return false, fmt.Errorf("failed to log email outcome: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) ListEmailLogs(ctx context.Context, page, pageSize int) ([]models.EmailProcessingLog, int64, error) {
	var (
		logs  []models.EmailProcessingLog
		total int64
	)
	db := r.db.WithContext(ctx).Model(&models.EmailProcessingLog{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count email logs: %w", err)
	}
	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list email logs: %w", err)
	}
	return logs, total, nil
}

func (r *Repository) GetEmailLog(ctx context.Context, id uuid.UUID) (*models.EmailProcessingLog, error) {
	var entry models.EmailProcessingLog
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get email log %s: %w", id, err)
	}
	return &entry, nil
}
