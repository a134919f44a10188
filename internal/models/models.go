package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RFPStatus is the lifecycle state of an RFP
type RFPStatus string

const (
	RFPStatusDraft  RFPStatus = "draft"
	RFPStatusSent   RFPStatus = "sent"
	RFPStatusClosed RFPStatus = "closed"
)

// Vendor is a supplier that can receive RFP invitations
type Vendor struct {
	ID            uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Email         string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone         string    `json:"phone,omitempty" gorm:"type:varchar(50)"`
	ContactPerson string    `json:"contact_person,omitempty" gorm:"type:varchar(255)"`
	Address       string    `json:"address,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for Vendor
func (Vendor) TableName() string {
	return "vendors"
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// RequirementItem is one line of an RFP's requirements
type RequirementItem struct {
	Name           string  `json:"name"`
	Quantity       float64 `json:"quantity"`
	Specifications string  `json:"specifications"`
}

// Requirements always serializes with an items array
type Requirements struct {
	Items []RequirementItem `json:"items"`
}

// Normalize guarantees a non-nil items slice
func (r Requirements) Normalize() Requirements {
	if r.Items == nil {
		r.Items = []RequirementItem{}
	}
	return r
}

// RFP is a structured request for proposal
type RFP struct {
	ID               uuid.UUID                        `json:"id" gorm:"type:char(36);primaryKey"`
	Title            string                           `json:"title" gorm:"type:varchar(500);not null"`
	Description      string                           `json:"description" gorm:"type:text"`
	Budget           *float64                         `json:"budget"`
	DeliveryDeadline *time.Time                       `json:"delivery_deadline"`
	PaymentTerms     string                           `json:"payment_terms,omitempty" gorm:"type:varchar(255)"`
	WarrantyPeriod   string                           `json:"warranty_period,omitempty" gorm:"type:varchar(255)"`
	Requirements     datatypes.JSONType[Requirements] `json:"requirements"`
	Status           RFPStatus                        `json:"status" gorm:"type:varchar(20);not null;default:draft;index"`
	CreatedAt        time.Time                        `json:"created_at"`
	UpdatedAt        time.Time                        `json:"updated_at"`
}

// TableName specifies the table name for RFP
func (RFP) TableName() string {
	return "rfps"
}

func (r *RFP) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

// RFPVendor records that an RFP invitation went to a vendor
type RFPVendor struct {
	ID        uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	RFPID     uuid.UUID  `json:"rfp_id" gorm:"column:rfp_id;type:char(36);not null;uniqueIndex:idx_rfp_vendor"`
	VendorID  uuid.UUID  `json:"vendor_id" gorm:"type:char(36);not null;uniqueIndex:idx_rfp_vendor;index"`
	SentAt    *time.Time `json:"sent_at" gorm:"index"`
	EmailSent bool       `json:"email_sent" gorm:"not null;default:false"`
	CreatedAt time.Time  `json:"created_at"`

	RFP    *RFP    `json:"-" gorm:"foreignKey:RFPID;constraint:OnDelete:CASCADE"`
	Vendor *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for RFPVendor
func (RFPVendor) TableName() string {
	return "rfp_vendors"
}

func (l *RFPVendor) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// ProposalItem is one priced line of a vendor proposal
type ProposalItem struct {
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// ProposalDetails is the structured part of a parsed proposal
type ProposalDetails struct {
	Items      []ProposalItem `json:"items"`
	Strengths  []string       `json:"strengths"`
	Weaknesses []string       `json:"weaknesses"`
}

// RawEmail keeps the source of a proposal
type RawEmail struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Proposal is the latest parsed reply of a vendor to an RFP
type Proposal struct {
	ID           uuid.UUID                           `json:"id" gorm:"type:char(36);primaryKey"`
	RFPID        uuid.UUID                           `json:"rfp_id" gorm:"column:rfp_id;type:char(36);not null;uniqueIndex:idx_proposal_rfp_vendor"`
	VendorID     uuid.UUID                           `json:"vendor_id" gorm:"type:char(36);not null;uniqueIndex:idx_proposal_rfp_vendor;index"`
	EmailSubject string                              `json:"email_subject" gorm:"type:text"`
	EmailBody    string                              `json:"email_body" gorm:"type:text"`
	TotalPrice   *float64                            `json:"total_price"`
	DeliveryTime string                              `json:"delivery_time,omitempty" gorm:"type:varchar(255)"`
	PaymentTerms string                              `json:"payment_terms,omitempty" gorm:"type:varchar(255)"`
	Warranty     string                              `json:"warranty,omitempty" gorm:"type:varchar(255)"`
	ParsedData   datatypes.JSONType[ProposalDetails] `json:"parsed_data"`
	RawEmailData datatypes.JSONType[RawEmail]        `json:"raw_email_data"`
	AIScore      float64                             `json:"ai_score" gorm:"column:ai_score;not null;default:0;index"`
	AISummary    string                              `json:"ai_summary" gorm:"column:ai_summary;type:text"`
	ReceivedAt   time.Time                           `json:"received_at"`
	CreatedAt    time.Time                           `json:"created_at"`
	UpdatedAt    time.Time                           `json:"updated_at"`

	RFP    *RFP    `json:"-" gorm:"foreignKey:RFPID;constraint:OnDelete:CASCADE"`
	Vendor *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Proposal
func (Proposal) TableName() string {
	return "proposals"
}

func (p *Proposal) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// EmailProcessingLog records the terminal outcome of an inbound message.
// A row exists exactly once per message id.
type EmailProcessingLog struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	EmailID   string    `json:"email_id" gorm:"type:varchar(512);not null;uniqueIndex"`
	Subject   string    `json:"subject" gorm:"type:text"`
	FromEmail string    `json:"from_email" gorm:"type:varchar(255);index"`
	Processed bool      `json:"processed" gorm:"not null;default:false"`
	Error     string    `json:"error,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for EmailProcessingLog
func (EmailProcessingLog) TableName() string {
	return "email_processing_logs"
}

func (l *EmailProcessingLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// All lists every persisted model, in migration order
func All() []interface{} {
	return []interface{}{&Vendor{}, &RFP{}, &RFPVendor{}, &Proposal{}, &EmailProcessingLog{}}
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
