package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type RFxType string

const (
	RFxTypeRFI RFxType = "rfi"
	RFxTypeRFP RFxType = "rfp"
	RFxTypeRFQ RFxType = "rfq"
)

// Next returns the stage that follows t; ok is false for rfq.
func (t RFxType) Next() (RFxType, bool) {
	switch t {
	case RFxTypeRFI:
		return RFxTypeRFP, true
	case RFxTypeRFP:
		return RFxTypeRFQ, true
	default:
		return "", false
	}
}

func ValidRFxType(t string) bool {
	switch RFxType(t) {
	case RFxTypeRFI, RFxTypeRFP, RFxTypeRFQ:
		return true
	}
	return false
}

type RFxStatus string

const (
	RFxDraft     RFxStatus = "draft"
	RFxPublished RFxStatus = "published"
	RFxActive    RFxStatus = "active"
	RFxClosed    RFxStatus = "closed"
	RFxCancelled RFxStatus = "cancelled"
)

type InvitationStatus string

const (
	InvitationInvited   InvitationStatus = "invited"
	InvitationViewed    InvitationStatus = "viewed"
	InvitationResponded InvitationStatus = "responded"
	InvitationDeclined  InvitationStatus = "declined"
)

// RFxEvent is an RFI, RFP or RFQ sourcing event
type RFxEvent struct {
	Base
	Title                string              `gorm:"type:varchar(255);not null" json:"title"`
	Type                 RFxType             `gorm:"type:varchar(10);not null;index" json:"type"`
	Scope                string              `gorm:"type:text" json:"scope"`
	Criteria             string              `gorm:"type:text" json:"criteria"`
	DueDate              *time.Time          `json:"due_date"`
	Status               RFxStatus           `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	EvaluationParameters datatypes.JSON      `gorm:"type:jsonb" json:"evaluation_parameters"`
	BOMID                *uuid.UUID          `gorm:"type:uuid;index" json:"bom_id"`
	ContactPerson        string              `gorm:"type:varchar(255)" json:"contact_person"`
	Budget               decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"budget"`
	ParentRFxID          *uuid.UUID          `gorm:"type:uuid;index" json:"parent_rfx_id"`
	CreatedBy            uuid.UUID           `gorm:"type:uuid;not null;index" json:"created_by"`
	Invitations          []RFxInvitation     `gorm:"foreignKey:RFxID" json:"invitations,omitempty"`
}

// RFxInvitation links a vendor to an RFx; (rfx, vendor) is unique
type RFxInvitation struct {
	Base
	RFxID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_rfx_vendor" json:"rfx_id"`
	VendorID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_rfx_vendor" json:"vendor_id"`
	Vendor      *Vendor          `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	Status      InvitationStatus `gorm:"type:varchar(20);not null;default:'invited'" json:"status"`
	RespondedAt *time.Time       `json:"responded_at"`
}

// RFxResponse is a vendor's offer against an RFx
type RFxResponse struct {
	Base
	RFxID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"rfx_id"`
	VendorID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	QuotedPrice   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"quoted_price"`
	DeliveryTerms string          `gorm:"type:text" json:"delivery_terms"`
	PaymentTerms  string          `gorm:"type:text" json:"payment_terms"`
	LeadTimeDays  int             `json:"lead_time_days"`
	Notes         string          `gorm:"type:text" json:"notes"`
	SubmittedAt   time.Time       `gorm:"not null" json:"submitted_at"`
}
