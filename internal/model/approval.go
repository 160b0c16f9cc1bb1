package model

import (
	"time"

	"github.com/google/uuid"
)

// Entity types an approval can be attached to
const (
	ApprovalEntityPurchaseOrder = "purchase_order"
	ApprovalEntityDirectOrder   = "direct_order"
	ApprovalEntityVendor        = "vendor"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalRecord is a single-decision gate in front of a PO, direct order or vendor.
type ApprovalRecord struct {
	Base
	EntityType  string         `gorm:"type:varchar(30);not null;index:idx_approval_entity" json:"entity_type"`
	EntityID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_approval_entity" json:"entity_id"`
	RequestedBy *uuid.UUID     `gorm:"type:uuid;index" json:"requested_by"`
	ApproverID  *uuid.UUID     `gorm:"type:uuid;index" json:"approver_id"`
	Approver    *User          `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Status      ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Comments    string         `gorm:"type:text" json:"comments"`
	DecidedAt   *time.Time     `json:"decided_at"`
}
