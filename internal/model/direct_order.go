package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DirectOrderStatus string

const (
	DirectOrderDraft           DirectOrderStatus = "draft"
	DirectOrderPendingApproval DirectOrderStatus = "pending_approval"
	DirectOrderApproved        DirectOrderStatus = "approved"
	DirectOrderRejected        DirectOrderStatus = "rejected"
	DirectOrderSubmitted       DirectOrderStatus = "submitted"
	DirectOrderCompleted       DirectOrderStatus = "completed"
	DirectOrderCancelled       DirectOrderStatus = "cancelled"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// DirectOrder is a direct procurement from a single chosen vendor
type DirectOrder struct {
	Base
	ReferenceNo  string            `gorm:"type:varchar(50);uniqueIndex;not null" json:"reference_no"`
	BOMID        *uuid.UUID        `gorm:"type:uuid" json:"bom_id"`
	VendorID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"vendor_id"`
	TotalAmount  decimal.Decimal   `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	Status       DirectOrderStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Priority     string            `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	DeliveryDate *time.Time        `json:"delivery_date"`
	PaymentTerms string            `gorm:"type:text" json:"payment_terms"`
	Notes        string            `gorm:"type:text" json:"notes"`
	CreatedBy    uuid.UUID         `gorm:"type:uuid;not null;index" json:"created_by"`
	Items        []DirectOrderItem `gorm:"foreignKey:DirectOrderID;constraint:OnDelete:CASCADE" json:"items"`
}

type DirectOrderItem struct {
	Base
	DirectOrderID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"direct_order_id"`
	ProductID      *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	ItemName       string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_price"`
	Specifications string          `gorm:"type:text" json:"specifications"`
}
