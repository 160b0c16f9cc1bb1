package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type POStatus string

const (
	PODraft           POStatus = "draft"
	POPendingApproval POStatus = "pending_approval"
	POApproved        POStatus = "approved"
	PORejected        POStatus = "rejected"
	POIssued          POStatus = "issued"
	POAcknowledged    POStatus = "acknowledged"
	POShipped         POStatus = "shipped"
	PODelivered       POStatus = "delivered"
	POInvoiced        POStatus = "invoiced"
	POPaid            POStatus = "paid"
	POCancelled       POStatus = "cancelled"
)

type LineItemStatus string

const (
	LineItemPending   LineItemStatus = "pending"
	LineItemShipped   LineItemStatus = "shipped"
	LineItemDelivered LineItemStatus = "delivered"
)

// PurchaseOrder is the financial document derived from a sourcing event.
// At most one of RFxID, AuctionID, DirectOrderID is set.
type PurchaseOrder struct {
	Base
	PONumber           string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"po_number"`
	VendorID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor             *Vendor         `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	RFxID              *uuid.UUID      `gorm:"type:uuid;index" json:"rfx_id"`
	AuctionID          *uuid.UUID      `gorm:"type:uuid;index" json:"auction_id"`
	DirectOrderID      *uuid.UUID      `gorm:"type:uuid;index" json:"direct_order_id"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	Status             POStatus        `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	PaymentTerms       string          `gorm:"type:text" json:"payment_terms"`
	TermsAndConditions string          `gorm:"type:text" json:"terms_and_conditions"`
	Notes              string          `gorm:"type:text" json:"notes"`
	DeliveryDate       *time.Time      `json:"delivery_date"`
	IssuedAt           *time.Time      `json:"issued_at"`
	AcknowledgedAt     *time.Time      `json:"acknowledged_at"`
	CreatedBy          uuid.UUID       `gorm:"type:uuid;not null;index" json:"created_by"`
	LineItems          []POLineItem    `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
}

type POLineItem struct {
	Base
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	ProductID       *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	ItemName        string          `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity        decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_price"`
	DeliveryDate    *time.Time      `json:"delivery_date"`
	Status          LineItemStatus  `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}
