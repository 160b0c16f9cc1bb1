package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductCategory is a node in the catalog hierarchy
type ProductCategory struct {
	Base
	Name        string     `gorm:"type:varchar(255);not null" json:"name"`
	Code        string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Description string     `gorm:"type:text" json:"description"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	Level       int        `gorm:"default:1" json:"level"`
	SortOrder   int        `gorm:"default:0" json:"sort_order"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`
}

// Product is a catalog item that can be referenced by BOMs and PO line items
type Product struct {
	Base
	ItemName       string              `gorm:"type:varchar(255);not null;index" json:"item_name"`
	InternalCode   string              `gorm:"type:varchar(100)" json:"internal_code"`
	ExternalCode   string              `gorm:"type:varchar(100)" json:"external_code"`
	Description    string              `gorm:"type:text" json:"description"`
	CategoryID     *uuid.UUID          `gorm:"type:uuid;index" json:"category_id"`
	Category       *ProductCategory    `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	UOM            string              `gorm:"type:varchar(50)" json:"uom"`
	HSNCode        string              `gorm:"type:varchar(20);index" json:"hsn_code"`
	BasePrice      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"base_price"`
	Specifications datatypes.JSON      `gorm:"type:jsonb" json:"specifications"`
	Tags           datatypes.JSON      `gorm:"type:jsonb" json:"tags"`
	IsActive       bool                `gorm:"not null" json:"is_active"`
	CreatedBy      uuid.UUID           `gorm:"type:uuid;not null" json:"created_by"`
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`
}
