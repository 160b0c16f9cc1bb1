package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BOM is a bill of materials; (name, version) is unique
type BOM struct {
	Base
	Name        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_bom_name_version" json:"name"`
	Version     string    `gorm:"type:varchar(50);not null;default:'1.0';uniqueIndex:idx_bom_name_version" json:"version"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"type:varchar(255)" json:"category"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`
	Items       []BOMItem `gorm:"foreignKey:BOMID;constraint:OnDelete:CASCADE" json:"items"`
}

// BOMItem is a single component line in a BOM
type BOMItem struct {
	Base
	BOMID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"bom_id"`
	ProductID      *uuid.UUID      `gorm:"type:uuid;index" json:"product_id"`
	ItemName       string          `gorm:"type:varchar(255);not null" json:"item_name"`
	ItemCode       string          `gorm:"type:varchar(100)" json:"item_code"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UOM            string          `gorm:"type:varchar(50)" json:"uom"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_price"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_price"`
	Specifications datatypes.JSON  `gorm:"type:jsonb" json:"specifications"`
}
