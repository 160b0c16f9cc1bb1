package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaxRuleStatus string

const (
	TaxRuleActive   TaxRuleStatus = "active"
	TaxRuleInactive TaxRuleStatus = "inactive"
	TaxRuleDraft    TaxRuleStatus = "draft"
)

// TaxRule stores GST rates for one HSN code with temporal validity.
// Rates are percentages, e.g. 18.00 = 18%.
type TaxRule struct {
	Base
	HSNCode        string          `gorm:"type:varchar(20);not null;index;uniqueIndex:idx_tax_hsn_from" json:"hsn_code"`
	Description    string          `gorm:"type:text" json:"description"`
	TotalRate      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"total_rate"`
	CentralRate    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"central_rate"`    // CGST
	StateRate      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"state_rate"`      // SGST
	InterstateRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"interstate_rate"` // IGST
	CessRate       decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"cess_rate"`
	UnitOfMeasure  string          `gorm:"type:varchar(50)" json:"unit_of_measure"`
	EffectiveFrom  time.Time       `gorm:"type:date;not null;index;uniqueIndex:idx_tax_hsn_from" json:"effective_from"`
	EffectiveTo    *time.Time      `gorm:"type:date;index" json:"effective_to"` // nullable = open ended
	Status         TaxRuleStatus   `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Notes          string          `gorm:"type:text" json:"notes"`
	SupersedesID   *uuid.UUID      `gorm:"type:uuid" json:"supersedes_id"`
	CreatedBy      *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	UpdatedBy      *uuid.UUID      `gorm:"type:uuid" json:"updated_by"`
}
