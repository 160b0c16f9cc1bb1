package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VendorStatus string

const (
	VendorPending   VendorStatus = "pending"
	VendorApproved  VendorStatus = "approved"
	VendorRejected  VendorStatus = "rejected"
	VendorSuspended VendorStatus = "suspended"
)

// Vendor is a supplier going through onboarding. A pending vendor is the
// approval gate's "pending_approval" equivalent.
type Vendor struct {
	Base
	CompanyName       string              `gorm:"type:varchar(255);not null;index" json:"company_name"`
	ContactPerson     string              `gorm:"type:varchar(255)" json:"contact_person"`
	Email             string              `gorm:"type:varchar(255)" json:"email"`
	Phone             string              `gorm:"type:varchar(50)" json:"phone"`
	PANNumber         string              `gorm:"type:varchar(50)" json:"pan_number"`
	GSTNumber         string              `gorm:"type:varchar(50)" json:"gst_number"`
	TANNumber         string              `gorm:"type:varchar(50)" json:"tan_number"`
	Address           string              `gorm:"type:text" json:"address"`
	Categories        datatypes.JSON      `gorm:"type:jsonb" json:"categories"`
	Certifications    datatypes.JSON      `gorm:"type:jsonb" json:"certifications"`
	Tags              datatypes.JSON      `gorm:"type:jsonb" json:"tags"`
	YearsOfExperience int                 `json:"years_of_experience"`
	Status            VendorStatus        `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PerformanceScore  decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"performance_score"`
	UserID            *uuid.UUID          `gorm:"type:uuid;index" json:"user_id"` // vendor portal login, if any
	CreatedBy         uuid.UUID           `gorm:"type:uuid;not null;index" json:"created_by"`
	DeletedAt         gorm.DeletedAt      `gorm:"index" json:"-"`
}
