package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role names carried in the JWT "role" claim
const (
	RoleBuyerAdmin      = "buyer_admin"
	RoleBuyerUser       = "buyer_user"
	RoleSourcingManager = "sourcing_manager"
	RoleVendor          = "vendor"
)

// User represents an authenticated principal of the procurement console
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName   string         `gorm:"type:varchar(100)" json:"first_name"`
	LastName    string         `gorm:"type:varchar(100)" json:"last_name"`
	CompanyName string         `gorm:"type:varchar(255)" json:"company_name"`
	Password    string         `gorm:"type:varchar(255);not null" json:"-"`   // Omit password from JSON requests/responses
	Role        string         `gorm:"type:varchar(50);not null" json:"role"` // buyer_admin, buyer_user, sourcing_manager, vendor
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	switch role {
	case RoleBuyerAdmin, RoleBuyerUser, RoleSourcingManager, RoleVendor:
		return true
	default:
		return false
	}
}
