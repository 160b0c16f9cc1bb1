package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionRegisterUser = "REGISTER_USER"

	ActionCreateTaxRule    = "CREATE_TAX_RULE"
	ActionUpdateTaxRule    = "UPDATE_TAX_RULE"
	ActionSupersedeTaxRule = "SUPERSEDE_TAX_RULE"

	ActionCreateVendor = "CREATE_VENDOR"
	ActionUpdateVendor = "UPDATE_VENDOR"
	ActionDeleteVendor = "DELETE_VENDOR"

	ActionCreateCategory = "CREATE_CATEGORY"
	ActionCreateProduct  = "CREATE_PRODUCT"
	ActionUpdateProduct  = "UPDATE_PRODUCT"
	ActionDeleteProduct  = "DELETE_PRODUCT"
	ActionCreateBOM      = "CREATE_BOM"
	ActionDeleteBOM      = "DELETE_BOM"

	ActionCreateRFx         = "CREATE_RFX"
	ActionUpdateRFxStatus   = "UPDATE_RFX_STATUS"
	ActionCreateNextStage   = "CREATE_RFX_NEXT_STAGE"
	ActionInviteVendors     = "INVITE_VENDORS"
	ActionSubmitRFxResponse = "SUBMIT_RFX_RESPONSE"

	ActionCreateAuction       = "CREATE_AUCTION"
	ActionUpdateAuctionStatus = "UPDATE_AUCTION_STATUS"
	ActionRegisterAuction     = "REGISTER_AUCTION"
	ActionPlaceBid            = "PLACE_BID"
	ActionDeclareWinner       = "DECLARE_WINNER"

	ActionCreateDirectOrder = "CREATE_DIRECT_ORDER"
	ActionUpdateDirectOrder = "UPDATE_DIRECT_ORDER_STATUS"

	ActionCreatePurchaseOrder = "CREATE_PURCHASE_ORDER"
	ActionUpdatePOStatus      = "UPDATE_PO_STATUS"

	// Approval workflow actions
	ActionApproveRequest = "APPROVE_REQUEST"
	ActionRejectRequest  = "REJECT_REQUEST"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for scheduler-driven changes
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
