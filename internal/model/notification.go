package model

import "github.com/google/uuid"

const (
	NotificationInfo    = "info"
	NotificationWarning = "warning"
	NotificationSuccess = "success"
	NotificationError   = "error"
)

type Notification struct {
	Base
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title      string     `gorm:"type:varchar(255);not null" json:"title"`
	Message    string     `gorm:"type:text" json:"message"`
	Type       string     `gorm:"type:varchar(20);not null;default:'info'" json:"type"`
	IsRead     bool       `gorm:"default:false;index" json:"is_read"`
	EntityType string     `gorm:"type:varchar(30)" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entity_id,omitempty"`
}
