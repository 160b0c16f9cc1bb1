package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base holds the primary key and timestamps shared by every table.
// IDs are assigned in Go so the schema does not depend on gen_random_uuid().
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
