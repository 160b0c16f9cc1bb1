package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	AuctionScheduled AuctionStatus = "scheduled"
	AuctionLive      AuctionStatus = "live"
	AuctionCompleted AuctionStatus = "completed"
	AuctionCancelled AuctionStatus = "cancelled"
)

// Auction is a reverse auction. CurrentBid only ever moves upward and is
// written with a conditional UPDATE, never read-modify-write.
type Auction struct {
	Base
	Name         string              `gorm:"type:varchar(255);not null" json:"name"`
	Description  string              `gorm:"type:text" json:"description"`
	BOMID        *uuid.UUID          `gorm:"type:uuid" json:"bom_id"`
	StartTime    time.Time           `gorm:"not null;index" json:"start_time"`
	EndTime      time.Time           `gorm:"not null;index" json:"end_time"`
	ReservePrice decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"reserve_price"`
	CurrentBid   decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"current_bid"`
	Status       AuctionStatus       `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	WinnerID     *uuid.UUID          `gorm:"type:uuid" json:"winner_id"`
	WinningBid   decimal.NullDecimal `gorm:"type:decimal(14,2)" json:"winning_bid"`
	CreatedBy    uuid.UUID           `gorm:"type:uuid;not null;index" json:"created_by"`
}

// AuctionParticipant registers a vendor for an auction
type AuctionParticipant struct {
	Base
	AuctionID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_auction_vendor" json:"auction_id"`
	VendorID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_auction_vendor" json:"vendor_id"`
	RegisteredAt time.Time `gorm:"not null" json:"registered_at"`
}

type Bid struct {
	Base
	AuctionID uuid.UUID       `gorm:"type:uuid;not null;index" json:"auction_id"`
	VendorID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	IsWinning bool            `gorm:"default:false" json:"is_winning"`
	PlacedAt  time.Time       `gorm:"not null;index" json:"placed_at"`
}
