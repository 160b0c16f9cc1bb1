package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AuctionRepository interface {
	Create(ctx context.Context, auction *model.Auction) error
	Update(ctx context.Context, auction *model.Auction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Auction, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Auction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AuctionStatus) error
	List(ctx context.Context, status string, page, limit int) ([]model.Auction, int64, error)
	ListByStatus(ctx context.Context, statuses ...model.AuctionStatus) ([]model.Auction, error)

	AddParticipant(ctx context.Context, p *model.AuctionParticipant) error
	IsParticipant(ctx context.Context, auctionID, vendorID uuid.UUID) (bool, error)
	ListParticipants(ctx context.Context, auctionID uuid.UUID) ([]model.AuctionParticipant, error)

	CreateBid(ctx context.Context, bid *model.Bid) error
	// RaiseCurrentBid sets current_bid to amount only while the auction is
	// live and amount is strictly greater than the stored value. It reports
	// whether the row changed.
	RaiseCurrentBid(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]model.Bid, error)
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*model.Bid, error)
	MarkWinningBid(ctx context.Context, bidID uuid.UUID) error
}

type auctionRepository struct {
	db *gorm.DB
}

func NewAuctionRepository(db *gorm.DB) AuctionRepository {
	return &auctionRepository{db: db}
}

func (r *auctionRepository) Create(ctx context.Context, auction *model.Auction) error {
	return GetDB(ctx, r.db).Create(auction).Error
}

func (r *auctionRepository) Update(ctx context.Context, auction *model.Auction) error {
	return GetDB(ctx, r.db).Save(auction).Error
}

func (r *auctionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Auction, error) {
	var auction model.Auction
	if err := GetDB(ctx, r.db).First(&auction, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *auctionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Auction, error) {
	var auction model.Auction
	if err := forUpdate(GetDB(ctx, r.db)).First(&auction, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &auction, nil
}

func (r *auctionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AuctionStatus) error {
	return GetDB(ctx, r.db).Model(&model.Auction{}).Where("id = ?", id).Update("status", status).Error
}

func (r *auctionRepository) List(ctx context.Context, status string, page, limit int) ([]model.Auction, int64, error) {
	var auctions []model.Auction
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if status != "" {
			db = db.Where("status = ?", status)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Auction{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(filter, paginate(page, limit)).Order("start_time DESC").Find(&auctions).Error; err != nil {
		return nil, 0, err
	}
	return auctions, total, nil
}

func (r *auctionRepository) ListByStatus(ctx context.Context, statuses ...model.AuctionStatus) ([]model.Auction, error) {
	var auctions []model.Auction
	err := GetDB(ctx, r.db).Where("status IN ?", statuses).Order("start_time ASC").Find(&auctions).Error
	return auctions, err
}

func (r *auctionRepository) AddParticipant(ctx context.Context, p *model.AuctionParticipant) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *auctionRepository) IsParticipant(ctx context.Context, auctionID, vendorID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.AuctionParticipant{}).
		Where("auction_id = ? AND vendor_id = ?", auctionID, vendorID).
		Count(&count).Error
	return count > 0, err
}

func (r *auctionRepository) ListParticipants(ctx context.Context, auctionID uuid.UUID) ([]model.AuctionParticipant, error) {
	var participants []model.AuctionParticipant
	err := GetDB(ctx, r.db).Where("auction_id = ?", auctionID).Order("registered_at ASC").Find(&participants).Error
	return participants, err
}

func (r *auctionRepository) CreateBid(ctx context.Context, bid *model.Bid) error {
	return GetDB(ctx, r.db).Create(bid).Error
}

func (r *auctionRepository) RaiseCurrentBid(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Auction{}).
		Where("id = ? AND status = ? AND (current_bid IS NULL OR current_bid < ?)", id, model.AuctionLive, amount).
		Update("current_bid", amount)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *auctionRepository) ListBids(ctx context.Context, auctionID uuid.UUID) ([]model.Bid, error) {
	var bids []model.Bid
	err := GetDB(ctx, r.db).Where("auction_id = ?", auctionID).Order("placed_at DESC").Find(&bids).Error
	return bids, err
}

// HighestBid breaks ties on the earliest placement
func (r *auctionRepository) HighestBid(ctx context.Context, auctionID uuid.UUID) (*model.Bid, error) {
	var bid model.Bid
	if err := GetDB(ctx, r.db).Where("auction_id = ?", auctionID).Order("amount DESC, placed_at ASC").First(&bid).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *auctionRepository) MarkWinningBid(ctx context.Context, bidID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Bid{}).Where("id = ?", bidID).Update("is_winning", true).Error
}
