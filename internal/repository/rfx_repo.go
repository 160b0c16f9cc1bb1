package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RFxFilter struct {
	Type      string
	Status    string
	CreatedBy *uuid.UUID
	VendorID  *uuid.UUID // only events this vendor is invited to
}

type RFxRepository interface {
	Create(ctx context.Context, rfx *model.RFxEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RFxEvent, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.RFxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.RFxStatus) error
	List(ctx context.Context, f RFxFilter, page, limit int) ([]model.RFxEvent, int64, error)

	// CreateInvitations skips vendors that are already invited
	CreateInvitations(ctx context.Context, invitations []model.RFxInvitation) (int64, error)
	FindInvitation(ctx context.Context, rfxID, vendorID uuid.UUID) (*model.RFxInvitation, error)
	ListInvitations(ctx context.Context, rfxID uuid.UUID) ([]model.RFxInvitation, error)
	UpdateInvitation(ctx context.Context, inv *model.RFxInvitation) error

	CreateResponse(ctx context.Context, resp *model.RFxResponse) error
	ListResponses(ctx context.Context, rfxID uuid.UUID, vendorID *uuid.UUID) ([]model.RFxResponse, error)
}

type rfxRepository struct {
	db *gorm.DB
}

func NewRFxRepository(db *gorm.DB) RFxRepository {
	return &rfxRepository{db: db}
}

func (r *rfxRepository) Create(ctx context.Context, rfx *model.RFxEvent) error {
	return GetDB(ctx, r.db).Omit("Invitations").Create(rfx).Error
}

func (r *rfxRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RFxEvent, error) {
	var rfx model.RFxEvent
	if err := GetDB(ctx, r.db).Preload("Invitations").Preload("Invitations.Vendor").First(&rfx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rfx, nil
}

func (r *rfxRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.RFxEvent, error) {
	var rfx model.RFxEvent
	if err := forUpdate(GetDB(ctx, r.db)).First(&rfx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rfx, nil
}

func (r *rfxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.RFxStatus) error {
	return GetDB(ctx, r.db).Model(&model.RFxEvent{}).Where("id = ?", id).Update("status", status).Error
}

func (r *rfxRepository) List(ctx context.Context, f RFxFilter, page, limit int) ([]model.RFxEvent, int64, error) {
	var events []model.RFxEvent
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if f.Type != "" {
			db = db.Where("type = ?", f.Type)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.CreatedBy != nil {
			db = db.Where("created_by = ?", *f.CreatedBy)
		}
		if f.VendorID != nil {
			db = db.Where("id IN (?)", GetDB(ctx, r.db).Model(&model.RFxInvitation{}).Select("rfx_id").Where("vendor_id = ?", *f.VendorID))
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.RFxEvent{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(filter, paginate(page, limit)).Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *rfxRepository) CreateInvitations(ctx context.Context, invitations []model.RFxInvitation) (int64, error) {
	if len(invitations) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&invitations)
	return res.RowsAffected, res.Error
}

func (r *rfxRepository) FindInvitation(ctx context.Context, rfxID, vendorID uuid.UUID) (*model.RFxInvitation, error) {
	var inv model.RFxInvitation
	if err := GetDB(ctx, r.db).First(&inv, "rfx_id = ? AND vendor_id = ?", rfxID, vendorID).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *rfxRepository) ListInvitations(ctx context.Context, rfxID uuid.UUID) ([]model.RFxInvitation, error) {
	var invitations []model.RFxInvitation
	err := GetDB(ctx, r.db).Where("rfx_id = ?", rfxID).Order("created_at ASC").Find(&invitations).Error
	return invitations, err
}

func (r *rfxRepository) UpdateInvitation(ctx context.Context, inv *model.RFxInvitation) error {
	return GetDB(ctx, r.db).Omit("Vendor").Save(inv).Error
}

func (r *rfxRepository) CreateResponse(ctx context.Context, resp *model.RFxResponse) error {
	return GetDB(ctx, r.db).Create(resp).Error
}

func (r *rfxRepository) ListResponses(ctx context.Context, rfxID uuid.UUID, vendorID *uuid.UUID) ([]model.RFxResponse, error) {
	var responses []model.RFxResponse
	db := GetDB(ctx, r.db).Where("rfx_id = ?", rfxID)
	if vendorID != nil {
		db = db.Where("vendor_id = ?", *vendorID)
	}
	err := db.Order("quoted_price ASC, submitted_at ASC").Find(&responses).Error
	return responses, err
}
