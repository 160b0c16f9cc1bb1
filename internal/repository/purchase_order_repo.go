package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseOrderFilter struct {
	Status    string
	VendorID  *uuid.UUID
	CreatedBy *uuid.UUID
}

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	Update(ctx context.Context, po *model.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	PONumberExists(ctx context.Context, number string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.POStatus) error
	List(ctx context.Context, f PurchaseOrderFilter, page, limit int) ([]model.PurchaseOrder, int64, error)
	ListLineItems(ctx context.Context, poID uuid.UUID) ([]model.POLineItem, error)
	// AdvanceLineItems moves every line item of a PO still in one of from to status
	AdvanceLineItems(ctx context.Context, poID uuid.UUID, status model.LineItemStatus, from ...model.LineItemStatus) (int64, error)
	CountBySource(ctx context.Context, column string, sourceID uuid.UUID) (int64, error)
}

type purchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

// Create inserts the PO together with its LineItems
func (r *purchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit("Vendor").Create(po).Error
}

func (r *purchaseOrderRepository) Update(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit("Vendor", "LineItems").Save(po).Error
}

func (r *purchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("LineItems").
		Preload("Vendor").
		First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := forUpdate(GetDB(ctx, r.db)).First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) PONumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where("po_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *purchaseOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.POStatus) error {
	return GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where("id = ?", id).Update("status", status).Error
}

func (r *purchaseOrderRepository) List(ctx context.Context, f PurchaseOrderFilter, page, limit int) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.VendorID != nil {
			db = db.Where("vendor_id = ?", *f.VendorID)
		}
		if f.CreatedBy != nil {
			db = db.Where("created_by = ?", *f.CreatedBy)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.PurchaseOrder{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.
		Preload("Vendor").
		Scopes(filter, paginate(page, limit)).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *purchaseOrderRepository) ListLineItems(ctx context.Context, poID uuid.UUID) ([]model.POLineItem, error) {
	var items []model.POLineItem
	err := GetDB(ctx, r.db).Where("purchase_order_id = ?", poID).Order("created_at ASC").Find(&items).Error
	return items, err
}

// CountBySource counts POs derived from a given event; column is one of
// rfx_id, auction_id, direct_order_id.
func (r *purchaseOrderRepository) CountBySource(ctx context.Context, column string, sourceID uuid.UUID) (int64, error) {
	var count int64
	switch column {
	case "rfx_id", "auction_id", "direct_order_id":
	default:
		return 0, gorm.ErrInvalidField
	}
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).Where(column+" = ?", sourceID).Count(&count).Error
	return count, err
}

func (r *purchaseOrderRepository) AdvanceLineItems(ctx context.Context, poID uuid.UUID, status model.LineItemStatus, from ...model.LineItemStatus) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.POLineItem{}).
		Where("purchase_order_id = ? AND status IN ?", poID, from).
		Update("status", status)
	return res.RowsAffected, res.Error
}
