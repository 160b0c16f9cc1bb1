package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DirectOrderFilter struct {
	Status    string
	CreatedBy *uuid.UUID
	VendorID  *uuid.UUID
}

type DirectOrderRepository interface {
	Create(ctx context.Context, order *model.DirectOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DirectOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DirectOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.DirectOrderStatus) error
	ReferenceExists(ctx context.Context, ref string) (bool, error)
	List(ctx context.Context, f DirectOrderFilter, page, limit int) ([]model.DirectOrder, int64, error)
}

type directOrderRepository struct {
	db *gorm.DB
}

func NewDirectOrderRepository(db *gorm.DB) DirectOrderRepository {
	return &directOrderRepository{db: db}
}

// Create inserts the order together with its Items
func (r *directOrderRepository) Create(ctx context.Context, order *model.DirectOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *directOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DirectOrder, error) {
	var order model.DirectOrder
	if err := GetDB(ctx, r.db).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *directOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.DirectOrder, error) {
	var order model.DirectOrder
	if err := forUpdate(GetDB(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	// items are read without the lock; only the header row is mutated
	if err := GetDB(ctx, r.db).Where("direct_order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *directOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DirectOrderStatus) error {
	return GetDB(ctx, r.db).Model(&model.DirectOrder{}).Where("id = ?", id).Update("status", status).Error
}

func (r *directOrderRepository) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.DirectOrder{}).Where("reference_no = ?", ref).Count(&count).Error
	return count > 0, err
}

func (r *directOrderRepository) List(ctx context.Context, f DirectOrderFilter, page, limit int) ([]model.DirectOrder, int64, error) {
	var orders []model.DirectOrder
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.CreatedBy != nil {
			db = db.Where("created_by = ?", *f.CreatedBy)
		}
		if f.VendorID != nil {
			db = db.Where("vendor_id = ?", *f.VendorID)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.DirectOrder{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Items").Scopes(filter, paginate(page, limit)).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
