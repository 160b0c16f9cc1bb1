package repository

import (
	"context"
	"strings"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendorFilter struct {
	Status string
	Search string
	UserID *uuid.UUID // restricts the listing to the vendor owned by this login
}

type VendorRepository interface {
	Create(ctx context.Context, vendor *model.Vendor) error
	Update(ctx context.Context, vendor *model.Vendor) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Vendor, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Vendor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.VendorStatus) error
	List(ctx context.Context, f VendorFilter, page, limit int) ([]model.Vendor, int64, error)
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Create(vendor).Error
}

func (r *vendorRepository) Update(ctx context.Context, vendor *model.Vendor) error {
	return GetDB(ctx, r.db).Save(vendor).Error
}

func (r *vendorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Vendor{}).Error
}

func (r *vendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := GetDB(ctx, r.db).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := forUpdate(GetDB(ctx, r.db)).First(&vendor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := GetDB(ctx, r.db).First(&vendor, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Vendor, error) {
	var vendors []model.Vendor
	if len(ids) == 0 {
		return vendors, nil
	}
	err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&vendors).Error
	return vendors, err
}

func (r *vendorRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.VendorStatus) error {
	return GetDB(ctx, r.db).Model(&model.Vendor{}).Where("id = ?", id).Update("status", status).Error
}

func (r *vendorRepository) List(ctx context.Context, f VendorFilter, page, limit int) ([]model.Vendor, int64, error) {
	var vendors []model.Vendor
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.UserID != nil {
			db = db.Where("user_id = ?", *f.UserID)
		}
		if f.Search != "" {
			like := "%" + strings.ToLower(f.Search) + "%"
			db = db.Where("LOWER(company_name) LIKE ? OR LOWER(contact_person) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Vendor{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(filter, paginate(page, limit)).Order("created_at DESC").Find(&vendors).Error; err != nil {
		return nil, 0, err
	}
	return vendors, total, nil
}
