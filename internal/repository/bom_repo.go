package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BOMRepository interface {
	Create(ctx context.Context, bom *model.BOM) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.BOM, error)
	ExistsByNameVersion(ctx context.Context, name, version string) (bool, error)
	List(ctx context.Context, page, limit int) ([]model.BOM, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type bomRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) BOMRepository {
	return &bomRepository{db: db}
}

// Create inserts the BOM together with its Items
func (r *bomRepository) Create(ctx context.Context, bom *model.BOM) error {
	return GetDB(ctx, r.db).Create(bom).Error
}

func (r *bomRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.BOM, error) {
	var bom model.BOM
	if err := GetDB(ctx, r.db).Preload("Items").First(&bom, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bom, nil
}

func (r *bomRepository) ExistsByNameVersion(ctx context.Context, name, version string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.BOM{}).Where("name = ? AND version = ?", name, version).Count(&count).Error
	return count > 0, err
}

func (r *bomRepository) List(ctx context.Context, page, limit int) ([]model.BOM, int64, error) {
	var boms []model.BOM
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.BOM{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Items").Scopes(paginate(page, limit)).Order("created_at DESC").Find(&boms).Error; err != nil {
		return nil, 0, err
	}
	return boms, total, nil
}

func (r *bomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("bom_id = ?", id).Delete(&model.BOMItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.BOM{}).Error
}
