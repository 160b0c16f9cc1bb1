package repository

import (
	"context"
	"strings"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
	ActiveOnly bool
}

// ProductRepository covers the catalog: categories and products.
type ProductRepository interface {
	CreateCategory(ctx context.Context, category *model.ProductCategory) error
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*model.ProductCategory, error)
	ListCategories(ctx context.Context, parentID *uuid.UUID) ([]model.ProductCategory, error)

	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, f ProductFilter, page, limit int) ([]model.Product, int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) CreateCategory(ctx context.Context, category *model.ProductCategory) error {
	return GetDB(ctx, r.db).Create(category).Error
}

func (r *productRepository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*model.ProductCategory, error) {
	var category model.ProductCategory
	if err := GetDB(ctx, r.db).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories returns the children of parentID, or the roots when nil
func (r *productRepository) ListCategories(ctx context.Context, parentID *uuid.UUID) ([]model.ProductCategory, error) {
	var categories []model.ProductCategory
	db := GetDB(ctx, r.db).Where("is_active = ?", true)
	if parentID != nil {
		db = db.Where("parent_id = ?", *parentID)
	} else {
		db = db.Where("parent_id IS NULL")
	}
	err := db.Order("sort_order ASC, name ASC").Find(&categories).Error
	return categories, err
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit("Category").Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, f ProductFilter, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if f.CategoryID != nil {
			db = db.Where("category_id = ?", *f.CategoryID)
		}
		if f.ActiveOnly {
			db = db.Where("is_active = ?", true)
		}
		if f.Search != "" {
			like := "%" + strings.ToLower(f.Search) + "%"
			db = db.Where("LOWER(item_name) LIKE ? OR LOWER(internal_code) LIKE ? OR LOWER(hsn_code) LIKE ?", like, like, like)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Product{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Category").Scopes(filter, paginate(page, limit)).Order("item_name ASC").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}
