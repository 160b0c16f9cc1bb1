package service

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required,max=100"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
	SortOrder   int    `json:"sort_order"`
}

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	ParentID    *string   `json:"parent_id"`
	Level       int       `json:"level"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProductRequest struct {
	ItemName       string                 `json:"item_name" binding:"required"`
	InternalCode   string                 `json:"internal_code"`
	ExternalCode   string                 `json:"external_code"`
	Description    string                 `json:"description"`
	CategoryID     string                 `json:"category_id"`
	UOM            string                 `json:"uom"`
	HSNCode        string                 `json:"hsn_code"`
	BasePrice      string                 `json:"base_price"`
	Specifications map[string]interface{} `json:"specifications"`
	Tags           []string               `json:"tags"`
	IsActive       *bool                  `json:"is_active"`
}

type ProductResponse struct {
	ID             uuid.UUID         `json:"id"`
	ItemName       string            `json:"item_name"`
	InternalCode   string            `json:"internal_code"`
	ExternalCode   string            `json:"external_code"`
	Description    string            `json:"description"`
	CategoryID     *string           `json:"category_id"`
	Category       *CategoryResponse `json:"category,omitempty"`
	UOM            string            `json:"uom"`
	HSNCode        string            `json:"hsn_code"`
	BasePrice      *string           `json:"base_price"`
	Specifications interface{}       `json:"specifications"`
	Tags           []string          `json:"tags"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// --- Interface ---

type CatalogService interface {
	CreateCategory(ctx context.Context, actor Actor, req CreateCategoryRequest) (CategoryResponse, error)
	GetCategories(ctx context.Context, actor Actor, parentID string) ([]CategoryResponse, error)
	CreateProduct(ctx context.Context, actor Actor, req ProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, actor Actor, id string, req ProductRequest) (ProductResponse, error)
	DeleteProduct(ctx context.Context, actor Actor, id string) error
	GetProducts(ctx context.Context, actor Actor, categoryID, search string, page, limit int) ([]ProductResponse, int64, error)
}

type catalogService struct {
	productRepo repository.ProductRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewCatalogService(productRepo repository.ProductRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) CatalogService {
	return &catalogService{productRepo: productRepo, auditRepo: auditRepo, txManager: txManager}
}

// --- Categories ---

// CreateCategory places the node one level below its parent
func (s *catalogService) CreateCategory(ctx context.Context, actor Actor, req CreateCategoryRequest) (CategoryResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return CategoryResponse{}, err
	}
	parentID, err := parseOptionalID("parent_id", req.ParentID)
	if err != nil {
		return CategoryResponse{}, err
	}

	category := &model.ProductCategory{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		ParentID:    parentID,
		Level:       1,
		SortOrder:   req.SortOrder,
		IsActive:    true,
		CreatedBy:   actor.UserID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if parentID != nil {
			parent, err := s.productRepo.FindCategoryByID(txCtx, *parentID)
			if err != nil {
				return dbError("parent category", err)
			}
			category.Level = parent.Level + 1
		}
		if err := s.productRepo.CreateCategory(txCtx, category); err != nil {
			return dbError("category code", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionCreateCategory, category.ID.String(), category.Name, req)
	})
	if err != nil {
		return CategoryResponse{}, err
	}
	return toCategoryResponse(*category), nil
}

func (s *catalogService) GetCategories(ctx context.Context, actor Actor, parentID string) ([]CategoryResponse, error) {
	if err := actor.require(); err != nil {
		return nil, err
	}
	pid, err := parseOptionalID("parent_id", parentID)
	if err != nil {
		return nil, err
	}
	categories, err := s.productRepo.ListCategories(ctx, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	res := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		res = append(res, toCategoryResponse(c))
	}
	return res, nil
}

// --- Products ---

func (s *catalogService) CreateProduct(ctx context.Context, actor Actor, req ProductRequest) (ProductResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return ProductResponse{}, err
	}
	product := &model.Product{IsActive: true, CreatedBy: actor.UserID}
	if err := applyProduct(product, req); err != nil {
		return ProductResponse{}, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkCategory(txCtx, product.CategoryID); err != nil {
			return err
		}
		if err := s.productRepo.Create(txCtx, product); err != nil {
			return dbError("product", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionCreateProduct, product.ID.String(), product.ItemName, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(*product), nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actor Actor, id string, req ProductRequest) (ProductResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return ProductResponse{}, err
	}
	pid, err := parseID("id", id)
	if err != nil {
		return ProductResponse{}, err
	}

	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err = s.productRepo.FindByID(txCtx, pid)
		if err != nil {
			return dbError("product", err)
		}
		if err := applyProduct(product, req); err != nil {
			return err
		}
		if err := s.checkCategory(txCtx, product.CategoryID); err != nil {
			return err
		}
		product.Category = nil
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return dbError("product", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionUpdateProduct, product.ID.String(), product.ItemName, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(*product), nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	if err := actor.require(model.RoleBuyerAdmin, model.RoleSourcingManager); err != nil {
		return err
	}
	pid, err := parseID("id", id)
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err := s.productRepo.FindByID(txCtx, pid)
		if err != nil {
			return dbError("product", err)
		}
		if err := s.productRepo.Delete(txCtx, pid); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionDeleteProduct, pid.String(), product.ItemName, nil)
	})
}

func (s *catalogService) GetProducts(ctx context.Context, actor Actor, categoryID, search string, page, limit int) ([]ProductResponse, int64, error) {
	if err := actor.require(); err != nil {
		return nil, 0, err
	}
	cid, err := parseOptionalID("category_id", categoryID)
	if err != nil {
		return nil, 0, err
	}
	// vendors only browse the live catalog
	f := repository.ProductFilter{CategoryID: cid, Search: search, ActiveOnly: actor.IsVendor()}
	products, total, err := s.productRepo.List(ctx, f, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res, total, nil
}

func (s *catalogService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.productRepo.FindCategoryByID(ctx, *id); err != nil {
		return dbError("category", err)
	}
	return nil
}

func applyProduct(p *model.Product, req ProductRequest) error {
	categoryID, err := parseOptionalID("category_id", req.CategoryID)
	if err != nil {
		return err
	}
	price, err := parseOptionalAmount("base_price", req.BasePrice)
	if err != nil {
		return err
	}
	p.ItemName = req.ItemName
	p.InternalCode = req.InternalCode
	p.ExternalCode = req.ExternalCode
	p.Description = req.Description
	p.CategoryID = categoryID
	p.UOM = req.UOM
	p.HSNCode = req.HSNCode
	p.BasePrice = price
	p.Specifications = jsonValue(req.Specifications)
	p.Tags = jsonValue(req.Tags)
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return nil
}

func toCategoryResponse(c model.ProductCategory) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Code:        c.Code,
		Description: c.Description,
		ParentID:    optionalID(c.ParentID),
		Level:       c.Level,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
	}
}

func toProductResponse(p model.Product) ProductResponse {
	res := ProductResponse{
		ID:             p.ID,
		ItemName:       p.ItemName,
		InternalCode:   p.InternalCode,
		ExternalCode:   p.ExternalCode,
		Description:    p.Description,
		CategoryID:     optionalID(p.CategoryID),
		UOM:            p.UOM,
		HSNCode:        p.HSNCode,
		BasePrice:      nullString(p.BasePrice),
		Specifications: p.Specifications,
		Tags:           stringList(p.Tags),
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.Category != nil {
		c := toCategoryResponse(*p.Category)
		res.Category = &c
	}
	return res
}
