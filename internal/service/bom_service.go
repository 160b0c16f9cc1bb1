package service

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BOMItemPayload struct {
	ProductID      string                 `json:"product_id"`
	ItemName       string                 `json:"item_name" binding:"required"`
	ItemCode       string                 `json:"item_code"`
	Quantity       string                 `json:"quantity" binding:"required"`
	UOM            string                 `json:"uom"`
	UnitPrice      string                 `json:"unit_price"`
	TotalPrice     string                 `json:"total_price"`
	Specifications map[string]interface{} `json:"specifications"`
}

type CreateBOMRequest struct {
	Name        string           `json:"name" binding:"required"`
	Version     string           `json:"version"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Items       []BOMItemPayload `json:"items" binding:"dive"`
}

type BOMItemResponse struct {
	ID             uuid.UUID   `json:"id"`
	ProductID      *string     `json:"product_id"`
	ItemName       string      `json:"item_name"`
	ItemCode       string      `json:"item_code"`
	Quantity       string      `json:"quantity"`
	UOM            string      `json:"uom"`
	UnitPrice      string      `json:"unit_price"`
	TotalPrice     string      `json:"total_price"`
	Specifications interface{} `json:"specifications"`
}

type BOMResponse struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	IsActive    bool              `json:"is_active"`
	TotalCost   string            `json:"total_cost"`
	Items       []BOMItemResponse `json:"items"`
	CreatedBy   uuid.UUID         `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
}

type BOMService interface {
	CreateBOM(ctx context.Context, actor Actor, req CreateBOMRequest) (BOMResponse, error)
	GetBOM(ctx context.Context, actor Actor, id string) (BOMResponse, error)
	GetBOMs(ctx context.Context, actor Actor, page, limit int) ([]BOMResponse, int64, error)
	DeleteBOM(ctx context.Context, actor Actor, id string) error
}

type bomService struct {
	bomRepo   repository.BOMRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewBOMService(bomRepo repository.BOMRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) BOMService {
	return &bomService{bomRepo: bomRepo, auditRepo: auditRepo, txManager: txManager}
}

func (s *bomService) CreateBOM(ctx context.Context, actor Actor, req CreateBOMRequest) (BOMResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return BOMResponse{}, err
	}
	if req.Version == "" {
		req.Version = "1.0"
	}

	bom := &model.BOM{
		Name:        req.Name,
		Version:     req.Version,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    true,
		CreatedBy:   actor.UserID,
	}
	for i, it := range req.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		productID, err := parseOptionalID(prefix+".product_id", it.ProductID)
		if err != nil {
			return BOMResponse{}, err
		}
		unitPrice := it.UnitPrice
		if unitPrice == "" {
			unitPrice = "0"
		}
		qty, unit, total, err := lineAmounts(prefix, it.Quantity, unitPrice, it.TotalPrice)
		if err != nil {
			return BOMResponse{}, err
		}
		bom.Items = append(bom.Items, model.BOMItem{
			ProductID:      productID,
			ItemName:       it.ItemName,
			ItemCode:       it.ItemCode,
			Quantity:       qty,
			UOM:            it.UOM,
			UnitPrice:      unit,
			TotalPrice:     total,
			Specifications: jsonValue(it.Specifications),
		})
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		exists, err := s.bomRepo.ExistsByNameVersion(txCtx, bom.Name, bom.Version)
		if err != nil {
			return fmt.Errorf("failed to check BOM version: %w", err)
		}
		if exists {
			return fmt.Errorf("BOM %q version %s: %w", bom.Name, bom.Version, ErrConflict)
		}
		if err := s.bomRepo.Create(txCtx, bom); err != nil {
			return dbError("BOM", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionCreateBOM, bom.ID.String(), bom.Name+" v"+bom.Version, req)
	})
	if err != nil {
		return BOMResponse{}, err
	}
	return toBOMResponse(*bom), nil
}

func (s *bomService) GetBOM(ctx context.Context, actor Actor, id string) (BOMResponse, error) {
	if err := actor.require(); err != nil {
		return BOMResponse{}, err
	}
	bid, err := parseID("id", id)
	if err != nil {
		return BOMResponse{}, err
	}
	bom, err := s.bomRepo.FindByID(ctx, bid)
	if err != nil {
		return BOMResponse{}, dbError("BOM", err)
	}
	return toBOMResponse(*bom), nil
}

func (s *bomService) GetBOMs(ctx context.Context, actor Actor, page, limit int) ([]BOMResponse, int64, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return nil, 0, err
	}
	boms, total, err := s.bomRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch BOMs: %w", err)
	}
	res := make([]BOMResponse, 0, len(boms))
	for _, b := range boms {
		res = append(res, toBOMResponse(b))
	}
	return res, total, nil
}

func (s *bomService) DeleteBOM(ctx context.Context, actor Actor, id string) error {
	if err := actor.require(buyerRoles...); err != nil {
		return err
	}
	bid, err := parseID("id", id)
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		bom, err := s.bomRepo.FindByID(txCtx, bid)
		if err != nil {
			return dbError("BOM", err)
		}
		if bom.CreatedBy != actor.UserID && !actor.HasRole(model.RoleBuyerAdmin) {
			return denied("only the creator or a buyer admin can delete a BOM")
		}
		if err := s.bomRepo.Delete(txCtx, bid); err != nil {
			return fmt.Errorf("failed to delete BOM: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionDeleteBOM, bid.String(), bom.Name, nil)
	})
}

func toBOMResponse(b model.BOM) BOMResponse {
	res := BOMResponse{
		ID:          b.ID,
		Name:        b.Name,
		Version:     b.Version,
		Description: b.Description,
		Category:    b.Category,
		IsActive:    b.IsActive,
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt,
		Items:       make([]BOMItemResponse, 0, len(b.Items)),
	}
	total := decimal.Zero
	for _, it := range b.Items {
		total = total.Add(it.TotalPrice)
		res.Items = append(res.Items, BOMItemResponse{
			ID:             it.ID,
			ProductID:      optionalID(it.ProductID),
			ItemName:       it.ItemName,
			ItemCode:       it.ItemCode,
			Quantity:       it.Quantity.String(),
			UOM:            it.UOM,
			UnitPrice:      it.UnitPrice.StringFixed(2),
			TotalPrice:     it.TotalPrice.StringFixed(2),
			Specifications: it.Specifications,
		})
	}
	res.TotalCost = total.StringFixed(2)
	return res
}
