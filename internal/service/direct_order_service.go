package service

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type DirectOrderItemPayload struct {
	ProductID      string `json:"product_id"`
	ItemName       string `json:"item_name" binding:"required"`
	Quantity       string `json:"quantity" binding:"required"`
	UnitPrice      string `json:"unit_price" binding:"required"`
	TotalPrice     string `json:"total_price"`
	Specifications string `json:"specifications"`
}

type CreateDirectOrderRequest struct {
	VendorID     string                   `json:"vendor_id" binding:"required"`
	BOMID        string                   `json:"bom_id"`
	Priority     string                   `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DeliveryDate string                   `json:"delivery_date"`
	PaymentTerms string                   `json:"payment_terms"`
	Notes        string                   `json:"notes"`
	Items        []DirectOrderItemPayload `json:"items" binding:"required,min=1,dive"`
}

type DirectOrderItemResponse struct {
	ID             uuid.UUID `json:"id"`
	ProductID      *string   `json:"product_id"`
	ItemName       string    `json:"item_name"`
	Quantity       string    `json:"quantity"`
	UnitPrice      string    `json:"unit_price"`
	TotalPrice     string    `json:"total_price"`
	Specifications string    `json:"specifications"`
}

type DirectOrderResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	ReferenceNo        string                    `json:"reference_no"`
	BOMID              *string                   `json:"bom_id"`
	VendorID           uuid.UUID                 `json:"vendor_id"`
	TotalAmount        string                    `json:"total_amount"`
	Status             string                    `json:"status"`
	Priority           string                    `json:"priority"`
	DeliveryDate       *string                   `json:"delivery_date"`
	PaymentTerms       string                    `json:"payment_terms"`
	Notes              string                    `json:"notes"`
	CreatedBy          uuid.UUID                 `json:"created_by"`
	Items              []DirectOrderItemResponse `json:"items"`
	AllowedTransitions []string                  `json:"allowed_transitions"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// --- Interface ---

type DirectOrderService interface {
	CreateDirectOrder(ctx context.Context, actor Actor, req CreateDirectOrderRequest) (DirectOrderResponse, error)
	GetDirectOrder(ctx context.Context, actor Actor, id string) (DirectOrderResponse, error)
	GetDirectOrders(ctx context.Context, actor Actor, status string, page, limit int) ([]DirectOrderResponse, int64, error)
	Submit(ctx context.Context, actor Actor, id string) (DirectOrderResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateStatusRequest) (DirectOrderResponse, error)
}

type directOrderService struct {
	orderRepo    repository.DirectOrderRepository
	vendorRepo   repository.VendorRepository
	approvalRepo repository.ApprovalRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	reference    func() string
}

func NewDirectOrderService(orderRepo repository.DirectOrderRepository, vendorRepo repository.VendorRepository, approvalRepo repository.ApprovalRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) DirectOrderService {
	return &directOrderService{
		orderRepo:    orderRepo,
		vendorRepo:   vendorRepo,
		approvalRepo: approvalRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		reference:    func() string { return referenceNumber("DO") },
	}
}

// reserved statuses are owned by other workflows
var directOrderReserved = map[model.DirectOrderStatus]string{
	model.DirectOrderPendingApproval: "use submit",
	model.DirectOrderApproved:        "decided through approvals",
	model.DirectOrderRejected:        "decided through approvals",
	model.DirectOrderSubmitted:       "set when a purchase order is generated",
}

// --- Implementation ---

func (s *directOrderService) CreateDirectOrder(ctx context.Context, actor Actor, req CreateDirectOrderRequest) (DirectOrderResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return DirectOrderResponse{}, err
	}
	vendorID, err := parseID("vendor_id", req.VendorID)
	if err != nil {
		return DirectOrderResponse{}, err
	}
	bomID, err := parseOptionalID("bom_id", req.BOMID)
	if err != nil {
		return DirectOrderResponse{}, err
	}
	delivery, err := parseOptionalDate("delivery_date", req.DeliveryDate)
	if err != nil {
		return DirectOrderResponse{}, err
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if len(req.Items) == 0 {
		return DirectOrderResponse{}, invalid("items", "at least one item is required")
	}

	order := &model.DirectOrder{
		BOMID:        bomID,
		VendorID:     vendorID,
		Status:       model.DirectOrderDraft,
		Priority:     req.Priority,
		DeliveryDate: delivery,
		PaymentTerms: req.PaymentTerms,
		Notes:        req.Notes,
		CreatedBy:    actor.UserID,
	}
	total := decimal.Zero
	for i, it := range req.Items {
		prefix := fmt.Sprintf("items[%d]", i)
		productID, err := parseOptionalID(prefix+".product_id", it.ProductID)
		if err != nil {
			return DirectOrderResponse{}, err
		}
		qty, unit, line, err := lineAmounts(prefix, it.Quantity, it.UnitPrice, it.TotalPrice)
		if err != nil {
			return DirectOrderResponse{}, err
		}
		total = total.Add(line)
		order.Items = append(order.Items, model.DirectOrderItem{
			ProductID:      productID,
			ItemName:       it.ItemName,
			Quantity:       qty,
			UnitPrice:      unit,
			TotalPrice:     line,
			Specifications: it.Specifications,
		})
	}
	order.TotalAmount = total

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err := s.vendorRepo.FindByID(txCtx, vendorID)
		if err != nil {
			return dbError("vendor", err)
		}
		if vendor.Status != model.VendorApproved {
			return invalid("vendor_id", "vendor is %s, only approved vendors can receive orders", vendor.Status)
		}
		ref, err := s.uniqueReference(txCtx)
		if err != nil {
			return err
		}
		order.ReferenceNo = ref
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return dbError("direct order", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionCreateDirectOrder, order.ID.String(), order.ReferenceNo, req)
	})
	if err != nil {
		return DirectOrderResponse{}, err
	}
	return toDirectOrderResponse(*order), nil
}

func (s *directOrderService) GetDirectOrder(ctx context.Context, actor Actor, id string) (DirectOrderResponse, error) {
	if err := actor.require(); err != nil {
		return DirectOrderResponse{}, err
	}
	oid, err := parseID("id", id)
	if err != nil {
		return DirectOrderResponse{}, err
	}
	order, err := s.orderRepo.FindByID(ctx, oid)
	if err != nil {
		return DirectOrderResponse{}, dbError("direct order", err)
	}
	if actor.IsVendor() {
		vendor, err := vendorFor(ctx, s.vendorRepo, actor)
		if err != nil {
			return DirectOrderResponse{}, err
		}
		if order.VendorID != vendor.ID {
			return DirectOrderResponse{}, fmt.Errorf("direct order %w", ErrNotFound)
		}
	}
	return toDirectOrderResponse(*order), nil
}

func (s *directOrderService) GetDirectOrders(ctx context.Context, actor Actor, status string, page, limit int) ([]DirectOrderResponse, int64, error) {
	if err := actor.require(); err != nil {
		return nil, 0, err
	}
	f := repository.DirectOrderFilter{Status: status}
	if actor.IsVendor() {
		vendor, err := vendorFor(ctx, s.vendorRepo, actor)
		if err != nil {
			return nil, 0, err
		}
		f.VendorID = &vendor.ID
	}
	orders, total, err := s.orderRepo.List(ctx, f, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch direct orders: %w", err)
	}
	res := make([]DirectOrderResponse, 0, len(orders))
	for _, o := range orders {
		res = append(res, toDirectOrderResponse(o))
	}
	return res, total, nil
}

// Submit sends a draft to the approval gate
func (s *directOrderService) Submit(ctx context.Context, actor Actor, id string) (DirectOrderResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return DirectOrderResponse{}, err
	}
	oid, err := parseID("id", id)
	if err != nil {
		return DirectOrderResponse{}, err
	}

	var order *model.DirectOrder
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, oid)
		if err != nil {
			return dbError("direct order", err)
		}
		if order.CreatedBy != actor.UserID {
			return denied("only the creator can submit this order")
		}
		if err := s.transition(txCtx, actor, order, model.DirectOrderPendingApproval); err != nil {
			return err
		}
		requester := actor.UserID
		return s.approvalRepo.Create(txCtx, &model.ApprovalRecord{
			EntityType:  model.ApprovalEntityDirectOrder,
			EntityID:    order.ID,
			RequestedBy: &requester,
			Status:      model.ApprovalPending,
		})
	})
	if err != nil {
		return DirectOrderResponse{}, err
	}
	return toDirectOrderResponse(*order), nil
}

// UpdateStatus covers the moves no other workflow owns: cancel and complete
func (s *directOrderService) UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateStatusRequest) (DirectOrderResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return DirectOrderResponse{}, err
	}
	oid, err := parseID("id", id)
	if err != nil {
		return DirectOrderResponse{}, err
	}
	next := model.DirectOrderStatus(req.Status)
	if !workflow.DirectOrder.Known(next) {
		return DirectOrderResponse{}, invalid("status", "unknown direct order status %q", req.Status)
	}
	if why, reserved := directOrderReserved[next]; reserved {
		return DirectOrderResponse{}, fmt.Errorf("status %s is %s: %w", next, why, ErrInvalidTransition)
	}

	var order *model.DirectOrder
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, oid)
		if err != nil {
			return dbError("direct order", err)
		}
		if order.CreatedBy != actor.UserID && !actor.HasRole(approverRoles...) {
			return denied("only the creator or an approver can change this order")
		}
		return s.transition(txCtx, actor, order, next)
	})
	if err != nil {
		return DirectOrderResponse{}, err
	}
	return toDirectOrderResponse(*order), nil
}

func (s *directOrderService) transition(ctx context.Context, actor Actor, order *model.DirectOrder, next model.DirectOrderStatus) error {
	if err := workflow.DirectOrder.Check(order.Status, next); err != nil {
		return err
	}
	from := order.Status
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, next); err != nil {
		return fmt.Errorf("failed to update direct order status: %w", err)
	}
	order.Status = next
	return writeAudit(ctx, s.auditRepo, &actor, model.ActionUpdateDirectOrder, order.ID.String(), order.ReferenceNo,
		map[string]string{"from": string(from), "to": string(next)})
}

func (s *directOrderService) uniqueReference(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ref := s.reference()
		exists, err := s.orderRepo.ReferenceExists(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("failed to check reference number: %w", err)
		}
		if !exists {
			return ref, nil
		}
	}
	return "", fmt.Errorf("could not allocate a direct order reference: %w", ErrConflict)
}

func toDirectOrderResponse(o model.DirectOrder) DirectOrderResponse {
	res := DirectOrderResponse{
		ID:           o.ID,
		ReferenceNo:  o.ReferenceNo,
		BOMID:        optionalID(o.BOMID),
		VendorID:     o.VendorID,
		TotalAmount:  o.TotalAmount.StringFixed(2),
		Status:       string(o.Status),
		Priority:     o.Priority,
		DeliveryDate: formatDate(o.DeliveryDate),
		PaymentTerms: o.PaymentTerms,
		Notes:        o.Notes,
		CreatedBy:    o.CreatedBy,
		Items:        make([]DirectOrderItemResponse, 0, len(o.Items)),
		CreatedAt:    o.CreatedAt,
	}
	for _, it := range o.Items {
		res.Items = append(res.Items, DirectOrderItemResponse{
			ID:             it.ID,
			ProductID:      optionalID(it.ProductID),
			ItemName:       it.ItemName,
			Quantity:       it.Quantity.String(),
			UnitPrice:      it.UnitPrice.StringFixed(2),
			TotalPrice:     it.TotalPrice.StringFixed(2),
			Specifications: it.Specifications,
		})
	}
	for _, st := range workflow.DirectOrder.Next(o.Status) {
		if _, reserved := directOrderReserved[st]; !reserved {
			res.AllowedTransitions = append(res.AllowedTransitions, string(st))
		}
	}
	return res
}
