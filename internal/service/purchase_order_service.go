package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// poNumberAttempts bounds the generate-check-insert loop
const poNumberAttempts = 2

var errPONumberTaken = errors.New("po number taken")

// --- DTOs ---

type LineItemPayload struct {
	ProductID    string `json:"product_id"`
	ItemName     string `json:"item_name" binding:"required"`
	Quantity     string `json:"quantity" binding:"required"`
	UnitPrice    string `json:"unit_price" binding:"required"`
	TotalPrice   string `json:"total_price"`
	DeliveryDate string `json:"delivery_date"`
}

// CreatePORequest derives a purchase order from a sourcing event. VendorID
// is only read for RFx events; auctions and direct orders carry their vendor.
type CreatePORequest struct {
	VendorID           string            `json:"vendor_id"`
	TotalAmount        string            `json:"total_amount"`
	PaymentTerms       string            `json:"payment_terms"`
	TermsAndConditions string            `json:"terms_and_conditions"`
	Notes              string            `json:"notes"`
	DeliveryDate       string            `json:"delivery_date"`
	LineItems          []LineItemPayload `json:"line_items" binding:"dive"`
	SaveAsDraft        bool              `json:"save_as_draft"`
}

type POLineItemResponse struct {
	ID           uuid.UUID `json:"id"`
	ProductID    *string   `json:"product_id"`
	ItemName     string    `json:"item_name"`
	Quantity     string    `json:"quantity"`
	UnitPrice    string    `json:"unit_price"`
	TotalPrice   string    `json:"total_price"`
	DeliveryDate *string   `json:"delivery_date"`
	Status       string    `json:"status"`
}

type PurchaseOrderResponse struct {
	ID                 uuid.UUID            `json:"id"`
	PONumber           string               `json:"po_number"`
	VendorID           uuid.UUID            `json:"vendor_id"`
	VendorName         string               `json:"vendor_name,omitempty"`
	RFxID              *string              `json:"rfx_id"`
	AuctionID          *string              `json:"auction_id"`
	DirectOrderID      *string              `json:"direct_order_id"`
	TotalAmount        string               `json:"total_amount"`
	Status             string               `json:"status"`
	PaymentTerms       string               `json:"payment_terms"`
	TermsAndConditions string               `json:"terms_and_conditions"`
	Notes              string               `json:"notes"`
	DeliveryDate       *string              `json:"delivery_date"`
	IssuedAt           *time.Time           `json:"issued_at"`
	AcknowledgedAt     *time.Time           `json:"acknowledged_at"`
	CreatedBy          uuid.UUID            `json:"created_by"`
	LineItems          []POLineItemResponse `json:"line_items,omitempty"`
	AllowedTransitions []string             `json:"allowed_transitions"`
	CreatedAt          time.Time            `json:"created_at"`
}

// --- Interface ---

type PurchaseOrderService interface {
	DeriveFromRFx(ctx context.Context, actor Actor, rfxID string, req CreatePORequest) (PurchaseOrderResponse, error)
	DeriveFromAuction(ctx context.Context, actor Actor, auctionID string, req CreatePORequest) (PurchaseOrderResponse, error)
	DeriveFromDirectOrder(ctx context.Context, actor Actor, orderID string, req CreatePORequest) (PurchaseOrderResponse, error)

	GetPurchaseOrder(ctx context.Context, actor Actor, id string) (PurchaseOrderResponse, error)
	GetPurchaseOrders(ctx context.Context, actor Actor, status string, page, limit int) ([]PurchaseOrderResponse, int64, error)
	GetLineItems(ctx context.Context, actor Actor, id string) ([]POLineItemResponse, error)

	Submit(ctx context.Context, actor Actor, id string) (PurchaseOrderResponse, error)
	Issue(ctx context.Context, actor Actor, id string) (PurchaseOrderResponse, error)
	Acknowledge(ctx context.Context, actor Actor, id string) (PurchaseOrderResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateStatusRequest) (PurchaseOrderResponse, error)
}

type purchaseOrderService struct {
	poRepo       repository.PurchaseOrderRepository
	rfxRepo      repository.RFxRepository
	auctionRepo  repository.AuctionRepository
	orderRepo    repository.DirectOrderRepository
	vendorRepo   repository.VendorRepository
	approvalRepo repository.ApprovalRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	notifier     *notifier
	poNumber     func() string
	now          func() time.Time
}

// PurchaseOrderRepos groups the stores the PO generator reads and writes
type PurchaseOrderRepos struct {
	PurchaseOrders repository.PurchaseOrderRepository
	RFx            repository.RFxRepository
	Auctions       repository.AuctionRepository
	DirectOrders   repository.DirectOrderRepository
	Vendors        repository.VendorRepository
	Approvals      repository.ApprovalRepository
	Audit          repository.AuditRepository
	Notifications  repository.NotificationRepository
}

func NewPurchaseOrderService(repos PurchaseOrderRepos, txManager repository.TransactionManager, pusher Pusher) PurchaseOrderService {
	return &purchaseOrderService{
		poRepo:       repos.PurchaseOrders,
		rfxRepo:      repos.RFx,
		auctionRepo:  repos.Auctions,
		orderRepo:    repos.DirectOrders,
		vendorRepo:   repos.Vendors,
		approvalRepo: repos.Approvals,
		auditRepo:    repos.Audit,
		txManager:    txManager,
		notifier:     newNotifier(repos.Notifications, pusher),
		poNumber:     func() string { return referenceNumber("PO") },
		now:          time.Now,
	}
}

// --- Derivation ---

// DeriveFromRFx raises a PO for one invited vendor of a closed RFx. Without
// an explicit amount the vendor's lowest quote is used.
func (s *purchaseOrderService) DeriveFromRFx(ctx context.Context, actor Actor, rfxID string, req CreatePORequest) (PurchaseOrderResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return PurchaseOrderResponse{}, err
	}
	rid, err := parseID("id", rfxID)
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	vendorID, err := parseID("vendor_id", req.VendorID)
	if err != nil {
		return PurchaseOrderResponse{}, err
	}

	var po *model.PurchaseOrder
	var sent []*model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rfx, err := s.rfxRepo.FindByIDForUpdate(txCtx, rid)
		if err != nil {
			return dbError("RFx", err)
		}
		if rfx.CreatedBy != actor.UserID {
			return denied("only the creator can raise a purchase order for this RFx")
		}
		if rfx.Status != model.RFxClosed {
			return fmt.Errorf("RFx is %s, purchase orders require a closed RFx: %w", rfx.Status, ErrInvalidTransition)
		}
		if _, err := s.rfxRepo.FindInvitation(txCtx, rid, vendorID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("vendor_id", "vendor was not invited to this RFx")
			}
			return fmt.Errorf("failed to load invitation: %w", err)
		}
		vendor, err := s.approvedVendor(txCtx, vendorID)
		if err != nil {
			return err
		}

		var quote decimal.NullDecimal
		offers, err := s.rfxRepo.ListResponses(txCtx, rid, &vendorID)
		if err != nil {
			return fmt.Errorf("failed to load RFx responses: %w", err)
		}
		if len(offers) > 0 {
			quote = nullDecimal(offers[0].QuotedPrice)
		}

		po, err = buildPO(req, vendor.ID, rfx.Title, quote)
		if err != nil {
			return err
		}
		po.RFxID = &rfx.ID
		po.CreatedBy = actor.UserID
		sent, err = s.persist(txCtx, actor, po, vendor, "RFx "+rfx.Title)
		return err
	})
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	s.notifier.push(sent...)
	return toPurchaseOrderResponse(*po), nil
}

// DeriveFromAuction raises the PO for the winner of a completed auction,
// declaring the winner first when that has not happened yet.
func (s *purchaseOrderService) DeriveFromAuction(ctx context.Context, actor Actor, auctionID string, req CreatePORequest) (PurchaseOrderResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return PurchaseOrderResponse{}, err
	}
	aid, err := parseID("id", auctionID)
	if err != nil {
		return PurchaseOrderResponse{}, err
	}

	var po *model.PurchaseOrder
	var sent []*model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		auction, err := s.auctionRepo.FindByIDForUpdate(txCtx, aid)
		if err != nil {
			return dbError("auction", err)
		}
		if auction.CreatedBy != actor.UserID {
			return denied("only the creator can raise a purchase order for this auction")
		}
		if auction.Status != model.AuctionCompleted {
			return fmt.Errorf("auction is %s, purchase orders require a completed auction: %w", auction.Status, ErrInvalidTransition)
		}
		existing, err := s.poRepo.CountBySource(txCtx, "auction_id", aid)
		if err != nil {
			return fmt.Errorf("failed to check existing purchase orders: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("a purchase order already exists for this auction: %w", ErrConflict)
		}

		if auction.WinnerID == nil {
			top, err := s.auctionRepo.HighestBid(txCtx, aid)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return invalid("bids", "auction has no bids")
				}
				return fmt.Errorf("failed to load highest bid: %w", err)
			}
			if err := awardAuction(txCtx, s.auctionRepo, auction, top); err != nil {
				return err
			}
			if err := writeAudit(txCtx, s.auditRepo, &actor, model.ActionDeclareWinner, aid.String(), auction.Name,
				map[string]string{"vendor_id": top.VendorID.String(), "amount": top.Amount.StringFixed(2)}); err != nil {
				return err
			}
		}
		vendor, err := s.vendorRepo.FindByID(txCtx, *auction.WinnerID)
		if err != nil {
			return dbError("vendor", err)
		}

		po, err = buildPO(req, vendor.ID, auction.Name, auction.WinningBid)
		if err != nil {
			return err
		}
		po.AuctionID = &auction.ID
		po.CreatedBy = actor.UserID
		sent, err = s.persist(txCtx, actor, po, vendor, "auction "+auction.Name)
		return err
	})
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	s.notifier.push(sent...)
	return toPurchaseOrderResponse(*po), nil
}

// DeriveFromDirectOrder turns an approved direct order into a PO with the
// same items and marks the order submitted.
func (s *purchaseOrderService) DeriveFromDirectOrder(ctx context.Context, actor Actor, orderID string, req CreatePORequest) (PurchaseOrderResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return PurchaseOrderResponse{}, err
	}
	oid, err := parseID("id", orderID)
	if err != nil {
		return PurchaseOrderResponse{}, err
	}

	var po *model.PurchaseOrder
	var sent []*model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.orderRepo.FindByIDForUpdate(txCtx, oid)
		if err != nil {
			return dbError("direct order", err)
		}
		if order.CreatedBy != actor.UserID {
			return denied("only the creator can raise a purchase order for this order")
		}
		if err := workflow.DirectOrder.Check(order.Status, model.DirectOrderSubmitted); err != nil {
			return err
		}
		vendor, err := s.vendorRepo.FindByID(txCtx, order.VendorID)
		if err != nil {
			return dbError("vendor", err)
		}

		if len(req.LineItems) == 0 {
			for _, it := range order.Items {
				req.LineItems = append(req.LineItems, LineItemPayload{
					ProductID:  optionalIDString(it.ProductID),
					ItemName:   it.ItemName,
					Quantity:   it.Quantity.String(),
					UnitPrice:  it.UnitPrice.String(),
					TotalPrice: it.TotalPrice.String(),
				})
			}
		}
		if req.PaymentTerms == "" {
			req.PaymentTerms = order.PaymentTerms
		}
		if req.DeliveryDate == "" && order.DeliveryDate != nil {
			req.DeliveryDate = order.DeliveryDate.Format(dateLayout)
		}
		if req.Notes == "" {
			req.Notes = order.Notes
		}

		po, err = buildPO(req, vendor.ID, order.ReferenceNo, nullDecimal(order.TotalAmount))
		if err != nil {
			return err
		}
		po.DirectOrderID = &order.ID
		po.CreatedBy = actor.UserID
		if sent, err = s.persist(txCtx, actor, po, vendor, "direct order "+order.ReferenceNo); err != nil {
			return err
		}

		if err := s.orderRepo.UpdateStatus(txCtx, order.ID, model.DirectOrderSubmitted); err != nil {
			return fmt.Errorf("failed to update direct order status: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionUpdateDirectOrder, order.ID.String(), order.ReferenceNo,
			map[string]string{"from": string(order.Status), "to": string(model.DirectOrderSubmitted), "po_number": po.PONumber})
	})
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	s.notifier.push(sent...)
	return toPurchaseOrderResponse(*po), nil
}

// persist allocates the PO number, inserts the PO with its line items and
// opens the approval. It runs inside the caller's transaction.
func (s *purchaseOrderService) persist(ctx context.Context, actor Actor, po *model.PurchaseOrder, vendor *model.Vendor, source string) ([]*model.Notification, error) {
	if err := s.insertWithNumber(ctx, po); err != nil {
		return nil, err
	}
	if po.Status == model.POPendingApproval {
		if err := s.openApproval(ctx, actor, po); err != nil {
			return nil, err
		}
	}
	if err := writeAudit(ctx, s.auditRepo, &actor, model.ActionCreatePurchaseOrder, po.ID.String(), po.PONumber,
		map[string]string{"source": source, "vendor_id": vendor.ID.String(), "total_amount": po.TotalAmount.StringFixed(2)}); err != nil {
		return nil, err
	}
	n, err := s.notifier.notify(ctx, actor.UserID, model.NotificationSuccess, "Purchase order generated",
		fmt.Sprintf("%s for %s (%s) created from %s", po.PONumber, vendor.CompanyName, po.TotalAmount.StringFixed(2), source),
		model.ApprovalEntityPurchaseOrder, &po.ID)
	if err != nil {
		return nil, err
	}
	return []*model.Notification{n}, nil
}

// insertWithNumber generates a PO number, checks it and inserts, each
// attempt in its own savepoint. A collision is retried once.
func (s *purchaseOrderService) insertWithNumber(ctx context.Context, po *model.PurchaseOrder) error {
	for attempt := 1; attempt <= poNumberAttempts; attempt++ {
		number := s.poNumber()
		err := s.txManager.RunInTx(ctx, func(attemptCtx context.Context) error {
			taken, err := s.poRepo.PONumberExists(attemptCtx, number)
			if err != nil {
				return fmt.Errorf("failed to check po number: %w", err)
			}
			if taken {
				return errPONumberTaken
			}
			po.PONumber = number
			return s.poRepo.Create(attemptCtx, po)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, errPONumberTaken) && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return dbError("purchase order", err)
		}
		log.Printf("po number %s collided (attempt %d/%d)", number, attempt, poNumberAttempts)
	}
	po.PONumber = ""
	return fmt.Errorf("could not allocate a unique po number: %w", ErrConflict)
}

func (s *purchaseOrderService) openApproval(ctx context.Context, actor Actor, po *model.PurchaseOrder) error {
	requester := actor.UserID
	rec := &model.ApprovalRecord{
		EntityType:  model.ApprovalEntityPurchaseOrder,
		EntityID:    po.ID,
		RequestedBy: &requester,
		Status:      model.ApprovalPending,
	}
	if err := s.approvalRepo.Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to open approval: %w", err)
	}
	return nil
}

func (s *purchaseOrderService) approvedVendor(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError("vendor", err)
	}
	if vendor.Status != model.VendorApproved {
		return nil, invalid("vendor_id", "vendor is %s, only approved vendors can receive purchase orders", vendor.Status)
	}
	return vendor, nil
}

// buildPO assembles an unsaved PO. Line items win over total_amount, which
// wins over fallback; supplying both items and a disagreeing total is an
// error. Without items a single line covering the whole amount is added.
func buildPO(req CreatePORequest, vendorID uuid.UUID, title string, fallback decimal.NullDecimal) (*model.PurchaseOrder, error) {
	delivery, err := parseOptionalDate("delivery_date", req.DeliveryDate)
	if err != nil {
		return nil, err
	}
	po := &model.PurchaseOrder{
		VendorID:           vendorID,
		Status:             model.POPendingApproval,
		PaymentTerms:       req.PaymentTerms,
		TermsAndConditions: req.TermsAndConditions,
		Notes:              req.Notes,
		DeliveryDate:       delivery,
	}
	if req.SaveAsDraft {
		po.Status = model.PODraft
	}

	sum := decimal.Zero
	for i, it := range req.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		productID, err := parseOptionalID(prefix+".product_id", it.ProductID)
		if err != nil {
			return nil, err
		}
		itemDelivery, err := parseOptionalDate(prefix+".delivery_date", it.DeliveryDate)
		if err != nil {
			return nil, err
		}
		qty, unit, line, err := lineAmounts(prefix, it.Quantity, it.UnitPrice, it.TotalPrice)
		if err != nil {
			return nil, err
		}
		if itemDelivery == nil {
			itemDelivery = delivery
		}
		sum = sum.Add(line)
		po.LineItems = append(po.LineItems, model.POLineItem{
			ProductID:    productID,
			ItemName:     it.ItemName,
			Quantity:     qty,
			UnitPrice:    unit,
			TotalPrice:   line,
			DeliveryDate: itemDelivery,
			Status:       model.LineItemPending,
		})
	}

	explicit, err := parseOptionalAmount("total_amount", req.TotalAmount)
	if err != nil {
		return nil, err
	}
	switch {
	case len(po.LineItems) > 0:
		if explicit.Valid && !explicit.Decimal.Round(2).Equal(sum) {
			return nil, invalid("total_amount", "must equal the sum of line items (%s)", sum.StringFixed(2))
		}
		po.TotalAmount = sum
	case explicit.Valid:
		po.TotalAmount = explicit.Decimal.Round(2)
	case fallback.Valid:
		po.TotalAmount = fallback.Decimal.Round(2)
	default:
		return nil, invalid("total_amount", "is required when the source has no price")
	}

	if len(po.LineItems) == 0 {
		po.LineItems = []model.POLineItem{{
			ItemName:     title,
			Quantity:     decimal.NewFromInt(1),
			UnitPrice:    po.TotalAmount,
			TotalPrice:   po.TotalAmount,
			DeliveryDate: delivery,
			Status:       model.LineItemPending,
		}}
	}
	return po, nil
}

// --- Reads ---

func (s *purchaseOrderService) GetPurchaseOrder(ctx context.Context, actor Actor, id string) (PurchaseOrderResponse, error) {
	po, err := s.visible(ctx, actor, id)
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	return toPurchaseOrderResponse(*po), nil
}

// GetPurchaseOrders lists POs; vendors see the ones addressed to them and
// buyer users the ones they raised.
func (s *purchaseOrderService) GetPurchaseOrders(ctx context.Context, actor Actor, status string, page, limit int) ([]PurchaseOrderResponse, int64, error) {
	if err := actor.require(); err != nil {
		return nil, 0, err
	}
	f := repository.PurchaseOrderFilter{Status: status}
	switch {
	case actor.IsVendor():
		vendor, err := vendorFor(ctx, s.vendorRepo, actor)
		if err != nil {
			return nil, 0, err
		}
		f.VendorID = &vendor.ID
	case actor.HasRole(model.RoleBuyerUser):
		uid := actor.UserID
		f.CreatedBy = &uid
	}
	orders, total, err := s.poRepo.List(ctx, f, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchase orders: %w", err)
	}
	res := make([]PurchaseOrderResponse, 0, len(orders))
	for _, o := range orders {
		res = append(res, toPurchaseOrderResponse(o))
	}
	return res, total, nil
}

func (s *purchaseOrderService) GetLineItems(ctx context.Context, actor Actor, id string) ([]POLineItemResponse, error) {
	po, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	items, err := s.poRepo.ListLineItems(ctx, po.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch line items: %w", err)
	}
	res := make([]POLineItemResponse, 0, len(items))
	for _, it := range items {
		res = append(res, toLineItemResponse(it))
	}
	return res, nil
}

func (s *purchaseOrderService) visible(ctx context.Context, actor Actor, id string) (*model.PurchaseOrder, error) {
	if err := actor.require(); err != nil {
		return nil, err
	}
	pid, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	po, err := s.poRepo.FindByID(ctx, pid)
	if err != nil {
		return nil, dbError("purchase order", err)
	}
	if actor.IsVendor() {
		vendor, err := vendorFor(ctx, s.vendorRepo, actor)
		if err != nil {
			return nil, err
		}
		if po.VendorID != vendor.ID {
			return nil, fmt.Errorf("purchase order %w", ErrNotFound)
		}
	}
	return po, nil
}

// --- Lifecycle ---

func (s *purchaseOrderService) Submit(ctx context.Context, actor Actor, id string) (PurchaseOrderResponse, error) {
	return s.change(ctx, actor, id, model.POPendingApproval)
}

func (s *purchaseOrderService) Issue(ctx context.Context, actor Actor, id string) (PurchaseOrderResponse, error) {
	return s.change(ctx, actor, id, model.POIssued)
}

func (s *purchaseOrderService) Acknowledge(ctx context.Context, actor Actor, id string) (PurchaseOrderResponse, error) {
	return s.change(ctx, actor, id, model.POAcknowledged)
}

func (s *purchaseOrderService) UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateStatusRequest) (PurchaseOrderResponse, error) {
	next := model.POStatus(req.Status)
	if !workflow.PurchaseOrder.Known(next) {
		return PurchaseOrderResponse{}, invalid("status", "unknown purchase order status %q", req.Status)
	}
	return s.change(ctx, actor, id, next)
}

// vendorSteps are the PO statuses the supplier side reports
var vendorSteps = map[model.POStatus]bool{
	model.POAcknowledged: true,
	model.POShipped:      true,
	model.POInvoiced:     true,
}

func (s *purchaseOrderService) change(ctx context.Context, actor Actor, id string, next model.POStatus) (PurchaseOrderResponse, error) {
	if err := actor.require(); err != nil {
		return PurchaseOrderResponse{}, err
	}
	pid, err := parseID("id", id)
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	if next == model.POApproved || next == model.PORejected {
		return PurchaseOrderResponse{}, fmt.Errorf("purchase orders are approved or rejected through approvals: %w", ErrInvalidTransition)
	}

	var sent []*model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.poRepo.FindByIDForUpdate(txCtx, pid)
		if err != nil {
			return dbError("purchase order", err)
		}
		vendor, err := s.vendorRepo.FindByID(txCtx, po.VendorID)
		if err != nil {
			return dbError("vendor", err)
		}

		if vendorSteps[next] {
			if !actor.IsVendor() || !ownsVendor(actor, vendor) {
				return denied("only the supplier can mark a purchase order %s", next)
			}
		} else {
			if err := actor.require(buyerRoles...); err != nil {
				return err
			}
			if po.CreatedBy != actor.UserID && !actor.HasRole(approverRoles...) {
				return denied("only the creator or an approver can change this purchase order")
			}
		}
		if err := workflow.PurchaseOrder.Check(po.Status, next); err != nil {
			return err
		}

		from := po.Status
		now := s.now()
		po.Status = next
		switch next {
		case model.POIssued:
			po.IssuedAt = &now
		case model.POAcknowledged:
			po.AcknowledgedAt = &now
		}
		if err := s.poRepo.Update(txCtx, po); err != nil {
			return fmt.Errorf("failed to update purchase order: %w", err)
		}
		switch next {
		case model.POPendingApproval:
			if err := s.openApproval(txCtx, actor, po); err != nil {
				return err
			}
		case model.POShipped:
			if _, err := s.poRepo.AdvanceLineItems(txCtx, po.ID, model.LineItemShipped, model.LineItemPending); err != nil {
				return fmt.Errorf("failed to update line items: %w", err)
			}
		case model.PODelivered:
			if _, err := s.poRepo.AdvanceLineItems(txCtx, po.ID, model.LineItemDelivered, model.LineItemPending, model.LineItemShipped); err != nil {
				return fmt.Errorf("failed to update line items: %w", err)
			}
		}
		if err := writeAudit(txCtx, s.auditRepo, &actor, model.ActionUpdatePOStatus, po.ID.String(), po.PONumber,
			map[string]string{"from": string(from), "to": string(next)}); err != nil {
			return err
		}

		// tell the other side of the order
		recipient := po.CreatedBy
		if !actor.IsVendor() {
			if vendor.UserID == nil || next == model.POPendingApproval {
				return nil
			}
			recipient = *vendor.UserID
		}
		n, err := s.notifier.notify(txCtx, recipient, model.NotificationInfo, "Purchase order "+string(next),
			fmt.Sprintf("%s moved from %s to %s", po.PONumber, from, next), model.ApprovalEntityPurchaseOrder, &po.ID)
		if err != nil {
			return err
		}
		sent = append(sent, n)
		return nil
	})
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	s.notifier.push(sent...)

	po, err := s.poRepo.FindByID(ctx, pid)
	if err != nil {
		return PurchaseOrderResponse{}, dbError("purchase order", err)
	}
	return toPurchaseOrderResponse(*po), nil
}

func optionalIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func toLineItemResponse(it model.POLineItem) POLineItemResponse {
	return POLineItemResponse{
		ID:           it.ID,
		ProductID:    optionalID(it.ProductID),
		ItemName:     it.ItemName,
		Quantity:     it.Quantity.String(),
		UnitPrice:    it.UnitPrice.StringFixed(2),
		TotalPrice:   it.TotalPrice.StringFixed(2),
		DeliveryDate: formatDate(it.DeliveryDate),
		Status:       string(it.Status),
	}
}

func toPurchaseOrderResponse(po model.PurchaseOrder) PurchaseOrderResponse {
	res := PurchaseOrderResponse{
		ID:                 po.ID,
		PONumber:           po.PONumber,
		VendorID:           po.VendorID,
		RFxID:              optionalID(po.RFxID),
		AuctionID:          optionalID(po.AuctionID),
		DirectOrderID:      optionalID(po.DirectOrderID),
		TotalAmount:        po.TotalAmount.StringFixed(2),
		Status:             string(po.Status),
		PaymentTerms:       po.PaymentTerms,
		TermsAndConditions: po.TermsAndConditions,
		Notes:              po.Notes,
		DeliveryDate:       formatDate(po.DeliveryDate),
		IssuedAt:           po.IssuedAt,
		AcknowledgedAt:     po.AcknowledgedAt,
		CreatedBy:          po.CreatedBy,
		CreatedAt:          po.CreatedAt,
	}
	if po.Vendor != nil {
		res.VendorName = po.Vendor.CompanyName
	}
	for _, it := range po.LineItems {
		res.LineItems = append(res.LineItems, toLineItemResponse(it))
	}
	for _, st := range workflow.PurchaseOrder.Next(po.Status) {
		if st != model.POApproved && st != model.PORejected {
			res.AllowedTransitions = append(res.AllowedTransitions, string(st))
		}
	}
	return res
}
