package service

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/workflow"

	"github.com/google/uuid"
)

// --- DTOs ---

type DecisionRequest struct {
	Comments string `json:"comments"`
}

type ApprovalFilter struct {
	Status     string // pending, approved, rejected or empty for all
	EntityType string
	Page       int
	Limit      int
}

type ApprovalResponse struct {
	ID           string  `json:"id"`
	EntityType   string  `json:"entity_type"`
	EntityID     string  `json:"entity_id"`
	Status       string  `json:"status"`
	RequestedBy  *string `json:"requested_by"`
	ApproverID   *string `json:"approver_id"`
	ApproverName string  `json:"approver_name,omitempty"`
	Comments     string  `json:"comments"`
	DecidedAt    *string `json:"decided_at"`
	CreatedAt    string  `json:"created_at"`
}

// --- Interface ---

type ApprovalService interface {
	ListApprovals(ctx context.Context, actor Actor, filter ApprovalFilter) ([]ApprovalResponse, int64, error)
	Approve(ctx context.Context, actor Actor, id string, req DecisionRequest) (ApprovalResponse, error)
	Reject(ctx context.Context, actor Actor, id string, req DecisionRequest) (ApprovalResponse, error)
}

type approvalService struct {
	approvalRepo repository.ApprovalRepository
	poRepo       repository.PurchaseOrderRepository
	orderRepo    repository.DirectOrderRepository
	vendorRepo   repository.VendorRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	notifier     *notifier
	now          func() time.Time
}

func NewApprovalService(approvalRepo repository.ApprovalRepository, poRepo repository.PurchaseOrderRepository, orderRepo repository.DirectOrderRepository, vendorRepo repository.VendorRepository, auditRepo repository.AuditRepository, notificationRepo repository.NotificationRepository, txManager repository.TransactionManager, pusher Pusher) ApprovalService {
	return &approvalService{
		approvalRepo: approvalRepo,
		poRepo:       poRepo,
		orderRepo:    orderRepo,
		vendorRepo:   vendorRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		notifier:     newNotifier(notificationRepo, pusher),
		now:          time.Now,
	}
}

// --- Implementation ---

func (s *approvalService) ListApprovals(ctx context.Context, actor Actor, filter ApprovalFilter) ([]ApprovalResponse, int64, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return nil, 0, err
	}
	records, total, err := s.approvalRepo.List(ctx, repository.ApprovalFilter{Status: filter.Status, EntityType: filter.EntityType}, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch approvals: %w", err)
	}
	res := make([]ApprovalResponse, 0, len(records))
	for _, r := range records {
		res = append(res, toApprovalResponse(r))
	}
	return res, total, nil
}

func (s *approvalService) Approve(ctx context.Context, actor Actor, id string, req DecisionRequest) (ApprovalResponse, error) {
	return s.decide(ctx, actor, id, model.ApprovalApproved, req.Comments)
}

func (s *approvalService) Reject(ctx context.Context, actor Actor, id string, req DecisionRequest) (ApprovalResponse, error) {
	return s.decide(ctx, actor, id, model.ApprovalRejected, req.Comments)
}

// decide records a single decision. The record and its entity are locked,
// the entity moves out of its pending state and the record is stamped in
// the same transaction, so a second decision finds nothing to decide.
func (s *approvalService) decide(ctx context.Context, actor Actor, id string, decision model.ApprovalStatus, comments string) (ApprovalResponse, error) {
	if err := actor.require(approverRoles...); err != nil {
		return ApprovalResponse{}, err
	}
	aid, err := parseID("id", id)
	if err != nil {
		return ApprovalResponse{}, err
	}

	var rec *model.ApprovalRecord
	var sent []*model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rec, err = s.approvalRepo.FindByIDForUpdate(txCtx, aid)
		if err != nil {
			return dbError("approval", err)
		}
		if rec.Status != model.ApprovalPending {
			return fmt.Errorf("approval was %s on %s: %w", rec.Status, formatStamp(rec.DecidedAt), ErrAlreadyDecided)
		}

		label, owner, err := s.applyToEntity(txCtx, rec, decision)
		if err != nil {
			return err
		}

		now := s.now()
		approver := actor.UserID
		rec.Status = decision
		rec.ApproverID = &approver
		rec.Comments = comments
		rec.DecidedAt = &now
		rec.Approver = nil
		if err := s.approvalRepo.Update(txCtx, rec); err != nil {
			return fmt.Errorf("failed to record decision: %w", err)
		}

		action := model.ActionApproveRequest
		kind := model.NotificationSuccess
		if decision == model.ApprovalRejected {
			action = model.ActionRejectRequest
			kind = model.NotificationWarning
		}
		if err := writeAudit(txCtx, s.auditRepo, &actor, action, rec.EntityID.String(), label,
			map[string]string{"approval_id": rec.ID.String(), "entity_type": rec.EntityType, "comments": comments}); err != nil {
			return err
		}

		recipients := []uuid.UUID{}
		if rec.RequestedBy != nil {
			recipients = append(recipients, *rec.RequestedBy)
		}
		if owner != nil && (rec.RequestedBy == nil || *owner != *rec.RequestedBy) {
			recipients = append(recipients, *owner)
		}
		for _, uid := range recipients {
			n, err := s.notifier.notify(txCtx, uid, kind, fmt.Sprintf("%s %s", label, decision),
				fmt.Sprintf("%s was %s", label, decision), rec.EntityType, &rec.EntityID)
			if err != nil {
				return err
			}
			sent = append(sent, n)
		}
		return nil
	})
	if err != nil {
		return ApprovalResponse{}, err
	}
	s.notifier.push(sent...)
	return toApprovalResponse(*rec), nil
}

// applyToEntity moves the gated entity out of its pending state. It returns
// a display label and, for vendors, the vendor login to notify.
func (s *approvalService) applyToEntity(ctx context.Context, rec *model.ApprovalRecord, decision model.ApprovalStatus) (string, *uuid.UUID, error) {
	switch rec.EntityType {
	case model.ApprovalEntityPurchaseOrder:
		po, err := s.poRepo.FindByIDForUpdate(ctx, rec.EntityID)
		if err != nil {
			return "", nil, dbError("purchase order", err)
		}
		next := model.POApproved
		if decision == model.ApprovalRejected {
			next = model.PORejected
		}
		if po.Status == model.POApproved || po.Status == model.PORejected {
			return "", nil, fmt.Errorf("purchase order %s is already %s: %w", po.PONumber, po.Status, ErrAlreadyDecided)
		}
		if err := workflow.PurchaseOrder.Check(po.Status, next); err != nil {
			return "", nil, err
		}
		if err := s.poRepo.UpdateStatus(ctx, po.ID, next); err != nil {
			return "", nil, fmt.Errorf("failed to update purchase order: %w", err)
		}
		return "Purchase order " + po.PONumber, nil, nil

	case model.ApprovalEntityDirectOrder:
		order, err := s.orderRepo.FindByIDForUpdate(ctx, rec.EntityID)
		if err != nil {
			return "", nil, dbError("direct order", err)
		}
		next := model.DirectOrderApproved
		if decision == model.ApprovalRejected {
			next = model.DirectOrderRejected
		}
		if order.Status == model.DirectOrderApproved || order.Status == model.DirectOrderRejected {
			return "", nil, fmt.Errorf("direct order %s is already %s: %w", order.ReferenceNo, order.Status, ErrAlreadyDecided)
		}
		if err := workflow.DirectOrder.Check(order.Status, next); err != nil {
			return "", nil, err
		}
		if err := s.orderRepo.UpdateStatus(ctx, order.ID, next); err != nil {
			return "", nil, fmt.Errorf("failed to update direct order: %w", err)
		}
		return "Direct order " + order.ReferenceNo, nil, nil

	case model.ApprovalEntityVendor:
		vendor, err := s.vendorRepo.FindByIDForUpdate(ctx, rec.EntityID)
		if err != nil {
			return "", nil, dbError("vendor", err)
		}
		next := model.VendorApproved
		if decision == model.ApprovalRejected {
			next = model.VendorRejected
		}
		if vendor.Status != model.VendorPending {
			return "", nil, fmt.Errorf("vendor %s is already %s: %w", vendor.CompanyName, vendor.Status, ErrAlreadyDecided)
		}
		if err := workflow.Vendor.Check(vendor.Status, next); err != nil {
			return "", nil, err
		}
		if err := s.vendorRepo.UpdateStatus(ctx, vendor.ID, next); err != nil {
			return "", nil, fmt.Errorf("failed to update vendor: %w", err)
		}
		return "Vendor " + vendor.CompanyName, vendor.UserID, nil
	}
	return "", nil, invalid("entity_type", "unsupported approval entity %q", rec.EntityType)
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return "an earlier request"
	}
	return t.Format(time.RFC3339)
}

func toApprovalResponse(r model.ApprovalRecord) ApprovalResponse {
	res := ApprovalResponse{
		ID:          r.ID.String(),
		EntityType:  r.EntityType,
		EntityID:    r.EntityID.String(),
		Status:      string(r.Status),
		RequestedBy: optionalID(r.RequestedBy),
		ApproverID:  optionalID(r.ApproverID),
		Comments:    r.Comments,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.Approver != nil {
		res.ApproverName = r.Approver.Username
	}
	if r.DecidedAt != nil {
		t := r.DecidedAt.Format(time.RFC3339)
		res.DecidedAt = &t
	}
	return res
}
