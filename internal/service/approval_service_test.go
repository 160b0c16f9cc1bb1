package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"procurement/internal/model"
)

func TestApprovePurchaseOrderOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleBuyerUser)
	admin := f.actor(model.RoleBuyerAdmin)
	src := f.closedRFxWithQuote(owner)
	ctx := context.Background()

	po, err := f.purchaseOrderService().DeriveFromRFx(ctx, owner, src.rfx.ID.String(), CreatePORequest{VendorID: src.vendor.ID.String()})
	if err != nil {
		t.Fatalf("DeriveFromRFx: %v", err)
	}
	var rec model.ApprovalRecord
	if err := f.db.First(&rec, "entity_id = ?", po.ID).Error; err != nil {
		t.Fatalf("load approval: %v", err)
	}

	s := f.approvalService()
	if _, err := s.Approve(ctx, owner, rec.ID.String(), DecisionRequest{}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("buyer_user approving: err = %v, want permission denied", err)
	}

	res, err := s.Approve(ctx, admin, rec.ID.String(), DecisionRequest{Comments: "within budget"})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if res.Status != string(model.ApprovalApproved) || res.Comments != "within budget" {
		t.Errorf("decision = %+v", res)
	}
	stored, err := f.purchases.FindByID(ctx, po.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.Status != model.POApproved {
		t.Errorf("po status = %s, want approved", stored.Status)
	}

	if _, err := s.Approve(ctx, admin, rec.ID.String(), DecisionRequest{}); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("second approve: err = %v, want already decided", err)
	}
	if _, err := s.Reject(ctx, admin, rec.ID.String(), DecisionRequest{}); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("reject after approve: err = %v, want already decided", err)
	}
	if n := f.count(&model.AuditLog{}, "action = ?", model.ActionApproveRequest); n != 1 {
		t.Errorf("approve audit rows = %d, want 1", n)
	}
	// one push for the generated PO, one for the decision
	if got := f.pusher.sentTo(owner.UserID); got != 2 {
		t.Errorf("pushes to requester = %d, want 2", got)
	}
}

func TestRejectVendorNotifiesVendorLogin(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleBuyerUser)
	manager := f.actor(model.RoleSourcingManager)
	login := f.actor(model.RoleVendor)
	uid := login.UserID
	vendor := &model.Vendor{CompanyName: "Umbrella", Status: model.VendorPending, CreatedBy: buyer.UserID, UserID: &uid}
	f.create(vendor)
	requester := buyer.UserID
	rec := &model.ApprovalRecord{EntityType: model.ApprovalEntityVendor, EntityID: vendor.ID, RequestedBy: &requester, Status: model.ApprovalPending}
	f.create(rec)

	s := f.approvalService().(*approvalService)
	decidedAt := t0.Add(time.Hour)
	s.now = func() time.Time { return decidedAt }
	ctx := context.Background()

	res, err := s.Reject(ctx, manager, rec.ID.String(), DecisionRequest{Comments: "missing GST certificate"})
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if res.Status != string(model.ApprovalRejected) {
		t.Errorf("status = %s", res.Status)
	}
	got, err := f.vendors.FindByID(ctx, vendor.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != model.VendorRejected {
		t.Errorf("vendor status = %s, want rejected", got.Status)
	}
	if f.pusher.sentTo(login.UserID) != 1 || f.pusher.sentTo(buyer.UserID) != 1 {
		t.Errorf("pushes: vendor=%d requester=%d, want 1 each", f.pusher.sentTo(login.UserID), f.pusher.sentTo(buyer.UserID))
	}
}

func TestDecideUnknownApproval(t *testing.T) {
	f := newFixture(t)
	admin := f.actor(model.RoleBuyerAdmin)
	s := f.approvalService()

	if _, err := s.Approve(context.Background(), admin, "not-a-uuid", DecisionRequest{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad id: err = %v, want validation", err)
	}
	if _, err := s.Approve(context.Background(), admin, "6f1c2a52-1111-4a4a-9a9a-000000000000", DecisionRequest{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: err = %v, want not found", err)
	}
}
