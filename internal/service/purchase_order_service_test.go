package service

import (
	"context"
	"errors"
	"testing"

	"procurement/internal/model"

	"github.com/google/uuid"
)

type closedRFx struct {
	rfx    *model.RFxEvent
	vendor *model.Vendor
	login  Actor
}

// closedRFxWithQuote builds a closed RFQ owned by owner with one invited
// vendor that quoted 1200.
func (f *fixture) closedRFxWithQuote(owner Actor) closedRFx {
	f.t.Helper()
	login := f.actor(model.RoleVendor)
	vendor := f.vendor("Acme", owner, &login)
	rfx := &model.RFxEvent{Title: "Office chairs", Type: model.RFxTypeRFQ, Status: model.RFxClosed, CreatedBy: owner.UserID}
	f.create(rfx)
	f.create(&model.RFxInvitation{RFxID: rfx.ID, VendorID: vendor.ID, Status: model.InvitationResponded})
	f.create(&model.RFxResponse{RFxID: rfx.ID, VendorID: vendor.ID, QuotedPrice: dec("1200"), SubmittedAt: t0})
	return closedRFx{rfx: rfx, vendor: vendor, login: login}
}

func TestDeriveFromRFxUsesQuoteAndOpensApproval(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleSourcingManager)
	src := f.closedRFxWithQuote(owner)
	s := f.purchaseOrderService()
	ctx := context.Background()

	po, err := s.DeriveFromRFx(ctx, owner, src.rfx.ID.String(), CreatePORequest{VendorID: src.vendor.ID.String(), PaymentTerms: "Net 30"})
	if err != nil {
		t.Fatalf("DeriveFromRFx: %v", err)
	}
	if po.Status != string(model.POPendingApproval) {
		t.Errorf("status = %s, want pending_approval", po.Status)
	}
	if !dec(po.TotalAmount).Equal(dec("1200")) {
		t.Errorf("total = %s, want the vendor's quote", po.TotalAmount)
	}
	if po.RFxID == nil || *po.RFxID != src.rfx.ID.String() {
		t.Errorf("rfx_id = %v", po.RFxID)
	}
	if po.PONumber == "" {
		t.Error("po number not allocated")
	}
	if n := f.count(&model.POLineItem{}, "purchase_order_id = ?", po.ID); n != 1 {
		t.Errorf("line items = %d, want a single covering line", n)
	}
	if n := f.count(&model.ApprovalRecord{}, "entity_id = ? AND status = ?", po.ID, model.ApprovalPending); n != 1 {
		t.Errorf("pending approvals = %d, want 1", n)
	}
	if f.pusher.sentTo(owner.UserID) != 1 {
		t.Error("creator was not notified")
	}
}

func TestDeriveFromRFxDeniedForNonCreator(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleSourcingManager)
	other := f.actor(model.RoleBuyerUser)
	src := f.closedRFxWithQuote(owner)
	s := f.purchaseOrderService()
	ctx := context.Background()

	_, err := s.DeriveFromRFx(ctx, other, src.rfx.ID.String(), CreatePORequest{VendorID: src.vendor.ID.String()})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want permission denied", err)
	}
	_, err = s.DeriveFromRFx(ctx, src.login, src.rfx.ID.String(), CreatePORequest{VendorID: src.vendor.ID.String()})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("vendor: err = %v, want permission denied", err)
	}
	if n := f.count(&model.PurchaseOrder{}, ""); n != 0 {
		t.Errorf("purchase orders written = %d, want 0", n)
	}
	if n := f.count(&model.ApprovalRecord{}, ""); n != 0 {
		t.Errorf("approvals written = %d, want 0", n)
	}
}

func TestDeriveFromRFxRequiresClosedEventAndInvitedVendor(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleSourcingManager)
	src := f.closedRFxWithQuote(owner)
	outsider := f.vendor("Initech", owner, nil)
	s := f.purchaseOrderService()
	ctx := context.Background()

	_, err := s.DeriveFromRFx(ctx, owner, src.rfx.ID.String(), CreatePORequest{VendorID: outsider.ID.String(), TotalAmount: "10"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("uninvited vendor: err = %v, want validation", err)
	}

	if err := f.rfx.UpdateStatus(ctx, src.rfx.ID, model.RFxActive); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	_, err = s.DeriveFromRFx(ctx, owner, src.rfx.ID.String(), CreatePORequest{VendorID: src.vendor.ID.String()})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("active RFx: err = %v, want invalid transition", err)
	}
}

func TestBuildPOLineItemsMustMatchTotal(t *testing.T) {
	vendorID := uuid.New()
	req := CreatePORequest{
		TotalAmount: "99",
		LineItems: []LineItemPayload{
			{ItemName: "Chair", Quantity: "2", UnitPrice: "25"},
			{ItemName: "Desk", Quantity: "1", UnitPrice: "50"},
		},
	}
	if _, err := buildPO(req, vendorID, "x", nullDecimal(dec("1"))); !errors.Is(err, ErrValidation) {
		t.Fatalf("mismatched total: err = %v, want validation", err)
	}

	req.TotalAmount = "100.00"
	po, err := buildPO(req, vendorID, "x", nullDecimal(dec("1")))
	if err != nil {
		t.Fatalf("buildPO: %v", err)
	}
	if !po.TotalAmount.Equal(dec("100")) || len(po.LineItems) != 2 {
		t.Errorf("po = %s with %d lines", po.TotalAmount, len(po.LineItems))
	}

	draft, err := buildPO(CreatePORequest{SaveAsDraft: true}, vendorID, "x", nullDecimal(dec("12.345")))
	if err != nil {
		t.Fatalf("buildPO draft: %v", err)
	}
	if draft.Status != model.PODraft || !draft.TotalAmount.Equal(dec("12.35")) {
		t.Errorf("draft = %s %s", draft.Status, draft.TotalAmount)
	}
}

func TestInsertWithNumberRetriesOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleBuyerAdmin)
	vendor := f.vendor("Acme", owner, nil)
	f.create(&model.PurchaseOrder{PONumber: "PO-TAKEN", VendorID: vendor.ID, TotalAmount: dec("1"), Status: model.PODraft, CreatedBy: owner.UserID})
	s := f.purchaseOrderService()
	ctx := context.Background()

	numbers := []string{"PO-TAKEN", "PO-FRESH"}
	s.poNumber = func() string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}
	po := &model.PurchaseOrder{VendorID: vendor.ID, TotalAmount: dec("5"), Status: model.PODraft, CreatedBy: owner.UserID}
	if err := s.insertWithNumber(ctx, po); err != nil {
		t.Fatalf("insertWithNumber: %v", err)
	}
	if po.PONumber != "PO-FRESH" {
		t.Errorf("po number = %s, want PO-FRESH", po.PONumber)
	}
	if n := f.count(&model.PurchaseOrder{}, ""); n != 2 {
		t.Errorf("purchase orders = %d, want 2", n)
	}
}

func TestInsertWithNumberGivesUpAfterSecondCollision(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleBuyerAdmin)
	vendor := f.vendor("Acme", owner, nil)
	f.create(&model.PurchaseOrder{PONumber: "PO-TAKEN", VendorID: vendor.ID, TotalAmount: dec("1"), Status: model.PODraft, CreatedBy: owner.UserID})
	s := f.purchaseOrderService()
	calls := 0
	s.poNumber = func() string {
		calls++
		return "PO-TAKEN"
	}

	po := &model.PurchaseOrder{VendorID: vendor.ID, TotalAmount: dec("5"), Status: model.PODraft, CreatedBy: owner.UserID}
	err := s.insertWithNumber(context.Background(), po)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if calls != poNumberAttempts {
		t.Errorf("generated %d numbers, want %d", calls, poNumberAttempts)
	}
	if po.PONumber != "" {
		t.Errorf("po number left set to %q", po.PONumber)
	}
	if n := f.count(&model.PurchaseOrder{}, ""); n != 1 {
		t.Errorf("purchase orders = %d, want only the original", n)
	}
}

func TestDeriveFromAuctionDeclaresWinnerOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleBuyerAdmin)
	login := f.actor(model.RoleVendor)
	vendor := f.vendor("Acme", owner, &login)
	auction := f.liveAuction(owner)
	f.register(auction, vendor)
	bids := f.auctionService(&ticker{cur: t0})
	ctx := context.Background()

	if _, err := bids.PlaceBid(ctx, login, auction.ID.String(), PlaceBidRequest{Amount: "750"}); err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	s := f.purchaseOrderService()
	if _, err := s.DeriveFromAuction(ctx, owner, auction.ID.String(), CreatePORequest{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("live auction: err = %v, want invalid transition", err)
	}
	if err := f.auctions.UpdateStatus(ctx, auction.ID, model.AuctionCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	po, err := s.DeriveFromAuction(ctx, owner, auction.ID.String(), CreatePORequest{})
	if err != nil {
		t.Fatalf("DeriveFromAuction: %v", err)
	}
	if po.VendorID != vendor.ID || !dec(po.TotalAmount).Equal(dec("750")) {
		t.Errorf("po = vendor %s total %s", po.VendorID, po.TotalAmount)
	}
	got, err := f.auctions.FindByID(ctx, auction.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.WinnerID == nil || *got.WinnerID != vendor.ID {
		t.Errorf("winner = %v, want %s", got.WinnerID, vendor.ID)
	}

	if _, err := s.DeriveFromAuction(ctx, owner, auction.ID.String(), CreatePORequest{}); !errors.Is(err, ErrConflict) {
		t.Fatalf("second PO: err = %v, want conflict", err)
	}
}

func TestPurchaseOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleBuyerUser)
	admin := f.actor(model.RoleBuyerAdmin)
	src := f.closedRFxWithQuote(owner)
	outsider := f.actor(model.RoleVendor)
	f.vendor("Globex", owner, &outsider)
	s := f.purchaseOrderService()
	ctx := context.Background()

	po, err := s.DeriveFromRFx(ctx, owner, src.rfx.ID.String(), CreatePORequest{VendorID: src.vendor.ID.String()})
	if err != nil {
		t.Fatalf("DeriveFromRFx: %v", err)
	}
	id := po.ID.String()

	if _, err := s.UpdateStatus(ctx, admin, id, UpdateStatusRequest{Status: string(model.POApproved)}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("approving outside approvals: err = %v, want invalid transition", err)
	}
	if _, err := s.Issue(ctx, owner, id); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("issuing before approval: err = %v, want invalid transition", err)
	}
	var rec model.ApprovalRecord
	if err := f.db.First(&rec, "entity_id = ?", po.ID).Error; err != nil {
		t.Fatalf("load approval: %v", err)
	}
	if _, err := f.approvalService().Approve(ctx, admin, rec.ID.String(), DecisionRequest{}); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	before := f.pusher.sentTo(src.login.UserID)
	issued, err := s.Issue(ctx, owner, id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.Status != string(model.POIssued) {
		t.Errorf("status = %s, want issued", issued.Status)
	}
	if got := f.pusher.sentTo(src.login.UserID) - before; got != 1 {
		t.Errorf("issue pushes to supplier = %d, want 1", got)
	}

	if _, err := s.Acknowledge(ctx, owner, id); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("buyer acknowledging: err = %v, want permission denied", err)
	}
	if _, err := s.Acknowledge(ctx, outsider, id); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("other supplier acknowledging: err = %v, want permission denied", err)
	}
	if _, err := s.GetPurchaseOrder(ctx, outsider, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other supplier reading: err = %v, want not found", err)
	}
	if _, err := s.Acknowledge(ctx, src.login, id); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, src.login, id, UpdateStatusRequest{Status: string(model.POShipped)}); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if n := f.count(&model.POLineItem{}, "purchase_order_id = ? AND status = ?", po.ID, model.LineItemShipped); n != 1 {
		t.Errorf("shipped line items = %d, want 1", n)
	}
	if _, err := s.UpdateStatus(ctx, owner, id, UpdateStatusRequest{Status: string(model.PODelivered)}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if n := f.count(&model.POLineItem{}, "purchase_order_id = ? AND status = ?", po.ID, model.LineItemDelivered); n != 1 {
		t.Errorf("delivered line items = %d, want 1", n)
	}
	if _, err := s.UpdateStatus(ctx, owner, id, UpdateStatusRequest{Status: "lost"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown status: err = %v, want validation", err)
	}

	stored, err := f.purchases.FindByID(ctx, po.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.IssuedAt == nil || stored.AcknowledgedAt == nil {
		t.Errorf("issued_at %v acknowledged_at %v, want both set", stored.IssuedAt, stored.AcknowledgedAt)
	}
}
