package service

import (
	"context"
	"errors"
	"testing"

	"procurement/internal/model"
)

func TestCreateNextStageFollowsRFIRFPRFQ(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleSourcingManager)
	loginA := f.actor(model.RoleVendor)
	vendorA := f.vendor("Acme", owner, &loginA)
	vendorB := f.vendor("Globex", owner, nil)
	loginC := f.actor(model.RoleVendor)
	vendorC := f.vendor("Initech", owner, &loginC)
	rfi := &model.RFxEvent{Title: "Cloud hosting", Type: model.RFxTypeRFI, Status: model.RFxClosed, CreatedBy: owner.UserID}
	f.create(rfi)
	f.create(&model.RFxInvitation{RFxID: rfi.ID, VendorID: vendorA.ID, Status: model.InvitationResponded})
	f.create(&model.RFxInvitation{RFxID: rfi.ID, VendorID: vendorB.ID, Status: model.InvitationDeclined})
	f.create(&model.RFxInvitation{RFxID: rfi.ID, VendorID: vendorC.ID, Status: model.InvitationResponded})
	// suspended after answering the rfi
	if err := f.vendors.UpdateStatus(context.Background(), vendorC.ID, model.VendorSuspended); err != nil {
		t.Fatalf("suspend vendor: %v", err)
	}
	s := f.rfxService()
	ctx := context.Background()

	rfp, err := s.CreateNextStage(ctx, owner, rfi.ID.String())
	if err != nil {
		t.Fatalf("CreateNextStage: %v", err)
	}
	if rfp.Type != string(model.RFxTypeRFP) || rfp.Status != string(model.RFxDraft) {
		t.Errorf("next stage = %s/%s, want rfp/draft", rfp.Type, rfp.Status)
	}
	if rfp.ParentRFxID == nil || *rfp.ParentRFxID != rfi.ID.String() {
		t.Errorf("parent = %v, want %s", rfp.ParentRFxID, rfi.ID)
	}
	if n := f.count(&model.RFxInvitation{}, "rfx_id = ?", rfp.ID); n != 1 {
		t.Errorf("carried invitations = %d, want only the approved vendor that did not decline", n)
	}
	if f.pusher.sentTo(loginA.UserID) != 1 {
		t.Error("carried vendor was not notified")
	}
	if f.pusher.sentTo(loginC.UserID) != 0 {
		t.Error("suspended vendor was invited to the next stage")
	}
}

func TestCreateNextStageRejectsRFQ(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleBuyerAdmin)
	rfq := &model.RFxEvent{Title: "Printers", Type: model.RFxTypeRFQ, Status: model.RFxClosed, CreatedBy: owner.UserID}
	f.create(rfq)
	s := f.rfxService()

	if _, err := s.CreateNextStage(context.Background(), owner, rfq.ID.String()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
	if n := f.count(&model.RFxEvent{}, ""); n != 1 {
		t.Errorf("rfx events = %d, want 1", n)
	}
}

func TestCreateNextStageRequiresClosedOwnedEvent(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleBuyerAdmin)
	other := f.actor(model.RoleBuyerAdmin)
	rfi := &model.RFxEvent{Title: "Catering", Type: model.RFxTypeRFI, Status: model.RFxActive, CreatedBy: owner.UserID}
	f.create(rfi)
	s := f.rfxService()
	ctx := context.Background()

	if _, err := s.CreateNextStage(ctx, other, rfi.ID.String()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-owner: err = %v, want permission denied", err)
	}
	if _, err := s.CreateNextStage(ctx, owner, rfi.ID.String()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("active event: err = %v, want invalid transition", err)
	}
}

func TestInviteAndRespond(t *testing.T) {
	f := newFixture(t)
	owner := f.actor(model.RoleBuyerUser)
	loginA, loginB, loginC := f.actor(model.RoleVendor), f.actor(model.RoleVendor), f.actor(model.RoleVendor)
	vendorA := f.vendor("Acme", owner, &loginA)
	vendorB := f.vendor("Globex", owner, &loginB)
	f.vendor("Initech", owner, &loginC)
	pending := &model.Vendor{CompanyName: "Pending Co", Status: model.VendorPending, CreatedBy: owner.UserID}
	f.create(pending)
	s := f.rfxService()
	ctx := context.Background()

	if _, err := s.CreateRFx(ctx, owner, CreateRFxRequest{
		Title: "Cables", Type: "rfq", VendorIDs: []string{pending.ID.String()},
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("inviting a pending vendor: err = %v, want validation", err)
	}

	event, err := s.CreateRFx(ctx, owner, CreateRFxRequest{
		Title: "Cables", Type: "rfq", Budget: "5000", VendorIDs: []string{vendorA.ID.String()},
	})
	if err != nil {
		t.Fatalf("CreateRFx: %v", err)
	}
	if got := f.pusher.sentTo(loginA.UserID); got != 1 {
		t.Errorf("invitation pushes to vendor = %d, want 1", got)
	}
	id := event.ID.String()

	quote := SubmitRFxResponseRequest{QuotedPrice: "1500", LeadTimeDays: 14}
	if _, err := s.SubmitResponse(ctx, loginA, id, quote); !errors.Is(err, ErrValidation) {
		t.Fatalf("response to a draft: err = %v, want validation", err)
	}
	if _, err := s.UpdateStatus(ctx, owner, id, UpdateStatusRequest{Status: string(model.RFxPublished)}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := s.SubmitResponse(ctx, loginC, id, quote); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("uninvited vendor: err = %v, want permission denied", err)
	}
	if _, err := s.SubmitResponse(ctx, owner, id, quote); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("buyer responding: err = %v, want permission denied", err)
	}

	offer, err := s.SubmitResponse(ctx, loginA, id, quote)
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if !dec(offer.QuotedPrice).Equal(dec("1500")) || offer.VendorID != vendorA.ID {
		t.Errorf("offer = %+v", offer)
	}
	if got := f.pusher.sentTo(owner.UserID); got != 1 {
		t.Errorf("response pushes to owner = %d, want 1", got)
	}
	var inv model.RFxInvitation
	if err := f.db.First(&inv, "rfx_id = ? AND vendor_id = ?", event.ID, vendorA.ID).Error; err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	if inv.Status != model.InvitationResponded || inv.RespondedAt == nil {
		t.Errorf("invitation = %s at %v, want responded", inv.Status, inv.RespondedAt)
	}

	added, err := s.InviteVendors(ctx, owner, id, InviteVendorsRequest{VendorIDs: []string{vendorA.ID.String(), vendorB.ID.String()}})
	if err != nil {
		t.Fatalf("InviteVendors: %v", err)
	}
	if added != 1 {
		t.Errorf("newly invited = %d, want 1", added)
	}

	other := f.actor(model.RoleBuyerUser)
	if _, err := s.InviteVendors(ctx, other, id, InviteVendorsRequest{VendorIDs: []string{vendorB.ID.String()}}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-owner invite: err = %v, want permission denied", err)
	}
	if _, err := s.UpdateStatus(ctx, owner, id, UpdateStatusRequest{Status: string(model.RFxClosed)}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.InviteVendors(ctx, owner, id, InviteVendorsRequest{VendorIDs: []string{vendorB.ID.String()}}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("invite after close: err = %v, want invalid transition", err)
	}
	if n := f.count(&model.RFxInvitation{}, "rfx_id = ?", event.ID); n != 2 {
		t.Errorf("invitations = %d, want 2", n)
	}
}
