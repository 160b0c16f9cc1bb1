package workflow

import (
	"errors"
	"testing"

	"procurement/internal/model"
)

func TestRFxGraph(t *testing.T) {
	cases := []struct {
		from, to model.RFxStatus
		ok       bool
	}{
		{model.RFxDraft, model.RFxPublished, true},
		{model.RFxDraft, model.RFxActive, true},
		{model.RFxDraft, model.RFxClosed, false},
		{model.RFxPublished, model.RFxClosed, true},
		{model.RFxActive, model.RFxClosed, true},
		{model.RFxActive, model.RFxDraft, false},
		{model.RFxClosed, model.RFxActive, false},
		{model.RFxCancelled, model.RFxDraft, false},
	}
	for _, tc := range cases {
		if got := RFx.Can(tc.from, tc.to); got != tc.ok {
			t.Errorf("RFx.Can(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestPurchaseOrderGraph(t *testing.T) {
	path := []model.POStatus{
		model.PODraft, model.POPendingApproval, model.POApproved, model.POIssued,
		model.POAcknowledged, model.POShipped, model.PODelivered, model.POInvoiced, model.POPaid,
	}
	for i := 0; i+1 < len(path); i++ {
		if err := PurchaseOrder.Check(path[i], path[i+1]); err != nil {
			t.Fatalf("happy path step %d: %v", i, err)
		}
	}
	if PurchaseOrder.Can(model.POShipped, model.POCancelled) {
		t.Error("shipped orders must not be cancellable")
	}
	if !PurchaseOrder.Can(model.PORejected, model.POCancelled) {
		t.Error("rejected -> cancelled should be allowed")
	}
	if !PurchaseOrder.Terminal(model.POPaid) || !PurchaseOrder.Terminal(model.POCancelled) {
		t.Error("paid and cancelled are terminal")
	}
}

func TestCheckReturnsTypedError(t *testing.T) {
	err := Auction.Check(model.AuctionCompleted, model.AuctionLive)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) || te.Entity != "auction" || te.From != "completed" {
		t.Fatalf("unexpected error detail: %#v", err)
	}
}

func TestNextIsSorted(t *testing.T) {
	got := DirectOrder.Next(model.DirectOrderDraft)
	want := []model.DirectOrderStatus{model.DirectOrderCancelled, model.DirectOrderPendingApproval}
	if len(got) != len(want) {
		t.Fatalf("Next = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Next = %v, want %v", got, want)
		}
	}
}

func TestKnown(t *testing.T) {
	if !Vendor.Known(model.VendorRejected) {
		t.Error("rejected is a vendor status")
	}
	if Vendor.Known("archived") {
		t.Error("archived is not a vendor status")
	}
}
