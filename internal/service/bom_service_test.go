package service

import (
	"context"
	"errors"
	"testing"

	"procurement/internal/model"
)

func TestCreateBOMTotalsItems(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleBuyerUser)
	s := NewBOMService(f.boms, f.audit, f.tx)
	ctx := context.Background()

	req := CreateBOMRequest{
		Name: "Workstation",
		Items: []BOMItemPayload{
			{ItemName: "Monitor", Quantity: "2", UnitPrice: "10.50"},
			{ItemName: "Cable", Quantity: "3", UnitPrice: "5", TotalPrice: "15.00"},
			{ItemName: "Label", Quantity: "1"},
		},
	}
	bom, err := s.CreateBOM(ctx, buyer, req)
	if err != nil {
		t.Fatalf("CreateBOM: %v", err)
	}
	if bom.Version != "1.0" {
		t.Errorf("version = %q, want default 1.0", bom.Version)
	}
	if bom.TotalCost != "36.00" || len(bom.Items) != 3 {
		t.Errorf("bom = %s with %d items, want 36.00 with 3", bom.TotalCost, len(bom.Items))
	}

	if _, err := s.CreateBOM(ctx, buyer, req); !errors.Is(err, ErrConflict) {
		t.Fatalf("same name and version: err = %v, want conflict", err)
	}
	req.Version = "1.1"
	if _, err := s.CreateBOM(ctx, buyer, req); err != nil {
		t.Fatalf("new version: %v", err)
	}

	bad := CreateBOMRequest{Name: "Broken", Items: []BOMItemPayload{{ItemName: "X", Quantity: "2", UnitPrice: "4", TotalPrice: "9"}}}
	_, err = s.CreateBOM(ctx, buyer, bad)
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "items[0].total_price" {
		t.Fatalf("mismatched line total: err = %v", err)
	}
	if n := f.count(&model.BOM{}, ""); n != 2 {
		t.Errorf("BOMs stored = %d, want 2", n)
	}
}

func TestDeleteBOMOwnership(t *testing.T) {
	f := newFixture(t)
	creator := f.actor(model.RoleBuyerUser)
	other := f.actor(model.RoleBuyerUser)
	admin := f.actor(model.RoleBuyerAdmin)
	vendor := f.actor(model.RoleVendor)
	s := NewBOMService(f.boms, f.audit, f.tx)
	ctx := context.Background()

	if _, err := s.CreateBOM(ctx, vendor, CreateBOMRequest{Name: "X"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("vendor create: err = %v, want permission denied", err)
	}
	bom, err := s.CreateBOM(ctx, creator, CreateBOMRequest{Name: "Desk"})
	if err != nil {
		t.Fatalf("CreateBOM: %v", err)
	}
	if err := s.DeleteBOM(ctx, other, bom.ID.String()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("other buyer delete: err = %v, want permission denied", err)
	}
	if err := s.DeleteBOM(ctx, admin, bom.ID.String()); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := s.GetBOM(ctx, creator, bom.ID.String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted BOM: err = %v, want not found", err)
	}
}
