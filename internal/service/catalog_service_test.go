package service

import (
	"context"
	"errors"
	"testing"

	"procurement/internal/model"
	"procurement/internal/repository"
)

func TestCatalogCategoriesAndProducts(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleBuyerUser)
	manager := f.actor(model.RoleSourcingManager)
	vendor := f.actor(model.RoleVendor)
	s := NewCatalogService(repository.NewProductRepository(f.db), f.audit, f.tx)
	ctx := context.Background()

	root, err := s.CreateCategory(ctx, buyer, CreateCategoryRequest{Name: "IT", Code: "IT"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	child, err := s.CreateCategory(ctx, buyer, CreateCategoryRequest{Name: "Laptops", Code: "IT-LAP", ParentID: root.ID.String()})
	if err != nil {
		t.Fatalf("CreateCategory child: %v", err)
	}
	if child.Level != 2 {
		t.Errorf("child level = %d, want 2", child.Level)
	}
	if _, err := s.CreateCategory(ctx, vendor, CreateCategoryRequest{Name: "X", Code: "X"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("vendor category: err = %v, want permission denied", err)
	}

	off := false
	if _, err := s.CreateProduct(ctx, buyer, ProductRequest{ItemName: "ThinkPad", CategoryID: child.ID.String(), HSNCode: "8471", BasePrice: "950"}); err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	retired, err := s.CreateProduct(ctx, buyer, ProductRequest{ItemName: "Old Dell", CategoryID: child.ID.String(), IsActive: &off})
	if err != nil {
		t.Fatalf("CreateProduct inactive: %v", err)
	}
	if retired.IsActive {
		t.Error("product created inactive came back active")
	}
	if _, err := s.CreateProduct(ctx, buyer, ProductRequest{ItemName: "Ghost", CategoryID: "9f0c2f7e-0000-4000-8000-000000000000"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown category: err = %v, want not found", err)
	}
	if _, err := s.CreateProduct(ctx, buyer, ProductRequest{ItemName: "Cheap", BasePrice: "free"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad base price: err = %v, want validation", err)
	}

	_, total, err := s.GetProducts(ctx, buyer, child.ID.String(), "", 1, 20)
	if err != nil {
		t.Fatalf("buyer GetProducts: %v", err)
	}
	if total != 2 {
		t.Errorf("buyer sees %d products, want 2", total)
	}
	live, total, err := s.GetProducts(ctx, vendor, "", "", 1, 20)
	if err != nil {
		t.Fatalf("vendor GetProducts: %v", err)
	}
	if total != 1 || live[0].ItemName != "ThinkPad" {
		t.Errorf("vendor sees %+v, want only the active product", live)
	}

	if err := s.DeleteProduct(ctx, buyer, retired.ID.String()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("buyer_user delete: err = %v, want permission denied", err)
	}
	if err := s.DeleteProduct(ctx, manager, retired.ID.String()); err != nil {
		t.Fatalf("DeleteProduct: %v", err)
	}
	if n := f.count(&model.AuditLog{}, "action = ?", model.ActionDeleteProduct); n != 1 {
		t.Errorf("delete audit rows = %d, want 1", n)
	}
}
