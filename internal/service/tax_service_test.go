package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"
)

func rule18(from string) TaxRuleRequest {
	return TaxRuleRequest{
		HSNCode:        "8471",
		Description:    "Computers",
		TotalRate:      "18",
		CentralRate:    "9",
		StateRate:      "9",
		InterstateRate: "18",
		EffectiveFrom:  from,
	}
}

func day(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTaxRuleLifecycle(t *testing.T) {
	f := newFixture(t)
	admin := f.actor(model.RoleBuyerAdmin)
	s := f.taxService()
	ctx := context.Background()

	created, err := s.CreateRule(ctx, admin, rule18("2024-01-01"))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	calc, err := s.Calculate(ctx, CalculateTaxRequest{HSNCode: "8471", Amount: "1000", EffectiveDate: "2024-06-01"})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !calc.CGSTAmount.Equal(dec("90")) || !calc.TotalAmount.Equal(dec("1180")) {
		t.Errorf("breakdown = cgst %s total %s, want 90 / 1180", calc.CGSTAmount, calc.TotalAmount)
	}
	inter, err := s.Calculate(ctx, CalculateTaxRequest{HSNCode: "8471", Amount: "1000", IsInterstate: true, EffectiveDate: "2024-06-01"})
	if err != nil {
		t.Fatalf("Calculate interstate: %v", err)
	}
	if !inter.IGSTAmount.Equal(dec("180")) || !inter.CGSTAmount.IsZero() {
		t.Errorf("interstate = igst %s cgst %s", inter.IGSTAmount, inter.CGSTAmount)
	}

	if _, err := s.CreateRule(ctx, admin, rule18("2025-01-01")); !errors.Is(err, ErrConflict) {
		t.Fatalf("overlapping rule: err = %v, want conflict", err)
	}
	if _, err := s.UpdateRule(ctx, admin, created.ID, rule18("2024-02-01")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("editing an active rule: err = %v, want invalid transition", err)
	}

	next := rule18("2025-01-01")
	next.TotalRate, next.CentralRate, next.StateRate, next.InterstateRate = "28", "14", "14", "28"
	if _, err := s.SupersedeRule(ctx, admin, created.ID, rule18("2024-01-01")); !errors.Is(err, ErrValidation) {
		t.Fatalf("supersede on the same day: err = %v, want validation", err)
	}
	if _, err := s.SupersedeRule(ctx, admin, created.ID, rule18("2024-01-02")); !errors.Is(err, ErrValidation) {
		t.Fatalf("supersede leaving a zero-length window: err = %v, want validation", err)
	}
	superseding, err := s.SupersedeRule(ctx, admin, created.ID, next)
	if err != nil {
		t.Fatalf("SupersedeRule: %v", err)
	}
	if superseding.SupersedesID == nil || *superseding.SupersedesID != created.ID {
		t.Errorf("supersedes_id = %v, want %s", superseding.SupersedesID, created.ID)
	}

	cases := []struct {
		on   string
		rate string
	}{
		{"2024-12-31", "18"}, // effective_to is inclusive
		{"2025-01-01", "28"},
		{"2030-06-30", "28"},
	}
	for _, c := range cases {
		r, err := s.Resolve(ctx, "8471", day(c.on))
		if err != nil {
			t.Fatalf("Resolve %s: %v", c.on, err)
		}
		if !r.TotalRate.Equal(dec(c.rate)) {
			t.Errorf("rate on %s = %s, want %s", c.on, r.TotalRate, c.rate)
		}
	}
	if _, err := s.Resolve(ctx, "8471", day("2023-12-31")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("before first rule: err = %v, want not found", err)
	}

	active, err := s.ActiveConfigurations(ctx, day("2025-03-01"))
	if err != nil {
		t.Fatalf("ActiveConfigurations: %v", err)
	}
	if len(active) != 1 || active[0].TotalRate != "28.00" {
		t.Errorf("active configurations = %+v", active)
	}
}

func TestDraftTaxRuleIsEditable(t *testing.T) {
	f := newFixture(t)
	admin := f.actor(model.RoleSourcingManager)
	s := f.taxService()
	ctx := context.Background()

	req := rule18("2024-01-01")
	req.Status = string(model.TaxRuleDraft)
	draft, err := s.CreateRule(ctx, admin, req)
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if _, err := s.Resolve(ctx, "8471", day("2024-06-01")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("drafts must not resolve: err = %v", err)
	}

	req.Description = "Laptops and desktops"
	updated, err := s.UpdateRule(ctx, admin, draft.ID, req)
	if err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	if updated.Description != "Laptops and desktops" || updated.ID != draft.ID {
		t.Errorf("updated = %+v", updated)
	}
	if _, err := s.SupersedeRule(ctx, admin, draft.ID, rule18("2025-01-01")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("superseding a draft: err = %v, want invalid transition", err)
	}
}

func TestTaxRuleValidationAndPermissions(t *testing.T) {
	f := newFixture(t)
	admin := f.actor(model.RoleBuyerAdmin)
	buyer := f.actor(model.RoleBuyerUser)
	s := f.taxService()
	ctx := context.Background()

	if _, err := s.CreateRule(ctx, buyer, rule18("2024-01-01")); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("buyer_user: err = %v, want permission denied", err)
	}

	split := rule18("2024-01-01")
	split.StateRate = "8"
	_, err := s.CreateRule(ctx, admin, split)
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "central_rate" {
		t.Fatalf("central+state mismatch: err = %v", err)
	}

	backwards := rule18("2024-01-01")
	backwards.EffectiveTo = "2023-01-01"
	if _, err := s.CreateRule(ctx, admin, backwards); !errors.Is(err, ErrValidation) {
		t.Fatalf("effective_to before from: err = %v, want validation", err)
	}

	if _, err := s.Calculate(ctx, CalculateTaxRequest{HSNCode: "9999", Amount: "10"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown HSN: err = %v, want not found", err)
	}
	if n := f.count(&model.TaxRule{}, ""); n != 0 {
		t.Errorf("tax rules stored = %d, want 0", n)
	}
}

// lockRecordingTaxRepo records the HSN lock and overlap reads in call order
type lockRecordingTaxRepo struct {
	repository.TaxRuleRepository
	calls []string
}

func (r *lockRecordingTaxRepo) LockHSN(ctx context.Context, hsn string) error {
	r.calls = append(r.calls, "lock "+hsn)
	return r.TaxRuleRepository.LockHSN(ctx, hsn)
}

func (r *lockRecordingTaxRepo) ListByHSN(ctx context.Context, hsn string) ([]model.TaxRule, error) {
	r.calls = append(r.calls, "list "+hsn)
	return r.TaxRuleRepository.ListByHSN(ctx, hsn)
}

func TestOverlapCheckHoldsHSNLock(t *testing.T) {
	f := newFixture(t)
	admin := f.actor(model.RoleBuyerAdmin)
	repo := &lockRecordingTaxRepo{TaxRuleRepository: f.taxRules}
	s := NewTaxService(repo, f.audit, f.tx, nil).(*taxService)
	s.now = func() time.Time { return t0 }
	ctx := context.Background()

	created, err := s.CreateRule(ctx, admin, rule18("2024-01-01"))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	next := rule18("2025-01-01")
	next.TotalRate, next.CentralRate, next.StateRate, next.InterstateRate = "28", "14", "14", "28"
	if _, err := s.SupersedeRule(ctx, admin, created.ID, next); err != nil {
		t.Fatalf("SupersedeRule: %v", err)
	}

	want := []string{"lock 8471", "list 8471", "lock 8471", "list 8471"}
	if len(repo.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", repo.calls, want)
	}
	for i := range want {
		if repo.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", repo.calls, want)
		}
	}
}
