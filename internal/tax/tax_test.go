package tax

import (
	"errors"
	"testing"
	"time"

	"procurement/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func computerRule() model.TaxRule {
	return model.TaxRule{
		Base:           model.Base{ID: uuid.New()},
		HSNCode:        "8471",
		Description:    "Automatic data processing machines",
		TotalRate:      d("18"),
		CentralRate:    d("9"),
		StateRate:      d("9"),
		InterstateRate: d("18"),
		CessRate:       d("0"),
		UnitOfMeasure:  "PCS",
		EffectiveFrom:  date("2024-01-01"),
		Status:         model.TaxRuleActive,
	}
}

func TestCalculateDomestic(t *testing.T) {
	b, err := Calculate(computerRule(), d("1000"), false)
	if err != nil {
		t.Fatal(err)
	}
	if !b.CGSTAmount.Equal(d("90")) || !b.SGSTAmount.Equal(d("90")) {
		t.Errorf("cgst/sgst = %s/%s, want 90/90", b.CGSTAmount, b.SGSTAmount)
	}
	if !b.IGSTAmount.IsZero() {
		t.Errorf("igst = %s, want 0", b.IGSTAmount)
	}
	if got := b.TotalAmount.StringFixed(2); got != "1180.00" {
		t.Errorf("total = %s, want 1180.00", got)
	}
	if b.TransactionType != TransactionDomestic {
		t.Errorf("transaction type = %s", b.TransactionType)
	}
}

func TestCalculateInterstate(t *testing.T) {
	b, err := Calculate(computerRule(), d("1000"), true)
	if err != nil {
		t.Fatal(err)
	}
	if !b.IGSTAmount.Equal(d("180")) {
		t.Errorf("igst = %s, want 180", b.IGSTAmount)
	}
	if !b.CGSTAmount.IsZero() || !b.SGSTAmount.IsZero() {
		t.Error("interstate supplies carry no cgst/sgst")
	}
	if got := b.TotalAmount.StringFixed(2); got != "1180.00" {
		t.Errorf("total = %s, want 1180.00", got)
	}
}

func TestCalculateIdentities(t *testing.T) {
	r := computerRule()
	r.CessRate = d("1.5")
	for _, amt := range []string{"0", "0.01", "999.99", "123456.78", "1"} {
		base := d(amt)
		dom, _ := Calculate(r, base, false)
		inter, _ := Calculate(r, base, true)

		if !dom.TotalTax.Equal(dom.CGSTAmount.Add(dom.SGSTAmount).Add(dom.CessAmount)) {
			t.Errorf("%s: domestic total tax is not the sum of components", amt)
		}
		if !inter.TotalTax.Equal(inter.IGSTAmount.Add(inter.CessAmount)) {
			t.Errorf("%s: interstate total tax is not the sum of components", amt)
		}
		// with central+state == interstate the two regimes tax the same
		if !dom.TotalTax.Equal(inter.TotalTax) {
			t.Errorf("%s: domestic %s != interstate %s", amt, dom.TotalTax, inter.TotalTax)
		}
		if !dom.TotalAmount.Equal(base.Add(dom.TotalTax).Round(2)) {
			t.Errorf("%s: total amount not rounded base+tax", amt)
		}
	}
}

func TestCalculateRejectsNegativeAmount(t *testing.T) {
	if _, err := Calculate(computerRule(), d("-1"), false); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		mod   func(*model.TaxRule)
		field string
	}{
		{"valid", func(*model.TaxRule) {}, ""},
		{"split mismatch", func(r *model.TaxRule) { r.StateRate = d("8") }, "central_rate"},
		{"interstate mismatch", func(r *model.TaxRule) { r.InterstateRate = d("12") }, "interstate_rate"},
		{"over 100", func(r *model.TaxRule) {
			r.TotalRate, r.InterstateRate, r.CentralRate, r.StateRate = d("120"), d("120"), d("60"), d("60")
		}, "total_rate"},
		{"negative cess", func(r *model.TaxRule) { r.CessRate = d("-1") }, "cess_rate"},
		{"three decimal split", func(r *model.TaxRule) { r.CentralRate, r.StateRate = d("9.125"), d("8.875") }, "central_rate"},
		{"three decimal cess", func(r *model.TaxRule) { r.CessRate = d("0.125") }, "cess_rate"},
		{"trailing zeros", func(r *model.TaxRule) { r.CentralRate, r.StateRate = d("9.000"), d("9.0") }, ""},
		{"to before from", func(r *model.TaxRule) { r.EffectiveTo = datePtr("2023-12-31") }, "effective_to"},
		{"to equals from", func(r *model.TaxRule) { r.EffectiveTo = datePtr("2024-01-01") }, "effective_to"},
		{"missing hsn", func(r *model.TaxRule) { r.HSNCode = "" }, "hsn_code"},
		{"bad status", func(r *model.TaxRule) { r.Status = "archived" }, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := computerRule()
			tc.mod(&r)
			err := Validate(r)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var re *RuleError
			if !errors.As(err, &re) || re.Field != tc.field {
				t.Fatalf("expected RuleError on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	old := computerRule()
	old.EffectiveFrom = date("2023-01-01")
	old.EffectiveTo = datePtr("2023-12-31")
	old.TotalRate, old.CentralRate, old.StateRate, old.InterstateRate = d("28"), d("14"), d("14"), d("28")

	current := computerRule()

	draft := computerRule()
	draft.EffectiveFrom = date("2024-06-01")
	draft.Status = model.TaxRuleDraft

	rules := []model.TaxRule{old, current, draft}

	cases := []struct {
		asOf string
		want *model.TaxRule
	}{
		{"2022-12-31", nil},
		{"2023-01-01", &old},
		{"2023-12-31", &old}, // end date inclusive
		{"2024-01-01", &current},
		{"2024-07-01", &current}, // draft never resolves
	}
	for _, tc := range cases {
		got, ok := Resolve(rules, "8471", date(tc.asOf))
		if tc.want == nil {
			if ok {
				t.Errorf("%s: expected no rule, got %s", tc.asOf, got.ID)
			}
			continue
		}
		if !ok || got.ID != tc.want.ID {
			t.Errorf("%s: resolved %v (ok=%v), want %s", tc.asOf, got.ID, ok, tc.want.ID)
		}
	}

	if _, ok := Resolve(rules, "9999", date("2024-01-01")); ok {
		t.Error("unknown HSN code must not resolve")
	}
}

func TestResolveLatestEffectiveFromWins(t *testing.T) {
	a := computerRule()
	b := computerRule()
	b.ID = uuid.New()
	b.EffectiveFrom = date("2024-03-01")

	got, ok := Resolve([]model.TaxRule{b, a}, "8471", date("2024-04-01"))
	if !ok || got.ID != b.ID {
		t.Fatalf("expected the later rule to win")
	}
}

func TestOverlapping(t *testing.T) {
	existing := computerRule()
	existing.EffectiveTo = datePtr("2024-12-31")

	inactive := computerRule()
	inactive.ID = uuid.New()
	inactive.EffectiveFrom = date("2025-01-01")
	inactive.Status = model.TaxRuleInactive

	cases := []struct {
		name     string
		from     string
		to       *time.Time
		overlaps bool
	}{
		{"before", "2023-01-01", datePtr("2023-12-31"), false},
		{"touching end", "2024-12-31", nil, true},
		{"after", "2025-01-01", nil, false}, // only the inactive rule is there
		{"open ended straddle", "2023-06-01", nil, true},
		{"inside", "2024-03-01", datePtr("2024-04-01"), true},
	}
	for _, tc := range cases {
		c := computerRule()
		c.ID = uuid.New()
		c.EffectiveFrom = date(tc.from)
		c.EffectiveTo = tc.to
		_, got := Overlapping(c, []model.TaxRule{existing, inactive})
		if got != tc.overlaps {
			t.Errorf("%s: overlaps = %v, want %v", tc.name, got, tc.overlaps)
		}
	}

	// a rule never overlaps itself
	if _, got := Overlapping(existing, []model.TaxRule{existing}); got {
		t.Error("rule overlaps itself")
	}
}
