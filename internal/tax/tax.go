// Package tax implements GST arithmetic and HSN rule selection without any
// storage dependency. Amounts use shopspring/decimal throughout; only the
// final total is rounded.
package tax

import (
	"errors"
	"fmt"
	"time"

	"procurement/internal/model"

	"github.com/shopspring/decimal"
)

const (
	TransactionDomestic   = "domestic"
	TransactionInterstate = "interstate"
)

var (
	hundred = decimal.NewFromInt(100)
	fifty   = decimal.NewFromInt(50)
)

var ErrInvalidRule = errors.New("invalid tax rule")

// RuleError names the offending field of a rejected rule.
type RuleError struct {
	Field  string
	Reason string
}

func (e *RuleError) Error() string { return e.Field + ": " + e.Reason }

func (e *RuleError) Unwrap() error { return ErrInvalidRule }

// Breakdown is the result of applying a rule to a base amount
type Breakdown struct {
	HSNCode         string          `json:"hsn_code"`
	TransactionType string          `json:"transaction_type"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	CGSTRate        decimal.Decimal `json:"cgst_rate"`
	SGSTRate        decimal.Decimal `json:"sgst_rate"`
	IGSTRate        decimal.Decimal `json:"igst_rate"`
	CessRate        decimal.Decimal `json:"cess_rate"`
	CGSTAmount      decimal.Decimal `json:"cgst_amount"`
	SGSTAmount      decimal.Decimal `json:"sgst_amount"`
	IGSTAmount      decimal.Decimal `json:"igst_amount"`
	CessAmount      decimal.Decimal `json:"cess_amount"`
	TotalTax        decimal.Decimal `json:"total_tax"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// Calculate applies rule to amount. Interstate supplies carry IGST only,
// domestic supplies carry CGST and SGST. Cess applies to both.
func Calculate(rule model.TaxRule, amount decimal.Decimal, interstate bool) (Breakdown, error) {
	if amount.IsNegative() {
		return Breakdown{}, &RuleError{Field: "amount", Reason: "must not be negative"}
	}

	b := Breakdown{
		HSNCode:         rule.HSNCode,
		TransactionType: TransactionDomestic,
		BaseAmount:      amount,
		CGSTRate:        decimal.Zero,
		SGSTRate:        decimal.Zero,
		IGSTRate:        decimal.Zero,
		CessRate:        rule.CessRate,
		CGSTAmount:      decimal.Zero,
		SGSTAmount:      decimal.Zero,
		IGSTAmount:      decimal.Zero,
	}

	if interstate {
		b.TransactionType = TransactionInterstate
		b.IGSTRate = rule.InterstateRate
		b.IGSTAmount = percentOf(amount, rule.InterstateRate)
	} else {
		b.CGSTRate = rule.CentralRate
		b.SGSTRate = rule.StateRate
		b.CGSTAmount = percentOf(amount, rule.CentralRate)
		b.SGSTAmount = percentOf(amount, rule.StateRate)
	}
	b.CessAmount = percentOf(amount, rule.CessRate)

	b.TotalTax = b.CGSTAmount.Add(b.SGSTAmount).Add(b.IGSTAmount).Add(b.CessAmount)
	b.TotalAmount = amount.Add(b.TotalTax).Round(2)
	return b, nil
}

// percentOf is exact: multiplying and shifting the exponent never divides.
func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Shift(-2)
}

// Validate checks the rate identities and the effective window of r.
func Validate(r model.TaxRule) error {
	if r.HSNCode == "" {
		return &RuleError{Field: "hsn_code", Reason: "is required"}
	}

	rates := []struct {
		field string
		v     decimal.Decimal
		max   decimal.Decimal
	}{
		{"total_rate", r.TotalRate, hundred},
		{"central_rate", r.CentralRate, fifty},
		{"state_rate", r.StateRate, fifty},
		{"interstate_rate", r.InterstateRate, hundred},
		{"cess_rate", r.CessRate, hundred},
	}
	for _, rt := range rates {
		if rt.v.IsNegative() || rt.v.GreaterThan(rt.max) {
			return &RuleError{Field: rt.field, Reason: fmt.Sprintf("must be between 0 and %s", rt.max)}
		}
		// rate columns are decimal(5,2)
		if !rt.v.Equal(rt.v.Round(2)) {
			return &RuleError{Field: rt.field, Reason: "must have at most 2 decimal places"}
		}
	}

	if !r.CentralRate.Add(r.StateRate).Equal(r.TotalRate) {
		return &RuleError{
			Field:  "central_rate",
			Reason: fmt.Sprintf("central (%s%%) + state (%s%%) must equal total rate (%s%%)", r.CentralRate, r.StateRate, r.TotalRate),
		}
	}
	if !r.InterstateRate.Equal(r.TotalRate) {
		return &RuleError{
			Field:  "interstate_rate",
			Reason: fmt.Sprintf("interstate rate (%s%%) must equal total rate (%s%%)", r.InterstateRate, r.TotalRate),
		}
	}

	if r.EffectiveFrom.IsZero() {
		return &RuleError{Field: "effective_from", Reason: "is required"}
	}
	if r.EffectiveTo != nil && !Day(*r.EffectiveTo).After(Day(r.EffectiveFrom)) {
		return &RuleError{Field: "effective_to", Reason: "must be after effective_from"}
	}

	switch r.Status {
	case model.TaxRuleActive, model.TaxRuleInactive, model.TaxRuleDraft:
	default:
		return &RuleError{Field: "status", Reason: "must be one of active, inactive, draft"}
	}
	return nil
}

// Day truncates t to its calendar date in UTC, which is how date columns
// come back from the database.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InEffect reports whether asOf falls inside r's window. Both ends are inclusive.
func InEffect(r model.TaxRule, asOf time.Time) bool {
	d := Day(asOf)
	if Day(r.EffectiveFrom).After(d) {
		return false
	}
	return r.EffectiveTo == nil || !Day(*r.EffectiveTo).Before(d)
}

// Resolve picks the active rule in effect on asOf. When several qualify the
// one with the latest effective_from wins.
func Resolve(rules []model.TaxRule, hsn string, asOf time.Time) (model.TaxRule, bool) {
	var (
		best  model.TaxRule
		found bool
	)
	for _, r := range rules {
		if r.HSNCode != hsn || r.Status != model.TaxRuleActive || !InEffect(r, asOf) {
			continue
		}
		if !found || r.EffectiveFrom.After(best.EffectiveFrom) {
			best, found = r, true
		}
	}
	return best, found
}

// Overlapping returns the first rule in existing whose window intersects
// candidate's for the same HSN code. Inactive rules and candidate itself
// are ignored.
func Overlapping(candidate model.TaxRule, existing []model.TaxRule) (model.TaxRule, bool) {
	if candidate.Status == model.TaxRuleInactive {
		return model.TaxRule{}, false
	}
	for _, r := range existing {
		if r.ID == candidate.ID || r.HSNCode != candidate.HSNCode || r.Status == model.TaxRuleInactive {
			continue
		}
		if windowsIntersect(candidate, r) {
			return r, true
		}
	}
	return model.TaxRule{}, false
}

func windowsIntersect(a, b model.TaxRule) bool {
	// [a.from, a.to] and [b.from, b.to] intersect iff each starts before the other ends.
	if a.EffectiveTo != nil && Day(b.EffectiveFrom).After(Day(*a.EffectiveTo)) {
		return false
	}
	if b.EffectiveTo != nil && Day(a.EffectiveFrom).After(Day(*b.EffectiveTo)) {
		return false
	}
	return true
}
