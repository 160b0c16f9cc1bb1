package service

import (
	"context"
	"fmt"
	"time"

	"procurement/internal/cache"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/tax"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type TaxRuleRequest struct {
	HSNCode        string `json:"hsn_code" binding:"required,max=20"`
	Description    string `json:"description" binding:"required"`
	TotalRate      string `json:"total_rate" binding:"required"` // decimal percent, e.g. "18.00"
	CentralRate    string `json:"central_rate" binding:"required"`
	StateRate      string `json:"state_rate" binding:"required"`
	InterstateRate string `json:"interstate_rate" binding:"required"`
	CessRate       string `json:"cess_rate"`
	UnitOfMeasure  string `json:"unit_of_measure"`
	EffectiveFrom  string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo    string `json:"effective_to"`                      // YYYY-MM-DD, nullable
	Status         string `json:"status" binding:"omitempty,oneof=active inactive draft"`
	Notes          string `json:"notes"`
}

type TaxRuleListFilter struct {
	HSNCode       string
	Status        string
	EffectiveDate string // only rules in effect on this date
	Page          int
	Limit         int
}

type CalculateTaxRequest struct {
	HSNCode       string `json:"hsn_code" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	IsInterstate  bool   `json:"is_interstate"`
	EffectiveDate string `json:"effective_date"` // defaults to today
}

type LookupHSNRequest struct {
	HSNCode       string `json:"hsn_code" binding:"required"`
	EffectiveDate string `json:"effective_date"`
}

type TaxRuleResponse struct {
	ID             string  `json:"id"`
	HSNCode        string  `json:"hsn_code"`
	Description    string  `json:"description"`
	TotalRate      string  `json:"total_rate"`
	CentralRate    string  `json:"central_rate"`
	StateRate      string  `json:"state_rate"`
	InterstateRate string  `json:"interstate_rate"`
	CessRate       string  `json:"cess_rate"`
	UnitOfMeasure  string  `json:"unit_of_measure"`
	EffectiveFrom  string  `json:"effective_from"`
	EffectiveTo    *string `json:"effective_to"`
	Status         string  `json:"status"`
	Notes          string  `json:"notes"`
	SupersedesID   *string `json:"supersedes_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

type TaxCalculationResponse struct {
	tax.Breakdown
	Description   string `json:"hsn_description"`
	UnitOfMeasure string `json:"uom"`
	RuleID        string `json:"rule_id"`
}

// --- Interface ---

type TaxService interface {
	ListRules(ctx context.Context, f TaxRuleListFilter) ([]TaxRuleResponse, int64, error)
	CreateRule(ctx context.Context, actor Actor, req TaxRuleRequest) (TaxRuleResponse, error)
	UpdateRule(ctx context.Context, actor Actor, id string, req TaxRuleRequest) (TaxRuleResponse, error)
	SupersedeRule(ctx context.Context, actor Actor, id string, req TaxRuleRequest) (TaxRuleResponse, error)
	Resolve(ctx context.Context, hsn string, asOf time.Time) (model.TaxRule, error)
	Calculate(ctx context.Context, req CalculateTaxRequest) (TaxCalculationResponse, error)
	LookupHSN(ctx context.Context, req LookupHSNRequest) (TaxRuleResponse, error)
	HSNCodes(ctx context.Context) ([]repository.HSNSummary, error)
	ActiveConfigurations(ctx context.Context, asOf time.Time) ([]TaxRuleResponse, error)
}

type taxService struct {
	repo      repository.TaxRuleRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	cache     cache.TaxRules
	now       func() time.Time
}

// NewTaxService wires the tax master. rules may be nil.
func NewTaxService(repo repository.TaxRuleRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, rules cache.TaxRules) TaxService {
	if rules == nil {
		rules = cache.NewTaxRules(nil, 0)
	}
	return &taxService{repo: repo, auditRepo: auditRepo, txManager: txManager, cache: rules, now: time.Now}
}

// --- Implementation ---

func (s *taxService) ListRules(ctx context.Context, f TaxRuleListFilter) ([]TaxRuleResponse, int64, error) {
	if f.EffectiveDate != "" {
		asOf, err := parseDate("effective_date", f.EffectiveDate)
		if err != nil {
			return nil, 0, err
		}
		// windows are evaluated in Go so the result does not depend on the
		// database's date comparison rules
		rules, _, err := s.repo.List(ctx, repository.TaxRuleFilter{HSNCode: f.HSNCode, Status: f.Status}, 1, 0)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to fetch tax rules: %w", err)
		}
		res := make([]TaxRuleResponse, 0, len(rules))
		for _, r := range rules {
			if tax.InEffect(r, asOf) {
				res = append(res, toTaxRuleResponse(r))
			}
		}
		return res, int64(len(res)), nil
	}

	rules, total, err := s.repo.List(ctx, repository.TaxRuleFilter{HSNCode: f.HSNCode, Status: f.Status}, f.Page, f.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax rules: %w", err)
	}
	res := make([]TaxRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toTaxRuleResponse(r))
	}
	return res, total, nil
}

func (s *taxService) CreateRule(ctx context.Context, actor Actor, req TaxRuleRequest) (TaxRuleResponse, error) {
	if err := actor.require(taxAdminRoles...); err != nil {
		return TaxRuleResponse{}, err
	}
	rule, err := parseTaxRule(req)
	if err != nil {
		return TaxRuleResponse{}, err
	}
	uid := actor.UserID
	rule.CreatedBy, rule.UpdatedBy = &uid, &uid

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkOverlap(txCtx, rule); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, &rule); err != nil {
			return dbError("tax rule", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionCreateTaxRule, rule.ID.String(),
			rule.HSNCode+" "+rule.TotalRate.StringFixed(2)+"%", req)
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}
	s.cache.Invalidate(ctx, rule.HSNCode)
	return toTaxRuleResponse(rule), nil
}

// UpdateRule edits a draft in place. Active and inactive rules are history
// and change only through SupersedeRule.
func (s *taxService) UpdateRule(ctx context.Context, actor Actor, id string, req TaxRuleRequest) (TaxRuleResponse, error) {
	if err := actor.require(taxAdminRoles...); err != nil {
		return TaxRuleResponse{}, err
	}
	ruleID, err := parseID("id", id)
	if err != nil {
		return TaxRuleResponse{}, err
	}
	next, err := parseTaxRule(req)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	var rule *model.TaxRule
	var oldHSN string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rule, err = s.repo.FindByIDForUpdate(txCtx, ruleID)
		if err != nil {
			return dbError("tax rule", err)
		}
		if rule.Status != model.TaxRuleDraft {
			return fmt.Errorf("only draft tax rules can be edited, supersede %s rules instead: %w", rule.Status, ErrInvalidTransition)
		}
		oldHSN = rule.HSNCode

		next.Base = rule.Base
		next.CreatedBy = rule.CreatedBy
		next.SupersedesID = rule.SupersedesID
		uid := actor.UserID
		next.UpdatedBy = &uid
		if err := s.checkOverlap(txCtx, next); err != nil {
			return err
		}
		*rule = next
		if err := s.repo.Update(txCtx, rule); err != nil {
			return dbError("tax rule", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionUpdateTaxRule, rule.ID.String(),
			rule.HSNCode+" "+rule.TotalRate.StringFixed(2)+"%", req)
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}
	s.cache.Invalidate(ctx, oldHSN)
	s.cache.Invalidate(ctx, rule.HSNCode)
	return toTaxRuleResponse(*rule), nil
}

// SupersedeRule closes an active rule the day before req.EffectiveFrom and
// inserts the new version, keeping the history append-only.
func (s *taxService) SupersedeRule(ctx context.Context, actor Actor, id string, req TaxRuleRequest) (TaxRuleResponse, error) {
	if err := actor.require(taxAdminRoles...); err != nil {
		return TaxRuleResponse{}, err
	}
	ruleID, err := parseID("id", id)
	if err != nil {
		return TaxRuleResponse{}, err
	}
	next, err := parseTaxRule(req)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		old, err := s.repo.FindByIDForUpdate(txCtx, ruleID)
		if err != nil {
			return dbError("tax rule", err)
		}
		if old.Status != model.TaxRuleActive {
			return fmt.Errorf("only active tax rules can be superseded: %w", ErrInvalidTransition)
		}
		if next.HSNCode != old.HSNCode {
			return invalid("hsn_code", "must match the superseded rule (%s)", old.HSNCode)
		}
		// the old rule closes the day before, and its window must stay non-empty
		closeAt := tax.Day(next.EffectiveFrom).AddDate(0, 0, -1)
		if !closeAt.After(tax.Day(old.EffectiveFrom)) {
			return invalid("effective_from", "must be at least two days after %s", old.EffectiveFrom.Format(dateLayout))
		}
		if old.EffectiveTo == nil || old.EffectiveTo.After(closeAt) {
			old.EffectiveTo = &closeAt
		}
		uid := actor.UserID
		old.UpdatedBy = &uid
		if err := s.repo.Update(txCtx, old); err != nil {
			return dbError("tax rule", err)
		}

		next.SupersedesID = &old.ID
		next.CreatedBy, next.UpdatedBy = &uid, &uid
		if err := s.checkOverlap(txCtx, next); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, &next); err != nil {
			return dbError("tax rule", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionSupersedeTaxRule, next.ID.String(), next.HSNCode,
			map[string]string{"superseded_id": old.ID.String(), "effective_from": req.EffectiveFrom})
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}
	s.cache.Invalidate(ctx, next.HSNCode)
	return toTaxRuleResponse(next), nil
}

func (s *taxService) Resolve(ctx context.Context, hsn string, asOf time.Time) (model.TaxRule, error) {
	rules, err := s.rulesFor(ctx, hsn)
	if err != nil {
		return model.TaxRule{}, err
	}
	rule, ok := tax.Resolve(rules, hsn, asOf)
	if !ok {
		return model.TaxRule{}, fmt.Errorf("no active tax rule for HSN %s on %s: %w", hsn, asOf.Format(dateLayout), ErrNotFound)
	}
	return rule, nil
}

func (s *taxService) Calculate(ctx context.Context, req CalculateTaxRequest) (TaxCalculationResponse, error) {
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return TaxCalculationResponse{}, err
	}
	asOf, err := s.asOf(req.EffectiveDate)
	if err != nil {
		return TaxCalculationResponse{}, err
	}
	rule, err := s.Resolve(ctx, req.HSNCode, asOf)
	if err != nil {
		return TaxCalculationResponse{}, err
	}
	b, err := tax.Calculate(rule, amount, req.IsInterstate)
	if err != nil {
		return TaxCalculationResponse{}, fromRuleError(err)
	}
	return TaxCalculationResponse{
		Breakdown:     b,
		Description:   rule.Description,
		UnitOfMeasure: rule.UnitOfMeasure,
		RuleID:        rule.ID.String(),
	}, nil
}

func (s *taxService) LookupHSN(ctx context.Context, req LookupHSNRequest) (TaxRuleResponse, error) {
	asOf, err := s.asOf(req.EffectiveDate)
	if err != nil {
		return TaxRuleResponse{}, err
	}
	rule, err := s.Resolve(ctx, req.HSNCode, asOf)
	if err != nil {
		return TaxRuleResponse{}, err
	}
	return toTaxRuleResponse(rule), nil
}

func (s *taxService) HSNCodes(ctx context.Context) ([]repository.HSNSummary, error) {
	codes, err := s.repo.DistinctHSN(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list HSN codes: %w", err)
	}
	return codes, nil
}

// ActiveConfigurations returns, per HSN code, the rule that resolves on asOf
func (s *taxService) ActiveConfigurations(ctx context.Context, asOf time.Time) ([]TaxRuleResponse, error) {
	rules, err := s.repo.ListByStatus(ctx, model.TaxRuleActive)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tax rules: %w", err)
	}
	byCode := make(map[string][]model.TaxRule)
	var order []string
	for _, r := range rules {
		if _, seen := byCode[r.HSNCode]; !seen {
			order = append(order, r.HSNCode)
		}
		byCode[r.HSNCode] = append(byCode[r.HSNCode], r)
	}
	res := make([]TaxRuleResponse, 0, len(order))
	for _, code := range order {
		if r, ok := tax.Resolve(byCode[code], code, asOf); ok {
			res = append(res, toTaxRuleResponse(r))
		}
	}
	return res, nil
}

// --- Helpers ---

func (s *taxService) asOf(raw string) (time.Time, error) {
	if raw == "" {
		return s.now(), nil
	}
	return parseDate("effective_date", raw)
}

func (s *taxService) rulesFor(ctx context.Context, hsn string) ([]model.TaxRule, error) {
	if rules, ok := s.cache.Get(ctx, hsn); ok {
		return rules, nil
	}
	rules, err := s.repo.ListByHSN(ctx, hsn)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax rules: %w", err)
	}
	s.cache.Set(ctx, hsn, rules)
	return rules, nil
}

// checkOverlap must run inside the writing transaction; the HSN lock is
// held until it commits.
func (s *taxService) checkOverlap(ctx context.Context, candidate model.TaxRule) error {
	if err := s.repo.LockHSN(ctx, candidate.HSNCode); err != nil {
		return fmt.Errorf("failed to lock HSN %s: %w", candidate.HSNCode, err)
	}
	existing, err := s.repo.ListByHSN(ctx, candidate.HSNCode)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}
	if other, found := tax.Overlapping(candidate, existing); found {
		to := "open"
		if other.EffectiveTo != nil {
			to = other.EffectiveTo.Format(dateLayout)
		}
		return fmt.Errorf("a tax rule for HSN %s already covers %s..%s: %w",
			candidate.HSNCode, other.EffectiveFrom.Format(dateLayout), to, ErrConflict)
	}
	return nil
}

func parseTaxRule(req TaxRuleRequest) (model.TaxRule, error) {
	rates := map[string]string{
		"total_rate":      req.TotalRate,
		"central_rate":    req.CentralRate,
		"state_rate":      req.StateRate,
		"interstate_rate": req.InterstateRate,
		"cess_rate":       req.CessRate,
	}
	parsed := make(map[string]decimal.Decimal, len(rates))
	for field, raw := range rates {
		if raw == "" && field == "cess_rate" {
			parsed[field] = decimal.Zero
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return model.TaxRule{}, invalid(field, "must be a decimal number")
		}
		parsed[field] = d
	}

	from, err := parseDate("effective_from", req.EffectiveFrom)
	if err != nil {
		return model.TaxRule{}, err
	}
	to, err := parseOptionalDate("effective_to", req.EffectiveTo)
	if err != nil {
		return model.TaxRule{}, err
	}

	status := model.TaxRuleStatus(req.Status)
	if status == "" {
		status = model.TaxRuleActive
	}

	rule := model.TaxRule{
		HSNCode:        req.HSNCode,
		Description:    req.Description,
		TotalRate:      parsed["total_rate"],
		CentralRate:    parsed["central_rate"],
		StateRate:      parsed["state_rate"],
		InterstateRate: parsed["interstate_rate"],
		CessRate:       parsed["cess_rate"],
		UnitOfMeasure:  req.UnitOfMeasure,
		EffectiveFrom:  from,
		EffectiveTo:    to,
		Status:         status,
		Notes:          req.Notes,
	}
	if err := tax.Validate(rule); err != nil {
		return model.TaxRule{}, fromRuleError(err)
	}
	return rule, nil
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	resp := TaxRuleResponse{
		ID:             r.ID.String(),
		HSNCode:        r.HSNCode,
		Description:    r.Description,
		TotalRate:      r.TotalRate.StringFixed(2),
		CentralRate:    r.CentralRate.StringFixed(2),
		StateRate:      r.StateRate.StringFixed(2),
		InterstateRate: r.InterstateRate.StringFixed(2),
		CessRate:       r.CessRate.StringFixed(2),
		UnitOfMeasure:  r.UnitOfMeasure,
		EffectiveFrom:  r.EffectiveFrom.Format(dateLayout),
		EffectiveTo:    formatDate(r.EffectiveTo),
		Status:         string(r.Status),
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
	if r.SupersedesID != nil {
		s := r.SupersedesID.String()
		resp.SupersedesID = &s
	}
	return resp
}
