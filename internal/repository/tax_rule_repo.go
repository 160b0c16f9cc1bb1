package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaxRuleFilter struct {
	HSNCode string
	Status  string
}

// HSNSummary is one row of the distinct HSN code listing
type HSNSummary struct {
	HSNCode     string `json:"hsn_code"`
	Description string `json:"description"`
}

type TaxRuleRepository interface {
	Create(ctx context.Context, rule *model.TaxRule) error
	Update(ctx context.Context, rule *model.TaxRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.TaxRule, error)
	// ListByHSN returns every version of a code regardless of status,
	// newest effective_from first.
	ListByHSN(ctx context.Context, hsn string) ([]model.TaxRule, error)
	List(ctx context.Context, f TaxRuleFilter, page, limit int) ([]model.TaxRule, int64, error)
	ListByStatus(ctx context.Context, status model.TaxRuleStatus) ([]model.TaxRule, error)
	DistinctHSN(ctx context.Context) ([]HSNSummary, error)
	// LockHSN serialises writers of one HSN code until the surrounding
	// transaction ends. It locks the code, not rows, so it also covers a
	// code with no versions yet.
	LockHSN(ctx context.Context, hsn string) error
}

type taxRuleRepository struct {
	db *gorm.DB
}

func NewTaxRuleRepository(db *gorm.DB) TaxRuleRepository {
	return &taxRuleRepository{db: db}
}

func (r *taxRuleRepository) Create(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *taxRuleRepository) Update(ctx context.Context, rule *model.TaxRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *taxRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TaxRule, error) {
	var rule model.TaxRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *taxRuleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.TaxRule, error) {
	var rule model.TaxRule
	if err := forUpdate(GetDB(ctx, r.db)).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *taxRuleRepository) ListByHSN(ctx context.Context, hsn string) ([]model.TaxRule, error) {
	var rules []model.TaxRule
	err := GetDB(ctx, r.db).Where("hsn_code = ?", hsn).Order("effective_from DESC").Find(&rules).Error
	return rules, err
}

func (r *taxRuleRepository) List(ctx context.Context, f TaxRuleFilter, page, limit int) ([]model.TaxRule, int64, error) {
	var rules []model.TaxRule
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if f.HSNCode != "" {
			db = db.Where("hsn_code = ?", f.HSNCode)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.TaxRule{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(filter, paginate(page, limit)).Order("hsn_code ASC, effective_from DESC").Find(&rules).Error; err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}

func (r *taxRuleRepository) ListByStatus(ctx context.Context, status model.TaxRuleStatus) ([]model.TaxRule, error) {
	var rules []model.TaxRule
	err := GetDB(ctx, r.db).Where("status = ?", status).Order("hsn_code ASC, effective_from DESC").Find(&rules).Error
	return rules, err
}

func (r *taxRuleRepository) DistinctHSN(ctx context.Context) ([]HSNSummary, error) {
	var out []HSNSummary
	err := GetDB(ctx, r.db).Model(&model.TaxRule{}).
		Select("hsn_code, MAX(description) AS description").
		Where("status = ?", model.TaxRuleActive).
		Group("hsn_code").
		Order("hsn_code").
		Scan(&out).Error
	return out, err
}

func (r *taxRuleRepository) LockHSN(ctx context.Context, hsn string) error {
	db := GetDB(ctx, r.db)
	// sqlite holds a database-wide write lock, so only postgres needs one
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", hsn).Error
}
