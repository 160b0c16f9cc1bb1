package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApprovalFilter struct {
	Status     string
	EntityType string
}

type ApprovalRepository interface {
	Create(ctx context.Context, rec *model.ApprovalRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRecord, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ApprovalRecord, error)
	FindLatestForEntity(ctx context.Context, entityType string, entityID uuid.UUID) (*model.ApprovalRecord, error)
	List(ctx context.Context, f ApprovalFilter, page, limit int) ([]model.ApprovalRecord, int64, error)
	Update(ctx context.Context, rec *model.ApprovalRecord) error
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, rec *model.ApprovalRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

func (r *approvalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRecord, error) {
	var rec model.ApprovalRecord
	if err := GetDB(ctx, r.db).Preload("Approver").First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *approvalRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ApprovalRecord, error) {
	var rec model.ApprovalRecord
	if err := forUpdate(GetDB(ctx, r.db)).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *approvalRepository) FindLatestForEntity(ctx context.Context, entityType string, entityID uuid.UUID) (*model.ApprovalRecord, error) {
	var rec model.ApprovalRecord
	if err := GetDB(ctx, r.db).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *approvalRepository) List(ctx context.Context, f ApprovalFilter, page, limit int) ([]model.ApprovalRecord, int64, error) {
	var records []model.ApprovalRecord
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.EntityType != "" {
			db = db.Where("entity_type = ?", f.EntityType)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.ApprovalRecord{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Approver").Scopes(filter, paginate(page, limit)).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *approvalRepository) Update(ctx context.Context, rec *model.ApprovalRecord) error {
	return GetDB(ctx, r.db).Omit("Approver").Save(rec).Error
}
