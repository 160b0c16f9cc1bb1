package repository

import (
	"context"

	"procurement/internal/model"

	"gorm.io/gorm"
)

type AuditFilter struct {
	EntityID string
	Action   string
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, f AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, f AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if f.EntityID != "" {
			db = db.Where("entity_id = ?", f.EntityID)
		}
		if f.Action != "" {
			db = db.Where("action = ?", f.Action)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.AuditLog{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("User").Scopes(filter, paginate(page, limit)).Order("created_at desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
