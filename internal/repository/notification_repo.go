package repository

import (
	"context"

	"procurement/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return GetDB(ctx, r.db).Create(n).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	var items []model.Notification
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", userID)
		if unreadOnly {
			db = db.Where("is_read = ?", false)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Notification{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(filter, paginate(page, limit)).Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkRead only touches notifications owned by userID
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
