package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
)

// Pusher delivers a payload to a user's live connections. The websocket hub implements it.
type Pusher interface {
	SendToUser(userID uuid.UUID, payload []byte)
}

type NotificationResponse struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	Type       string  `json:"type"`
	IsRead     bool    `json:"is_read"`
	EntityType string  `json:"entity_type,omitempty"`
	EntityID   *string `json:"entity_id,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

type NotificationService interface {
	List(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error)
	MarkRead(ctx context.Context, actor Actor, id string) error
	MarkAllRead(ctx context.Context, actor Actor) (int64, error)
}

// notifier is the write side shared by the other services. Rows are
// written with the caller's context so they commit with its transaction;
// live delivery happens in push, after the commit.
type notifier struct {
	repo   repository.NotificationRepository
	pusher Pusher
}

func newNotifier(repo repository.NotificationRepository, pusher Pusher) *notifier {
	return &notifier{repo: repo, pusher: pusher}
}

func (n *notifier) notify(ctx context.Context, userID uuid.UUID, kind, title, message, entityType string, entityID *uuid.UUID) (*model.Notification, error) {
	if n == nil || userID == uuid.Nil {
		return nil, nil
	}
	row := &model.Notification{
		UserID:     userID,
		Title:      title,
		Message:    message,
		Type:       kind,
		EntityType: entityType,
		EntityID:   entityID,
	}
	if err := n.repo.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}
	return row, nil
}

func (n *notifier) push(rows ...*model.Notification) {
	if n == nil || n.pusher == nil {
		return
	}
	for _, row := range rows {
		if row == nil {
			continue
		}
		payload, err := json.Marshal(map[string]interface{}{
			"type": "notification",
			"data": toNotificationResponse(*row),
		})
		if err != nil {
			log.Printf("notification encode: %v", err)
			continue
		}
		n.pusher.SendToUser(row.UserID, payload)
	}
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) List(ctx context.Context, actor Actor, unreadOnly bool, page, limit int) ([]NotificationResponse, int64, error) {
	if err := actor.require(); err != nil {
		return nil, 0, err
	}
	rows, total, err := s.repo.ListByUser(ctx, actor.UserID, unreadOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	res := make([]NotificationResponse, 0, len(rows))
	for _, r := range rows {
		res = append(res, toNotificationResponse(r))
	}
	return res, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor Actor, id string) error {
	if err := actor.require(); err != nil {
		return err
	}
	nid, err := parseID("id", id)
	if err != nil {
		return err
	}
	ok, err := s.repo.MarkRead(ctx, nid, actor.UserID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return fmt.Errorf("notification %w", ErrNotFound)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	if err := actor.require(); err != nil {
		return 0, err
	}
	n, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	res := NotificationResponse{
		ID:         n.ID.String(),
		Title:      n.Title,
		Message:    n.Message,
		Type:       n.Type,
		IsRead:     n.IsRead,
		EntityType: n.EntityType,
		CreatedAt:  n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if n.EntityID != nil {
		s := n.EntityID.String()
		res.EntityID = &s
	}
	return res
}
