package service

import (
	"context"
	"errors"
	"testing"

	"procurement/internal/model"
)

func TestNotificationsAreScopedToTheirUser(t *testing.T) {
	f := newFixture(t)
	alice := f.actor(model.RoleBuyerUser)
	bob := f.actor(model.RoleVendor)
	w := newNotifier(f.notifications, f.pusher)
	s := NewNotificationService(f.notifications)
	ctx := context.Background()

	var mine []*model.Notification
	for _, title := range []string{"one", "two"} {
		row, err := w.notify(ctx, alice.UserID, model.NotificationInfo, title, "msg", "", nil)
		if err != nil {
			t.Fatalf("notify: %v", err)
		}
		mine = append(mine, row)
	}
	theirs, err := w.notify(ctx, bob.UserID, model.NotificationInfo, "bob", "msg", "", nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	w.push(append(mine, theirs)...)
	if f.pusher.sentTo(alice.UserID) != 2 || f.pusher.sentTo(bob.UserID) != 1 {
		t.Errorf("pushes = %d/%d, want 2/1", f.pusher.sentTo(alice.UserID), f.pusher.sentTo(bob.UserID))
	}

	if err := s.MarkRead(ctx, alice, theirs.ID.String()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("marking another user's notification: err = %v, want not found", err)
	}
	if err := s.MarkRead(ctx, alice, mine[0].ID.String()); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	unread, total, err := s.List(ctx, alice, true, 1, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(unread) != 1 || unread[0].Title != "two" {
		t.Errorf("unread = %+v (total %d), want only \"two\"", unread, total)
	}

	marked, err := s.MarkAllRead(ctx, alice)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if marked != 1 {
		t.Errorf("MarkAllRead = %d, want 1", marked)
	}
	if n := f.count(&model.Notification{}, "user_id = ? AND is_read = ?", bob.UserID, false); n != 1 {
		t.Errorf("bob's unread = %d, want untouched 1", n)
	}
	if _, _, err := s.List(ctx, Actor{}, false, 1, 20); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous list: err = %v, want unauthenticated", err)
	}
}
