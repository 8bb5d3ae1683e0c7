// Package notifications mirrors the cart's consistency shape at smaller
// scope: a list, an independently queryable unread count, and
// idempotent read-state toggles.
package notifications

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trademart/storefront/internal/store"
)

// Identity resolves the current user. The session manager implements it.
type Identity interface {
	CurrentUserID() (string, bool)
	Authorize(ctx context.Context) context.Context
}

// Notification is a notification row. Rows are created by system events
// and mutated only by read-state toggles.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Service executes notification queries and commands for the signed-in
// user.
type Service struct {
	store    store.Store
	identity Identity
	logger   *zap.Logger
}

// NewService creates a notifications service.
func NewService(st store.Store, identity Identity, logger *zap.Logger) *Service {
	return &Service{store: st, identity: identity, logger: logger}
}

// List returns the user's notifications, newest first. Unauthenticated
// callers and backend failures get an empty list.
func (s *Service) List(ctx context.Context) []Notification {
	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return []Notification{}
	}

	var items []Notification
	err := s.store.Select(s.identity.Authorize(ctx), store.CollectionNotifications, store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID)},
		Order:   &store.Order{Column: "created_at", Ascending: false},
	}, &items)
	if err != nil {
		s.logger.Error("fetch notifications failed", zap.Error(err))
		return []Notification{}
	}
	if items == nil {
		items = []Notification{}
	}
	return items
}

// UnreadCount returns the number of unread notifications via a
// count-only query. It always equals the number of List results with
// IsRead == false; both derive from the same rows.
func (s *Service) UnreadCount(ctx context.Context) int {
	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return 0
	}

	count, err := s.store.Count(s.identity.Authorize(ctx), store.CollectionNotifications, []store.Filter{
		store.Eq("user_id", userID),
		store.Eq("is_read", false),
	})
	if err != nil {
		s.logger.Error("fetch unread count failed", zap.Error(err))
		return 0
	}
	return count
}

// MarkRead marks one notification as read. Marking an already-read
// notification is a no-op success.
func (s *Service) MarkRead(ctx context.Context, notificationID string) bool {
	patch := map[string]any{"is_read": true}
	err := s.store.Update(s.identity.Authorize(ctx), store.CollectionNotifications, []store.Filter{
		store.Eq("id", notificationID),
	}, patch)
	if err != nil {
		s.logger.Error("mark notification read failed", zap.String("notification_id", notificationID), zap.Error(err))
		return false
	}
	return true
}

// MarkAllRead marks every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context) bool {
	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return false
	}

	patch := map[string]any{"is_read": true}
	err := s.store.Update(s.identity.Authorize(ctx), store.CollectionNotifications, []store.Filter{
		store.Eq("user_id", userID),
		store.Eq("is_read", false),
	}, patch)
	if err != nil {
		s.logger.Error("mark all notifications read failed", zap.Error(err))
		return false
	}
	return true
}

// Add creates a notification for the current user.
func (s *Service) Add(ctx context.Context, title, message string) bool {
	userID, ok := s.identity.CurrentUserID()
	if !ok {
		return false
	}

	row := map[string]any{
		"user_id": userID,
		"title":   title,
		"message": message,
		"is_read": false,
	}
	if err := s.store.Insert(s.identity.Authorize(ctx), store.CollectionNotifications, row); err != nil {
		s.logger.Error("insert notification failed", zap.Error(err))
		return false
	}
	return true
}
