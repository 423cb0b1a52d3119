package services

import (
	"context"
	"sync"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/realtime"
	"civicreport-be/repositories"

	"go.uber.org/zap"
)

const pushTimeout = 5 * time.Second

// NotificationService persists notifications and pushes live events.
// Persistence is the durable guarantee; pushes are best effort and never
// fail the caller.
type NotificationService struct {
	store repositories.Store
	pub   realtime.Publisher
	log   *zap.Logger
	now   Clock

	pending sync.WaitGroup
}

func NewNotificationService(store repositories.Store, pub realtime.Publisher, log *zap.Logger) *NotificationService {
	return &NotificationService{store: store, pub: pub, log: log, now: time.Now}
}

// record writes a notification through the given store, which may be a
// transaction.
func (s *NotificationService) record(ctx context.Context, store repositories.Store, userID, title, message string, typ models.NotificationType) (*models.Notification, error) {
	n := &models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: s.now(),
	}
	if err := store.Notifications().Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Notify persists a notification for userID and pushes it to live sessions.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message string, typ models.NotificationType) (*models.Notification, error) {
	if !typ.Valid() {
		return nil, apperrors.Validation("Invalid notification type")
	}
	n, err := s.record(ctx, s.store, userID, title, message, typ)
	if err != nil {
		return nil, err
	}
	s.Push(userID, realtime.Event{Name: realtime.EventNotification, Data: n})
	return n, nil
}

// Push delivers event to userID in the background.
func (s *NotificationService) Push(userID string, event realtime.Event) {
	s.dispatch(event, func(ctx context.Context) error {
		return s.pub.ToUser(ctx, userID, event)
	}, zap.String("user_id", userID))
}

// Broadcast delivers event to every live session in the background.
func (s *NotificationService) Broadcast(event realtime.Event) {
	s.dispatch(event, func(ctx context.Context) error {
		return s.pub.Broadcast(ctx, event)
	})
}

func (s *NotificationService) dispatch(event realtime.Event, send func(ctx context.Context) error, fields ...zap.Field) {
	if s.pub == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.log.Warn("realtime push failed", append(fields, zap.String("event", event.Name), zap.Error(err))...)
		}
	}()
}

// Wait blocks until in-flight pushes finish.
func (s *NotificationService) Wait() {
	s.pending.Wait()
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page repositories.Page) ([]models.Notification, int64, error) {
	items, total, err := s.store.Notifications().List(ctx, userID, unreadOnly, page)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.store.Notifications().MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	return s.store.Notifications().Delete(ctx, id, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.store.Notifications().CountUnread(ctx, userID)
}
