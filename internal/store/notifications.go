package store

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/sirupsen/logrus"
)

const notificationsPath = "/api/notifications"

// NotificationStore caches server-generated notifications. The client only
// reads, marks read, or deletes them.
type NotificationStore struct {
	Collection[entities.Notification]

	api API
	log logrus.FieldLogger
}

func NewNotificationStore(client API, log logrus.FieldLogger) *NotificationStore {
	return &NotificationStore{
		api: client,
		log: logging.OrDiscard(log).WithField("store", "notifications"),
	}
}

func (s *NotificationStore) Refresh(ctx context.Context) {
	s.refresh(ctx, s.log, func(ctx context.Context) ([]entities.Notification, error) {
		return fetchList[entities.Notification](ctx, s.api, notificationsPath)
	})
}

func (s *NotificationStore) UnreadCount() int {
	n := 0
	for _, item := range s.Items() {
		if !item.Read {
			n++
		}
	}
	return n
}

func (s *NotificationStore) MarkRead(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d/read", notificationsPath, id), nil, nil); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	s.update(id, func(n entities.Notification) entities.Notification {
		n.Read = true
		return n
	})
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context) error {
	if err := s.api.Do(ctx, http.MethodPut, notificationsPath+"/read-all", nil, nil); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	s.updateAll(func(n entities.Notification) entities.Notification {
		n.Read = true
		return n
	})
	return nil
}

func (s *NotificationStore) Delete(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", notificationsPath, id), nil, nil); err != nil {
		return fmt.Errorf("delete notification %d: %w", id, err)
	}
	s.remove(id)
	return nil
}

func (s *NotificationStore) Reset() {
	s.reset()
}
