package repository

import (
	"context"
	"sync"
	"time"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/pkg/errors"
)

type MemoryNotificationRepository struct {
	mu            sync.Mutex
	notifications map[string]*entity.Notification
}

var _ repository.NotificationRepository = (*MemoryNotificationRepository)(nil)

func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{notifications: make(map[string]*entity.Notification)}
}

func (r *MemoryNotificationRepository) Save(notification *entity.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *notification
	r.notifications[notification.ID] = &copied
}

func (r *MemoryNotificationRepository) Get(id string) (*entity.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, false
	}
	copied := *n
	return &copied, true
}

func (r *MemoryNotificationRepository) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[notificationID]
	if !ok {
		return errors.NotFound("Notification", nil)
	}
	if n.UserID != userID {
		return errors.Forbidden("Notification belongs to another user", nil)
	}
	if n.Read {
		return nil
	}
	now := time.Now()
	n.Read = true
	n.ReadAt = &now
	return nil
}
