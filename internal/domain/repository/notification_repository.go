package repository

import "context"

type NotificationRepository interface {
	// MarkAsRead is idempotent. It fails with FORBIDDEN when the notification belongs to someone else.
	MarkAsRead(ctx context.Context, notificationID, userID string) error
}
