package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/pkg/errors"
)

const notificationsCollection = "notifications"

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
	}
}

func (r *firestoreNotificationRepository) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	ref := r.client.Collection(notificationsCollection).Doc(notificationID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Notification", err)
			}
			return errors.Internal("Failed to get notification", err)
		}

		var notification entity.Notification
		if err := doc.DataTo(&notification); err != nil {
			return errors.Internal("Failed to parse notification data", err)
		}
		if notification.UserID != userID {
			return errors.Forbidden("Notification belongs to another user", nil)
		}
		if notification.Read {
			return nil
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "read", Value: true},
			{Path: "readAt", Value: firestore.ServerTimestamp},
		})
	})
}
