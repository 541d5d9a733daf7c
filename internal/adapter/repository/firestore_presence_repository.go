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

// firestorePresenceRepository reads and writes the presence fields kept on
// the user documents.
type firestorePresenceRepository struct {
	client *firestore.Client
}

func NewFirestorePresenceRepository(client *firestore.Client) repository.PresenceRepository {
	return &firestorePresenceRepository{
		client: client,
	}
}

func (r *firestorePresenceRepository) GetStatus(ctx context.Context, userID string) (*entity.Presence, error) {
	doc, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get presence", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse presence data", err)
	}

	return &entity.Presence{
		IsOnline:     user.OnlineStatus == entity.OnlineStatusOnline,
		LastSeen:     user.LastSeen,
		LastActivity: user.LastActivity,
	}, nil
}

func (r *firestorePresenceRepository) Heartbeat(ctx context.Context, userID string) error {
	_, err := r.client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]interface{}{
		"onlineStatus": entity.OnlineStatusOnline,
		"lastSeen":     firestore.ServerTimestamp,
		"lastActivity": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return errors.Internal("Failed to record heartbeat", err)
	}
	return nil
}

func (r *firestorePresenceRepository) MarkOffline(ctx context.Context, userID string) error {
	_, err := r.client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]interface{}{
		"onlineStatus": entity.OnlineStatusOffline,
		"lastSeen":     firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return errors.Internal("Failed to record offline status", err)
	}
	return nil
}
