package repository

import (
	"context"

	"sitechat/internal/domain/entity"
)

// CancelFunc releases a subscription. Calling it more than once is a no-op.
type CancelFunc func()

// SnapshotFunc receives the full current message set of a scope on every change.
type SnapshotFunc func(messages []*entity.Message)

type MessageRepository interface {
	// Create persists a confirmed message and fills in its store-assigned ID.
	Create(ctx context.Context, scope entity.Scope, message *entity.Message) error
	GetByID(ctx context.Context, scope entity.Scope, messageID string) (*entity.Message, error)
	List(ctx context.Context, scope entity.Scope) ([]*entity.Message, error)
	Subscribe(ctx context.Context, scope entity.Scope, onSnapshot SnapshotFunc, onError func(error)) (CancelFunc, error)

	// Delete hard-removes a message. Only its sender may delete it.
	Delete(ctx context.Context, scope entity.Scope, messageID, userID string) error

	// MarkRead adds userID to readBy; for direct messages read by the
	// recipient it also sets readAt once.
	MarkRead(ctx context.Context, scope entity.Scope, messageID, userID string) error

	// ListDirectForUser returns every direct message of the site that involves userID.
	ListDirectForUser(ctx context.Context, siteID, userID string) ([]*entity.Message, error)
}
