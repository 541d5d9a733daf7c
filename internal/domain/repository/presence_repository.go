package repository

import (
	"context"

	"sitechat/internal/domain/entity"
)

type PresenceRepository interface {
	GetStatus(ctx context.Context, userID string) (*entity.Presence, error)
	Heartbeat(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
}
