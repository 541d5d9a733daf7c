package repository

import (
	"context"
	"sync"
	"time"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
)

type memoryPresenceRepository struct {
	mu       sync.RWMutex
	presence map[string]entity.Presence
	clock    func() time.Time
}

func NewMemoryPresenceRepository() repository.PresenceRepository {
	return &memoryPresenceRepository{
		presence: make(map[string]entity.Presence),
		clock:    time.Now,
	}
}

// GetStatus reports unknown users as offline with no timestamps.
func (r *memoryPresenceRepository) GetStatus(ctx context.Context, userID string) (*entity.Presence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.presence[userID]
	return &p, nil
}

func (r *memoryPresenceRepository) Heartbeat(ctx context.Context, userID string) error {
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence[userID] = entity.Presence{IsOnline: true, LastSeen: &now, LastActivity: &now}
	return nil
}

func (r *memoryPresenceRepository) MarkOffline(ctx context.Context, userID string) error {
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.presence[userID]
	p.IsOnline = false
	p.LastSeen = &now
	r.presence[userID] = p
	return nil
}
