package repository

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/pkg/errors"
)

// MemoryUserRepository is the user directory used with the memory store driver.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*entity.User
}

var _ repository.UserRepository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository(users ...*entity.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[string]*entity.User)}
	for _, u := range users {
		r.Save(u)
	}
	return r
}

// LoadMemoryUsers reads a JSON array of users, as served by the users API.
func LoadMemoryUsers(path string) (*MemoryUserRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Internal("Failed to read seed users", err)
	}

	var users []*entity.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, errors.Internal("Failed to parse seed users", err)
	}
	return NewMemoryUserRepository(users...), nil
}

func (r *MemoryUserRepository) Save(user *entity.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	copied.SiteIDs = append([]string(nil), user.SiteIDs...)
	r.users[user.ID] = &copied
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) ListBySiteAndRole(ctx context.Context, siteID, role string) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*entity.User, 0)
	for _, user := range r.users {
		if user.Role == role && user.BelongsTo(siteID) {
			copied := *user
			users = append(users, &copied)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
