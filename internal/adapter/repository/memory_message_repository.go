package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/pkg/errors"
)

type memorySubscription struct {
	scope      entity.Scope
	onSnapshot repository.SnapshotFunc

	// mu serializes deliveries; delivered is the store version last handed out.
	mu        sync.Mutex
	delivered uint64
}

// deliver hands out a snapshot taken at version unless a newer one already went out.
func (s *memorySubscription) deliver(version uint64, messages []*entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version
	s.onSnapshot(messages)
}

// memoryMessageRepository keeps messages in process. Subscribers are called
// synchronously, outside the store lock, after every change to their scope,
// and never see an older snapshot after a newer one.
type memoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]*entity.Message
	subs     map[string]*memorySubscription
	version  uint64
	clock    func() time.Time
}

func NewMemoryMessageRepository() repository.MessageRepository {
	return newMemoryMessageRepository(time.Now)
}

func newMemoryMessageRepository(clock func() time.Time) *memoryMessageRepository {
	return &memoryMessageRepository{
		messages: make(map[string]*entity.Message),
		subs:     make(map[string]*memorySubscription),
		clock:    clock,
	}
}

func (r *memoryMessageRepository) Create(ctx context.Context, scope entity.Scope, message *entity.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if message.ClientID != "" {
		for _, existing := range r.messages {
			if existing.SenderID == message.SenderID && existing.ClientID == message.ClientID && inScope(existing, scope) {
				*message = *existing.Clone()
				r.mu.Unlock()
				return nil
			}
		}
	}

	message.ID = uuid.New().String()
	message.CreatedAt = r.clock()
	message.State = entity.MessageStateConfirmed
	if message.ReadBy == nil {
		message.ReadBy = []string{}
	}
	r.messages[message.ID] = message.Clone()
	r.version++
	r.mu.Unlock()

	r.publish(scope)
	return nil
}

func (r *memoryMessageRepository) GetByID(ctx context.Context, scope entity.Scope, messageID string) (*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	message, ok := r.messages[messageID]
	if !ok || !inScope(message, scope) {
		return nil, errors.NotFound("Message", nil)
	}
	return message.Clone(), nil
}

func (r *memoryMessageRepository) List(ctx context.Context, scope entity.Scope) ([]*entity.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(scope), nil
}

func (r *memoryMessageRepository) listLocked(scope entity.Scope) []*entity.Message {
	messages := make([]*entity.Message, 0)
	for _, message := range r.messages {
		if inScope(message, scope) {
			messages = append(messages, message.Clone())
		}
	}
	return messages
}

func (r *memoryMessageRepository) Subscribe(ctx context.Context, scope entity.Scope, onSnapshot repository.SnapshotFunc, onError func(error)) (repository.CancelFunc, error) {
	id := uuid.New().String()

	sub := &memorySubscription{scope: scope, onSnapshot: onSnapshot}

	r.mu.Lock()
	r.subs[id] = sub
	r.version++
	version := r.version
	initial := r.listLocked(scope)
	r.mu.Unlock()

	sub.deliver(version, initial)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
	context.AfterFunc(ctx, cancel)

	return cancel, nil
}

func (r *memoryMessageRepository) Delete(ctx context.Context, scope entity.Scope, messageID, userID string) error {
	r.mu.Lock()
	message, ok := r.messages[messageID]
	if !ok || !inScope(message, scope) {
		r.mu.Unlock()
		return errors.NotFound("Message", nil)
	}
	if message.SenderID != userID {
		r.mu.Unlock()
		return errors.Forbidden("Only the sender can delete this message", nil)
	}
	delete(r.messages, messageID)
	r.version++
	r.mu.Unlock()

	r.publish(scope)
	return nil
}

func (r *memoryMessageRepository) MarkRead(ctx context.Context, scope entity.Scope, messageID, userID string) error {
	r.mu.Lock()
	message, ok := r.messages[messageID]
	if !ok || !inScope(message, scope) {
		r.mu.Unlock()
		return errors.NotFound("Message", nil)
	}

	changed := false
	if !message.IsReadBy(userID) {
		message.ReadBy = append(message.ReadBy, userID)
		changed = true
	}
	if message.IsDirect() && message.RecipientID == userID && message.ReadAt == nil {
		readAt := r.clock()
		message.ReadAt = &readAt
		changed = true
	}
	if changed {
		r.version++
	}
	r.mu.Unlock()

	if changed {
		r.publish(scope)
	}
	return nil
}

func (r *memoryMessageRepository) ListDirectForUser(ctx context.Context, siteID, userID string) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	messages := make([]*entity.Message, 0)
	for _, message := range r.messages {
		if message.SiteID != siteID || message.PairKey == "" {
			continue
		}
		for _, participant := range message.Participants {
			if participant == userID {
				messages = append(messages, message.Clone())
				break
			}
		}
	}
	return messages, nil
}

func (r *memoryMessageRepository) publish(scope entity.Scope) {
	type delivery struct {
		sub      *memorySubscription
		messages []*entity.Message
	}

	r.mu.RLock()
	version := r.version
	var deliveries []delivery
	for _, sub := range r.subs {
		if sub.scope.Key() == scope.Key() {
			deliveries = append(deliveries, delivery{sub: sub, messages: r.listLocked(sub.scope)})
		}
	}
	r.mu.RUnlock()

	for _, d := range deliveries {
		d.sub.deliver(version, d.messages)
	}
}
