package usecase

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"sitechat/internal/adapter/repository"
	"sitechat/internal/domain/entity"
	domainrepo "sitechat/internal/domain/repository"
	"sitechat/pkg/errors"
)

var (
	worker  = &entity.User{ID: "U1", Name: "Ana", Role: entity.RoleWorker, SiteIDs: []string{"S1"}}
	admin   = &entity.User{ID: "U2", Name: "Bruno", Role: entity.RoleAdmin, SiteIDs: []string{"S1"}}
	admin2  = &entity.User{ID: "U3", Name: "Carla", Role: entity.RoleAdmin, SiteIDs: []string{"S1"}}
	outside = &entity.User{ID: "U9", Name: "Davi", Role: entity.RoleAdmin, SiteIDs: []string{"S2"}}
)

// flakyMessageRepo fails or holds Create calls on demand.
type flakyMessageRepo struct {
	domainrepo.MessageRepository

	mu       sync.Mutex
	failures int
	hold     chan struct{}
	creates  int
}

func (r *flakyMessageRepo) Create(ctx context.Context, scope entity.Scope, message *entity.Message) error {
	r.mu.Lock()
	r.creates++
	fail := r.failures > 0
	if fail {
		r.failures--
	}
	hold := r.hold
	r.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return errors.Unavailable("store unavailable", nil)
	}
	return r.MessageRepository.Create(ctx, scope, message)
}

func (r *flakyMessageRepo) failNext(n int) {
	r.mu.Lock()
	r.failures = n
	r.mu.Unlock()
}

func (r *flakyMessageRepo) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

// fakeBlobService records uploads and deletes; failAt makes the nth upload fail.
type fakeBlobService struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
	failAt   int
}

func (f *fakeBlobService) upload(namespace string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt > 0 && len(f.uploaded)+1 == f.failAt {
		return "", errors.Internal("bucket unavailable", nil)
	}
	url := "https://storage.googleapis.com/test/public/" + namespace + "/" + string(rune('a'+len(f.uploaded)))
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeBlobService) UploadImage(ctx context.Context, media io.Reader, namespace string) (string, error) {
	return f.upload(namespace)
}

func (f *fakeBlobService) UploadVideo(ctx context.Context, media io.Reader, namespace string) (string, error) {
	return f.upload(namespace)
}

func (f *fakeBlobService) UploadFile(ctx context.Context, media io.Reader, filename, namespace string) (string, error) {
	return f.upload(namespace)
}

func (f *fakeBlobService) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

type fixture struct {
	repo     *flakyMessageRepo
	users    *repository.MemoryUserRepository
	blobs    *fakeBlobService
	messages *MessageUseCase
	threads  *ThreadUseCase
}

func newFixture(t *testing.T, opts MessageOptions) *fixture {
	t.Helper()

	repo := &flakyMessageRepo{MessageRepository: repository.NewMemoryMessageRepository()}
	users := repository.NewMemoryUserRepository(worker, admin, admin2, outside)
	blobs := &fakeBlobService{}

	return &fixture{
		repo:     repo,
		users:    users,
		blobs:    blobs,
		messages: NewMessageUseCase(repo, users, repository.NewMemoryNotificationRepository(), blobs, opts),
		threads:  NewThreadUseCase(repo, users),
	}
}

// recorder collects the lists a session emits.
type recorder struct {
	mu    sync.Mutex
	lists [][]*entity.Message
}

func (r *recorder) onChange(messages []*entity.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, messages)
}

func (r *recorder) last() []*entity.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lists) == 0 {
		return nil
	}
	return r.lists[len(r.lists)-1]
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
